package core

import (
	"context"
	"errors"
	"testing"

	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/kernel"
	"github.com/barysiuk/kenv/internal/kernel/kerneltest"
)

func probeReply(executable, virtualEnv string) func(string) ([]kernel.Output, error) {
	payload := `{"home": "/home/jo", "versionInfo": [3, 11, 2, "final", 0], "version": "3.11.2",
		"is64bit": true, "executable": "` + executable + `", "sysPrefix": "/usr",
		"isVenv": ` + map[bool]string{true: "true", false: "false"}[virtualEnv != ""] + `, "isConda": false,
		"VIRTUAL_ENV": "` + virtualEnv + `"}`
	return func(code string) ([]kernel.Output, error) {
		if code != pyenv.ProbeCode() {
			return nil, errors.New("unexpected code")
		}
		return []kernel.Output{kerneltest.Chunk(kernel.Item{MIME: kernel.MIMEEnvironment, Data: []byte(payload)})}, nil
	}
}

func TestServiceEnvironments(t *testing.T) {
	loc := kerneltest.NewLocator()
	loc.Attach("a.ipynb", kerneltest.NewKernel("k-a", probeReply("/home/jo/a/.venv/bin/python", "/home/jo/a/.venv")))
	loc.Attach("broken.ipynb", kerneltest.NewKernel("k-b", func(string) ([]kernel.Output, error) {
		return nil, errors.New("websocket closed")
	}))
	loc.Attach("c.ipynb", kerneltest.NewKernel("k-c", probeReply("/usr/bin/python3", "")))

	svc := newTestService(t, nil, newFakesAsManagers()...)
	envs, err := svc.Environments(context.Background(), loc)
	if err != nil {
		t.Fatalf("Environments() error = %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("Environments() returned %d environments, want 2", len(envs))
	}
	if envs[0].Handle.Document != "a.ipynb" || envs[0].Env.Environment.Name != ".venv" {
		t.Errorf("envs[0] = %+v", envs[0])
	}
	if envs[1].Handle.Document != "c.ipynb" || pyenv.ResolveType(envs[1].Env) != pyenv.TypeUnknown {
		t.Errorf("envs[1] = %+v", envs[1])
	}
	if !envs[0].IsValid(context.Background()) {
		t.Error("envs[0] handle is not valid")
	}
}

func TestServiceEnvironment(t *testing.T) {
	loc := kerneltest.NewLocator()
	r := kerneltest.NewKernel("k-r", nil)
	r.Lang = "R"
	loc.Attach("stats.ipynb", r)
	loc.Attach("py.ipynb", kerneltest.NewKernel("k-p", probeReply("/usr/bin/python3", "")))
	svc := newTestService(t, nil, newFakesAsManagers()...)
	ctx := context.Background()

	if _, err := svc.Environment(ctx, loc, "missing.ipynb"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Environment(missing) error = %v, want ErrDocumentNotFound", err)
	}
	if _, err := svc.Environment(ctx, loc, "stats.ipynb"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Environment(R kernel) error = %v, want ErrDocumentNotFound", err)
	}
	renv, err := svc.Environment(ctx, loc, "py.ipynb")
	if err != nil {
		t.Fatalf("Environment(py) error = %v", err)
	}
	if renv.Handle.KernelID != "k-p" || renv.Env.ID != "/usr/bin/python3" {
		t.Errorf("Environment(py) = %+v", renv)
	}

	// Restarting the kernel invalidates the environment.
	loc.Attach("py.ipynb", kerneltest.NewKernel("k-p2", nil))
	if renv.IsValid(ctx) {
		t.Error("environment still valid after kernel restart")
	}
}

func newFakesAsManagers() []manager.Manager {
	pip, conda := newFakes()
	return []manager.Manager{pip, conda}
}
