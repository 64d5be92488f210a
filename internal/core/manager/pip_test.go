package manager_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/barysiuk/kenv/internal/core/manager"
	"github.com/barysiuk/kenv/internal/core/pyenv"
)

func TestPipList(t *testing.T) {
	renv, _, _ := attach(venvEnv(), scripted{
		"%pip list --format json": `[{"name": "numpy", "version": "1.26.0"}, {"name": "Pandas", "version": "2.1.1"}]` +
			"\n[notice] A new release of pip is available: 23.2 -> 24.0\n",
	}.run)

	got, err := manager.NewPip(nil, manager.Options{}).List(context.Background(), renv)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []manager.PackageInfo{{Name: "numpy", Version: "1.26.0"}, {Name: "Pandas", Version: "2.1.1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestPipListOutdated(t *testing.T) {
	renv, _, _ := attach(venvEnv(), scripted{
		"%pip list --outdated --format json": `[{"name": "numpy", "version": "1.26.0", "latest_version": "2.0.1", "latest_filetype": "wheel"}]`,
	}.run)

	got, err := manager.NewPip(nil, manager.Options{}).ListOutdated(context.Background(), renv)
	if err != nil {
		t.Fatalf("ListOutdated() error = %v", err)
	}
	if diff := cmp.Diff(map[string]string{"numpy": "2.0.1"}, got); diff != "" {
		t.Errorf("ListOutdated() mismatch (-want +got):\n%s", diff)
	}
}

func TestPipListOutdatedNothing(t *testing.T) {
	renv, _, _ := attach(venvEnv(), scripted{"%pip list --outdated --format json": "[]"}.run)
	got, err := manager.NewPip(nil, manager.Options{}).ListOutdated(context.Background(), renv)
	if err != nil {
		t.Fatalf("ListOutdated() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListOutdated() = %#v, want empty non-nil map", got)
	}
}

func TestPipCommands(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(*manager.Pip, pyenv.RemoteEnvironment) error
		want []string
	}{
		{"update", func(p *manager.Pip, r pyenv.RemoteEnvironment) error { return p.Update(ctx, r, "numpy") },
			[]string{"%pip install -U numpy"}},
		{"uninstall", func(p *manager.Pip, r pyenv.RemoteEnvironment) error { return p.Uninstall(ctx, r, "numpy") },
			[]string{"%pip uninstall -y numpy"}},
		{"install", func(p *manager.Pip, r pyenv.RemoteEnvironment) error { return p.Install(ctx, r, "numpy==1.26") },
			[]string{"%pip install numpy==1.26"}},
		{"update all", func(p *manager.Pip, r pyenv.RemoteEnvironment) error { return p.UpdateAll(ctx, r) },
			[]string{"%pip list --outdated --format json", "%pip install -U numpy Pandas"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renv, k, _ := attach(venvEnv(), scripted{
				"%pip list --outdated --format json": `[{"name": "Pandas", "latest_version": "2.2"}, {"name": "numpy", "latest_version": "2.0"}]`,
			}.run)
			if err := tt.run(manager.NewPip(nil, manager.Options{}), renv); err != nil {
				t.Fatalf("error = %v", err)
			}
			if diff := cmp.Diff(tt.want, k.Calls()); diff != "" {
				t.Errorf("kernel calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPipUpdateAllWithNothingOutdated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	renv, k, _ := attach(venvEnv(), scripted{"%pip list --outdated --format json": "[]"}.run)

	if err := manager.NewPip(zap.New(core), manager.Options{}).UpdateAll(context.Background(), renv); err != nil {
		t.Fatalf("UpdateAll() error = %v", err)
	}
	if len(k.Calls()) != 1 {
		t.Errorf("kernel calls = %q, want only the outdated listing", k.Calls())
	}
	if logs.FilterMessage("no outdated packages found").Len() != 1 {
		t.Errorf("missing log, got %v", logs.All())
	}
}

func TestPipExport(t *testing.T) {
	renv, _, _ := attach(venvEnv(), scripted{"%pip freeze": "numpy==1.26.0\npandas==2.1.1\n\n"}.run)
	got, err := manager.NewPip(nil, manager.Options{}).Export(context.Background(), renv)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	want := &manager.Export{Contents: "numpy==1.26.0\npandas==2.1.1", Language: "pip-requirements", File: "requirements.txt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Export() mismatch (-want +got):\n%s", diff)
	}
}

func TestPipSearch(t *testing.T) {
	renv, _, _ := attach(venvEnv(), scripted{
		"%pip index versions requests": "WARNING: pip index is currently an experimental command.\n" +
			"requests (2.31.0)\nAvailable versions: 2.31.0, 2.30.0, 2.29.0\n  INSTALLED: 2.30.0\n  LATEST:    2.31.0\n",
		"%pip index versions numpy": "numpy (2.0.1)\nAvailable versions: 2.0.1, 1.26.4\n",
	}.run)
	p := manager.NewPip(nil, manager.Options{})

	got, err := p.Search(context.Background(), renv, "requests")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	want := []manager.SearchResult{
		{Name: "requests", Version: "2.31.0"},
		{Name: "requests", Version: "2.30.0"},
		{Name: "requests", Version: "2.29.0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Search() mismatch (-want +got):\n%s", diff)
	}

	got, _ = p.Search(context.Background(), renv, "numpy")
	if len(got) != 2 || got[0].Name != "numpy" {
		t.Errorf("Search(numpy) = %+v", got)
	}

	got, err = p.Search(context.Background(), renv, "no-such-package")
	if err != nil || len(got) != 0 {
		t.Errorf("Search(missing) = %+v, %v, want no results", got, err)
	}
}
