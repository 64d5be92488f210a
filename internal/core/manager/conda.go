package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/core/pyenv"
)

func init() {
	Register(func(logger *zap.Logger, opts Options) Manager { return NewConda(logger, opts) })
}

// CondaPriority is the priority of the conda manager. Conda knows about
// pip-installed packages too, so its listings take precedence.
const CondaPriority = 100

// Conda manages packages with %conda. Against environments that are not
// conda environments every command is a no-op with empty output.
type Conda struct {
	exec   *Executor
	opts   Options
	logger *zap.Logger
}

// NewConda creates the conda manager. A zero opts.Timeout means DefaultTimeout.
func NewConda(logger *zap.Logger, opts Options) *Conda {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("manager", "conda"))
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Conda{exec: NewExecutor(FlavorConda, logger), opts: opts, logger: logger}
}

func (c *Conda) Name() string        { return "conda" }
func (c *Conda) Priority() int       { return CondaPriority }
func (c *Conda) Types() []pyenv.Type { return []pyenv.Type{pyenv.TypeConda} }

func (c *Conda) run(ctx context.Context, renv pyenv.RemoteEnvironment, args ...string) (Result, error) {
	return c.exec.Exec(ctx, renv, args, c.opts)
}

type condaPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// condaDryRun is the output of `conda update --all -d --json`.
type condaDryRun struct {
	Actions *struct {
		Fetch  []condaPackage `json:"FETCH"`
		Link   []condaPackage `json:"LINK"`
		Unlink []condaPackage `json:"UNLINK"`
	} `json:"actions"`
}

func (c *Conda) List(ctx context.Context, renv pyenv.RemoteEnvironment) ([]PackageInfo, error) {
	res, err := c.run(ctx, renv, "list", "--json")
	if err != nil {
		return nil, err
	}
	return ExtractJSON(strings.TrimSpace(res.Stdout), []PackageInfo{})
}

// ListOutdated dry-runs an update of everything: packages that would be
// unlinked and linked again are outdated, at the linked version. It has no
// answer when conda printed nothing.
func (c *Conda) ListOutdated(ctx context.Context, renv pyenv.RemoteEnvironment) (map[string]string, error) {
	res, err := c.run(ctx, renv, "update", "--all", "-d", "--json")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, nil
	}
	plan, err := ExtractJSON(res.Stdout, condaDryRun{})
	if err != nil {
		return nil, err
	}
	outdated := make(map[string]string)
	if plan.Actions == nil {
		return outdated, nil
	}
	unlinked := make(map[string]bool, len(plan.Actions.Unlink))
	for _, pkg := range plan.Actions.Unlink {
		unlinked[pkg.Name] = true
	}
	for _, pkg := range plan.Actions.Link {
		if unlinked[pkg.Name] {
			outdated[pkg.Name] = pkg.Version
		}
	}
	return outdated, nil
}

func (c *Conda) Update(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error {
	_, err := c.run(ctx, renv, "update", pkg, "-y")
	return err
}

func (c *Conda) UpdateAll(ctx context.Context, renv pyenv.RemoteEnvironment) error {
	_, err := c.run(ctx, renv, "update", "--all")
	return err
}

func (c *Conda) Uninstall(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error {
	_, err := c.run(ctx, renv, "remove", pkg, "-y")
	return err
}

func (c *Conda) Install(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error {
	_, err := c.run(ctx, renv, "install", pkg)
	return err
}

func (c *Conda) Export(ctx context.Context, renv pyenv.RemoteEnvironment) (*Export, error) {
	res, err := c.run(ctx, renv, "env", "export")
	if err != nil {
		return nil, err
	}
	return &Export{
		Contents: strings.TrimSpace(res.Stdout),
		Language: "yaml",
		File:     "environment.yml",
	}, nil
}

// Search lists the builds of query available in the configured channels.
func (c *Conda) Search(ctx context.Context, renv pyenv.RemoteEnvironment, query string) ([]SearchResult, error) {
	res, err := c.run(ctx, renv, "search", query, "--json")
	if err != nil {
		return nil, err
	}
	return parseCondaSearch(res.Stdout)
}

// parseCondaSearch parses `conda search --json`, which maps each matching
// package name to its builds, or reports {"error": ...}.
func parseCondaSearch(output string) ([]SearchResult, error) {
	raw, err := ExtractJSON[json.RawMessage](output, nil)
	if err != nil || raw == nil {
		return nil, err
	}
	doc := gjson.ParseBytes(raw)
	if msg := doc.Get("error"); msg.Exists() {
		return nil, fmt.Errorf("conda search: %s", strings.TrimSpace(msg.String()))
	}

	var results []SearchResult
	seen := make(map[SearchResult]bool)
	doc.ForEach(func(name, builds gjson.Result) bool {
		for _, b := range builds.Array() {
			r := SearchResult{
				Name:    b.Get("name").String(),
				Version: b.Get("version").String(),
				Channel: b.Get("channel").String(),
			}
			if r.Name == "" {
				r.Name = name.String()
			}
			if r.Version == "" || seen[r] {
				continue
			}
			seen[r] = true
			results = append(results, r)
		}
		return true
	})
	return results, nil
}
