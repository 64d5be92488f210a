package manager

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/core/pyenv"
)

func init() {
	Register(func(logger *zap.Logger, opts Options) Manager { return NewPip(logger, opts) })
}

// PipPriority is the priority of the pip manager.
const PipPriority = 0

// Pip manages packages with %pip. It serves virtual environments and every
// environment nothing else claims.
type Pip struct {
	exec   *Executor
	opts   Options
	logger *zap.Logger
}

// NewPip creates the pip manager. A zero opts.Timeout means DefaultTimeout.
func NewPip(logger *zap.Logger, opts Options) *Pip {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("manager", "pip"))
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Pip{exec: NewExecutor(FlavorPip, logger), opts: opts, logger: logger}
}

func (p *Pip) Name() string  { return "pip" }
func (p *Pip) Priority() int { return PipPriority }
func (p *Pip) Types() []pyenv.Type {
	return []pyenv.Type{pyenv.TypeVirtualEnvironment, pyenv.TypeUnknown}
}

func (p *Pip) run(ctx context.Context, renv pyenv.RemoteEnvironment, args ...string) (Result, error) {
	return p.exec.Exec(ctx, renv, args, p.opts)
}

type pipOutdated struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	LatestVersion string `json:"latest_version"`
}

func (p *Pip) List(ctx context.Context, renv pyenv.RemoteEnvironment) ([]PackageInfo, error) {
	res, err := p.run(ctx, renv, "list", "--format", "json")
	if err != nil {
		return nil, err
	}
	return ExtractJSON(res.Stdout, []PackageInfo{})
}

// ListOutdated always answers for pip; the map is empty when nothing is
// outdated.
func (p *Pip) ListOutdated(ctx context.Context, renv pyenv.RemoteEnvironment) (map[string]string, error) {
	res, err := p.run(ctx, renv, "list", "--outdated", "--format", "json")
	if err != nil {
		return nil, err
	}
	pkgs, err := ExtractJSON(res.Stdout, []pipOutdated{})
	if err != nil {
		return nil, err
	}
	outdated := make(map[string]string, len(pkgs))
	for _, pkg := range pkgs {
		outdated[pkg.Name] = pkg.LatestVersion
	}
	return outdated, nil
}

func (p *Pip) Update(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error {
	_, err := p.run(ctx, renv, "install", "-U", pkg)
	return err
}

func (p *Pip) UpdateAll(ctx context.Context, renv pyenv.RemoteEnvironment) error {
	outdated, err := p.ListOutdated(ctx, renv)
	if err != nil {
		return err
	}
	if len(outdated) == 0 {
		p.logger.Error("no outdated packages found", zap.String("env", renv.Env.ID))
		return nil
	}
	names := make([]string, 0, len(outdated))
	for name := range outdated {
		names = append(names, name)
	}
	sortFold(names)
	_, err = p.run(ctx, renv, append([]string{"install", "-U"}, names...)...)
	return err
}

func (p *Pip) Uninstall(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error {
	_, err := p.run(ctx, renv, "uninstall", "-y", pkg)
	return err
}

func (p *Pip) Install(ctx context.Context, renv pyenv.RemoteEnvironment, pkg string) error {
	_, err := p.run(ctx, renv, "install", pkg)
	return err
}

func (p *Pip) Export(ctx context.Context, renv pyenv.RemoteEnvironment) (*Export, error) {
	res, err := p.run(ctx, renv, "freeze")
	if err != nil {
		return nil, err
	}
	return &Export{
		Contents: strings.TrimSpace(res.Stdout),
		Language: "pip-requirements",
		File:     "requirements.txt",
	}, nil
}

var (
	pipIndexHeader       = regexp.MustCompile(`(?m)^(\S+) \([^)]*\)\s*$`)
	pipAvailableVersions = regexp.MustCompile(`(?m)^Available versions:\s*(.*)$`)
)

// Search lists the versions of query available on the package index.
func (p *Pip) Search(ctx context.Context, renv pyenv.RemoteEnvironment, query string) ([]SearchResult, error) {
	res, err := p.run(ctx, renv, "index", "versions", query)
	if err != nil {
		return nil, err
	}
	return parsePipVersions(query, res.Stdout), nil
}

// parsePipVersions parses the output of `pip index versions`:
//
//	numpy (1.26.4)
//	Available versions: 1.26.4, 1.26.3
func parsePipVersions(name, output string) []SearchResult {
	m := pipAvailableVersions.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	if h := pipIndexHeader.FindStringSubmatch(output); h != nil {
		name = h[1]
	}
	var results []SearchResult
	for _, v := range strings.Split(m[1], ",") {
		if v = strings.TrimSpace(v); v != "" {
			results = append(results, SearchResult{Name: name, Version: v})
		}
	}
	return results
}
