package manager

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/kernel"
)

// DefaultTimeout is the timeout providers pass for every command.
const DefaultTimeout = 60 * time.Second

// Flavor selects the magic command an Executor sends.
type Flavor int

const (
	FlavorPip Flavor = iota
	FlavorConda
)

// Magic returns the IPython magic for the flavor.
func (f Flavor) Magic() string {
	if f == FlavorConda {
		return "%conda"
	}
	return "%pip"
}

func (f Flavor) String() string { return strings.TrimPrefix(f.Magic(), "%") }

// Conda subcommands that act on an environment and need it named with
// --prefix, and the ones that would otherwise prompt.
var (
	condaPrefixCommands = []string{"env", "install", "list", "remove", "uninstall", "update", "upgrade"}
	condaYesCommands    = []string{"install", "remove", "uninstall", "update", "upgrade"}
)

// Options tune a single command execution.
type Options struct {
	// Timeout is advisory: a command running longer is logged, not stopped.
	Timeout time.Duration
}

// Result is the text a command wrote to its output streams.
type Result struct {
	Stdout string
	Stderr string
}

// Executor runs package manager commands on the kernel of an environment.
type Executor struct {
	flavor Flavor
	logger *zap.Logger
}

// NewExecutor creates an Executor for flavor.
func NewExecutor(flavor Flavor, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{flavor: flavor, logger: logger}
}

// Command returns the code sent to the kernel for args. Conda commands
// are completed with the environment prefix and a non-interactive flag
// where the subcommand needs them. args is not modified.
func (e *Executor) Command(renv pyenv.RemoteEnvironment, args []string) string {
	args = slices.Clone(args)
	if e.flavor == FlavorConda && len(args) > 0 {
		if slices.Contains(condaPrefixCommands, args[0]) {
			if prefix := renv.Env.Executable.SysPrefix; prefix != "" {
				args = append(args, "--prefix", strings.ReplaceAll(prefix, `\`, `\\`))
			} else {
				e.logger.Warn("conda environment does not have a sys prefix", zap.String("env", renv.Env.ID))
			}
		}
		if slices.Contains(condaYesCommands, args[0]) && !slices.Contains(args, "-y") {
			args = append(args, "-y")
		}
	}
	return strings.Join(append([]string{e.flavor.Magic()}, args...), " ")
}

// Exec runs args on the environment's kernel and collects its output.
//
// The only error returned is kernel.ErrKernelUnavailable, when the
// environment's kernel is gone; nothing is sent in that case. Any failure
// while running the command is reported through Result.Stderr. A conda
// executor asked to run against a non-conda environment returns an empty
// Result.
func (e *Executor) Exec(ctx context.Context, renv pyenv.RemoteEnvironment, args []string, opts Options) (Result, error) {
	if e.flavor == FlavorConda && pyenv.ResolveType(renv.Env) != pyenv.TypeConda {
		return Result{}, nil
	}
	k, err := renv.Handle.Resolve(ctx)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	code := e.Command(renv, args)
	logger := e.logger.With(zap.String("command", code), zap.String("kernel", k.ID()))

	if opts.Timeout > 0 {
		started := time.Now()
		timer := time.AfterFunc(opts.Timeout, func() {
			logger.Warn("command is taking longer than its timeout",
				zap.Duration("timeout", opts.Timeout), zap.Duration("elapsed", time.Since(started)))
		})
		defer timer.Stop()
	}

	var stdout, stderr strings.Builder
	for out, err := range k.Execute(ctx, code) {
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				logger.Debug("command cancelled", zap.Error(err))
			} else {
				logger.Error("failed to execute command", zap.Error(err))
			}
			return Result{Stderr: err.Error()}, nil
		}
		kernel.LogErrors(logger, "command reported an error", out)
		for _, item := range out.Items {
			switch item.MIME {
			case kernel.MIMEStdout:
				stdout.WriteString(item.Text())
			case kernel.MIMEStderr:
				stderr.WriteString(item.Text())
			case kernel.MIMEError:
			default:
				logger.Error("unexpected output type", zap.String("mime", item.MIME), zap.String("data", item.Text()))
			}
		}
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if strings.TrimSpace(res.Stderr) != "" && strings.TrimSpace(res.Stdout) == "" {
		logger.Warn("command wrote only to stderr", zap.String("stderr", res.Stderr))
	}
	logger.Debug("command finished")
	return res, nil
}
