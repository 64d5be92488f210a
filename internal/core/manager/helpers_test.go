package manager_test

import (
	"github.com/barysiuk/kenv/internal/core/pyenv"
	"github.com/barysiuk/kenv/internal/kernel"
	"github.com/barysiuk/kenv/internal/kernel/kerneltest"
)

// scripted answers kernel commands by exact code, with stdout.
type scripted map[string]string

func (s scripted) run(code string) ([]kernel.Output, error) {
	out, ok := s[code]
	if !ok {
		return []kernel.Output{kerneltest.Chunk(kernel.StderrItem("unexpected command: " + code))}, nil
	}
	return []kernel.Output{kerneltest.Chunk(kernel.StdoutItem(out))}, nil
}

func condaEnv(sysPrefix string) pyenv.Environment {
	return pyenv.Environment{
		ID:          sysPrefix + "/bin/python",
		Path:        sysPrefix + "/bin/python",
		Executable:  pyenv.Executable{Path: sysPrefix + "/bin/python", SysPrefix: sysPrefix},
		Environment: &pyenv.Details{Type: pyenv.ToolConda, Folder: sysPrefix},
		Tools:       []pyenv.Tool{pyenv.ToolConda},
	}
}

func venvEnv() pyenv.Environment {
	return pyenv.Environment{
		ID:          "/home/jo/.venv/bin/python",
		Path:        "/home/jo/.venv/bin/python",
		Executable:  pyenv.Executable{Path: "/home/jo/.venv/bin/python", SysPrefix: "/home/jo/.venv"},
		Environment: &pyenv.Details{Type: pyenv.ToolVenv, Folder: "/home/jo/.venv"},
		Tools:       []pyenv.Tool{pyenv.ToolVenv},
	}
}

// attach returns env bound to a live kernel running script.
func attach(env pyenv.Environment, script func(string) ([]kernel.Output, error)) (pyenv.RemoteEnvironment, *kerneltest.Kernel, *kerneltest.Locator) {
	loc := kerneltest.NewLocator()
	k := kerneltest.NewKernel("k1", script)
	return pyenv.RemoteEnvironment{Handle: kerneltest.Handle(loc, "nb.ipynb", k), Env: env}, k, loc
}
