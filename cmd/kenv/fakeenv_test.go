package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/barysiuk/kenv/internal/kernel"
	"github.com/barysiuk/kenv/internal/kernel/jupytertest"
)

// fakeEnv simulates the Python environment behind a kernel: it answers the
// environment probe and the %pip / %conda commands kenv sends.
type fakeEnv struct {
	mu sync.Mutex

	conda  bool
	prefix string
	// pip and conda packages: name -> version
	pip, condaPkgs map[string]string
	// newest versions known to the index: name -> version
	latest map[string]string
}

func newPipEnv() *fakeEnv {
	return &fakeEnv{
		prefix:    "/home/jo/.venv",
		pip:       map[string]string{"numpy": "1.26.0", "rich": "13.5.2", "Flask": "3.0.0"},
		condaPkgs: map[string]string{},
		latest:    map[string]string{"numpy": "2.0.0", "rich": "13.5.2", "Flask": "3.0.0", "requests": "2.32.3"},
	}
}

func newCondaEnv() *fakeEnv {
	return &fakeEnv{
		conda:     true,
		prefix:    "/opt/conda/envs/ml",
		pip:       map[string]string{"rich": "13.5.2"},
		condaPkgs: map[string]string{"numpy": "1.26.0", "python": "3.11.5", "pandas": "2.1.0"},
		latest:    map[string]string{"numpy": "1.26.4", "python": "3.11.5", "pandas": "2.1.0", "scipy": "1.11.3"},
	}
}

func (f *fakeEnv) handle(code string) []jupytertest.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()

	if strings.Contains(code, "__kenv_remote_env_info") {
		return []jupytertest.Reply{jupytertest.Display(kernel.MIMEEnvironment, f.probe())}
	}

	fields := strings.Fields(code)
	if len(fields) == 0 {
		return nil
	}
	var args []string
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "--prefix":
			if i+1 >= len(fields) || fields[i+1] != f.prefix {
				return []jupytertest.Reply{jupytertest.Stderr("wrong prefix in " + code)}
			}
			i++
		case "-y":
		default:
			args = append(args, fields[i])
		}
	}

	switch fields[0] {
	case "%pip":
		return f.pipCommand(args)
	case "%conda":
		if !f.conda {
			return []jupytertest.Reply{jupytertest.Error("CondaError", "conda is not available")}
		}
		return f.condaCommand(args)
	}
	return []jupytertest.Reply{jupytertest.Error("SyntaxError", "invalid syntax")}
}

func (f *fakeEnv) probe() map[string]any {
	data := map[string]any{
		"home":              "/home/jo",
		"versionInfo":       []any{3, 11, 5, "final", 0},
		"version":           "3.11.5 (main, Sep 11 2023, 13:54:46) [GCC 11.2.0]",
		"is64bit":           true,
		"executable":        f.prefix + "/bin/python",
		"sysPrefix":         f.prefix,
		"isVenv":            !f.conda,
		"isConda":           f.conda,
		"CONDA_PREFIX":      nil,
		"CONDA_DEFAULT_ENV": nil,
		"VIRTUAL_ENV":       nil,
	}
	if f.conda {
		data["CONDA_PREFIX"] = f.prefix
		data["CONDA_DEFAULT_ENV"] = "ml"
	} else {
		data["VIRTUAL_ENV"] = f.prefix
	}
	return data
}

func stdoutJSON(v any) []jupytertest.Reply {
	data, _ := json.Marshal(v)
	return []jupytertest.Reply{jupytertest.Stdout(string(data) + "\n")}
}

func sortedNames(m map[string]string) []string {
	return slices.SortedFunc(maps.Keys(m), func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
}

func (f *fakeEnv) pipCommand(args []string) []jupytertest.Reply {
	cmd := strings.Join(args, " ")
	switch {
	case cmd == "list --format json":
		var out []map[string]string
		for _, name := range sortedNames(f.pip) {
			out = append(out, map[string]string{"name": name, "version": f.pip[name]})
		}
		return append([]jupytertest.Reply{jupytertest.Stdout("Note: you may need to restart the kernel to use updated packages.\n")}, stdoutJSON(out)...)

	case cmd == "list --outdated --format json":
		out := []map[string]string{}
		for _, name := range sortedNames(f.pip) {
			if l := f.latest[name]; l != "" && l != f.pip[name] {
				out = append(out, map[string]string{"name": name, "version": f.pip[name], "latest_version": l})
			}
		}
		return stdoutJSON(out)

	case len(args) >= 2 && args[0] == "install" && args[1] == "-U":
		for _, name := range args[2:] {
			if _, ok := f.pip[name]; ok {
				f.pip[name] = f.latest[name]
			}
		}
		return []jupytertest.Reply{jupytertest.Stdout("Successfully installed " + strings.Join(args[2:], " ") + "\n")}

	case len(args) == 2 && args[0] == "install":
		name, version, _ := strings.Cut(args[1], "==")
		if version == "" {
			version = f.latest[name]
		}
		if version == "" {
			return []jupytertest.Reply{jupytertest.Stderr("ERROR: No matching distribution found for " + args[1] + "\n")}
		}
		f.pip[name] = version
		return []jupytertest.Reply{jupytertest.Stdout(fmt.Sprintf("Successfully installed %s-%s\n", name, version))}

	case len(args) == 2 && args[0] == "uninstall":
		if _, ok := f.pip[args[1]]; !ok {
			return []jupytertest.Reply{jupytertest.Stderr("WARNING: Skipping " + args[1] + " as it is not installed.\n")}
		}
		delete(f.pip, args[1])
		return []jupytertest.Reply{jupytertest.Stdout("Successfully uninstalled " + args[1] + "\n")}

	case cmd == "freeze":
		var lines []string
		for _, name := range sortedNames(f.pip) {
			lines = append(lines, name+"=="+f.pip[name])
		}
		return []jupytertest.Reply{jupytertest.Stdout(strings.Join(lines, "\n") + "\n")}

	case len(args) == 3 && args[0] == "index" && args[1] == "versions":
		l, ok := f.latest[args[2]]
		if !ok {
			return []jupytertest.Reply{jupytertest.Stderr("ERROR: No matching distribution found for " + args[2] + "\n")}
		}
		return []jupytertest.Reply{jupytertest.Stdout(fmt.Sprintf("%s (%s)\nAvailable versions: %s\n", args[2], l, l))}
	}
	return []jupytertest.Reply{jupytertest.Stderr("ERROR: unknown command \"" + cmd + "\"\n")}
}

func (f *fakeEnv) condaCommand(args []string) []jupytertest.Reply {
	cmd := strings.Join(args, " ")
	switch {
	case cmd == "list --json":
		var out []map[string]string
		for _, name := range sortedNames(f.condaPkgs) {
			out = append(out, map[string]string{
				"name": name, "version": f.condaPkgs[name], "channel": "conda-forge",
				"base_url": "https://conda.anaconda.org/conda-forge", "build_string": "py311_0",
			})
		}
		return stdoutJSON(out)

	case cmd == "update --all -d --json":
		var unlink, link []map[string]string
		for _, name := range sortedNames(f.condaPkgs) {
			if l := f.latest[name]; l != "" && l != f.condaPkgs[name] {
				unlink = append(unlink, map[string]string{"name": name, "version": f.condaPkgs[name]})
				link = append(link, map[string]string{"name": name, "version": l})
			}
		}
		if len(link) == 0 {
			return stdoutJSON(map[string]any{"message": "All requested packages already installed.", "success": true})
		}
		return stdoutJSON(map[string]any{"actions": map[string]any{"UNLINK": unlink, "LINK": link}, "success": true})

	case cmd == "update --all":
		for name := range f.condaPkgs {
			if l := f.latest[name]; l != "" {
				f.condaPkgs[name] = l
			}
		}
		return []jupytertest.Reply{jupytertest.Stdout("Executing transaction: done\n")}

	case len(args) == 2 && args[0] == "update":
		if _, ok := f.condaPkgs[args[1]]; !ok {
			return []jupytertest.Reply{jupytertest.Stderr("PackageNotInstalledError: " + args[1] + "\n")}
		}
		f.condaPkgs[args[1]] = f.latest[args[1]]
		return []jupytertest.Reply{jupytertest.Stdout("Executing transaction: done\n")}

	case len(args) == 2 && args[0] == "install":
		name, version, _ := strings.Cut(args[1], "=")
		if version == "" {
			version = f.latest[name]
		}
		f.condaPkgs[name] = version
		return []jupytertest.Reply{jupytertest.Stdout("Executing transaction: done\n")}

	case len(args) == 2 && args[0] == "remove":
		delete(f.condaPkgs, args[1])
		return []jupytertest.Reply{jupytertest.Stdout("Executing transaction: done\n")}

	case cmd == "env export":
		var b strings.Builder
		b.WriteString("name: ml\nchannels:\n  - conda-forge\ndependencies:\n")
		for _, name := range sortedNames(f.condaPkgs) {
			fmt.Fprintf(&b, "  - %s=%s=py311_0\n", name, f.condaPkgs[name])
		}
		b.WriteString("prefix: " + f.prefix + "\n")
		return []jupytertest.Reply{jupytertest.Stdout(b.String())}

	case len(args) == 3 && args[0] == "search" && args[2] == "--json":
		l, ok := f.latest[args[1]]
		if !ok {
			return stdoutJSON(map[string]any{"error": "PackagesNotFoundError: " + args[1]})
		}
		entry := map[string]string{"name": args[1], "version": l, "channel": "conda-forge"}
		return stdoutJSON(map[string]any{args[1]: []map[string]string{entry, entry}})
	}
	return []jupytertest.Reply{jupytertest.Stderr("CondaError: unknown command \"" + cmd + "\"\n")}
}
