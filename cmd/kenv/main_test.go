package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/barysiuk/kenv/cmd/kenv/cmd"
	"github.com/barysiuk/kenv/internal/kernel/jupytertest"
)

const (
	pipServerKey   = "pip-server"
	condaServerKey = "conda-server"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"kenv": func() {
			if err := cmd.Execute(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	})
}

func TestScript(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:                 filepath.Join("testdata", "script"),
		RequireExplicitExec: true,
		Setup: func(e *testscript.Env) error {
			// Set HOME to WORK so ~/.kenv/ is created inside the temp dir
			e.Vars = append(e.Vars, "HOME="+e.WorkDir)

			// A token-less server with a venv kernel, used by default.
			pipSrv := jupytertest.NewServer("")
			pipSrv.AddSession("analysis.ipynb", "k-pip", "python3")
			pipSrv.SetKernelSpec("ir", "R")
			pipSrv.AddSession("stats.ipynb", "k-r", "ir")
			pipSrv.Handle(newPipEnv().handle)
			e.Defer(pipSrv.Close)

			// A server with a conda kernel that wants a token.
			condaSrv := jupytertest.NewServer("s3cret")
			condaSrv.AddSession("ml/train.ipynb", "k-conda", "python3")
			condaSrv.Handle(newCondaEnv().handle)
			e.Defer(condaSrv.Close)

			e.Values[pipServerKey] = pipSrv
			e.Values[condaServerKey] = condaSrv
			e.Vars = append(e.Vars,
				"KENV_SERVER_URL="+pipSrv.URL,
				"CONDA_URL="+condaSrv.URL,
			)
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			// executed asserts that a server did (or did not) receive code
			// containing a substring.
			// Usage: [!] executed <pip|conda> <substring>
			"executed": cmdExecuted,

			// session adds or removes a notebook session on a server.
			// Usage: session <pip|conda> add <path> <kernel-id> | remove <path>
			"session": cmdSession,
		},
	})
}

func server(ts *testscript.TestScript, name string) *jupytertest.Server {
	key := pipServerKey
	if name == "conda" {
		key = condaServerKey
	}
	srv, ok := ts.Value(key).(*jupytertest.Server)
	if !ok {
		ts.Fatalf("unknown server %q", name)
	}
	return srv
}

func cmdExecuted(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 2 {
		ts.Fatalf("usage: executed <pip|conda> <substring>")
	}
	executed := server(ts, args[0]).Executed()
	found := false
	for _, code := range executed {
		if strings.Contains(code, args[1]) {
			found = true
			break
		}
	}
	if neg && found {
		ts.Fatalf("server %s executed %q (expected not to)", args[0], args[1])
	}
	if !neg && !found {
		ts.Fatalf("server %s did not execute %q\nExecuted:\n%s", args[0], args[1], strings.Join(executed, "\n---\n"))
	}
}

func cmdSession(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("session does not support negation")
	}
	switch {
	case len(args) == 4 && args[1] == "add":
		server(ts, args[0]).AddSession(args[2], args[3], "python3")
	case len(args) == 3 && args[1] == "remove":
		server(ts, args[0]).RemoveSession(args[2])
	default:
		ts.Fatalf("usage: session <pip|conda> add <path> <kernel-id> | remove <path>")
	}
}
