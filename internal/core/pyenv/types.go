// Package pyenv describes the Python environment behind a kernel and
// discovers it by running a probe inside the interpreter.
package pyenv

import (
	"context"
	"slices"

	"github.com/barysiuk/kenv/internal/kernel"
)

// Tool is a tool that created or manages an environment.
type Tool string

const (
	ToolConda             Tool = "Conda"
	ToolPipenv            Tool = "Pipenv"
	ToolPoetry            Tool = "Poetry"
	ToolVirtualEnv        Tool = "VirtualEnv"
	ToolVenv              Tool = "Venv"
	ToolVirtualEnvWrapper Tool = "VirtualEnvWrapper"
	ToolPyenv             Tool = "Pyenv"
	ToolUnknown           Tool = "Unknown"
)

// Type is the kind of environment, which decides the package manager used
// for it.
type Type string

const (
	TypeConda              Type = "Conda"
	TypeVirtualEnvironment Type = "VirtualEnvironment"
	TypeUnknown            Type = "Unknown"
)

// Bitness of an interpreter.
type Bitness string

const (
	Bitness64      Bitness = "64-bit"
	Bitness32      Bitness = "32-bit"
	BitnessUnknown Bitness = "Unknown"
)

// Executable describes the interpreter binary.
type Executable struct {
	Path      string  `json:"path,omitempty"`
	Bitness   Bitness `json:"bitness,omitempty"`
	SysPrefix string  `json:"sysPrefix,omitempty"` // sys.prefix
}

// Details describes the environment an interpreter belongs to. Folder, type
// and name never change once the environment is discovered.
type Details struct {
	Type            Tool   `json:"type"`
	Name            string `json:"name,omitempty"`
	Folder          string `json:"folder"`
	WorkspaceFolder string `json:"workspaceFolder,omitempty"`
}

// Release is the release part of sys.version_info.
type Release struct {
	Level  string `json:"level"` // alpha, beta, candidate or final
	Serial int    `json:"serial"`
}

// Version is the interpreter version.
type Version struct {
	Major      int     `json:"major"`
	Minor      int     `json:"minor"`
	Micro      int     `json:"micro"`
	Release    Release `json:"release"`
	SysVersion string  `json:"sysVersion,omitempty"` // sys.version
}

// Environment describes a Python interpreter and the environment around it.
// It is built once from a probe and never modified afterwards.
type Environment struct {
	// ID identifies the environment; it is the interpreter path.
	ID         string     `json:"id"`
	Path       string     `json:"path"`
	Home       string     `json:"home"`
	Executable Executable `json:"executable"`
	// Environment is nil for global interpreters.
	Environment *Details `json:"environment,omitempty"`
	// Version is nil when the interpreter did not report a full version.
	Version *Version `json:"version,omitempty"`
	// Tools that manage the environment; the first one is the primary tool.
	Tools []Tool `json:"tools"`
}

// HasTool reports whether t manages the environment.
func (e Environment) HasTool(t Tool) bool {
	return slices.Contains(e.Tools, t)
}

// ResolveType derives the environment type from its tools. It never fails:
// environments without a known tool are TypeUnknown.
func ResolveType(env Environment) Type {
	switch {
	case env.HasTool(ToolConda):
		return TypeConda
	case env.HasTool(ToolVenv), env.HasTool(ToolVirtualEnv), env.HasTool(ToolVirtualEnvWrapper):
		return TypeVirtualEnvironment
	default:
		return TypeUnknown
	}
}

// RemoteEnvironment is an environment together with a handle to the kernel
// it was discovered through. Commands for the environment run on that
// kernel, so the handle is checked before every command.
type RemoteEnvironment struct {
	Handle kernel.Handle
	Env    Environment
}

// IsValid reports whether the kernel behind the environment is still the
// live kernel of its document.
func (r RemoteEnvironment) IsValid(ctx context.Context) bool {
	return r.Handle.IsValid(ctx)
}

// Type returns the resolved environment type.
func (r RemoteEnvironment) Type() Type { return ResolveType(r.Env) }
