package pyenv

import (
	"fmt"
	"strings"
)

// InfoItem is one labelled fact about an environment.
type InfoItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Basename returns the last element of a POSIX or Windows path.
func Basename(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// dirname drops the last element of a POSIX or Windows path.
func dirname(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}

// RelativeToHome replaces the home directory in p with "~" and uses forward
// slashes.
func RelativeToHome(home, p string) string {
	if home != "" {
		p = strings.Replace(p, home, "~", 1)
	}
	return strings.ReplaceAll(p, `\`, "/")
}

// Label is the display name of an environment.
func Label(env Environment) string {
	switch {
	case env.Environment != nil && env.Environment.Name != "":
		return env.Environment.Name
	case env.Environment != nil && env.Environment.Folder != "":
		return Basename(env.Environment.Folder)
	case env.Executable.Path != "":
		// <env>/bin/python
		return Basename(dirname(dirname(env.Executable.Path)))
	default:
		return Basename(env.Path)
	}
}

// VersionString returns major.minor.micro, or "" when the version is unknown.
func VersionString(env Environment) string {
	if env.Version == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", env.Version.Major, env.Version.Minor, env.Version.Micro)
}

// Title is the label followed by the Python version when known.
func Title(env Environment) string {
	if v := VersionString(env); v != "" {
		return fmt.Sprintf("%s (Python %s)", Label(env), v)
	}
	return Label(env)
}

// Location is the environment folder, or the interpreter path for global
// interpreters, relative to home.
func Location(env Environment) string {
	p := env.Path
	if env.Environment != nil && env.Environment.Folder != "" {
		p = env.Environment.Folder
	}
	return RelativeToHome(env.Home, p)
}

// Info lists the facts shown for an environment. Empty conda environments
// have no interpreter, so interpreter facts are left out for them.
func Info(env Environment) []InfoItem {
	var info []InfoItem
	emptyConda := ResolveType(env) == TypeConda && env.Executable.Path == ""

	switch {
	case env.Environment != nil && env.Environment.Name != "":
		info = append(info, InfoItem{"Name", env.Environment.Name})
	case env.Environment != nil && env.Environment.Folder != "" && ResolveType(env) == TypeConda:
		info = append(info, InfoItem{"Name", Basename(env.Environment.Folder)})
	}
	if env.Version != nil && env.Version.SysVersion != "" {
		info = append(info, InfoItem{"Version", env.Version.SysVersion})
	}
	if !emptyConda && env.Executable.Bitness != "" && env.Executable.Bitness != BitnessUnknown {
		info = append(info, InfoItem{"Architecture", string(env.Executable.Bitness)})
	}
	if !emptyConda && env.Path != "" {
		info = append(info, InfoItem{"Executable", RelativeToHome(env.Home, env.Path)})
	}
	if !emptyConda && env.Executable.SysPrefix != "" {
		info = append(info, InfoItem{"SysPrefix", RelativeToHome(env.Home, env.Executable.SysPrefix)})
	}
	if env.Environment != nil && env.Environment.WorkspaceFolder != "" {
		info = append(info, InfoItem{"Folder", RelativeToHome(env.Home, env.Environment.WorkspaceFolder)})
	}
	return info
}
