package core

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const envFileName = ".env.kenv"

// EnvResolver resolves credentials from the process environment and the
// private ~/.kenv/.env.kenv file, in that order. Tokens live in the env
// file rather than config.json so the config can be shared.
type EnvResolver struct {
	dir string // ~/.kenv/
}

// NewEnvResolver creates an EnvResolver reading dir/.env.kenv.
// dir defaults to ~/.kenv/ if empty.
func NewEnvResolver(dir string) *EnvResolver {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, configDirName)
	}
	return &EnvResolver{dir: dir}
}

// TokenVar is the env file variable holding the token of a server, e.g.
// KENV_TOKEN_LAB for "lab".
func TokenVar(server string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, server)
	return EnvToken + "_" + name
}

// Token resolves the token for server.
//
// Precedence (highest to lowest):
//  1. KENV_TOKEN, then JUPYTER_TOKEN in the process environment
//  2. KENV_TOKEN_<SERVER> in .env.kenv
//  3. KENV_TOKEN in .env.kenv
func (r *EnvResolver) Token(server string) (string, bool) {
	for _, name := range []string{EnvToken, EnvJupyterToken} {
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val, true
		}
	}
	file := parseEnvFile(filepath.Join(r.dir, envFileName))
	for _, name := range []string{TokenVar(server), EnvToken} {
		if val, ok := file[name]; ok && val != "" {
			return val, true
		}
	}
	return "", false
}

// parseEnvFile parses a .env file and returns key-value pairs.
// Returns an empty map if the file does not exist or cannot be read.
// Supports:
//   - KEY=VALUE
//   - KEY="VALUE" (strips outer double quotes)
//   - KEY='VALUE' (strips outer single quotes)
//   - Lines starting with # are comments
//   - export KEY=VALUE (strips optional export prefix)
func parseEnvFile(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	env := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = unquote(strings.TrimSpace(val))
		if key != "" {
			env[key] = val
		}
	}
	return env
}

func unquote(val string) string {
	if len(val) >= 2 {
		if (val[0] == '"' && val[len(val)-1] == '"') ||
			(val[0] == '\'' && val[len(val)-1] == '\'') {
			return val[1 : len(val)-1]
		}
	}
	return val
}

// WriteEnvVar writes or updates a single variable in the .env.kenv file of
// dir. The file is created with owner-only permissions.
func WriteEnvVar(dir, name, value string) error {
	path := filepath.Join(dir, envFileName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	quoted := value
	if strings.ContainsAny(value, " #\t\n\"") {
		quoted = `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	entry := name + "=" + quoted

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}
	replaced := false
	for i, line := range lines {
		key, _, ok := strings.Cut(strings.TrimPrefix(strings.TrimSpace(line), "export "), "=")
		if ok && strings.TrimSpace(key) == name {
			lines[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}

// DeleteEnvVar removes a variable from the .env.kenv file of dir.
func DeleteEnvVar(dir, name string) error {
	path := filepath.Join(dir, envFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var kept []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		key, _, ok := strings.Cut(strings.TrimPrefix(strings.TrimSpace(line), "export "), "=")
		if ok && strings.TrimSpace(key) == name {
			continue
		}
		kept = append(kept, line)
	}
	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
