package pyenv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/barysiuk/kenv/internal/kernel"
)

// probeCode runs inside the kernel and displays the interpreter details as
// a single item tagged kernel.MIMEEnvironment.
const probeCode = `
def __kenv_remote_env_info():
    import os
    import sys
    from pathlib import Path
    from IPython.display import display

    data = {
        "home": os.path.expanduser("~"),
        "versionInfo": list(sys.version_info),
        "version": sys.version,
        "is64bit": sys.maxsize > 2147483647,
        "executable": sys.executable,
        "sysPrefix": sys.prefix,
        "isVenv": sys.prefix != sys.base_prefix,
        "isConda": Path(sys.prefix, "conda-meta", "history").exists(),
        "CONDA_PREFIX": os.environ.get("CONDA_PREFIX"),
        "CONDA_DEFAULT_ENV": os.environ.get("CONDA_DEFAULT_ENV"),
        "VIRTUAL_ENV": os.environ.get("VIRTUAL_ENV"),
    }
    display({"` + kernel.MIMEEnvironment + `": data}, raw=True)

__kenv_remote_env_info()
del __kenv_remote_env_info`

// ProbeCode returns the code Introspect executes.
func ProbeCode() string { return probeCode }

// probeResult is the payload displayed by probeCode.
type probeResult struct {
	Home            string            `json:"home"`
	VersionInfo     []json.RawMessage `json:"versionInfo"`
	Version         string            `json:"version"`
	Is64Bit         bool              `json:"is64bit"`
	Executable      string            `json:"executable"`
	SysPrefix       string            `json:"sysPrefix"`
	IsVenv          bool              `json:"isVenv"`
	IsConda         bool              `json:"isConda"`
	CondaPrefix     string            `json:"CONDA_PREFIX"`
	CondaDefaultEnv string            `json:"CONDA_DEFAULT_ENV"`
	VirtualEnv      string            `json:"VIRTUAL_ENV"`
}

// Introspect runs the environment probe on k and builds the Environment it
// reports. It returns nil when the probe output never arrives or cannot be
// decoded; the reason is logged.
func Introspect(ctx context.Context, k kernel.Kernel, logger *zap.Logger) *Environment {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for out, err := range k.Execute(ctx, probeCode) {
		if err != nil {
			logger.Error("failed to get environment info for the kernel",
				zap.String("kernel", k.ID()), zap.Error(err))
			return nil
		}
		kernel.LogErrors(logger, "failed to get environment info for the kernel", out)
		item, ok := out.Find(kernel.MIMEEnvironment)
		if !ok {
			continue
		}
		data := strings.TrimSpace(item.Text())
		env, err := parseProbe([]byte(data))
		if err != nil {
			logger.Error("failed to get environment info for the kernel",
				zap.String("kernel", k.ID()), zap.String("json", data), zap.Error(err))
			return nil
		}
		return env
	}
	logger.Debug("kernel produced no environment info", zap.String("kernel", k.ID()))
	return nil
}

func parseProbe(data []byte) (*Environment, error) {
	var p probeResult
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding environment info: %w", err)
	}
	if p.Executable == "" {
		return nil, fmt.Errorf("environment info has no executable")
	}

	version, err := parseVersion(p.VersionInfo, p.Version)
	if err != nil {
		return nil, err
	}

	var tool Tool
	switch {
	case p.IsConda || p.CondaPrefix != "" || p.CondaDefaultEnv != "":
		tool = ToolConda
	case p.IsVenv || p.VirtualEnv != "":
		tool = ToolVenv
	default:
		tool = ToolUnknown
	}

	folder := p.Executable
	if p.VirtualEnv != "" {
		folder = p.VirtualEnv
	}
	var name string
	switch {
	case p.VirtualEnv != "":
		name = Basename(p.VirtualEnv)
	case p.CondaPrefix != "":
		name = Basename(p.CondaPrefix)
	default:
		name = Basename(p.Executable)
	}

	bitness := Bitness32
	if p.Is64Bit {
		bitness = Bitness64
	}

	return &Environment{
		ID:   p.Executable,
		Path: p.Executable,
		Home: p.Home,
		Executable: Executable{
			Path:      p.Executable,
			Bitness:   bitness,
			SysPrefix: p.SysPrefix,
		},
		Environment: &Details{
			Type:   tool,
			Name:   name,
			Folder: folder,
		},
		Version: version,
		Tools:   []Tool{tool},
	}, nil
}

// parseVersion decodes sys.version_info. Anything but the full five-part
// tuple yields no version.
func parseVersion(info []json.RawMessage, sysVersion string) (*Version, error) {
	if len(info) != 5 {
		return nil, nil
	}
	v := &Version{SysVersion: sysVersion}
	targets := []any{&v.Major, &v.Minor, &v.Micro, &v.Release.Level, &v.Release.Serial}
	for i, target := range targets {
		if err := json.Unmarshal(info[i], target); err != nil {
			return nil, fmt.Errorf("decoding versionInfo[%d]: %w", i, err)
		}
	}
	return v, nil
}
