package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
)

// toolPackages maps a binary name to the package that provides it
var toolPackages = map[string]string{
	"megadl": "megatools",
	"yt-dlp": "yt-dlp",
}

// ToolInstaller bootstraps the external download binaries through the
// platform package manager. It runs only when explicitly invoked, never
// as a side effect of a download.
type ToolInstaller struct {
	runner domain.ToolRunner
	logger *zap.Logger
}

// NewToolInstaller creates a tool installer
func NewToolInstaller(runner domain.ToolRunner, log *zap.Logger) *ToolInstaller {
	if log == nil {
		log = zap.NewNop()
	}
	return &ToolInstaller{runner: runner, logger: log}
}

// IsInstalled reports whether the binary is on PATH
func (i *ToolInstaller) IsInstalled(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

// Install installs the package providing the binary. Already-installed
// tools are a no-op.
func (i *ToolInstaller) Install(ctx context.Context, binary string) error {
	if i.IsInstalled(binary) {
		i.logger.Info("tool already installed", zap.String("binary", binary))
		return nil
	}

	pkg, ok := toolPackages[binary]
	if !ok {
		return fmt.Errorf("unknown tool: %s", binary)
	}

	argv, err := installCommand(pkg)
	if err != nil {
		return err
	}

	i.logger.Info("installing tool",
		zap.String("binary", binary),
		zap.String("command", ShellEscapeCommand(argv[0], argv[1:]...)))

	result, err := i.runner.Run(ctx, argv, "", 10*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to run package manager: %w", err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("install of %s failed: %s", pkg, firstLine(result.Stderr))
	}

	if !i.IsInstalled(binary) {
		return fmt.Errorf("%s installed but %s still not on PATH", pkg, binary)
	}
	return nil
}

// InstallAll installs every known tool, continuing past individual
// failures and returning the first error.
func (i *ToolInstaller) InstallAll(ctx context.Context) error {
	var firstErr error
	for binary := range toolPackages {
		if err := i.Install(ctx, binary); err != nil {
			i.logger.Warn("tool install failed",
				zap.String("binary", binary),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// installCommand picks the package manager invocation for this platform
func installCommand(pkg string) ([]string, error) {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("brew"); err != nil {
			return nil, fmt.Errorf("homebrew not found, install it from https://brew.sh")
		}
		return []string{"brew", "install", pkg}, nil
	case "linux":
		if _, err := exec.LookPath("apt-get"); err != nil {
			return nil, fmt.Errorf("apt-get not found, install %s manually", pkg)
		}
		return []string{"apt-get", "install", "-y", pkg}, nil
	default:
		return nil, fmt.Errorf("no package manager support for %s, install %s manually", runtime.GOOS, pkg)
	}
}
