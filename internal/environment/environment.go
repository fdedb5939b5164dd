package environment

import (
	"fmt"
	"os"
	"path/filepath"

	"media-toolkit/internal/filesystem"
	"media-toolkit/internal/logging"
)

// Mode identifies the storage environment.
type Mode string

const (
	// Local runs against a persistent filesystem owned by the user.
	Local Mode = "local"
	// Cloud runs against a writable but ephemeral scratch area.
	Cloud Mode = "cloud"
)

const (
	cloudRoot = "/tmp/media-toolkit"
	localRoot = ".media-toolkit"
)

// Options are the inputs to Resolve. Empty overrides fall back to the
// mode defaults.
type Options struct {
	Cloud       bool
	ProjectDir  string
	HomeDir     string
	TempDir     string
	DownloadDir string
}

// Environment is immutable after Resolve.
type Environment struct {
	Mode     Mode
	TempDir  string
	FinalDir string
}

// Resolve computes the environment. In local mode the temp directory is wiped
// and recreated; failures are logged and never fatal.
func Resolve(opts Options) (*Environment, error) {
	env := &Environment{Mode: Local}
	if opts.Cloud {
		env.Mode = Cloud
	}

	switch env.Mode {
	case Cloud:
		env.TempDir = filepath.Join(cloudRoot, "temp")
		env.FinalDir = filepath.Join(cloudRoot, "downloads")
	default:
		base := opts.ProjectDir
		if base == "" {
			base = opts.HomeDir
		}
		if base == "" {
			return nil, fmt.Errorf("local mode requires a project or home directory")
		}
		if opts.HomeDir == "" && opts.DownloadDir == "" {
			return nil, fmt.Errorf("local mode requires a home directory or DOWNLOAD_DIR")
		}
		env.TempDir = filepath.Join(base, localRoot, "temp")
		env.FinalDir = filepath.Join(opts.HomeDir, "Desktop")
	}

	if opts.TempDir != "" {
		env.TempDir = opts.TempDir
	}
	if opts.DownloadDir != "" {
		env.FinalDir = opts.DownloadDir
	}

	var err error
	if env.TempDir, err = filepath.Abs(env.TempDir); err != nil {
		return nil, fmt.Errorf("failed to resolve temp directory path: %w", err)
	}
	if env.FinalDir, err = filepath.Abs(env.FinalDir); err != nil {
		return nil, fmt.Errorf("failed to resolve final directory path: %w", err)
	}

	if env.Mode == Local {
		env.resetTemp()
	}

	return env, nil
}

// resetTemp wipes leftovers from a previous run.
func (e *Environment) resetTemp() {
	if filesystem.Exists(e.TempDir) {
		if failed := filesystem.ClearDir(e.TempDir); failed > 0 {
			logging.Warn("Could not remove %d stale entries from %s", failed, e.TempDir)
		}
	}
	if err := filesystem.EnsureDir(e.TempDir); err != nil {
		logging.Warn("Failed to create temp directory %s: %v", e.TempDir, err)
	}
}

// Prepare creates the temp and final directories if needed. Cloud scratch
// space can vanish between invocations, so every job calls this.
func (e *Environment) Prepare() error {
	if err := filesystem.EnsureDir(e.TempDir); err != nil {
		return fmt.Errorf("temp directory: %w", err)
	}
	if err := filesystem.EnsureDir(e.FinalDir); err != nil {
		return fmt.Errorf("final directory: %w", err)
	}
	return nil
}

// Temp returns the scratch directory jobs create their working dirs in.
func (e *Environment) Temp() string {
	return e.TempDir
}

// IsCloud reports whether the environment is ephemeral.
func (e *Environment) IsCloud() bool {
	return e.Mode == Cloud
}

// DetectCloud interprets the explicit flag first and falls back to the
// presence of a VERCEL variable.
func DetectCloud(flag string) bool {
	switch flag {
	case "1", "true", "TRUE", "True", "yes":
		return true
	case "0", "false", "FALSE", "False", "no":
		return false
	}
	_, ok := os.LookupEnv("VERCEL")
	return ok
}
