package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Environment variables that override file settings
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvDataDir     = "RBC_DATA_DIR"
)

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults. Relative paths are resolved against the install directory.
func LoadConfig(path string) (*models.Config, error) {
	const op = "load config"

	var cfg models.Config
	cfg.Updates.Enabled = true
	cfg.Launch.CloseOnStart = true

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errs.Config(op, fmt.Errorf("failed to parse config file: %w", err))
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, errs.Config(op, fmt.Errorf("failed to read config file: %w", err))
	}

	env, err := readEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return nil, errs.Config(op, err)
	}
	applyEnv(&cfg, env)

	// Set defaults
	if err := setDefaults(&cfg); err != nil {
		return nil, errs.Config(op, err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, errs.Config(op, fmt.Errorf("invalid configuration: %w", err))
	}

	resolvePaths(&cfg)
	return &cfg, nil
}

// readEnv merges the optional .env file with the process environment.
// Process variables win over the file.
func readEnv(path string) (map[string]string, error) {
	vars := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		fileVars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		vars = fileVars
	}
	for _, key := range []string{EnvGitHubToken, EnvDataDir} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			vars[key] = v
		}
	}
	return vars, nil
}

func applyEnv(cfg *models.Config, env map[string]string) {
	if v := env[EnvGitHubToken]; v != "" {
		cfg.GitHub.Token = v
	}
	if v := env[EnvDataDir]; v != "" {
		cfg.Paths.DataDir = v
	}
}

// setDefaults sets default values for configuration
func setDefaults(cfg *models.Config) error {
	// GitHub defaults
	if cfg.GitHub.Repository == "" {
		cfg.GitHub.Repository = "EnderiumCraft/RBC-Network-Server"
	}
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = "https://api.github.com"
	}
	if cfg.GitHub.Timeout == 0 {
		cfg.GitHub.Timeout = 30 * time.Second
	}
	if cfg.GitHub.DownloadTimeout == 0 {
		cfg.GitHub.DownloadTimeout = 10 * time.Minute
	}
	if cfg.GitHub.StallTimeout == 0 {
		cfg.GitHub.StallTimeout = 30 * time.Second
	}

	// Asset defaults
	if cfg.Assets.VersionDescriptor == "" {
		cfg.Assets.VersionDescriptor = "version.json"
	}
	if cfg.Assets.LauncherBinary == "" {
		cfg.Assets.LauncherBinary = DefaultLauncherBinary(runtime.GOOS)
	}
	if cfg.Assets.Checksums == "" {
		cfg.Assets.Checksums = "checksums.txt"
	}

	// Path defaults
	if cfg.Paths.InstallDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		cfg.Paths.InstallDir = filepath.Dir(exe)
	}
	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = "~/.rbc_launcher"
	}
	if cfg.Paths.ContentDir == "" {
		cfg.Paths.ContentDir = "Minecraft/game"
	}
	if cfg.Paths.VersionFile == "" {
		cfg.Paths.VersionFile = "version.json"
	}

	// Update defaults
	if cfg.Updates.Schedule == "" {
		cfg.Updates.Schedule = "@every 30m"
	}

	// Launch defaults
	if cfg.Launch.ProfilesFile == "" {
		cfg.Launch.ProfilesFile = "launch-profiles.yaml"
	}
	if cfg.Launch.EnvFile == "" {
		cfg.Launch.EnvFile = "game.env"
	}
	if cfg.Launch.CloseDelay == 0 {
		cfg.Launch.CloseDelay = 5 * time.Second
	}
	if cfg.Launch.PollInterval == 0 {
		cfg.Launch.PollInterval = time.Second
	}

	// Server defaults
	if cfg.Servers.ProbeTimeout == 0 {
		cfg.Servers.ProbeTimeout = 2 * time.Second
	}
	if len(cfg.Servers.Entries) == 0 {
		cfg.Servers.Entries = []models.ServerConfig{
			{Name: "Vanilla", Host: "localhost", Port: 25565},
			{Name: "Modded", Host: "localhost", Port: 25566},
		}
	}

	// Control defaults
	if cfg.Control.Address == "" {
		cfg.Control.Address = "127.0.0.1:50515"
	}
	return nil
}

// validate validates the configuration
func validate(cfg *models.Config) error {
	if parts := strings.Split(cfg.GitHub.Repository, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("github.repository must be owner/name, got %q", cfg.GitHub.Repository)
	}
	if cfg.GitHub.Timeout < 0 || cfg.GitHub.DownloadTimeout < 0 || cfg.GitHub.StallTimeout < 0 {
		return fmt.Errorf("github timeouts must not be negative")
	}
	if cfg.Assets.LauncherBinary == cfg.Assets.VersionDescriptor {
		return fmt.Errorf("assets.launcher_binary and assets.version_descriptor must differ")
	}
	if filepath.IsAbs(cfg.Paths.ContentDir) {
		return fmt.Errorf("paths.content_dir must be relative to the install directory")
	}
	if cfg.Launch.CloseDelay < 0 || cfg.Launch.PollInterval < 0 {
		return fmt.Errorf("launch delays must not be negative")
	}

	// Validate servers
	seen := make(map[string]bool)
	for i, s := range cfg.Servers.Entries {
		if s.Name == "" {
			return fmt.Errorf("servers.entries[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("servers.entries[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
		if s.Host == "" {
			return fmt.Errorf("servers.entries[%d]: host is required", i)
		}
		if s.Port < 1 || s.Port > 65535 {
			return fmt.Errorf("servers.entries[%d]: port %d out of range", i, s.Port)
		}
	}

	if cfg.Control.Enabled && cfg.Control.Address == "" {
		return fmt.Errorf("control.address is required when control is enabled")
	}
	return nil
}

// resolvePaths expands ~ and anchors relative paths at the install dir
func resolvePaths(cfg *models.Config) {
	cfg.Paths.InstallDir = expandHome(cfg.Paths.InstallDir)
	cfg.Paths.DataDir = anchor(cfg.Paths.InstallDir, expandHome(cfg.Paths.DataDir))
	cfg.Paths.VersionFile = anchor(cfg.Paths.InstallDir, expandHome(cfg.Paths.VersionFile))
	cfg.Paths.ContentDir = filepath.ToSlash(filepath.Clean(cfg.Paths.ContentDir))
}

// ContentPath returns the local mirror of the content tree
func ContentPath(cfg *models.Config) string {
	return filepath.Join(cfg.Paths.InstallDir, filepath.FromSlash(cfg.Paths.ContentDir))
}

// ProfilesPath returns the launch profile override file
func ProfilesPath(cfg *models.Config) string {
	return anchor(ContentPath(cfg), cfg.Launch.ProfilesFile)
}

// EnvPath returns the game environment file
func EnvPath(cfg *models.Config) string {
	return anchor(ContentPath(cfg), cfg.Launch.EnvFile)
}

// DefaultLauncherBinary is the release asset name for goos
func DefaultLauncherBinary(goos string) string {
	if goos == "windows" {
		return "RBCLauncher.exe"
	}
	return "rbclauncher"
}

func anchor(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
