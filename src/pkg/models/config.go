package models

import "time"

// Config represents the main configuration for the launcher
type Config struct {
	GitHub  GitHubConfig   `yaml:"github"`
	Assets  AssetsConfig   `yaml:"assets"`
	Paths   PathsConfig    `yaml:"paths"`
	Updates UpdatesConfig  `yaml:"updates"`
	Launch  LaunchSettings `yaml:"launch"`
	Servers ServersConfig  `yaml:"servers"`
	Control ControlConfig  `yaml:"control"`
}

// GitHubConfig contains the release registry configuration
type GitHubConfig struct {
	Repository      string        `yaml:"repository"`
	APIURL          string        `yaml:"api_url"`
	Token           string        `yaml:"token,omitempty"`
	Timeout         time.Duration `yaml:"timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	StallTimeout    time.Duration `yaml:"stall_timeout"`
}

// AssetsConfig names the release assets the launcher looks for
type AssetsConfig struct {
	VersionDescriptor string `yaml:"version_descriptor"`
	LauncherBinary    string `yaml:"launcher_binary"`
	Checksums         string `yaml:"checksums"`
	RequireChecksum   bool   `yaml:"require_checksum"`
}

// PathsConfig contains filesystem locations. Relative paths are resolved
// against InstallDir.
type PathsConfig struct {
	InstallDir  string `yaml:"install_dir"`
	DataDir     string `yaml:"data_dir"`
	ContentDir  string `yaml:"content_dir"`
	VersionFile string `yaml:"version_file"`
}

// UpdatesConfig controls background update checks
type UpdatesConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// LaunchSettings controls how the game process is started
type LaunchSettings struct {
	ProfilesFile string        `yaml:"profiles_file"`
	EnvFile      string        `yaml:"env_file"`
	CloseOnStart bool          `yaml:"close_on_start"`
	CloseDelay   time.Duration `yaml:"close_delay"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ServersConfig lists the game servers offered in the UI
type ServersConfig struct {
	ProbeTimeout time.Duration  `yaml:"probe_timeout"`
	Entries      []ServerConfig `yaml:"entries"`
}

// ServerConfig is a single selectable game server
type ServerConfig struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ControlConfig contains the local control service configuration
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}
