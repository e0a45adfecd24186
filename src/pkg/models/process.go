package models

import "fmt"

// ProcessPhase is the lifecycle phase of the game process
type ProcessPhase string

const (
	PhaseNotStarted      ProcessPhase = "not_started"
	PhaseRunning         ProcessPhase = "running"
	PhaseExitedOk        ProcessPhase = "exited_ok"
	PhaseExitedWithError ProcessPhase = "exited_with_error"
)

// ProcessState is a snapshot returned by a non-blocking poll
type ProcessState struct {
	Phase      ProcessPhase `json:"phase"`
	ExitCode   int          `json:"exit_code"`
	StderrTail string       `json:"stderr_tail,omitempty"`
}

// Terminal reports whether the process has exited
func (s ProcessState) Terminal() bool {
	return s.Phase == PhaseExitedOk || s.Phase == PhaseExitedWithError
}

func (s ProcessState) String() string {
	if s.Phase == PhaseExitedWithError {
		return fmt.Sprintf("%s (code %d)", s.Phase, s.ExitCode)
	}
	return string(s.Phase)
}

// ProgramArg is one flag/value pair of the game's argument block
type ProgramArg struct {
	Flag  string `yaml:"flag" json:"flag"`
	Value string `yaml:"value" json:"value"`
}

// LaunchConfig is everything needed to spawn the game once. Order of
// ClasspathEntries, JVMFlags and ProgramArgs is preserved as configured.
type LaunchConfig struct {
	ProfileName      string       `json:"profile_name"`
	ExecutablePath   string       `json:"executable_path"`
	WorkingDir       string       `json:"working_dir"`
	NativesDir       string       `json:"natives_dir"`
	ClasspathEntries []string     `json:"classpath_entries"`
	JVMFlags         []string     `json:"jvm_flags"`
	MainClass        string       `json:"main_class"`
	ProgramArgs      []ProgramArg `json:"program_args"`
	Env              []string     `json:"env,omitempty"`
	Username         string       `json:"username"`
	ServerHost       string       `json:"server_host"`
	ServerPort       int          `json:"server_port"`
}

// LaunchProfile is the declarative argument template for one or more
// content versions. Values may contain ${placeholder} references.
type LaunchProfile struct {
	Name            string            `yaml:"name"`
	ContentVersions []string          `yaml:"content_versions"`
	Executable      string            `yaml:"executable"`
	Executables     map[string]string `yaml:"platform_executables,omitempty"`
	WorkingDir      string            `yaml:"working_dir"`
	NativesDir      string            `yaml:"natives_dir"`
	AssetsDir       string            `yaml:"assets_dir"`
	VersionID       string            `yaml:"version_id"`
	Classpath       []string          `yaml:"classpath"`
	JVMFlags        []string          `yaml:"jvm_flags"`
	MainClass       string            `yaml:"main_class"`
	ProgramArgs     []ProgramArg      `yaml:"program_args"`
}

// ProfileTable is the on-disk form of the launch profile table
type ProfileTable struct {
	Profiles []LaunchProfile `yaml:"profiles"`
}
