package process

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

//go:embed profiles.yaml
var builtinProfiles []byte

// Placeholders a profile may reference
var knownPlaceholders = map[string]bool{
	"install_dir": true,
	"game_dir":    true,
	"natives_dir": true,
	"assets_dir":  true,
	"version_id":  true,
	"username":    true,
	"player_uuid": true,
	"server_host": true,
	"server_port": true,
	"ram_mb":      true,
}

// Every profile's program arguments must carry these values
var requiredArgs = []string{"username", "version_id", "game_dir", "assets_dir", "server_host", "server_port"}

// Profiles maps content versions to launch profiles
type Profiles struct {
	byVersion map[string]*models.LaunchProfile
}

// LoadProfiles parses the built-in table and, if overridePath names an
// existing file, lets its entries replace built-in ones per content
// version.
func LoadProfiles(overridePath string) (*Profiles, error) {
	p := &Profiles{byVersion: make(map[string]*models.LaunchProfile)}
	if err := p.add(builtinProfiles, "built-in profiles"); err != nil {
		return nil, err
	}

	if overridePath == "" {
		return p, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, errs.Config("load launch profiles", err)
	}
	if err := p.add(data, overridePath); err != nil {
		return nil, err
	}
	log.Printf("[Process] Loaded launch profile overrides from %s", overridePath)
	return p, nil
}

// ParseProfiles builds a table from YAML alone
func ParseProfiles(data []byte) (*Profiles, error) {
	p := &Profiles{byVersion: make(map[string]*models.LaunchProfile)}
	if err := p.add(data, "launch profiles"); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profiles) add(data []byte, source string) error {
	var table models.ProfileTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return errs.Config("load launch profiles", fmt.Errorf("failed to parse %s: %w", source, err))
	}

	for i := range table.Profiles {
		profile := &table.Profiles[i]
		if err := validateProfile(profile); err != nil {
			return errs.Config("load launch profiles", fmt.Errorf("%s: profile[%d]: %w", source, i, err))
		}
		for _, v := range profile.ContentVersions {
			p.byVersion[v] = profile
		}
	}
	return nil
}

// Lookup returns the profile for an exact content version
func (p *Profiles) Lookup(contentVersion string) (*models.LaunchProfile, error) {
	profile, ok := p.byVersion[contentVersion]
	if !ok {
		return nil, errs.Config("build launch config",
			fmt.Errorf("no launch profile for modpack version %q", contentVersion))
	}
	return profile, nil
}

// Versions lists the content versions with a profile
func (p *Profiles) Versions() []string {
	versions := make([]string, 0, len(p.byVersion))
	for v := range p.byVersion {
		versions = append(versions, v)
	}
	return versions
}

func validateProfile(profile *models.LaunchProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(profile.ContentVersions) == 0 {
		return fmt.Errorf("%s: content_versions is required", profile.Name)
	}
	if profile.Executable == "" && len(profile.Executables) == 0 {
		return fmt.Errorf("%s: executable is required", profile.Name)
	}
	if profile.WorkingDir == "" {
		return fmt.Errorf("%s: working_dir is required", profile.Name)
	}
	if profile.MainClass == "" {
		return fmt.Errorf("%s: main_class is required", profile.Name)
	}

	templates := []string{profile.Executable, profile.WorkingDir, profile.NativesDir, profile.AssetsDir, profile.VersionID}
	for _, e := range profile.Executables {
		templates = append(templates, e)
	}
	templates = append(templates, profile.Classpath...)
	templates = append(templates, profile.JVMFlags...)

	referenced := make(map[string]bool)
	for _, arg := range profile.ProgramArgs {
		if arg.Flag == "" {
			return fmt.Errorf("%s: program argument without flag", profile.Name)
		}
		templates = append(templates, arg.Value)
		for _, name := range placeholders(arg.Value) {
			referenced[name] = true
		}
	}

	for _, tmpl := range templates {
		for _, name := range placeholders(tmpl) {
			if !knownPlaceholders[name] {
				return fmt.Errorf("%s: unknown placeholder ${%s}", profile.Name, name)
			}
		}
	}
	for _, name := range requiredArgs {
		if !referenced[name] {
			return fmt.Errorf("%s: program_args must pass ${%s}", profile.Name, name)
		}
	}
	return nil
}

// placeholders returns the ${name} references in s
func placeholders(s string) []string {
	var names []string
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return names
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			return names
		}
		names = append(names, s[start+2:start+end])
		s = s[start+end+1:]
	}
}
