package process

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Request is the runtime input of a launch
type Request struct {
	ContentVersion string
	Username       string
	Server         models.ServerConfig
	RAMMB          int
}

// BuildLaunchConfig assembles the launch configuration from the profile
// registered for req.ContentVersion. It performs no I/O; relative paths
// are resolved against installDir (executable, working dir) or the game
// directory (classpath).
func BuildLaunchConfig(profiles *Profiles, installDir string, req Request) (*models.LaunchConfig, error) {
	const op = "build launch config"

	profile, err := profiles.Lookup(req.ContentVersion)
	if err != nil {
		return nil, err
	}
	if req.Username == "" {
		return nil, errs.Validation(op, fmt.Errorf("username is required"))
	}
	if req.Server.Host == "" || req.Server.Port <= 0 {
		return nil, errs.Validation(op, fmt.Errorf("invalid server %q", req.Server.Name))
	}

	values := map[string]string{
		"install_dir": installDir,
		"username":    req.Username,
		"player_uuid": OfflineUUID(req.Username),
		"server_host": req.Server.Host,
		"server_port": strconv.Itoa(req.Server.Port),
		"ram_mb":      strconv.Itoa(req.RAMMB),
	}
	x := expander{values: values, profile: profile.Name}

	values["game_dir"] = resolve(installDir, x.expand(profile.WorkingDir))
	values["version_id"] = x.expand(profile.VersionID)
	values["natives_dir"] = resolve(values["game_dir"], x.expand(profile.NativesDir))
	values["assets_dir"] = resolve(values["game_dir"], x.expand(profile.AssetsDir))

	cfg := &models.LaunchConfig{
		ProfileName:    profile.Name,
		ExecutablePath: resolve(installDir, x.expand(executableFor(profile, runtime.GOOS))),
		WorkingDir:     values["game_dir"],
		NativesDir:     values["natives_dir"],
		MainClass:      profile.MainClass,
		Username:       req.Username,
		ServerHost:     req.Server.Host,
		ServerPort:     req.Server.Port,
	}

	cfg.ClasspathEntries = make([]string, 0, len(profile.Classpath))
	for _, entry := range profile.Classpath {
		cfg.ClasspathEntries = append(cfg.ClasspathEntries, resolve(values["game_dir"], x.expand(entry)))
	}
	cfg.JVMFlags = make([]string, 0, len(profile.JVMFlags))
	for _, flag := range profile.JVMFlags {
		cfg.JVMFlags = append(cfg.JVMFlags, x.expand(flag))
	}
	cfg.ProgramArgs = make([]models.ProgramArg, 0, len(profile.ProgramArgs))
	for _, arg := range profile.ProgramArgs {
		cfg.ProgramArgs = append(cfg.ProgramArgs, models.ProgramArg{Flag: arg.Flag, Value: x.expand(arg.Value)})
	}

	if x.err != nil {
		return nil, errs.Config(op, x.err)
	}
	return cfg, nil
}

// Args returns the command line that follows the executable: runtime
// flags, classpath, main class, then the flag/value argument block.
func Args(cfg *models.LaunchConfig) []string {
	args := make([]string, 0, len(cfg.JVMFlags)+len(cfg.ProgramArgs)*2+3)
	args = append(args, cfg.JVMFlags...)
	if len(cfg.ClasspathEntries) > 0 {
		args = append(args, "-cp", strings.Join(cfg.ClasspathEntries, string(filepath.ListSeparator)))
	}
	if cfg.MainClass != "" {
		args = append(args, cfg.MainClass)
	}
	for _, arg := range cfg.ProgramArgs {
		args = append(args, arg.Flag, arg.Value)
	}
	return args
}

// OfflineUUID derives the stable offline-mode player UUID for username,
// a version 3 UUID over "OfflinePlayer:<name>", without dashes.
func OfflineUUID(username string) string {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	id, _ := uuid.FromBytes(sum[:])
	return strings.ReplaceAll(id.String(), "-", "")
}

func executableFor(profile *models.LaunchProfile, goos string) string {
	if exe, ok := profile.Executables[goos]; ok {
		return exe
	}
	return profile.Executable
}

func resolve(base, p string) string {
	if p == "" {
		return ""
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// expander substitutes ${name} placeholders and remembers the first
// unknown name it meets.
type expander struct {
	values  map[string]string
	profile string
	err     error
}

func (x *expander) expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}

		b.WriteString(s[:start])
		name := s[start+2 : start+end]
		value, ok := x.values[name]
		if !ok && x.err == nil {
			x.err = fmt.Errorf("profile %s: placeholder ${%s} has no value", x.profile, name)
		}
		b.WriteString(value)
		s = s[start+end+1:]
	}
}
