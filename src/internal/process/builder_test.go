package process

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

var modded = models.ServerConfig{Name: "Modded", Host: "localhost", Port: 25566}

func builtin(t *testing.T) *Profiles {
	t.Helper()
	p, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	return p
}

func TestBuildLaunchConfigBuiltinProfile(t *testing.T) {
	install := filepath.Join(t.TempDir(), "RBC")
	cfg, err := BuildLaunchConfig(builtin(t), install, Request{
		ContentVersion: "1.0.0",
		Username:       "alex",
		Server:         modded,
		RAMMB:          4096,
	})
	if err != nil {
		t.Fatalf("BuildLaunchConfig: %v", err)
	}

	gameDir := filepath.Join(install, "Minecraft", "game")
	if cfg.WorkingDir != gameDir {
		t.Errorf("WorkingDir = %s", cfg.WorkingDir)
	}
	natives := filepath.Join(gameDir, "versions", "Fabric 1.20.4", "natives")
	if cfg.NativesDir != natives {
		t.Errorf("NativesDir = %s", cfg.NativesDir)
	}
	if runtime.GOOS == "windows" && !strings.HasSuffix(cfg.ExecutablePath, "javaw.exe") {
		t.Errorf("ExecutablePath = %s", cfg.ExecutablePath)
	}

	if len(cfg.ClasspathEntries) != 75 {
		t.Errorf("classpath has %d entries, want 75", len(cfg.ClasspathEntries))
	}
	first := filepath.Join(gameDir, "libraries", "com", "github", "oshi", "oshi-core", "6.4.5", "oshi-core-6.4.5.jar")
	if cfg.ClasspathEntries[0] != first {
		t.Errorf("first classpath entry = %s", cfg.ClasspathEntries[0])
	}
	last := filepath.Join(gameDir, "versions", "Fabric 1.20.4", "Fabric 1.20.4.jar")
	if cfg.ClasspathEntries[len(cfg.ClasspathEntries)-1] != last {
		t.Errorf("last classpath entry = %s", cfg.ClasspathEntries[len(cfg.ClasspathEntries)-1])
	}

	if cfg.JVMFlags[0] != "-Xms4096M" {
		t.Errorf("first flag = %s", cfg.JVMFlags[0])
	}
	if cfg.JVMFlags[17] != "-Xmx16384M" {
		t.Errorf("flag order changed: %v", cfg.JVMFlags[15:19])
	}
	wantLib := "-Djava.library.path=" + natives
	found := false
	for _, f := range cfg.JVMFlags {
		if f == wantLib {
			found = true
		}
	}
	if !found {
		t.Errorf("missing %s", wantLib)
	}

	args := map[string]string{}
	var order []string
	for _, a := range cfg.ProgramArgs {
		args[a.Flag] = a.Value
		order = append(order, a.Flag)
	}
	for flag, want := range map[string]string{
		"--username":  "alex",
		"--version":   "Fabric 1.20.4",
		"--gameDir":   gameDir,
		"--assetsDir": filepath.Join(gameDir, "assets"),
		"--server":    "localhost",
		"--port":      "25566",
		"--uuid":      "501e8da5b1cd3df89970618b2b706e97",
	} {
		if args[flag] != want {
			t.Errorf("%s = %q, want %q", flag, args[flag], want)
		}
	}
	if order[0] != "--username" || order[len(order)-1] != "--port" {
		t.Errorf("argument order = %v", order)
	}
}

func TestBuildLaunchConfigUnknownVersion(t *testing.T) {
	_, err := BuildLaunchConfig(builtin(t), t.TempDir(), Request{
		ContentVersion: "1.0.1",
		Username:       "alex",
		Server:         modded,
		RAMMB:          2048,
	})
	if !errs.Is(err, errs.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestArgsOrdering(t *testing.T) {
	cfg := &models.LaunchConfig{
		JVMFlags:         []string{"-Xms1024M", "-XX:+UseG1GC", "-Xms1024M"},
		ClasspathEntries: []string{"a.jar", "b.jar", "a.jar"},
		MainClass:        "net.example.Main",
		ProgramArgs:      []models.ProgramArg{{Flag: "--username", Value: "x"}, {Flag: "--port", Value: "1"}},
	}

	sep := string(filepath.ListSeparator)
	want := []string{"-Xms1024M", "-XX:+UseG1GC", "-Xms1024M", "-cp", "a.jar" + sep + "b.jar" + sep + "a.jar", "net.example.Main", "--username", "x", "--port", "1"}
	got := Args(cfg)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Args() = %v, want %v", got, want)
	}
}

func TestBuiltinProfilePinsUUID(t *testing.T) {
	profiles := builtin(t)
	for _, name := range []string{"alice", "bob"} {
		cfg, err := BuildLaunchConfig(profiles, t.TempDir(), Request{
			ContentVersion: "1.0.0",
			Username:       name,
			Server:         modded,
			RAMMB:          2048,
		})
		if err != nil {
			t.Fatalf("BuildLaunchConfig(%s): %v", name, err)
		}
		for _, a := range cfg.ProgramArgs {
			if a.Flag == "--uuid" && a.Value != "501e8da5b1cd3df89970618b2b706e97" {
				t.Errorf("%s: --uuid = %s", name, a.Value)
			}
		}
	}
}

func TestOverrideProfilePlayerUUID(t *testing.T) {
	data := minimalProfile + "      - {flag: --uuid, value: \"${player_uuid}\"}\n"
	profiles, err := ParseProfiles([]byte(data))
	if err != nil {
		t.Fatalf("ParseProfiles: %v", err)
	}
	cfg, err := BuildLaunchConfig(profiles, t.TempDir(), Request{
		ContentVersion: "2.0.0",
		Username:       "alex",
		Server:         modded,
		RAMMB:          2048,
	})
	if err != nil {
		t.Fatalf("BuildLaunchConfig: %v", err)
	}
	last := cfg.ProgramArgs[len(cfg.ProgramArgs)-1]
	if last.Flag != "--uuid" || last.Value != OfflineUUID("alex") {
		t.Errorf("last argument = %+v", last)
	}
}

func TestOfflineUUID(t *testing.T) {
	// Matches Java's UUID.nameUUIDFromBytes("OfflinePlayer:Notch")
	if got := OfflineUUID("Notch"); got != "b50ad385829d3141a2167e7d7539ba7f" {
		t.Fatalf("OfflineUUID(Notch) = %s", got)
	}
	if OfflineUUID("alex") == OfflineUUID("Alex") {
		t.Fatal("offline UUID should be case sensitive")
	}
}
