package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/enderiumcraft/rbclauncher/src/internal/app"
	"github.com/enderiumcraft/rbclauncher/src/internal/config"
	"github.com/enderiumcraft/rbclauncher/src/internal/content"
	"github.com/enderiumcraft/rbclauncher/src/internal/github"
	grpcserver "github.com/enderiumcraft/rbclauncher/src/internal/grpc"
	"github.com/enderiumcraft/rbclauncher/src/internal/poller"
	"github.com/enderiumcraft/rbclauncher/src/internal/prefs"
	"github.com/enderiumcraft/rbclauncher/src/internal/process"
	"github.com/enderiumcraft/rbclauncher/src/internal/selfupdate"
	"github.com/enderiumcraft/rbclauncher/src/internal/state"
	"github.com/enderiumcraft/rbclauncher/src/internal/tray"
	"github.com/enderiumcraft/rbclauncher/src/internal/ui"
	"github.com/enderiumcraft/rbclauncher/src/internal/update"
	"github.com/enderiumcraft/rbclauncher/src/internal/users"
	"github.com/enderiumcraft/rbclauncher/src/internal/version"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// buildVersion is set with -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

var (
	configPath  = pflag.String("config", "", "Path to configuration file (default: launcher.yaml next to the executable)")
	dataDir     = pflag.String("data-dir", "", "Directory for logs, preferences and accounts")
	noTray      = pflag.Bool("no-tray", false, "Do not show the system tray icon")
	control     = pflag.Bool("control", false, "Enable the local control service")
	showVersion = pflag.Bool("version", false, "Print the version and exit")
	checkOnly   = pflag.Bool("check-only", false, "Check for updates, print the result and exit")
)

func main() {
	pflag.Parse()

	// Answered before any side effect; the self-updater runs this as a
	// health check on a freshly downloaded binary.
	if *showVersion {
		fmt.Println(buildVersion)
		return
	}

	code, relaunch := run()
	if relaunch != nil {
		if err := relaunch(); err != nil {
			log.Printf("[SelfUpdate] Relaunch failed: %v", err)
			fmt.Fprintf(os.Stderr, "Failed to restart the launcher: %v\n", err)
			os.Exit(1)
		}
	}
	os.Exit(code)
}

// run starts the launcher and returns the exit code and, after a
// successful self-update handoff, the relaunch step to run once every
// resource has been released.
func run() (int, func() error) {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate executable: %v\n", err)
		return 1, nil
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	path := *configPath
	if path == "" {
		path = filepath.Join(filepath.Dir(exe), "launcher.yaml")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1, nil
	}
	if *dataDir != "" {
		abs, err := filepath.Abs(*dataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid data directory: %v\n", err)
			return 1, nil
		}
		cfg.Paths.DataDir = abs
	}
	if err := os.MkdirAll(cfg.Paths.DataDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		return 1, nil
	}

	// Setup log file. The terminal belongs to the UI.
	logFile, err := os.OpenFile(filepath.Join(cfg.Paths.DataDir, "launcher.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return 1, nil
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	lock, err := acquireLock("rbclauncher.lock")
	if err != nil {
		log.Printf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1, nil
	}
	defer lock.release()

	log.Printf("RBC Launcher %s starting (install: %s, data: %s)", buildVersion, cfg.Paths.InstallDir, cfg.Paths.DataDir)
	if cfg.GitHub.Token != "" {
		log.Printf("GitHub API authentication enabled (rate limit: 5000/hour)")
	} else {
		log.Printf("Warning: No GitHub token configured (rate limit: 60/hour)")
	}

	// Version store and pending self-update
	versions := version.NewStore(cfg.Paths.VersionFile)
	local := versions.Load()
	pendingPath := filepath.Join(cfg.Paths.DataDir, "update-pending.json")
	if _, err := selfupdate.Confirm(pendingPath, versions, exe); err != nil {
		log.Printf("[SelfUpdate] Failed to confirm pending update: %v", err)
	}
	log.Printf("Installed versions: launcher %s, modpack %s", local.BinaryVersion, versions.Current().ContentVersion)

	client := github.NewClient(github.Options{
		APIURL:          cfg.GitHub.APIURL,
		Repository:      cfg.GitHub.Repository,
		Token:           cfg.GitHub.Token,
		DescriptorAsset: cfg.Assets.VersionDescriptor,
		Timeout:         cfg.GitHub.Timeout,
		DownloadTimeout: cfg.GitHub.DownloadTimeout,
		StallTimeout:    cfg.GitHub.StallTimeout,
	})

	st := state.New()
	var program *tea.Program

	synchronizer := content.NewSynchronizer(client, versions, cfg.Paths.InstallDir, cfg.Paths.ContentDir)
	updater := selfupdate.New(client, selfupdate.NewSwapper(), selfupdate.Options{
		AssetName:       cfg.Assets.LauncherBinary,
		ChecksumAsset:   cfg.Assets.Checksums,
		RequireChecksum: cfg.Assets.RequireChecksum,
		HealthCheck:     true,
		PendingPath:     pendingPath,
		Executable:      exe,
		Args:            os.Args[1:],
	}, func() {
		if program != nil {
			program.Send(ui.ActionMsg{Action: ui.ActionQuit})
		}
	})
	updates := update.NewManager(client, versions, synchronizer, updater, st)

	if *checkOnly {
		return checkAndPrint(updates), nil
	}

	accounts, err := users.Open(filepath.Join(cfg.Paths.DataDir, "users.db"))
	if err != nil {
		log.Printf("Failed to open user store: %v", err)
		fmt.Fprintf(os.Stderr, "Failed to open user store: %v\n", err)
		return 1, nil
	}
	defer accounts.Close()

	preferences := prefs.Open(filepath.Join(cfg.Paths.DataDir, "config.json"))
	supervisor := process.NewSupervisor(filepath.Join(cfg.Paths.DataDir, "game.log"))
	defer supervisor.Shutdown()

	launcher := app.New(accounts, preferences, st, updates, supervisor, app.Options{
		InstallDir:   cfg.Paths.InstallDir,
		GameDir:      config.ContentPath(cfg),
		ProfilesPath: config.ProfilesPath(cfg),
		EnvPath:      config.EnvPath(cfg),
		Servers:      cfg.Servers.Entries,
		ProbeTimeout: cfg.Servers.ProbeTimeout,
	})

	model := ui.New(launcher, ui.Options{
		Version:      buildVersion,
		PollInterval: cfg.Launch.PollInterval,
		CloseOnStart: cfg.Launch.CloseOnStart,
		CloseDelay:   cfg.Launch.CloseDelay,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())

	// Initialize control service
	var controlServer *grpcserver.Server
	if cfg.Control.Enabled || *control {
		lis, err := grpcserver.Listen(cfg.Control.Address)
		if err != nil {
			log.Printf("[Control] Control service disabled: %v", err)
		} else {
			controlServer = grpcserver.NewServer(launcher, versions, func() {
				program.Send(ui.GameLaunchedMsg{})
			})
			grpcSrv := grpc.NewServer()
			controlServer.Register(grpcSrv)
			go func() {
				log.Printf("[Control] gRPC server listening on %s", lis.Addr())
				if err := grpcSrv.Serve(lis); err != nil {
					log.Printf("[Control] gRPC server error: %v", err)
				}
			}()
			defer grpcSrv.GracefulStop()
		}
	}

	updates.SetStatusListener(func(status models.UpdateStatus) {
		program.Send(ui.UpdateStatusMsg(status))
		if controlServer != nil {
			controlServer.BroadcastUpdateStatus(status)
		}
	})

	// Start background update checks
	if cfg.Updates.Enabled {
		bg, err := poller.NewPoller(cfg.Updates.Schedule, updates, func(check *models.UpdateCheck, shown func()) {
			program.Send(ui.UpdateAvailableMsg{Check: check, Shown: shown})
		})
		if err != nil {
			log.Printf("[Poller] %v", err)
		} else if err := bg.Start(); err != nil {
			log.Printf("[Poller] %v", err)
		} else {
			defer bg.Stop()
		}
	}

	// Start system tray icon
	if !*noTray {
		log.Println("Starting system tray icon...")
		trayManager := tray.NewManager(func(action ui.Action) {
			program.Send(ui.ActionMsg{Action: action})
		})
		trayManager.Start()
		defer trayManager.Stop()
	}

	// Setup signal channel for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			log.Println("Received shutdown signal")
			program.Send(ui.ActionMsg{Action: ui.ActionQuit})
		}
	}()

	if _, err := program.Run(); err != nil {
		log.Printf("UI error: %v", err)
		fmt.Fprintf(os.Stderr, "Launcher error: %v\n", err)
		return 1, nil
	}

	log.Println("Shutting down gracefully...")
	if updater.HandedOff() {
		log.Println("[SelfUpdate] Restarting into the new launcher")
		return 0, updater.Relaunch
	}
	return 0, nil
}

// checkAndPrint runs one update check for --check-only. It exits 0 when
// up to date, 2 when an update is available and 1 on failure.
func checkAndPrint(updates *update.Manager) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	check, err := updates.Check(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
		return 1
	}

	fmt.Printf("Latest release: %s\n", check.Manifest.Tag)
	fmt.Printf("Launcher: %s -> %s\n", check.Local.BinaryVersion, check.Manifest.Versions.BinaryVersion)
	fmt.Printf("Modpack:  %s -> %s\n", check.Local.ContentVersion, check.Manifest.Versions.ContentVersion)
	if check.Plan.Empty() {
		fmt.Println("Up to date")
		return 0
	}
	fmt.Printf("Update available (modpack: %v, launcher: %v)\n", check.Plan.ContentNeeded, check.Plan.BinaryNeeded)
	return 2
}
