/*
CLI utility for the NVR core service.

Provides command-line operator actions: storage health, disk-pressure
status, an on-demand cleanup trigger, and per-stream status. There is no
wire protocol between this binary and a running server (single-host,
no RPC surface, per design) — each invocation opens the same repository
and configuration file a running server uses and computes a fresh
snapshot of the same kind the in-process Public Query API exposes.
Stream status therefore lists the configured streams with their enabled
flag, source and the bytes their recordings occupy in the repository; it
does not report a live supervisor state (which only a running process
holds).
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lenswatch/nvr-core/internal/config"
	"github.com/lenswatch/nvr-core/internal/eventbus"
	"github.com/lenswatch/nvr-core/internal/logging"
	"github.com/lenswatch/nvr-core/internal/repository"
	"github.com/lenswatch/nvr-core/internal/storage"
)

const (
	appName    = "nvr-cli"
	appVersion = "1.0.0"
)

var (
	configPath = flag.String("config", "config/default.yaml", "Path to configuration file")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
	format     = flag.String("format", "table", "Output format (table, json)")
)

func main() {
	flag.Parse()

	logger := logging.GetLogger("cli")
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	configManager := config.NewConfigManager()
	if err := configManager.Load(*configPath); err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	cfg := configManager.Get()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	repo, err := repository.Open(filepath.Join(cfg.Storage.StoragePath, "nvr.db"), repository.DefaultConfig())
	if err != nil {
		logger.WithError(err).Fatal("failed to open repository")
	}
	defer repo.Close()

	globalCfg := func() config.StorageConfig { return cfg.Storage }
	storageCtl := storage.New(repo, eventbus.New(), globalCfg, storage.GopsutilDiskUsage, storage.DefaultConfig(cfg.Storage.StoragePath))
	storageCtl.Start()
	defer storageCtl.Stop()

	command := args[0]
	commandArgs := args[1:]

	var execErr error
	switch command {
	case "health":
		execErr = executeHealth(storageCtl, commandArgs)
	case "trigger-cleanup":
		execErr = executeTriggerCleanup(storageCtl, commandArgs)
	case "stream-status":
		execErr = executeStreamStatus(repo, cfg, commandArgs)
	case "version":
		printVersion()
	case "help":
		printUsage()
	default:
		execErr = fmt.Errorf("unknown command: %s", command)
	}

	if execErr != nil {
		logger.WithError(execErr).Fatal("command execution failed")
	}
}

func executeHealth(storageCtl *storage.Controller, args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap := waitForHeartbeat(storageCtl, time.Time{})

	if *format == "json" {
		output, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Storage Health:\n")
	fmt.Printf("  Pressure Level: %s\n", snap.PressureLevel)
	fmt.Printf("  Free Space:     %.1f%%\n", snap.FreeSpacePct)
	fmt.Printf("  Used Bytes:     %d\n", snap.UsedSpaceBytes)
	fmt.Printf("  Total Bytes:    %d\n", snap.TotalSpaceBytes)
	fmt.Printf("  Last Checked:   %s\n", snap.LastCheckTime.Format("2006-01-02 15:04:05"))
	return nil
}

func executeTriggerCleanup(storageCtl *storage.Controller, args []string) error {
	fs := flag.NewFlagSet("trigger-cleanup", flag.ExitOnError)
	aggressive := fs.Bool("aggressive", false, "Run the emergency cleanup pass (up to 200 recordings, ephemeral tier first) instead of a standard cycle")
	if err := fs.Parse(args); err != nil {
		return err
	}

	before := storageCtl.HealthSnapshot().LastCheckTime
	storageCtl.TriggerCleanup(*aggressive)
	snap := waitForHeartbeat(storageCtl, before)

	fmt.Printf("cleanup triggered: %d recordings removed, %d bytes freed\n", snap.LastCleanupDeleted, snap.LastCleanupFreed)
	return nil
}

// waitForHeartbeat polls the controller's cached health until a heartbeat
// newer than after has landed, or gives up after a few seconds. The
// controller's background worker runs a heartbeat immediately on Start
// and again after every triggered pass, so this is a short wait in
// practice, not a real poll loop.
func waitForHeartbeat(storageCtl *storage.Controller, after time.Time) storage.Health {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap := storageCtl.HealthSnapshot()
		if snap.LastCheckTime.After(after) {
			return snap
		}
		time.Sleep(20 * time.Millisecond)
	}
	return storageCtl.HealthSnapshot()
}

func executeStreamStatus(repo *repository.Repository, cfg *config.GlobalConfig, args []string) error {
	fs := flag.NewFlagSet("stream-status", flag.ExitOnError)
	name := fs.String("name", "", "Report only the named stream")
	if err := fs.Parse(args); err != nil {
		return err
	}

	type row struct {
		Name        string `json:"name"`
		Enabled     bool   `json:"enabled"`
		Source      string `json:"source"`
		StoredBytes uint64 `json:"stored_bytes"`
	}
	var rows []row
	for _, s := range cfg.Streams {
		if *name != "" && s.Name != *name {
			continue
		}
		stored, err := repo.GetStreamStorageBytes(s.Name)
		if err != nil {
			return fmt.Errorf("query storage usage for %q: %w", s.Name, err)
		}
		rows = append(rows, row{Name: s.Name, Enabled: s.Enabled, Source: s.Source, StoredBytes: stored})
	}

	if *name != "" && len(rows) == 0 {
		return fmt.Errorf("stream not configured: %s", *name)
	}

	if *format == "json" {
		output, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(rows) == 0 {
		fmt.Println("No streams configured")
		return nil
	}

	fmt.Printf("Configured Streams (%d found):\n\n", len(rows))
	fmt.Printf("%-20s %-10s %-12s %s\n", "NAME", "ENABLED", "STORED", "SOURCE")
	fmt.Printf("%s\n", strings.Repeat("-", 80))
	for _, r := range rows {
		fmt.Printf("%-20s %-10t %-12d %s\n", r.Name, r.Enabled, r.StoredBytes, r.Source)
	}
	return nil
}

func printUsage() {
	fmt.Printf(`%s - NVR core service operator CLI

Usage:
  %s [flags] <command> [command-flags]

Commands:
  health                Show storage health snapshot
  trigger-cleanup       Trigger a storage cleanup pass
  stream-status         Show configured stream status
  version               Show version information
  help                  Show this help message

Flags:
  -config string        Path to configuration file (default: config/default.yaml)
  -verbose              Enable verbose output
  -format string        Output format: table or json (default: table)

Examples:
  %s -format json health
  %s trigger-cleanup --aggressive
  %s stream-status --name front-door

`, appName, appName, appName, appName, appName)
}

func printVersion() {
	fmt.Printf("%s version %s\n", appName, appVersion)
}
