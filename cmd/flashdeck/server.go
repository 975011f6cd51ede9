package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/flashdeck/internal/backup"
	"github.com/tinytelemetry/flashdeck/internal/duckdb"
	"github.com/tinytelemetry/flashdeck/internal/httpserver"
	"github.com/tinytelemetry/flashdeck/internal/journal"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"github.com/tinytelemetry/flashdeck/internal/socketrpc"
	"github.com/tinytelemetry/flashdeck/internal/study"
	"golang.org/x/sync/errgroup"
)

// runServer starts the study service with its HTTP API and socket RPC.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	// Initialize DuckDB store
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer store.Close()

	// Open the table journal and restore the newest snapshot.
	var saver model.TableSaver = store
	var tableJournal *journal.Journal
	if cfg.JournalEnabled {
		tableJournal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open table journal: %w", err)
		}
		defer tableJournal.Close()
		saver = journal.NewDurableSaver(tableJournal, store)
	}

	table, err := restoreTable(store, tableJournal)
	if err != nil {
		return err
	}

	// Create judgment buffer for batched DuckDB writes
	judgmentBuffer := duckdb.NewJudgmentBuffer(store, duckdb.JudgmentBufferConfig{
		BatchSize:      cfg.JudgmentBatchSize,
		FlushInterval:  cfg.JudgmentFlush,
		FlushQueueSize: cfg.JudgmentFlushQueue,
	})
	defer judgmentBuffer.Stop()

	// Start retention cleaner for judgment log expiry
	retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
		RetentionDays: cfg.JudgmentRetention,
	})
	defer retentionCleaner.Stop()

	// Start periodic backups when enabled.
	backupManager, err := backup.NewManager(store, backup.Config{
		Enabled:        cfg.BackupEnabled,
		Interval:       cfg.BackupInterval,
		LocalDir:       cfg.BackupLocalDir,
		KeepLast:       cfg.BackupKeepLast,
		BucketURL:      cfg.BackupBucketURL,
		S3Endpoint:     cfg.BackupS3Endpoint,
		S3Region:       cfg.BackupS3Region,
		S3AccessKey:    cfg.BackupS3AccessKey,
		S3SecretKey:    cfg.BackupS3SecretKey,
		S3SessionToken: cfg.BackupS3SessionToken,
		S3UseSSL:       cfg.BackupS3UseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	defer backupManager.Stop()

	session := study.NewSession(table, saver, study.WithJudgmentLog(judgmentBuffer, store))

	// Start HTTP API server if enabled
	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, session)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	// Start socket RPC server for TUI IPC
	sockServer := socketrpc.NewServer(cfg.SocketPath, session)
	if err := sockServer.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		defer sockServer.Stop()
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	piped := stdinPiped()
	printStartupBanner(cfg, piped, countDecks(table))

	g, gctx := errgroup.WithContext(ctx)

	if piped {
		g.Go(func() error {
			if _, err := importStdin(session, os.Stdin, cfg.StdinFormat, cfg.StdinDeckName); err != nil {
				log.Printf("stdin: import failed: %v", err)
			}
			return nil
		})
	}

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	cancel()

	// If we reach here, graceful shutdown succeeded within the deadline.
	// The signal goroutine (if active) dies with the process.
	signal.Stop(sigCh)

	return nil
}

// restoreTable returns the table to start from: the newest unsaved journal
// snapshot if one exists, otherwise whatever the store holds.
func restoreTable(store *duckdb.Store, j *journal.Journal) (model.FolderTable, error) {
	if j != nil {
		table, replayed, err := journal.Recover(j, store)
		if err != nil {
			return model.FolderTable{}, fmt.Errorf("failed to replay table journal: %w", err)
		}
		if replayed {
			log.Printf("table journal: restored unsaved snapshot")
			return table, nil
		}
	}

	table, found, err := store.LoadTable()
	if err != nil {
		return model.FolderTable{}, fmt.Errorf("failed to load folder table: %w", err)
	}
	if !found {
		return model.NewFolderTable(), nil
	}
	return table, nil
}

func countDecks(table model.FolderTable) int {
	n := 0
	for _, decks := range table.Folders {
		n += len(decks)
	}
	return n
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", defaultStateDirName)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "flashdeck.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, stdinImport bool, decks int) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╦  ╔═╗╔═╗╦ ╦╔╦╗╔═╗╔═╗╦╔═
    ╠╣ ║  ╠═╣╚═╗╠═╣ ║║║╣ ║  ╠╩╗
    ╚  ╩═╝╩ ╩╚═╝╩ ╩═╩╝╚═╝╚═╝╩ ╩`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	// Gateway
	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	if stdinImport {
		lines = append(lines, fmt.Sprintf("    %s  Stdin Import   %s", check, dim.Render(cfg.StdinFormat)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Stdin Import   %s", dot, dim.Render("not piped")))
	}
	lines = append(lines, "")

	// Storage
	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")

	lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
	if cfg.JournalEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Journal        %s", check, dim.Render(shortenPath(cfg.JournalPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Journal        %s", dot, dim.Render("disabled")))
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupLocalDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	// Library
	lines = append(lines, bold.Render("    Library"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Decks          %s", check, dim.Render(fmt.Sprintf("%d", decks))))
	if cfg.JudgmentRetention > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", check, dim.Render(fmt.Sprintf("%d days", cfg.JudgmentRetention))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", dot, dim.Render("keep forever")))
	}

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
