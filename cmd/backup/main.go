package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charlesng35/catalogadmin/internal/app"
	"github.com/charlesng35/catalogadmin/internal/backup"
	"github.com/charlesng35/catalogadmin/internal/database"
	"github.com/charlesng35/catalogadmin/pkg/logger"
	"github.com/charlesng35/catalogadmin/pkg/mail"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("catalog-backup", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath string
		dir        string
		retention  int
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or YAML file")
	fs.StringVar(&dir, "dir", "", "Override backup.dir")
	fs.IntVar(&retention, "retention", 0, "Override backup.retention (number of files to keep)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var paths []string
	if path := strings.TrimSpace(configPath); path != "" {
		paths = append(paths, path)
	}
	cfg, err := app.LoadConfig(paths...)
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.Backup.Dir = dir
	}
	if retention > 0 {
		cfg.Backup.Retention = retention
	}

	if err := app.ConfigureLogging(cfg.Server, "catalog-backup"); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	result, err := runBackup(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, result.Path)
	return nil
}

// runBackup opens the configured database and writes one backup file.
func runBackup(ctx context.Context, cfg *app.Config) (*backup.Result, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	var opts []backup.Option
	if cfg.Email.SMTP.Enabled && len(cfg.Backup.Notify) > 0 {
		mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("configure mailer: %w", err)
		}
		opts = append(opts, backup.WithMailer(mailer))
	}

	runner, err := backup.NewRunner(db, dbCfg, cfg.Backup.RunnerConfig(), opts...)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}
