// Package cmd assembles the application: configuration, bootstrap,
// dispatcher wiring, the webhook server, and the backup scheduler.
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"refurbot/core/backup"
	"refurbot/core/bootstrap"
	coreconfig "refurbot/core/config"
	coredatabase "refurbot/core/database"
	"refurbot/core/dispatch"
	"refurbot/core/logger"
	"refurbot/core/web"
	"refurbot/core/whatsapp"

	"log/slog"
)

// Config is the full application configuration: the core sections plus
// the database section, which lives here to keep the core config free
// of database imports.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
}

// LoadConfig reads the YAML file, overlays environment variables, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmd: failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cmd: failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("cmd: failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	coredatabase.Normalize(&cfg.Database)
	return &cfg, nil
}

// Options describe where configuration comes from.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
}

// Run loads configuration, bootstraps the infrastructure, wires the
// dispatcher to the store and the WhatsApp client, and serves until
// SIGINT or SIGTERM.
func Run(opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	startedAt := time.Now()

	boot, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		_ = boot.DB.Close()
	}()

	client := whatsapp.NewClient(cfg.WhatsApp)
	dispatcher := dispatch.New(boot.Senders, client)

	server := web.NewServer(web.Options{
		VerifyToken:        cfg.WhatsApp.VerifyToken,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Dispatcher:         dispatcher,
		Senders:            boot.Senders,
	})

	var pusher backup.RemotePusher
	if cfg.Backup.RemoteEnabled {
		pusher = backup.NewGitPusher(cfg.Backup)
	}
	backupSvc := backup.NewService(cfg.Database.Path, cfg.Backup.Dir, pusher)
	scheduler := backup.NewScheduler(backupSvc, time.Duration(cfg.Backup.IntervalMinutes)*time.Minute)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("cmd: backup scheduler start failed: %w", err)
	}
	defer scheduler.Stop()

	logger.Info(ctx, "app", "ready",
		slog.String("status", "ok"),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	if err := server.Run(ctx, cfg.Server); err != nil {
		return err
	}

	logger.Info(context.Background(), "app", "shutdown", slog.String("status", "ok"))
	return nil
}
