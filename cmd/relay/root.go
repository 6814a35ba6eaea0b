package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	internal "github.com/ZanzyTHEbar/ai-counselor/relay"
	"github.com/ZanzyTHEbar/ai-counselor/relay/config"
	"github.com/ZanzyTHEbar/ai-counselor/relay/db"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries state shared by subcommands once PersistentPreRunE has run.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "relay",
		Short: "Conversational relay between chat clients and an LLM",
		Long: `relay accepts chat messages over HTTP and from the LINE Messaging API,
builds a token-budgeted conversation context from stored history, asks the
configured language model for a reply and stores the exchange.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default searches ., /etc/ai-counselor and the user config dir)")

	root.AddCommand(newServeCmd(a), newMigrateCmd(a), newVersionCmd())
	return root
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newLogger builds the root logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log.level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	switch cfg.Format {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "", "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log.format %q", cfg.Format)
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", internal.DefaultAppName).
		Logger(), nil
}

func dbOptions(cfg config.DatabaseConfig) db.Options {
	return db.Options{
		DSN:            cfg.DSN,
		AuthToken:      cfg.AuthToken,
		MaxOpenConns:   cfg.MaxOpenConns,
		MaxIdleConns:   cfg.MaxIdleConns,
		ConnMaxIdleSec: cfg.ConnMaxIdleSec,
		ConnMaxLifeSec: cfg.ConnMaxLifeSec,
		BusyTimeoutMs:  cfg.BusyTimeoutMs,
	}
}
