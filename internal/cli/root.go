// Package cli implements the wikictl command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"onfawiki/internal/app"
	"onfawiki/internal/logger"
	"onfawiki/internal/store"
	"onfawiki/internal/wiki"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// Deps carries flag values and the resources commands share. Tests set
// Engine directly, which skips config loading and store opening.
type Deps struct {
	ConfigPath string
	StoreURL   string
	LogLevel   string

	Config     app.Config
	Log        logger.Logger
	Backend    store.Backend
	Engine     *wiki.Engine
	HTTPClient *http.Client

	// OpenBackend opens the store named by a connection URL.
	OpenBackend func(ctx context.Context, rawURL string) (store.Backend, error)
}

// NewRootCmd builds the wikictl root command with every subcommand attached.
func NewRootCmd(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = &Deps{}
	}
	if deps.OpenBackend == nil {
		deps.OpenBackend = store.Open
	}

	cmd := &cobra.Command{
		Use:           "wikictl",
		Short:         "Administer the wiki document store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.HasParent() {
				return nil
			}
			return deps.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return deps.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&deps.ConfigPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	flags.StringVar(&deps.StoreURL, "store", "", "store connection URL, overrides "+store.URLKey)
	flags.StringVar(&deps.LogLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		NewExportCmd(deps),
		NewImportCmd(deps),
		NewCheckCmd(deps),
		NewRepairCmd(deps),
		NewTranslateCmd(deps),
		NewGraphCmd(deps),
	)
	return cmd
}

func (d *Deps) setup(ctx context.Context) error {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 45 * time.Second}
	}
	if d.Engine != nil {
		return nil
	}

	cfg, err := app.LoadConfig(d.ConfigPath)
	if err != nil {
		return err
	}
	if d.StoreURL != "" {
		cfg.StoreURL = d.StoreURL
	}
	if d.LogLevel != "" {
		cfg.LogLevel = d.LogLevel
	}
	d.Config = cfg

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	d.Log = log.With(logger.String("component", "wikictl"))

	backend, err := d.OpenBackend(ctx, cfg.StoreURL)
	if err != nil {
		return err
	}
	d.Backend = backend
	cache := wiki.NewCache(backend, wiki.WithFetchTimeout(cfg.FetchTimeout))
	d.Engine = wiki.NewEngine(cache, wiki.WithLogger(d.Log))
	return nil
}

func (d *Deps) close() error {
	if d.Log != nil {
		_ = d.Log.Sync()
	}
	if d.Backend == nil {
		return nil
	}
	err := d.Backend.Close()
	d.Backend = nil
	return err
}

// Run executes wikictl with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(&Deps{})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "wikictl: %v\n", err)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return 130
		case errors.Is(err, wiki.ErrNotConfigured):
			return 78
		default:
			return 1
		}
	}
	return 0
}
