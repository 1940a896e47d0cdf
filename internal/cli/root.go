// Package cli provides the command-line interface for lorekeep.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/chat"
	"github.com/lorekeep/lorekeep/internal/client"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/db"
	"github.com/lorekeep/lorekeep/internal/kv"
	"github.com/lorekeep/lorekeep/internal/metrics"
	"github.com/lorekeep/lorekeep/internal/session"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Shared state initialized in PersistentPreRunE
	cfg          config.Config
	logger       *slog.Logger
	logClose     func() error
	dbClient     *db.Client
	store        *session.Store
	svc          *chat.Service
	apiClient    *client.Client
	localMetrics *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lorekeep",
	Short: "Chat with your personal knowledge base",
	Long: `Lorekeep is the chat layer of a personal knowledge and document
management product. Conversations are kept in titled sessions that survive
restarts; assistant responses stream in token by token.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logClose = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		kvs, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		localMetrics = metrics.NewCollector()
		kvs = kv.NewInstrumented(kvs, localMetrics)

		store = session.NewStore(kvs, logger)
		store.Hydrate(cmd.Context())
		svc = chat.NewService(store, logger)
		apiClient = client.New(cfg.ServerURL)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logClose != nil {
			_ = logClose()
		}
	},
}

// openStorage creates the kv layer for the configured backend.
func openStorage(ctx context.Context) (kv.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSurreal:
		var err error
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := dbClient.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return kv.NewSurreal(dbClient), nil

	default:
		fileStore, err := kv.NewFile(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		return fileStore, nil
	}
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

// resolveSession matches a session by id or unique id prefix.
func resolveSession(idOrPrefix string) (*session.Session, error) {
	var match *session.Session
	for _, sess := range store.Sessions() {
		if sess.ID == idOrPrefix {
			s := sess
			return &s, nil
		}
		if len(idOrPrefix) >= 4 && len(sess.ID) > len(idOrPrefix) && sess.ID[:len(idOrPrefix)] == idOrPrefix {
			if match != nil {
				return nil, fmt.Errorf("ambiguous session prefix %q", idOrPrefix)
			}
			s := sess
			match = &s
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no session matching %q", idOrPrefix)
	}
	return match, nil
}
