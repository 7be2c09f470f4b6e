// Package cli implements eventq, a command line tool to inspect and drain a local event queue.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/serroba/analytics-eventqueue/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

const (
	keyBackend     = "backend"
	keyDataPath    = "data-path"
	keyAppID       = "app-id"
	keyClientID    = "client-id"
	keyRedisAddr   = "redis-addr"
	keyDatabaseURL = "database-url"
	keyMaxBytes    = "max-bytes"
	keyVerbose     = "verbose"
)

type app struct {
	v      *viper.Viper
	config string
}

// NewRootCmd builds the eventq command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "eventq",
		Short: "Inspect and drain a local analytics event queue",
		Long: `eventq opens the same storage the event queue server uses and works on the
events of one client namespace (events:<app-id>:<client-id>).

Settings come from flags, EVENTQ_ environment variables (EVENTQ_DATA_PATH for
--data-path) or a .eventq.yaml file in the working or home directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.config, "config", "", "config file (default .eventq.yaml in the working or home directory)")
	flags.String(keyBackend, string(store.KindFile), "storage backend: memory, file, sqlite, redis or postgres")
	flags.String(keyDataPath, "./data", "directory for the file and sqlite backends")
	flags.String(keyAppID, "eventqueue", "application id the events belong to")
	flags.String(keyClientID, "local", "unique id of the client installation")
	flags.String(keyRedisAddr, "localhost:6379", "Redis address for the redis backend")
	flags.String(keyDatabaseURL, "", "PostgreSQL connection URL for the postgres backend")
	flags.Int64(keyMaxBytes, analytics.DefaultMaxStorageBytes, "maximum stored event bytes, 0 or less is unlimited")
	flags.BoolP(keyVerbose, "v", false, "log storage operations to stderr")

	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newPutCmd(a),
		newListCmd(a),
		newDrainCmd(a),
		newCountCmd(a),
		newClearCmd(a),
		newVersionCmd(),
	)

	return root
}

// Execute runs eventq with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("EVENTQ")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.config != "" {
		a.v.SetConfigFile(a.config)
	} else {
		a.v.SetConfigName(".eventq")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("reading config: %w", err)
	}

	return nil
}

func (a *app) logger() *zap.Logger {
	if !a.v.GetBool(keyVerbose) {
		return zap.NewNop()
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

// withStore opens the configured backend, runs fn against the client's event store and closes
// the backend again.
func (a *app) withStore(ctx context.Context, fn func(s *analytics.PropertyEventStore) error) (err error) {
	client, err := analytics.NewClientContext(a.v.GetString(keyAppID), a.v.GetString(keyClientID))
	if err != nil {
		return err
	}

	backend, err := store.Open(ctx, store.Config{
		Backend:     store.Kind(a.v.GetString(keyBackend)),
		DataPath:    a.v.GetString(keyDataPath),
		RedisAddr:   a.v.GetString(keyRedisAddr),
		DatabaseURL: a.v.GetString(keyDatabaseURL),
	})
	if err != nil {
		return err
	}

	defer func() {
		if cerr := backend.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing storage: %w", cerr)
		}
	}()

	logger := a.logger()
	defer func() { _ = logger.Sync() }()

	s := analytics.NewPropertyEventStore(backend, client, analytics.StoreOptions{
		MaxStorageBytes: a.v.GetInt64(keyMaxBytes),
	}, logger)

	return fn(s)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eventq %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}
