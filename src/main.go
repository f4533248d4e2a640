package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tweet-sentiment/src/config"
	"tweet-sentiment/src/dashboard"
	"tweet-sentiment/src/filter"
	"tweet-sentiment/src/pipeline"
	"tweet-sentiment/src/store"
)

var (
	configPath string
	cfg        *config.Config
	logCloser  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Sentiment dashboard for labelled tweet exports",
	Long: `Reads a labelled CSV export of tweets (Positif, Negatif, Promosi), counts
tweets and keywords per category and shows the resulting dashboard.

The last analysis is stored (directory, redis or memory) so that show, export
and clear work across runs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// setup loads the config and installs the file logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = loaded

	logger, closer, err := config.SetupLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	slog.SetDefault(logger)
	logCloser = closer
	slog.Debug("Config loaded", "path", configPath, "store", cfg.Store.Type)
	return nil
}

// openStore builds the configured backend. The returned func releases it.
func openStore(ctx context.Context) (store.Store, func(), error) {
	switch cfg.Store.Type {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	case config.StoreRedis:
		rs, err := store.DialRedis(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, cfg.Store.TTL())
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	default:
		d, err := store.NewDir(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	}
}

// summarizer applies top_n and the optional keyword ignore-list.
func summarizer() (pipeline.Summarizer, error) {
	s := pipeline.Summarizer{TopN: cfg.TopN}
	if cfg.KeywordFilterFile == "" {
		return s, nil
	}
	ignore := filter.NewIgnoreList()
	if err := ignore.LoadFromFile(cfg.KeywordFilterFile); err != nil {
		return s, err
	}
	slog.Info("Keyword ignore-list loaded", "path", cfg.KeywordFilterFile, "entries", ignore.Len())
	s.Exclude = ignore
	return s, nil
}

// newService wires store, repository and summarizer from the config.
func newService(ctx context.Context) (*dashboard.Service, func(), error) {
	st, release, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	sum, err := summarizer()
	if err != nil {
		release()
		return nil, nil, err
	}
	repo := store.NewRepository(st, cfg.Store.KeyPrefix)
	svc := dashboard.NewService(repo,
		dashboard.WithSummarizer(sum),
		dashboard.WithPartitions(cfg.Partitions),
	)
	return svc, release, nil
}
