package probe

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/vitrine/internal/adapters/http/api"
	"github.com/okian/vitrine/internal/adapters/repository"
	"github.com/okian/vitrine/pkg/logger"
)

// NewCommand returns the feed-probe root command with its subcommands.
func NewCommand() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "feed-probe",
		Short:         "Seed and check vitrine feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(newSeedCommand(), newRunCommand())
	return root
}

func newSeedCommand() *cobra.Command {
	var (
		driver, dsn string
		migrate     bool
		seed        uint64
		size        = DefaultCatalogSize()
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a synthetic catalog into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			data, err := Generate(size, seed, time.Now().UTC())
			if err != nil {
				return err
			}

			store, err := repository.Open(ctx, driver, dsn, repository.WithAutoMigrate(migrate))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Seed(ctx, data); err != nil {
				return err
			}
			logger.Named("probe").Info(ctx, "catalog seeded",
				logger.String("driver", driver),
				logger.Int("products", len(data.Products)),
				logger.Int("videos", len(data.Videos)),
				logger.Int("orders", len(data.Orders)),
				logger.Int("likes", len(data.Likes)))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products and %d videos\n", len(data.Products), len(data.Videos))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&driver, "driver", repository.DriverSQLite, "database driver (sqlite3, pgx)")
	f.StringVar(&dsn, "dsn", "file:vitrine.db?_foreign_keys=on", "database dsn")
	f.BoolVar(&migrate, "migrate", true, "apply the schema before seeding (sqlite only)")
	f.Uint64Var(&seed, "seed", 1, "random seed")
	f.IntVar(&size.Sellers, "sellers", size.Sellers, "seller accounts, one store each")
	f.IntVar(&size.Buyers, "buyers", size.Buyers, "buyer accounts")
	f.IntVar(&size.Products, "products", size.Products, "products")
	f.IntVar(&size.Videos, "videos", size.Videos, "fy videos")
	f.IntVar(&size.Orders, "orders", size.Orders, "orders, one item each")
	f.IntVar(&size.Likes, "likes", size.Likes, "like attempts; duplicates are skipped")
	f.IntVar(&size.Cities, "cities", size.Cities, "distinct city ids")
	f.Float64Var(&size.PromotedShare, "promoted", size.PromotedShare, "share of promoted items")
	return cmd
}

func newRunCommand() *cobra.Command {
	var (
		cfg      = DefaultConfig()
		secret   string
		viewerID string
		tokenTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch feeds from a running server and verify them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Token == "" && secret != "" && viewerID != "" {
				token, err := api.NewAuthenticator(secret).Issue(viewerID, tokenTTL)
				if err != nil {
					return fmt.Errorf("issue token: %w", err)
				}
				cfg.Token = token
			}

			report, err := Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "requests=%d failures=%d violations=%d duration=%s\n",
				report.Requests, report.Failures, report.Violations, report.Duration.Round(time.Millisecond)); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("%w: %d failures, %d violations", ErrInvariant, report.Failures, report.Violations)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "server base url")
	f.StringVar(&cfg.Token, "token", "", "bearer token for personalized feeds")
	f.StringVar(&secret, "jwt-secret", "", "sign a token for --viewer with this secret")
	f.StringVar(&viewerID, "viewer", "", "viewer id to sign a token for")
	f.DurationVar(&tokenTTL, "token-ttl", time.Hour, "lifetime of a signed token")
	f.StringVar(&cfg.CityID, "city", "", "city id for the smart feed")
	f.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "feed fetch rounds")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	f.IntVar(&cfg.VideoTarget, "video-target", cfg.VideoTarget, "maximum fy feed length")
	f.IntVar(&cfg.ProductTarget, "product-target", cfg.ProductTarget, "maximum smart feed length")
	return cmd
}
