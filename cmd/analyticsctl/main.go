package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stockpulse/backend/internal/analytics"
	"stockpulse/backend/internal/cache"
	"stockpulse/backend/internal/config"
	"stockpulse/backend/internal/domain"
	"stockpulse/backend/internal/logging"
	"stockpulse/backend/internal/service"
	"stockpulse/backend/internal/store"
	"stockpulse/backend/internal/store/memory"
	pgstore "stockpulse/backend/internal/store/postgres"
)

var version = "dev"

// openFunc returns the repository the commands read from and a function that
// releases it.
type openFunc func(ctx context.Context, cfg config.Config) (store.Repository, func() error, error)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr, openRepository))
}

func execute(args []string, stdout io.Writer, stderr io.Writer, open openFunc) int {
	root := newRootCmd(stdout, stderr, open)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		payload, _ := json.MarshalIndent(map[string]string{
			"error":   "Command execution failed",
			"message": err.Error(),
		}, "", "  ")
		fmt.Fprintln(stderr, string(payload))
		return 1
	}
	return 0
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		return memory.NewSeeded(), func() error { return nil }, nil
	}
	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, pg.Close, nil
}

func newRootCmd(stdout io.Writer, stderr io.Writer, open openFunc) *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "analyticsctl",
		Short:         "Query sales analytics for a user from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the whole command")

	// run opens the repository, scopes the context to userID and prints the
	// result of query as indented JSON.
	run := func(cmd *cobra.Command, userID string, query func(ctx context.Context, svc *service.Service) (any, error)) error {
		cfg := config.Load()
		logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		repo, closeRepo, err := open(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeRepo(); err != nil {
				logger.Warn("close repository", "error", err)
			}
		}()

		svc := service.New(analytics.NewEngine(repo), cache.NoopCache{}, 0, logger)
		result, err := query(service.WithActor(ctx, domain.Actor{UserID: userID}), svc)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	salesCmd := &cobra.Command{
		Use:   "sales <userId> [week|month|year]",
		Short: "Revenue series with period-over-period change",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := optionalArg(args, 1, "year")
			return run(cmd, args[0], func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.Sales(ctx, filter)
			})
		},
	}

	generalCmd := &cobra.Command{
		Use:   "general <userId> [week|month|year]",
		Short: "Best and worst selling product in the trailing window",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := optionalArg(args, 1, "month")
			return run(cmd, args[0], func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.General(ctx, filter)
			})
		},
	}

	rankCmd := func(use string, short string, order domain.SortOrder) *cobra.Command {
		var filter string
		cmd := &cobra.Command{
			Use:   use + " <userId> [limit]",
			Short: short,
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				limit, err := numericArg(args, 1, "limit", analytics.DefaultRankLimit)
				if err != nil {
					return err
				}
				return run(cmd, args[0], func(ctx context.Context, svc *service.Service) (any, error) {
					return svc.Sellers(ctx, order, limit, filter)
				})
			},
		}
		cmd.Flags().StringVar(&filter, "filter", "month", "trailing window: week, month or year")
		return cmd
	}

	paymentsCmd := &cobra.Command{
		Use:   "payments <userId> [days]",
		Short: "Revenue and transaction count per payment method",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := numericArg(args, 1, "days", analytics.DefaultBreakdownDays)
			if err != nil {
				return err
			}
			return run(cmd, args[0], func(ctx context.Context, svc *service.Service) (any, error) {
				return svc.Payments(ctx, days)
			})
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the analyticsctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(
		salesCmd,
		generalCmd,
		rankCmd("top-selling", "Products with the most units sold", domain.SortDesc),
		rankCmd("low-selling", "Products with the fewest units sold", domain.SortAsc),
		paymentsCmd,
		versionCmd,
	)
	return root
}

func optionalArg(args []string, i int, fallback string) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return fallback
}

func numericArg(args []string, i int, name string, fallback int) (int, error) {
	raw := optionalArg(args, i, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, raw)
	}
	return v, nil
}
