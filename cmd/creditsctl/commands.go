package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docscan-backend/internal/credits"
	"docscan-backend/internal/shared/config"
	"docscan-backend/internal/shared/storage/db"
)

var (
	statusFilter string
	grantAmount  int

	sqlDB  *sql.DB
	ledger *credits.Ledger

	rootCmd = &cobra.Command{
		Use:           "creditsctl",
		Short:         "Operate the daily credit ledger",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return openLedger(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if sqlDB != nil {
				_ = sqlDB.Close()
			}
		},
	}

	requestsCmd = &cobra.Command{
		Use:   "requests",
		Short: "Inspect and decide credit requests",
	}

	requestsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List credit requests, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ledger.ListRequests(cmd.Context(), statusFilter)
			if err != nil {
				return err
			}
			return printRequests(cmd.OutOrStdout(), items)
		},
	}

	requestsApproveCmd = &cobra.Command{
		Use:   "approve <request-id>",
		Short: "Approve a pending request and credit the user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ledger.Grant(cmd.Context(), args[0], credits.StatusApproved, grantAmount)
			if err != nil {
				return err
			}
			return printRequests(cmd.OutOrStdout(), []credits.Request{req})
		},
	}

	requestsDenyCmd = &cobra.Command{
		Use:   "deny <request-id>",
		Short: "Deny a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ledger.Grant(cmd.Context(), args[0], credits.StatusDenied, 0)
			if err != nil {
				return err
			}
			return printRequests(cmd.OutOrStdout(), []credits.Request{req})
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Run the daily reset check now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			performed, err := ledger.CheckAndReset(cmd.Context())
			if err != nil {
				return err
			}
			day := ledger.Today().Format(time.DateOnly)
			if performed {
				fmt.Fprintf(cmd.OutOrStdout(), "reset performed for %s\n", day)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "already reset for %s\n", day)
			}
			return nil
		},
	}
)

func init() {
	requestsListCmd.Flags().StringVar(&statusFilter, "status", "", "filter by status (pending, approved, denied)")
	requestsApproveCmd.Flags().IntVar(&grantAmount, "amount", 0, "credits to add to the user's balance")
	_ = requestsApproveCmd.MarkFlagRequired("amount")

	requestsCmd.AddCommand(requestsListCmd, requestsApproveCmd, requestsDenyCmd)
	rootCmd.AddCommand(requestsCmd, resetCmd)
}

func openLedger(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	conn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB = conn
	ledger = credits.NewPostgresLedger(conn, credits.Options{
		Allowance: cfg.DailyCredits,
		Location:  cfg.Location(),
	})
	return nil
}

func printRequests(w io.Writer, items []credits.Request) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tSTATUS\tAMOUNT\tCREATED\tDECIDED")
	for _, r := range items {
		decided := "-"
		if r.DecidedAt != nil {
			decided = r.DecidedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.UserID, r.Status, r.Amount, r.CreatedAt.UTC().Format(time.RFC3339), decided)
	}
	return tw.Flush()
}
