package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"lunemusic/internal/domain/ports"
	"lunemusic/internal/export"
	mongorepo "lunemusic/internal/repository/mongo"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect and export bot users",
}

var exportUsersCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every user as CSV",
	Long: `Export writes all users, blocked ones included, in the same CSV layout
the bot's /export command sends. Without --out the file is named
users_<unix-millis>.csv in the current directory; "-" writes to stdout.`,
	RunE: runExportUsers,
}

var userStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print user totals",
	RunE:  runUserStats,
}

func init() {
	exportUsersCmd.Flags().String("out", "", "output path, or - for stdout")
	userStatsCmd.Flags().Duration("window", 24*time.Hour, "activity window for the recent-active count")

	usersCmd.AddCommand(exportUsersCmd, userStatsCmd)
	rootCmd.AddCommand(usersCmd)
}

func runExportUsers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = export.FileName(time.Now())
	}
	var w io.Writer = cmd.OutOrStdout()
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	n, err := exportUsers(ctx, mongorepo.NewUserRepository(client, db), w)
	if err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d users to %s\n", n, out)
	}
	return nil
}

func exportUsers(ctx context.Context, users ports.UserStore, w io.Writer) (int, error) {
	all, err := users.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	if err := export.WriteUsers(w, all); err != nil {
		return 0, err
	}
	return len(all), nil
}

func runUserStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	window, _ := cmd.Flags().GetDuration("window")
	return printUserStats(ctx, mongorepo.NewUserRepository(client, db), window, time.Now(), cmd.OutOrStdout())
}

func printUserStats(ctx context.Context, users ports.UserStore, window time.Duration, now time.Time, w io.Writer) error {
	stats, err := users.Stats(ctx, now.Add(-window))
	if err != nil {
		return fmt.Errorf("user stats: %w", err)
	}
	fmt.Fprintf(w, "total\t%d\nactive\t%d\nblocked\t%d\nrecent\t%d\n",
		stats.Total, stats.Active, stats.Blocked, stats.RecentActive)
	return nil
}
