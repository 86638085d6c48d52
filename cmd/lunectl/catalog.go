package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lunemusic/internal/domain"
	"lunemusic/internal/domain/ports"
	mongorepo "lunemusic/internal/repository/mongo"
	"lunemusic/internal/search"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the published track catalog",
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count catalog entries per namespace",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCatalog(cmd, func(ctx context.Context, catalog ports.CatalogStore) error {
			return printCatalogStats(ctx, catalog, cmd.OutOrStdout())
		})
	},
}

var catalogFindCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "List catalog entries the bot would match for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withCatalog(cmd, func(ctx context.Context, catalog ports.CatalogStore) error {
			return printCatalogMatches(ctx, catalog, query, cmd.OutOrStdout())
		})
	},
}

func init() {
	catalogCmd.AddCommand(catalogStatsCmd, catalogFindCmd)
	rootCmd.AddCommand(catalogCmd)
}

func withCatalog(cmd *cobra.Command, fn func(context.Context, ports.CatalogStore) error) error {
	ctx := cmd.Context()
	client, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	return fn(ctx, mongorepo.NewCatalogRepository(client, db))
}

func printCatalogStats(ctx context.Context, catalog ports.CatalogStore, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tENTRIES")
	var total int64
	for _, ns := range domain.CatalogNamespaces {
		n, err := catalog.Count(ctx, ns)
		if err != nil {
			return fmt.Errorf("count %s: %w", ns, err)
		}
		total += n
		fmt.Fprintf(tw, "%s\t%d\n", ns, n)
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	return tw.Flush()
}

func printCatalogMatches(ctx context.Context, catalog ports.CatalogStore, query string, w io.Writer) error {
	matcher := search.BuildMatcher(query)
	if matcher.Empty() {
		return fmt.Errorf("query %q has nothing searchable", query)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tID\tTITLE\tARTIST\tREF")
	for _, ns := range domain.CatalogNamespaces {
		entries, err := catalog.Match(ctx, ns, matcher.Pattern())
		if err != nil {
			return fmt.Errorf("match %s: %w", ns, err)
		}
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", ns, e.ID, e.Title, e.Artist, e.DistributionRef)
		}
	}
	return tw.Flush()
}
