package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/output"
)

var trashSmart bool

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect and search soft-deleted workstreams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trashListRun()
	},
}

var trashListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List trashed workstreams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trashListRun()
	},
}

var trashSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the trash",
	Long: `Search soft-deleted workstreams by name, metadata, and message
content. With --smart, results are scored by relevance instead of a plain
substring scan.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trashSearchRun(args[0])
	},
}

var trashStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show trash statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trashStatsRun()
	},
}

var trashPurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete a trashed workstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsPurgeRun(args[0])
	},
}

func init() {
	trashSearchCmd.Flags().BoolVar(&trashSmart, "smart", false, "Scored retrieval instead of substring scan")

	trashCmd.AddCommand(trashListCmd)
	trashCmd.AddCommand(trashSearchCmd)
	trashCmd.AddCommand(trashStatsCmd)
	trashCmd.AddCommand(trashPurgeCmd)
	rootCmd.AddCommand(trashCmd)
}

func trashListRun() error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	items := mgr.Trash().List()
	if len(items) == 0 {
		ui.Info("Trash is empty")
		return nil
	}

	table := ui.Table([]string{"ID", "NAME", "TYPE", "DELETED", "REASON"})
	for _, item := range items {
		table.Append([]string{
			shortID(item.ID),
			item.Name,
			string(item.Type),
			item.DeletedAt.Local().Format("Jan 02 15:04"),
			item.DeletionReason,
		})
	}
	return table.Render()
}

func trashSearchRun(query string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	if trashSmart {
		results := mgr.Trash().SmartSearch(query)
		if len(results) == 0 {
			ui.Info("No matches for %q", query)
			return nil
		}
		table := ui.Table([]string{"SCORE", "ID", "NAME", "DELETED"})
		for _, r := range results {
			table.Append([]string{
				fmt.Sprintf("%.0f", r.Score),
				shortID(r.Item.ID),
				r.Item.Name,
				r.Item.DeletedAt.Local().Format("Jan 02 15:04"),
			})
		}
		return table.Render()
	}

	results := mgr.Trash().Search(query)
	if len(results) == 0 {
		ui.Info("No matches for %q", query)
		return nil
	}
	table := ui.Table([]string{"ID", "NAME", "FIELD", "MATCH"})
	for _, r := range results {
		table.Append([]string{
			shortID(r.Item.ID),
			r.Item.Name,
			r.Field,
			r.Preview,
		})
	}
	return table.Render()
}

func trashStatsRun() error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	stats := mgr.Trash().GetStats()
	if stats.Count == 0 {
		ui.Info("Trash is empty")
		return nil
	}

	fmt.Fprintf(ui.Out, "%s %d trashed workstream(s), %d message(s) total\n",
		output.Cyan("Trash:"), stats.Count, stats.TotalMessages)
	fmt.Fprintf(ui.Out, "  Oldest: %s\n", stats.OldestDeleted.Local().Format("Jan 02 2006 15:04"))
	fmt.Fprintf(ui.Out, "  Newest: %s\n", stats.NewestDeleted.Local().Format("Jan 02 2006 15:04"))
	return nil
}
