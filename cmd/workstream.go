package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/output"
)

var (
	wsType       string
	wsStatus     string
	wsTypeFilter string
	wsMeta       []string
	wsReason     string
	wsMessage    string
)

var wsCmd = &cobra.Command{
	Use:     "ws",
	Aliases: []string{"workstream"},
	Short:   "Manage tracked workstreams",
	Long:    "Create, inspect, and manage long-running units of work.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsListRun("", "")
	},
}

var wsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List workstreams",
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsListRun(wsStatus, wsTypeFilter)
	},
}

var wsNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new workstream",
	Long: `Create a new workstream. Metadata key=value pairs link it to an
external reference, e.g. --meta repo=owner/name --meta prNumber=42.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsNewRun(args[0])
	},
}

var wsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show workstream details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsShowRun(args[0])
	},
}

var wsStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Set a workstream's status",
	Long:  "Set status to one of: needs_input, in_progress, waiting, done, error.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsStatusRun(args[0], args[1])
	},
}

var wsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Move a workstream to the trash",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsDeleteRun(args[0])
	},
}

var wsRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a workstream from the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsRestoreRun(args[0])
	},
}

var wsPurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete a trashed workstream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wsPurgeRun(args[0])
	},
}

func init() {
	wsNewCmd.Flags().StringVar(&wsType, "type", "custom", "Type: pr, ticket, ask, investigation, custom")
	wsNewCmd.Flags().StringArrayVar(&wsMeta, "meta", nil, "Metadata key=value (repeatable)")

	wsListCmd.Flags().StringVar(&wsStatus, "status", "", "Filter by status")
	wsListCmd.Flags().StringVar(&wsTypeFilter, "type", "", "Filter by type")

	wsStatusCmd.Flags().StringVar(&wsMessage, "message", "", "Status message")

	wsDeleteCmd.Flags().StringVar(&wsReason, "reason", "", "Deletion reason")

	wsCmd.AddCommand(wsListCmd)
	wsCmd.AddCommand(wsNewCmd)
	wsCmd.AddCommand(wsShowCmd)
	wsCmd.AddCommand(wsStatusCmd)
	wsCmd.AddCommand(wsDeleteCmd)
	wsCmd.AddCommand(wsRestoreCmd)
	wsCmd.AddCommand(wsPurgeCmd)
	rootCmd.AddCommand(wsCmd)
}

func wsListRun(statusFilter, typeFilter string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	var items []*models.Workstream
	switch {
	case statusFilter != "":
		items = mgr.GetByStatus(models.WorkstreamStatus(statusFilter))
	case typeFilter != "":
		items = mgr.GetByType(models.WorkstreamType(typeFilter))
	default:
		items = mgr.GetAll()
	}

	if len(items) == 0 {
		ui.Info("No workstreams found")
		return nil
	}

	table := ui.Table([]string{"#", "ID", "NAME", "TYPE", "STATUS", "TURNS", "UPDATED"})
	for i, ws := range items {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			shortID(ws.ID),
			ws.Name,
			string(ws.Type),
			output.StatusColor(string(ws.Status)),
			fmt.Sprintf("%d", ws.TurnCount),
			ws.UpdatedAt.Local().Format("Jan 02 15:04"),
		})
	}
	return table.Render()
}

func wsNewRun(name string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	metadata := map[string]string{}
	for _, pair := range wsMeta {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --meta %q, expected key=value", pair)
		}
		metadata[key] = val
	}

	if dryRun {
		ui.DryRunMsg("Would create %s workstream %q", wsType, name)
		return nil
	}

	ws, err := mgr.Create(models.WorkstreamType(wsType), name, metadata)
	if err != nil {
		return err
	}

	ui.Success("Created workstream %s (%s)", ws.Name, shortID(ws.ID))
	return nil
}

func wsShowRun(ref string) error {
	ws, err := resolveWorkstream(ref)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s %s\n", output.Cyan(ws.Name), shortID(ws.ID))
	fmt.Fprintf(ui.Out, "  Type:     %s\n", ws.Type)
	fmt.Fprintf(ui.Out, "  Status:   %s\n", output.StatusColor(string(ws.Status)))
	if ws.StatusMessage != "" {
		fmt.Fprintf(ui.Out, "  Message:  %s\n", ws.StatusMessage)
	}
	fmt.Fprintf(ui.Out, "  Created:  %s\n", ws.CreatedAt.Local().Format(time.RFC822))
	fmt.Fprintf(ui.Out, "  Updated:  %s\n", ws.UpdatedAt.Local().Format(time.RFC822))
	fmt.Fprintf(ui.Out, "  Turns:    %d (%d messages, ~%d tokens)\n", ws.TurnCount, len(ws.Messages), ws.TokenEstimate)
	for key, val := range ws.Metadata {
		fmt.Fprintf(ui.Out, "  %s: %s\n", key, val)
	}
	if ws.LiveProgress != nil {
		fmt.Fprintf(ui.Out, "  Progress: %s %s\n", ws.LiveProgress.Phase, ws.LiveProgress.Detail)
	}
	return nil
}

func wsStatusRun(ref, status string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	ws, err := resolveWorkstream(ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would set %s to %s", ws.Name, status)
		return nil
	}

	updated, err := mgr.UpdateStatus(ws.ID, models.WorkstreamStatus(status), wsMessage)
	if err != nil {
		return err
	}
	if updated == nil {
		return fmt.Errorf("workstream not found: %s", ref)
	}

	ui.Success("%s is now %s", updated.Name, output.StatusColor(string(updated.Status)))
	return nil
}

func wsDeleteRun(ref string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	ws, err := resolveWorkstream(ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would move %s to trash", ws.Name)
		return nil
	}

	trashed, err := mgr.Delete(ws.ID, wsReason)
	if err != nil {
		return err
	}
	if trashed == nil {
		return fmt.Errorf("workstream not found: %s", ref)
	}

	ui.Success("Moved %s to trash (restorable with: kestrel ws restore %s)", trashed.Name, shortID(trashed.ID))
	return nil
}

func wsRestoreRun(ref string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	ws, err := mgr.RestoreFromTrash(ref)
	if err != nil {
		return err
	}
	if ws == nil {
		// The ref may be a short id; scan the trash for a match.
		for _, item := range mgr.Trash().List() {
			if strings.HasPrefix(item.ID, strings.ToUpper(ref)) {
				ws, err = mgr.RestoreFromTrash(item.ID)
				if err != nil {
					return err
				}
				break
			}
		}
	}
	if ws == nil {
		return fmt.Errorf("not in trash: %s", ref)
	}

	ui.Success("Restored %s (%s)", ws.Name, output.StatusColor(string(ws.Status)))
	return nil
}

func wsPurgeRun(ref string) error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would permanently delete %s", ref)
		return nil
	}

	ok, err := mgr.PermanentlyDelete(ref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not in trash: %s", ref)
	}

	ui.Success("Permanently deleted %s", ref)
	return nil
}

// resolveWorkstream finds a workstream by full id, short id prefix, or
// 1-based list position.
func resolveWorkstream(ref string) (*models.Workstream, error) {
	mgr, err := getManager()
	if err != nil {
		return nil, err
	}

	if ws := mgr.Get(ref); ws != nil {
		return ws, nil
	}

	all := mgr.GetAll()

	// Numeric refs address the stable CreatedAt-ordered listing.
	var pos int
	if _, err := fmt.Sscanf(ref, "%d", &pos); err == nil && pos >= 1 && pos <= len(all) {
		return all[pos-1], nil
	}

	upper := strings.ToUpper(ref)
	for _, ws := range all {
		if strings.HasPrefix(ws.ID, upper) {
			return ws, nil
		}
	}
	return nil, fmt.Errorf("workstream not found: %s", ref)
}

// shortID returns the first 8 characters of a ULID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
