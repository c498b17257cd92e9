package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workstream status dashboard",
	Long: `Show a summary of tracked workstreams: what needs attention, what is
active, and unread notification counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusOverviewRun()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusOverviewRun() error {
	mgr, err := getManager()
	if err != nil {
		return err
	}

	all := mgr.GetAll()
	if len(all) == 0 {
		ui.Info("No workstreams tracked. Use 'kestrel ws new <name>' to get started.")
		return nil
	}

	attention := mgr.GetNeedingAttention()
	active := mgr.GetActive()

	fmt.Fprintf(ui.Out, "%s %d total, %d active, %d needing attention\n",
		output.Cyan("Workstreams:"), len(all), len(active), len(attention))

	if len(attention) > 0 {
		fmt.Fprintln(ui.Out)
		table := ui.Table([]string{"ID", "NAME", "STATUS", "MESSAGE", "UPDATED"})
		for _, ws := range attention {
			table.Append([]string{
				shortID(ws.ID),
				ws.Name,
				output.StatusColor(string(ws.Status)),
				ws.StatusMessage,
				timeAgo(ws.UpdatedAt),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	q := getQueue()
	counts := q.UnreadCounts()
	unread := 0
	for _, c := range counts {
		unread += c
	}
	if unread > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "%s %d unread\n", output.Cyan("Notifications:"), unread)
		if q.HasUrgent() {
			ui.Warning("Some unread notifications are urgent")
		}
	}

	return nil
}

// timeAgo formats a timestamp as a rough relative duration.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
