package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/output"
)

var notifyUnreadOnly bool

var notifyCmd = &cobra.Command{
	Use:     "notify",
	Aliases: []string{"notifications"},
	Short:   "View and manage queued notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return notifyListRun()
	},
}

var notifyListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return notifyListRun()
	},
}

var notifyReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark a notification (or all) as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := getQueue()
		if len(args) == 0 {
			q.MarkAllAsRead()
			ui.Success("Marked all notifications as read")
			return nil
		}
		if !q.MarkAsRead(args[0]) {
			return fmt.Errorf("notification not found: %s", args[0])
		}
		ui.Success("Marked as read")
		return nil
	},
}

var notifyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear notifications",
	Long:  "Clear all notifications, or only read ones with --read.",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := getQueue()
		readOnly, _ := cmd.Flags().GetBool("read")
		if readOnly {
			n := q.ClearRead()
			ui.Success("Cleared %d read notification(s)", n)
			return nil
		}
		q.Clear()
		ui.Success("Cleared all notifications")
		return nil
	},
}

func init() {
	notifyListCmd.Flags().BoolVar(&notifyUnreadOnly, "unread", false, "Only show unread notifications")
	notifyClearCmd.Flags().Bool("read", false, "Only clear read notifications")

	notifyCmd.AddCommand(notifyListCmd)
	notifyCmd.AddCommand(notifyReadCmd)
	notifyCmd.AddCommand(notifyClearCmd)
	rootCmd.AddCommand(notifyCmd)
}

func notifyListRun() error {
	q := getQueue()

	items := q.Notifications()
	if notifyUnreadOnly {
		items = q.Unread()
	}
	if len(items) == 0 {
		ui.Info("No notifications")
		return nil
	}

	if q.HasUrgent() {
		ui.Warning("Unread notifications need attention")
	}

	table := ui.Table([]string{"", "TYPE", "MESSAGE", "WHEN"})
	for _, n := range items {
		marker := ""
		if !n.Read {
			marker = output.Yellow("*")
		}
		table.Append([]string{
			marker,
			output.NotificationColor(string(n.Type)),
			n.Message,
			n.Timestamp.Local().Format("Jan 02 15:04"),
		})
	}
	return table.Render()
}
