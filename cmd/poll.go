package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelhq/kestrel/internal/daemon"
	"github.com/kestrelhq/kestrel/internal/output"
)

var pollWatch bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Synchronize workstreams with their external check state",
	Long: `Run one synchronization cycle against the status provider and show
the results. With --watch, keep polling on the configured interval and
print notifications as they arrive (stop with Ctrl-C or 'kestrel poll stop').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pollWatch {
			return pollWatchRun()
		}
		return pollOnceRun()
	},
}

var pollStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running watch process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return pollStopRun()
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollWatch, "watch", false, "Keep polling on the configured interval")
	pollCmd.AddCommand(pollStopCmd)
	rootCmd.AddCommand(pollCmd)
}

func pollPIDFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("data_dir"), "poll.pid"))
}

func pollOnceRun() error {
	p, err := getPoller()
	if err != nil {
		return err
	}
	if p == nil {
		ui.Warning("No status provider available (is gh installed?)")
		return nil
	}

	ui.VerboseLog("Polling status provider...")
	p.PollNow()

	mgr, err := getManager()
	if err != nil {
		return err
	}

	polled := 0
	for _, ws := range mgr.GetAll() {
		if entry, ok := p.CachedStatus(ws.ID); ok {
			polled++
			fmt.Fprintf(ui.Out, "%s %s: %s\n", output.Cyan(ws.Name), shortID(ws.ID), ws.StatusMessage)
			ui.VerboseLog("aggregate %s at %s", entry.LastStatus, entry.LastCheckedAt.Local().Format("15:04:05"))
		}
	}
	if polled == 0 {
		ui.Info("No pollable workstreams (pr type with repo and prNumber metadata)")
	}

	for _, n := range getQueue().Unread() {
		ui.Info("%s", n.Message)
	}
	return nil
}

func pollWatchRun() error {
	pidFile := pollPIDFile()
	if pid, running := pidFile.IsRunning(); running {
		return fmt.Errorf("watch already running (pid %d)", pid)
	}
	if err := pidFile.Write(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() { _ = pidFile.Remove() }()

	p, err := getPoller()
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no status provider available (is gh installed?)")
	}

	q := getQueue()
	p.Start()
	defer p.Stop()

	ui.Info("Watching for check updates every %s (Ctrl-C to stop)", viper.GetDuration("poll.interval"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			ui.Info("Stopping")
			return nil
		case <-q.Updates():
			for _, n := range q.Unread() {
				ui.Info("%s", n.Message)
				q.MarkAsRead(n.ID)
			}
		case <-p.Updates():
			ui.VerboseLog("poll cycle completed")
		}
	}
}

func pollStopRun() error {
	pidFile := pollPIDFile()
	pid, running := pidFile.IsRunning()
	if !running {
		ui.Info("No watch process running")
		return nil
	}
	if err := pidFile.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("stop watch process: %w", err)
	}
	ui.Success("Stopped watch process (pid %d)", pid)
	return nil
}
