package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelhq/kestrel/internal/checks"
	"github.com/kestrelhq/kestrel/internal/models"
	"github.com/kestrelhq/kestrel/internal/notify"
	"github.com/kestrelhq/kestrel/internal/output"
	"github.com/kestrelhq/kestrel/internal/poller"
	"github.com/kestrelhq/kestrel/internal/store"
	"github.com/kestrelhq/kestrel/internal/trash"
	"github.com/kestrelhq/kestrel/internal/workstream"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui      *output.UI
	manager *workstream.Manager
	queue   *notify.Queue

	verbose bool
	dryRun  bool

	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel - track workstreams and their check state",
	Long: `kestrel tracks long-running units of work ("workstreams"), keeps
their status synchronized with external PR checks, queues derived
notifications, and supports reversible deletion through a trash bin.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/kestrel/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "kestrel")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("KESTREL")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "kestrel")

	viper.SetDefault("data_dir", defaultConfigDir)
	viper.SetDefault("trash.retention_days", trash.DefaultRetentionDays)
	viper.SetDefault("poll.interval", poller.DefaultInterval)
	viper.SetDefault("poll.enabled", true)
	viper.SetDefault("notifications.max", notify.DefaultMax)
	viper.SetDefault("conversation.max_messages", 50)
	viper.SetDefault("model.name", "")
	viper.SetDefault("model.max_tokens", 0)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The manager is initialized lazily, only when commands actually
	// need it, so config/version commands run without touching the
	// data directory.
}

// rootRun handles `kestrel` with no subcommand: a dashboard summary of
// workstreams and unread notifications.
func rootRun(cmd *cobra.Command) error {
	mgr, err := getManager()
	if err != nil {
		return cmd.Help()
	}

	all := mgr.GetAll()
	if len(all) == 0 {
		ui.Info("No workstreams tracked yet. Create one with: kestrel ws new")
		return nil
	}

	return wsListRun("", "")
}

// getManager returns the shared workstream manager, loading it on first
// call.
func getManager() (*workstream.Manager, error) {
	if manager != nil {
		return manager, nil
	}

	dataDir := viper.GetString("data_dir")

	wsStore, err := store.New[models.Workstream](filepath.Join(dataDir, "workstreams"))
	if err != nil {
		return nil, fmt.Errorf("open workstream store: %w", err)
	}
	wsStore.Warn = ui.Warning

	trashStore, err := store.New[models.TrashedWorkstream](filepath.Join(dataDir, "trash"))
	if err != nil {
		return nil, fmt.Errorf("open trash store: %w", err)
	}
	trashStore.Warn = ui.Warning

	bin := trash.NewBin(trashStore, viper.GetInt("trash.retention_days"))
	m := workstream.NewManager(wsStore, bin)
	m.DefaultModelConfig = models.ModelConfig{
		Model:     viper.GetString("model.name"),
		MaxTokens: viper.GetInt("model.max_tokens"),
	}

	if err := m.Load(); err != nil {
		return nil, err
	}

	manager = m
	return manager, nil
}

// getQueue returns the shared notification queue, creating it on first
// call.
func getQueue() *notify.Queue {
	if queue == nil {
		queue = notify.NewQueue(viper.GetInt("notifications.max"))
	}
	return queue
}

// getPoller builds a poller over the shared manager and queue. Returns
// nil when no status provider is available.
func getPoller() (*poller.Poller, error) {
	mgr, err := getManager()
	if err != nil {
		return nil, err
	}

	provider := checks.NewGitHubProvider()
	if !provider.Available() {
		return nil, nil
	}

	return poller.New(mgr, getQueue(), provider, poller.Config{
		Interval: viper.GetDuration("poll.interval"),
		Enabled:  viper.GetBool("poll.enabled"),
	}), nil
}
