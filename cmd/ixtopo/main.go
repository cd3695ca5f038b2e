// Ixtopo - exchange interface topology tool
//
// Manages the physical and virtual interface topology of an Internet
// exchange: fanout links between peering and reseller ports, LAG bundle
// attributes and VLAN interface addresses.
//
// Write commands preview the resulting row changes by default and roll
// them back; -x commits them to the selected backend.
//
// Examples:
//
//	ixtopo import exchange.yaml -x
//	ixtopo fanout link --interface 12 --switch-port 40 -x
//	ixtopo fanout unlink --interface 12 -x
//	ixtopo bundle normalize --virtual-interface 7
//	ixtopo vlan-interface set-ip --vlan-interface 3 --address 192.0.2.10 --can-ping -x
//	ixtopo vlan-interface show 3
//	ixtopo virtual-interface show 7
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/audit"
	"github.com/newtron-network/ixtopo/pkg/settings"
	"github.com/newtron-network/ixtopo/pkg/util"
	"github.com/newtron-network/ixtopo/pkg/version"
)

var (
	// Backend selection (defaults come from settings)
	backendName string
	redisAddr   string
	redisDB     int
	dbPath      string
	sshHost     string
	sshUser     string

	// Global option flags
	executeMode bool
	verbose     bool
	logJSON     bool
	jsonOutput  bool

	userSettings *settings.Settings
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "ixtopo",
	Short:             "Exchange interface topology tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Ixtopo links fanout ports, normalizes LAG bundles and assigns VLAN
interface addresses on an exchange topology store.

Write commands preview their changes by default. Use -x to commit.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}
		if isSettingsOrHelp(cmd) {
			return nil
		}
		applySettingDefaults(cmd)

		if userSettings.AuditLog != "" {
			logger, err := audit.NewFileLogger(userSettings.AuditLog, audit.RotationConfig{
				MaxSize:    10 * 1024 * 1024,
				MaxBackups: 10,
			})
			if err != nil {
				util.Warnf("Could not initialize audit logging: %v", err)
			} else {
				audit.SetDefaultLogger(logger)
			}
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&backendName, "backend", "", "Store backend: memory, redis or sqlite")
	flags.StringVar(&redisAddr, "redis", "", "Redis address (host:port)")
	flags.IntVar(&redisDB, "redis-db", 0, "Redis database number")
	flags.StringVar(&dbPath, "db", "", "SQLite database file")
	flags.StringVar(&sshHost, "ssh-host", "", "Reach Redis through an SSH tunnel to this host")
	flags.StringVar(&sshUser, "ssh-user", "", "SSH user for --ssh-host")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&jsonOutput, "json", false, "JSON output")
	flags.BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	flags.BoolVarP(&executeMode, "execute", "x", false, "Execute changes (default is dry-run)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "topology", Title: "Topology Operations:"},
		&cobra.Group{ID: "query", Title: "Queries:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{importCmd, fanoutCmd, bundleCmd, vlanInterfaceCmd} {
		cmd.GroupID = "topology"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{virtualInterfaceCmd, auditCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// applySettingDefaults fills backend flags the user did not give from the
// stored settings
func applySettingDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("backend") {
		backendName = userSettings.GetBackend()
	}
	if !flags.Changed("redis") {
		redisAddr = userSettings.GetRedisAddr()
	}
	if !flags.Changed("redis-db") {
		redisDB = userSettings.RedisDB
	}
	if !flags.Changed("db") {
		dbPath = userSettings.GetSQLitePath()
	}
	if !flags.Changed("ssh-host") {
		sshHost = userSettings.SSHHost
	}
	if !flags.Changed("ssh-user") {
		sshUser = userSettings.SSHUser
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

// isSettingsOrHelp checks whether cmd or an ancestor needs no backend
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
