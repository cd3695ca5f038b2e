package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/cli"
	"github.com/newtron-network/ixtopo/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.ixtopo/settings.json.

Settings provide defaults for the backend flags; flags always win.

Examples:
  ixtopo settings show
  ixtopo settings set backend redis
  ixtopo settings set redis_addr 10.0.0.5:6379
  ixtopo settings set ssh_host ix-db1
  ixtopo settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := userSettings
		if jsonOutput {
			return printJSON(s)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())
		t := cli.NewTable("SETTING", "VALUE")
		row := func(name, value, def string) {
			switch {
			case value != "":
			case def != "":
				value = def + cli.Dim(" (default)")
			default:
				value = "(not set)"
			}
			t.Row(name, value)
		}
		row("backend", s.Backend, settings.DefaultBackend)
		row("redis_addr", s.RedisAddr, settings.DefaultRedisAddr)
		row("redis_db", strconv.Itoa(s.RedisDB), "")
		row("sqlite_path", s.SQLitePath, settings.DefaultSQLitePath)
		row("ssh_host", s.SSHHost, "")
		row("ssh_user", s.SSHUser, "")
		row("audit_log", s.AuditLog, "")
		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:       "set <setting> <value>",
	Short:     "Set a setting value",
	Args:      cobra.ExactArgs(2),
	ValidArgs: settings.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := userSettings.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := userSettings.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset all settings to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		userSettings.Clear()
		if err := userSettings.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("Settings cleared")
		return nil
	},
}

func init() {
	settingsSetCmd.Long = "Set a persistent setting value.\n\nAvailable settings: " + fmt.Sprint(settings.Keys())
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsClearCmd)
}
