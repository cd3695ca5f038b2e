package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/ixtopo/pkg/audit"
	"github.com/newtron-network/ixtopo/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit log",
	Long: `View the audit log of topology commands.

Auditing is enabled by setting an audit log file:
  ixtopo settings set audit_log ~/.ixtopo/audit.jsonl

Examples:
  ixtopo audit list --limit 20
  ixtopo audit list --operation fanout-link --last 24h
  ixtopo audit list --failures`,
}

var (
	auditOperation string
	auditUser      string
	auditLast      string
	auditLimit     int
	auditFailures  bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Operation:   auditOperation,
			User:        auditUser,
			FailureOnly: auditFailures,
			Newest:      true,
			Limit:       auditLimit,
		}
		if auditLast != "" {
			d, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if jsonOutput {
			return printJSON(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "BACKEND", "OPERATION", "RESOURCE", "CHANGES", "STATUS")
		for _, e := range events {
			status := green("ok")
			switch {
			case !e.Success:
				status = red("failed")
			case !e.ExecuteMode:
				status = yellow("dry-run")
			}
			t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Backend, e.Operation,
				cli.OrDash(e.Interface), strconv.Itoa(len(e.Changes)), status)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation")
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g. 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")

	auditCmd.AddCommand(auditListCmd)
}
