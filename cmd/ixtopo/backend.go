package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/newtron-network/ixtopo/pkg/alert"
	"github.com/newtron-network/ixtopo/pkg/audit"
	"github.com/newtron-network/ixtopo/pkg/cli"
	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/store/memory"
	"github.com/newtron-network/ixtopo/pkg/store/redisdb"
	"github.com/newtron-network/ixtopo/pkg/store/sqlitedb"
	"github.com/newtron-network/ixtopo/pkg/topology"
)

// openBackend connects to the backend selected by the flags
func openBackend(ctx context.Context) (store.Backend, error) {
	switch backendName {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlitedb.New(dbPath)
	case "redis":
		opts := redisdb.Options{Addr: redisAddr, DB: redisDB}
		if sshHost != "" {
			pass, err := readPassword(fmt.Sprintf("%s@%s password: ", sshUser, sshHost))
			if err != nil {
				return nil, err
			}
			opts.SSHHost = sshHost
			opts.SSHUser = sshUser
			opts.SSHPass = pass
		}
		return redisdb.Open(ctx, opts)
	}
	return nil, fmt.Errorf("unknown backend %q (want memory, redis or sqlite)", backendName)
}

// readPassword prompts on the terminal, or takes IXTOPO_SSH_PASS when set
func readPassword(prompt string) (string, error) {
	if p := os.Getenv("IXTOPO_SSH_PASS"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("SSH password required: set IXTOPO_SSH_PASS or run interactively")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}

// writeFunc stages changes through mgr and returns the resource it worked on
// for the audit log
type writeFunc func(ctx context.Context, s *store.Session, mgr *topology.Manager) (resource string, err error)

// withWrite opens a session on the selected backend and runs fn. Alerts are
// printed, then the change set: committed with -x, rolled back otherwise.
// Every run is audited.
func withWrite(ctx context.Context, operation string, fn writeFunc) error {
	backend, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()
	return runWrite(ctx, backend, operation, fn)
}

func runWrite(ctx context.Context, backend store.Backend, operation string, fn writeFunc) (err error) {
	start := time.Now()
	event := audit.NewEvent(backend.Name(), operation).WithExecuteMode(executeMode)
	alerts := alert.NewContainer()
	defer func() {
		event.WithResult(err).WithDuration(time.Since(start)).WithAlerts(messages(alerts.Alerts()))
		if logErr := audit.Log(event); logErr != nil {
			fmt.Fprintln(os.Stderr, yellow("Warning:"), "audit log:", logErr)
		}
	}()

	s, err := store.Open(ctx, backend)
	if err != nil {
		return err
	}
	mgr := topology.NewManager(s, alert.NewLogging(alerts))

	resource, err := fn(ctx, s, mgr)
	event.WithInterface(resource)
	cli.PrintAlerts(os.Stdout, alerts.Alerts())
	if err != nil {
		s.Rollback()
		return err
	}

	if !executeMode {
		cs, err := s.Diff(operation)
		if err != nil {
			return err
		}
		event.WithChangeSet(cs)
		if rbErr := s.Rollback(); rbErr != nil {
			return rbErr
		}
		return printChangeSet(cs)
	}

	cs, err := s.Commit(ctx, operation)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	event.WithChangeSet(cs)
	if err := printChangeSet(cs); err != nil {
		return err
	}
	if !jsonOutput && !cs.IsEmpty() {
		fmt.Println("\n" + green(fmt.Sprintf("Applied %d changes to %s.", cs.AppliedCount, backend.Name())))
	}
	return nil
}

func printChangeSet(cs *store.ChangeSet) error {
	if jsonOutput {
		return printJSON(cs)
	}
	if cs.IsEmpty() {
		fmt.Println("No changes.")
		return nil
	}
	fmt.Println("Changes to be applied:")
	fmt.Print(cs.String())
	if !executeMode {
		fmt.Println("\n" + yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
	return nil
}

// withRead opens a session for a query command
func withRead(ctx context.Context, fn func(ctx context.Context, s *store.Session) error) error {
	backend, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	s, err := store.Open(ctx, backend)
	if err != nil {
		return err
	}
	return fn(ctx, s)
}

func messages(alerts []alert.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = string(a.Severity) + ": " + a.Message
	}
	return out
}

// Color helpers delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
