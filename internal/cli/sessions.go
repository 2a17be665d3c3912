package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronostack-lang/chronostack/internal/store"
)

// SessionsOptions holds flags shared by the sessions subcommands.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// SessionListEntry is one row of the sessions list payload.
type SessionListEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NewSessionsCommand creates the sessions command group.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved interpreter sessions",
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the session database (defaults to the configured store)")

	cmd.AddCommand(newSessionsListCommand(opts))
	cmd.AddCommand(newSessionsDeleteCommand(opts))

	return cmd
}

func newSessionsListCommand(opts *SessionsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List saved sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(opts, cmd)
		},
	}
}

func newSessionsDeleteCommand(opts *SessionsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a saved session",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(opts, args[0], cmd)
		},
	}
}

func (o *SessionsOptions) openStore() (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.Config().Store.Path
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no session database: pass --db or set store.path in the config")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open session database", err)
	}
	return st, nil
}

func runSessionsList(opts *SessionsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	metas, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if opts.Format == "json" {
		entries := make([]SessionListEntry, 0, len(metas))
		for _, m := range metas {
			entries = append(entries, SessionListEntry{
				ID:        m.ID,
				Name:      m.Name,
				CreatedAt: m.CreatedAt.Format("2006-01-02 15:04:05"),
				UpdatedAt: m.UpdatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return formatter.Success(entries)
	}

	if len(metas) == 0 {
		fmt.Fprintln(formatter.Writer, "no saved sessions")
		return nil
	}
	for _, m := range metas {
		fmt.Fprintf(formatter.Writer, "%-20s updated %s\n", m.Name, m.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionsDelete(opts *SessionsOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := st.DeleteSession(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = formatter.Error("NOT_FOUND", fmt.Sprintf("no session named %q", name), nil)
			return NewExitError(ExitFailure, "session not found")
		}
		return WrapExitError(ExitCommandError, "failed to delete session", err)
	}
	return formatter.SuccessText(fmt.Sprintf("deleted session %q", name), map[string]string{"deleted": name})
}
