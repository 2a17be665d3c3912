package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronostack-lang/chronostack/internal/compiler"
	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
	"github.com/chronostack-lang/chronostack/internal/query"
	"github.com/chronostack-lang/chronostack/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	SaveAs       string
	ShowTimeline bool
}

// RunResult is the run command's JSON payload.
type RunResult struct {
	Stack    string             `json:"stack"`
	Timeline query.TimelineInfo `json:"timeline"`
	Session  string             `json:"session,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.cst>",
		Short: "Execute a program and print the final stack",
		Long: `Execute a ChronoStack program file.

The program runs against a fresh timeline. The final working stack is
printed on success; runtime errors report their code and temporal context.

Example:
  chronostack run examples/loop.cst
  chronostack run --timeline --save-as experiment --db ./sessions.db prog.cst`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the session database (defaults to the configured store)")
	cmd.Flags().StringVar(&opts.SaveAs, "save-as", "", "save the final interpreter state as a named session")
	cmd.Flags().BoolVar(&opts.ShowTimeline, "timeline", false, "render the timeline after execution")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}

	program, err := compiler.ParseSource(string(src))
	if err != nil {
		_ = formatter.Error("PARSE", err.Error(), nil)
		return WrapExitError(ExitFailure, "parse failed", err)
	}
	slog.Debug("program parsed", "path", path, "instructions", len(program))

	tl := engine.NewTimeline(
		engine.WithResolverConfig(opts.Config().ResolverConfig()),
		engine.WithTracer(engine.SlogTracer{Logger: slog.Default()}),
	)
	exec := engine.NewExecutor(tl, nil)
	if err := exec.Run(program); err != nil {
		return formatter.RuntimeFailure(err)
	}

	stack := exec.Stack()
	info := query.Inspect(tl)
	result := RunResult{Stack: ir.FormatStack(stack), Timeline: info}

	if opts.SaveAs != "" {
		id, err := saveSession(cmd.Context(), opts, exec, opts.SaveAs)
		if err != nil {
			return err
		}
		result.Session = id
		slog.Info("session saved", "name", opts.SaveAs, "id", id)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	text := ir.FormatStack(stack)
	if opts.ShowTimeline {
		text += "\n\n" + RenderTimeline(info)
	}
	return formatter.SuccessText(text, result)
}

// saveSession persists the executor's full state under a name, using the
// --db flag or the configured store path.
func saveSession(ctx context.Context, opts *RunOptions, exec *engine.Executor, name string) (string, error) {
	path := opts.Database
	if path == "" {
		path = opts.Config().Store.Path
	}
	if path == "" {
		return "", NewExitError(ExitCommandError, "no session database: pass --db or set store.path in the config")
	}

	st, err := store.Open(path)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to open session database", err)
	}
	defer st.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	id, err := st.SaveSession(ctx, store.Session{
		Name:     name,
		Timeline: exec.Timeline().Snapshot(),
		Stack:    exec.Stack(),
		Words:    exec.Words().Export(),
	})
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to save session", err)
	}
	return id, nil
}
