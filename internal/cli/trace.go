package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronostack-lang/chronostack/internal/compiler"
	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
	"github.com/chronostack-lang/chronostack/internal/query"
)

// TraceResult is the trace command's JSON payload.
type TraceResult struct {
	Stack    string              `json:"stack"`
	Events   []engine.TraceEvent `json:"events"`
	Timeline query.TimelineInfo  `json:"timeline"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <program.cst>",
		Short: "Execute a program and print its temporal operations",
		Long: `Execute a ChronoStack program and print one line per temporal
operation: ticks, rewinds, sends, branches, merges, and resolutions, each
with its logical clock stamp and the active moment's content hash. The
sequence is deterministic for a given program.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runTrace(opts *RootOptions, path string, cmd *cobra.Command) error {
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

	var collector engine.Collector
	tl := engine.NewTimeline(
		engine.WithResolverConfig(opts.Config().ResolverConfig()),
		engine.WithTracer(&collector),
	)
	stack, runErr := engine.Execute(program, tl)

	if opts.Format == "json" {
		if runErr != nil {
			return formatter.RuntimeFailure(runErr)
		}
		return formatter.Success(TraceResult{
			Stack:    ir.FormatStack(stack),
			Events:   collector.Events,
			Timeline: query.Inspect(tl),
		})
	}

	// Events recorded before a failure are still worth printing.
	for _, ev := range collector.Events {
		line, err := json.Marshal(ev)
		if err != nil {
			return WrapExitError(ExitFailure, "encode trace event", err)
		}
		fmt.Fprintln(formatter.Writer, string(line))
	}
	if runErr != nil {
		return formatter.RuntimeFailure(runErr)
	}
	fmt.Fprintf(formatter.Writer, "final stack: %s\n", ir.FormatStack(stack))
	return nil
}
