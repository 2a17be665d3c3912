package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronostack-lang/chronostack/internal/compiler"
)

// ValidationResult holds validation results for one program file.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	Path         string `json:"path"`
	Instructions int    `json:"instructions,omitempty"`
	Line         int    `json:"line,omitempty"`
	Column       int    `json:"column,omitempty"`
	Message      string `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program.cst>...",
		Short: "Check program syntax without executing",
		Long: `Parse ChronoStack program files and report syntax errors with
line and column positions, without executing anything.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	results := make([]ValidationResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		res := validateFile(path)
		if !res.Valid {
			failed++
		}
		results = append(results, res)
	}

	if opts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Valid {
				fmt.Fprintf(formatter.Writer, "ok   %s (%d instructions)\n", res.Path, res.Instructions)
				continue
			}
			if res.Line > 0 {
				fmt.Fprintf(formatter.Writer, "FAIL %s:%d:%d: %s\n", res.Path, res.Line, res.Column, res.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "FAIL %s: %s\n", res.Path, res.Message)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d file(s) invalid", failed, len(paths)))
	}
	return nil
}

func validateFile(path string) ValidationResult {
	res := ValidationResult{Path: path}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Message = err.Error()
		return res
	}

	program, err := compiler.ParseSource(string(src))
	if err != nil {
		res.Message = err.Error()
		var lexErr *compiler.LexError
		var parseErr *compiler.ParseError
		switch {
		case errors.As(err, &lexErr):
			res.Line, res.Column = lexErr.Line, lexErr.Column
			res.Message = lexErr.Message
		case errors.As(err, &parseErr):
			res.Line, res.Column = parseErr.Line, parseErr.Column
			res.Message = parseErr.Message
		}
		return res
	}

	res.Valid = true
	res.Instructions = len(program)
	return res
}
