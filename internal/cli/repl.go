package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/chronostack-lang/chronostack/internal/compiler"
	"github.com/chronostack-lang/chronostack/internal/engine"
	"github.com/chronostack-lang/chronostack/internal/ir"
	"github.com/chronostack-lang/chronostack/internal/query"
	"github.com/chronostack-lang/chronostack/internal/store"
)

const replBanner = "ChronoStack - Ctrl+C to cancel input, Ctrl+D to exit. Type .help for commands."

const replHelp = `REPL commands:
  .help             Show this help
  .quit / .exit     Exit the REPL
  .stack            Show the working stack
  .timeline         Render the timeline
  .branches         List branches
  .moment <n>       Show moment n of the active branch
  .paradoxes        List unresolved paradoxical moments
  .words            List defined words
  .clear            Clear the working stack
  .reset            Discard everything and start over
  .info             Summarize the interpreter state
  .save <name>      Save the session to the database
  .load <name>      Load a saved session
Anything else is executed as ChronoStack source.`

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Database string
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "repl",
		Short:         "Start an interactive session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the session database (defaults to the configured store)")

	return cmd
}

// ReplSession holds the persistent interpreter state behind the prompt.
// It is separated from the line editor so tests can drive it directly.
type ReplSession struct {
	opts *ReplOptions
	exec *engine.Executor
	out  io.Writer
}

// NewReplSession creates a session with a fresh timeline and dictionary.
func NewReplSession(opts *ReplOptions, out io.Writer) *ReplSession {
	return &ReplSession{
		opts: opts,
		exec: newReplExecutor(opts),
		out:  out,
	}
}

func newReplExecutor(opts *ReplOptions) *engine.Executor {
	tl := engine.NewTimeline(engine.WithResolverConfig(opts.Config().ResolverConfig()))
	return engine.NewExecutor(tl, nil)
}

func runRepl(opts *ReplOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, replBanner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := opts.Config().REPL.HistoryFile
	if histPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			histPath = filepath.Join(home, ".chronostack_history")
		}
	}
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	session := NewReplSession(opts, out)
	prompt := opts.Config().REPL.Prompt

	for {
		src, ok := readInput(ln, prompt)
		if !ok {
			fmt.Fprintln(out)
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}

		done := session.HandleLine(src)
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		if done {
			break
		}
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return nil
}

// readInput accumulates lines until the source parses or fails with a real
// error rather than an incomplete block or definition.
func readInput(ln *liner.State, prompt string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt("... ")
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C aborts the current input; let the user start again.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ".") {
			return src, true
		}
		if _, perr := compiler.ParseSource(src); perr == nil || !looksIncomplete(perr) {
			return src, true
		}
	}
}

// looksIncomplete classifies parse errors that likely mean "need more input".
func looksIncomplete(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "expected ']' to close block") ||
		strings.Contains(msg, "expected ';' to end definition") ||
		strings.Contains(msg, "unterminated string")
}

// HandleLine executes one line of input, returning true when the session
// should end.
func (s *ReplSession) HandleLine(src string) (done bool) {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, ".") {
		return s.handleCommand(trimmed)
	}

	program, err := compiler.ParseSource(src)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return false
	}
	if err := s.exec.Run(program); err != nil {
		fmt.Fprintln(s.out, err)
		return false
	}
	fmt.Fprintln(s.out, ir.FormatStack(s.exec.Stack()))
	return false
}

func (s *ReplSession) handleCommand(line string) (done bool) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case ".help":
		fmt.Fprintln(s.out, replHelp)

	case ".quit", ".exit":
		return true

	case ".stack":
		fmt.Fprintln(s.out, ir.FormatStack(s.exec.Stack()))

	case ".timeline":
		fmt.Fprint(s.out, RenderTimeline(query.Inspect(s.exec.Timeline())))

	case ".branches":
		info := query.Inspect(s.exec.Timeline())
		for _, b := range info.Branches {
			marker := " "
			if b.Active {
				marker = "*"
			}
			if b.HasParent {
				fmt.Fprintf(s.out, "%s %s (%d moments, forked from %s@%d)\n", marker, b.Name, len(b.Moments), b.Parent, b.ForkIndex)
			} else {
				fmt.Fprintf(s.out, "%s %s (%d moments)\n", marker, b.Name, len(b.Moments))
			}
		}

	case ".moment":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "usage: .moment <n>")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Fprintf(s.out, "not a moment index: %s\n", fields[1])
			return false
		}
		m, ok := query.Moment(s.exec.Timeline(), n)
		if !ok {
			fmt.Fprintf(s.out, "no moment %d on branch %s\n", n, s.exec.Timeline().ActiveBranch())
			return false
		}
		fmt.Fprintln(s.out, RenderMoment(m))

	case ".paradoxes":
		paradoxes := query.Paradoxes(s.exec.Timeline())
		if len(paradoxes) == 0 {
			fmt.Fprintln(s.out, "timeline is stable")
			return false
		}
		for _, m := range paradoxes {
			fmt.Fprintln(s.out, RenderMoment(m))
		}

	case ".words":
		names := s.exec.Words().Names()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "no words defined")
			return false
		}
		fmt.Fprintln(s.out, strings.Join(names, " "))

	case ".clear":
		s.exec.ClearStack()
		fmt.Fprintln(s.out, "stack cleared")

	case ".reset":
		s.exec = newReplExecutor(s.opts)
		fmt.Fprintln(s.out, "session reset")

	case ".info":
		info := query.Inspect(s.exec.Timeline())
		stability := "stable"
		if !info.Stable {
			stability = fmt.Sprintf("%d paradoxical moment(s)", info.TotalParadoxes)
		}
		fmt.Fprintf(s.out, "branch %s@%d, %d branch(es), %d moment(s), %s\n",
			info.ActiveBranch, info.ActiveIndex, len(info.Branches), info.TotalMoments, stability)

	case ".save":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "usage: .save <name>")
			return false
		}
		s.saveSession(fields[1])

	case ".load":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "usage: .load <name>")
			return false
		}
		s.loadSession(fields[1])

	default:
		fmt.Fprintln(s.out, "unknown command; type .help for help")
	}
	return false
}

func (s *ReplSession) openStore() (*store.Store, error) {
	path := s.opts.Database
	if path == "" {
		path = s.opts.Config().Store.Path
	}
	if path == "" {
		return nil, errors.New("no session database: pass --db or set store.path in the config")
	}
	return store.Open(path)
}

func (s *ReplSession) saveSession(name string) {
	st, err := s.openStore()
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	defer st.Close()

	_, err = st.SaveSession(context.Background(), store.Session{
		Name:     name,
		Timeline: s.exec.Timeline().Snapshot(),
		Stack:    s.exec.Stack(),
		Words:    s.exec.Words().Export(),
	})
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	fmt.Fprintf(s.out, "saved session %q\n", name)
}

func (s *ReplSession) loadSession(name string) {
	st, err := s.openStore()
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	defer st.Close()

	sess, err := st.LoadSession(context.Background(), name)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	tl, err := engine.RestoreTimeline(sess.Timeline,
		engine.WithResolverConfig(s.opts.Config().ResolverConfig()))
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}

	words := engine.NewDictionary()
	words.Install(sess.Words)
	s.exec = engine.NewExecutor(tl, words)
	s.exec.SetStack(sess.Stack)
	fmt.Fprintf(s.out, "loaded session %q on branch %s\n", name, tl.ActiveBranch())
}
