package engine

import (
	"errors"
	"fmt"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// Executor is the instruction-dispatch loop. It owns the single mutable
// working stack, delegates temporal operators to its Timeline, and executes
// control flow by re-invoking itself over block bodies - ordinary call-stack
// recursion, nothing suspends mid-block.
type Executor struct {
	timeline  *Timeline
	stack     []ir.Value
	words     *Dictionary
	callStack []string // innermost word last, for recursion detection
}

// NewExecutor creates an executor over a timeline with a session-scoped
// word dictionary.
func NewExecutor(t *Timeline, words *Dictionary) *Executor {
	if words == nil {
		words = NewDictionary()
	}
	return &Executor{timeline: t, words: words}
}

// Execute is the boundary entry point: it runs a complete instruction
// sequence against a timeline with a fresh word dictionary and returns the
// final working stack. The timeline is mutated in place.
func Execute(program []ir.Instruction, t *Timeline) ([]ir.Value, error) {
	e := NewExecutor(t, nil)
	if err := e.Run(program); err != nil {
		return nil, err
	}
	return e.Stack(), nil
}

// Run executes an instruction sequence against the current working stack.
func (e *Executor) Run(program []ir.Instruction) error {
	for _, instr := range program {
		if err := e.exec(instr); err != nil {
			return e.contextualize(err)
		}
	}
	return nil
}

// Stack returns a copy of the working stack.
func (e *Executor) Stack() []ir.Value {
	return ir.CopyStack(e.stack)
}

// SetStack replaces the working stack; used when restoring a saved session.
func (e *Executor) SetStack(stack []ir.Value) {
	e.stack = ir.CopyStack(stack)
}

// ClearStack empties the working stack; used by the REPL's .clear.
func (e *Executor) ClearStack() {
	e.stack = nil
}

// Timeline returns the timeline this executor drives.
func (e *Executor) Timeline() *Timeline {
	return e.timeline
}

// Words returns the session word dictionary.
func (e *Executor) Words() *Dictionary {
	return e.words
}

// contextualize attaches the working stack and word context to a runtime
// error that bubbled up without them.
func (e *Executor) contextualize(err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Branch == "" {
			re.Branch = e.timeline.ActiveBranch()
			re.Moment = e.timeline.ActiveIndex()
		}
		if re.Stack == nil {
			re.Stack = e.Stack()
		}
		if re.Word == "" && len(e.callStack) > 0 {
			re.Word = e.callStack[len(e.callStack)-1]
		}
	}
	return err
}

func (e *Executor) exec(instr ir.Instruction) error {
	switch in := instr.(type) {
	case ir.PushLiteral:
		e.push(in.Value)
		return nil
	case ir.PushBlock:
		e.push(ir.NewBlock(in.Body))
		return nil
	case ir.DefineWord:
		e.words.Define(in.Name, in.Body)
		return nil
	case ir.PushSymbol:
		if body, ok := e.words.Lookup(in.Name); ok {
			return e.invokeWord(in.Name, body)
		}
		// Unknown names are data, as in any symbol-pushing concatenative
		// language.
		e.push(ir.NewText(canonicalWordName(in.Name)))
		return nil
	case ir.Operation:
		return e.execOp(in.Name)
	default:
		return opError(ErrCodeUnknownOperation, fmt.Sprintf("unknown instruction type %T", instr))
	}
}

func (e *Executor) invokeWord(name string, body []ir.Instruction) error {
	canonical := canonicalWordName(name)
	for _, active := range e.callStack {
		if active == canonical {
			return opError(ErrCodeRecursiveWord, "recursive call of word "+canonical)
		}
	}
	e.callStack = append(e.callStack, canonical)
	defer func() { e.callStack = e.callStack[:len(e.callStack)-1] }()
	return e.runBody(body)
}

func (e *Executor) runBody(body []ir.Instruction) error {
	for _, instr := range body {
		if err := e.exec(instr); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) push(v ir.Value) {
	e.stack = append(e.stack, v)
}

func (e *Executor) pop(op string) (ir.Value, error) {
	if len(e.stack) == 0 {
		return nil, opError(ErrCodeStackUnderflow, "'"+op+"' on empty stack")
	}
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v, nil
}

func (e *Executor) need(n int, op string) error {
	if len(e.stack) < n {
		return opError(ErrCodeStackUnderflow, fmt.Sprintf("'%s' requires %d operands, have %d", op, n, len(e.stack)))
	}
	return nil
}

// popSteps pops a non-negative integer step count for a temporal operator.
func (e *Executor) popSteps(op string) (int, error) {
	v, err := e.pop(op)
	if err != nil {
		return 0, err
	}
	n, ok := v.(ir.Number)
	if !ok || !n.IsInteger() {
		return 0, opError(ErrCodeTypeMismatch, "'"+op+"' requires an integer step count, got "+ir.KindName(v))
	}
	return n.Int(), nil
}

// popBlock pops a block operand for a control-flow operator.
func (e *Executor) popBlock(op string) (ir.Block, error) {
	v, err := e.pop(op)
	if err != nil {
		return ir.Block{}, err
	}
	block, ok := v.(ir.Block)
	if !ok {
		return ir.Block{}, opError(ErrCodeTypeMismatch, "'"+op+"' requires a block, got "+ir.KindName(v))
	}
	return block, nil
}

// popText pops a text operand (branch names, operator names).
func (e *Executor) popText(op string) (string, error) {
	v, err := e.pop(op)
	if err != nil {
		return "", err
	}
	text, ok := v.(ir.Text)
	if !ok {
		return "", opError(ErrCodeTypeMismatch, "'"+op+"' requires a text operand, got "+ir.KindName(v))
	}
	return string(text), nil
}

func (e *Executor) execOp(name string) error {
	switch name {
	// Stack operations
	case "push", "dup":
		if err := e.need(1, name); err != nil {
			return err
		}
		e.push(e.stack[len(e.stack)-1])
		return nil

	case "pop":
		// Popping an empty stack is a no-op, not an underflow.
		if len(e.stack) > 0 {
			e.stack = e.stack[:len(e.stack)-1]
		}
		return nil

	case "swap":
		if err := e.need(2, name); err != nil {
			return err
		}
		n := len(e.stack)
		e.stack[n-1], e.stack[n-2] = e.stack[n-2], e.stack[n-1]
		return nil

	case "rot":
		if err := e.need(3, name); err != nil {
			return err
		}
		n := len(e.stack)
		a, b, c := e.stack[n-3], e.stack[n-2], e.stack[n-1]
		e.stack[n-3], e.stack[n-2], e.stack[n-1] = b, c, a
		return nil

	// Temporal operations
	case "tick":
		e.timeline.Tick(e.stack)
		return nil

	case "rewind":
		n, err := e.popSteps(name)
		if err != nil {
			return err
		}
		if n < 0 {
			return opError(ErrCodeOutOfRange, "rewind requires a non-negative step count")
		}
		if restored, ok := e.timeline.Rewind(n); ok {
			e.stack = restored
		}
		return nil

	case "echo":
		n, err := e.popSteps(name)
		if err != nil {
			return err
		}
		v, err := e.timeline.Echo(n, e.stack)
		if err != nil {
			return err
		}
		e.push(v)
		return nil

	case "peek-future":
		n, err := e.popSteps(name)
		if err != nil {
			return err
		}
		v, err := e.timeline.PeekFuture(n)
		if err != nil {
			return err
		}
		e.push(v)
		return nil

	case "send":
		if err := e.need(2, name); err != nil {
			return err
		}
		n, err := e.popSteps(name)
		if err != nil {
			return err
		}
		value, err := e.pop(name)
		if err != nil {
			return err
		}
		if _, err := e.timeline.Send(value, n); err != nil {
			return err
		}
		// The observable REPL contract: a successful send leaves a true
		// flag on the working stack.
		e.push(ir.NewBool(true))
		return nil

	case "branch":
		branchName, err := e.popText(name)
		if err != nil {
			return err
		}
		return e.timeline.Fork(branchName)

	case "merge":
		target, err := e.popText(name)
		if err != nil {
			return err
		}
		return e.timeline.Merge(target)

	case "paradox!":
		settled := e.timeline.ResolveAll()
		e.push(ir.NewNumber(float64(settled)))
		return nil

	case "temporal-fold":
		op, err := e.popText(name)
		if err != nil {
			return err
		}
		v, err := e.timeline.TemporalFold(op)
		if err != nil {
			return err
		}
		e.push(v)
		return nil

	case "ripple":
		if err := e.need(2, name); err != nil {
			return err
		}
		value, err := e.pop(name)
		if err != nil {
			return err
		}
		op, err := e.popText(name)
		if err != nil {
			return err
		}
		if !isBinaryOp(op) {
			return opError(ErrCodeUnknownOperation, "ripple operator "+op+" is not a binary operator")
		}
		return e.timeline.Ripple(op, value)

	// Math, comparison, logic
	case "+", "-", "*", "/", "%", "<", ">", "=", "and", "or":
		if err := e.need(2, name); err != nil {
			return err
		}
		b, _ := e.pop(name)
		a, _ := e.pop(name)
		result, err := applyBinary(name, a, b)
		if err != nil {
			return err
		}
		e.push(result)
		return nil

	case "not":
		v, err := e.pop(name)
		if err != nil {
			return err
		}
		e.push(ir.NewBool(!ir.Truthy(v)))
		return nil

	// Control flow
	case "if":
		return e.execIf()

	case "loop":
		block, err := e.popBlock(name)
		if err != nil {
			return err
		}
		count, err := e.popSteps(name)
		if err != nil {
			return err
		}
		// count <= 0 is a no-op, not an error.
		for i := 0; i < count; i++ {
			if err := e.runBody(block.Body); err != nil {
				return err
			}
		}
		return nil

	case "when-stable":
		block, err := e.popBlock(name)
		if err != nil {
			return err
		}
		if e.timeline.Stable() {
			return e.runBody(block.Body)
		}
		return nil

	default:
		return opError(ErrCodeUnknownOperation, "unknown operation "+name)
	}
}

// execIf handles both forms: `cond [then] if` and `cond [then] [else] if`.
// When the two topmost values are both blocks they are taken as the
// then/else pair. This means a block cannot serve as the condition of the
// single-block form: `[1] [then] if` reads the pair as then/else and looks
// beneath them for the condition. Blocks are truthy everywhere else; an if
// that branches on one needs the explicit two-block form.
func (e *Executor) execIf() error {
	first, err := e.popBlock("if")
	if err != nil {
		return err
	}

	if len(e.stack) > 0 {
		if thenBlock, ok := e.stack[len(e.stack)-1].(ir.Block); ok {
			// Two-block form: first is the else-branch.
			e.stack = e.stack[:len(e.stack)-1]
			cond, err := e.pop("if")
			if err != nil {
				return err
			}
			if ir.Truthy(cond) {
				return e.runBody(thenBlock.Body)
			}
			return e.runBody(first.Body)
		}
	}

	cond, err := e.pop("if")
	if err != nil {
		return err
	}
	if ir.Truthy(cond) {
		return e.runBody(first.Body)
	}
	return nil
}
