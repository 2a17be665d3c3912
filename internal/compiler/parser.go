package compiler

import (
	"fmt"
	"strconv"

	"github.com/chronostack-lang/chronostack/internal/ir"
)

// ParseError is a syntax failure with its source position.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parser builds the instruction sequence from a token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over tokens. The stream must end with EOF,
// which is what Lexer.Tokenize produces.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// ParseSource is the convenience entry point: lex and parse in one call.
func ParseSource(src string) ([]ir.Instruction, error) {
	tokens, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

func (p *Parser) errorf(format string, args ...any) error {
	tok := p.current()
	return &ParseError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) match(types ...TokenType) bool {
	cur := p.current().Type
	for _, t := range types {
		if cur == t {
			return true
		}
	}
	return false
}

// Parse consumes the whole token stream and returns the program.
func (p *Parser) Parse() ([]ir.Instruction, error) {
	var program []ir.Instruction
	for !p.match(EOF) {
		instr, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		program = append(program, instr)
	}
	return program, nil
}

func (p *Parser) parseInstruction() (ir.Instruction, error) {
	tok := p.current()

	switch tok.Type {
	case NUMBER:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid number literal %q", tok.Value)
		}
		return ir.PushLiteral{Value: ir.NewNumber(float64(n))}, nil

	case STRING:
		p.advance()
		return ir.PushLiteral{Value: ir.NewText(tok.Value)}, nil

	case SYMBOL:
		if p.looksLikeWordDefinition() {
			return p.parseWordDefinition()
		}
		p.advance()
		return ir.PushSymbol{Name: tok.Value}, nil

	case OPERATION:
		p.advance()
		return ir.Operation{Name: tok.Value}, nil

	case LBRACKET:
		return p.parseBlock()

	default:
		return nil, p.errorf("unexpected token %s", tok.Type)
	}
}

func (p *Parser) parseBlock() (ir.Instruction, error) {
	p.advance() // [
	var body []ir.Instruction

	for !p.match(RBRACKET, EOF) {
		instr, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		body = append(body, instr)
	}

	if !p.match(RBRACKET) {
		return nil, p.errorf("expected ']' to close block")
	}
	p.advance()
	return ir.PushBlock{Body: body}, nil
}

func (p *Parser) parseWordDefinition() (ir.Instruction, error) {
	nameTok := p.advance() // SYMBOL
	var body []ir.Instruction

	for !p.match(SEMICOLON, EOF) {
		instr, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		body = append(body, instr)
	}

	if !p.match(SEMICOLON) {
		return nil, p.errorf("expected ';' to end definition of %s", nameTok.Value)
	}
	p.advance()
	return ir.DefineWord{Name: nameTok.Value, Body: body}, nil
}

// looksLikeWordDefinition decides whether a SYMBOL at the current position
// opens a `:name body ;` definition or is a plain symbol reference. It scans
// ahead for a top-level semicolon, stopping at EOF or at another top-level
// symbol (which would start the next statement). Blocks may contain
// semicolon-free bodies, so bracket depth is tracked.
func (p *Parser) looksLikeWordDefinition() bool {
	depth := 0
	foundContent := false

	for i := p.pos + 1; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		switch tok.Type {
		case EOF:
			return false
		case SEMICOLON:
			if depth == 0 {
				return foundContent
			}
		case LBRACKET:
			depth++
			foundContent = true
		case RBRACKET:
			depth--
			foundContent = true
		case SYMBOL:
			if depth == 0 {
				return false
			}
			foundContent = true
		default:
			foundContent = true
		}
	}
	return false
}
