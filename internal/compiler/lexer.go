package compiler

import "fmt"

// LexError is a tokenization failure with its source position.
type LexError struct {
	Line    int
	Column  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Lexer tokenizes ChronoStack source text.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// NewLexer creates a lexer over source text.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &LexError{Line: l.line, Column: l.col, Message: fmt.Sprintf(format, args...)}
}

// peek looks ahead without consuming. Returns 0 at end of input.
func (l *Lexer) peek(offset int) byte {
	pos := l.pos + offset
	if pos >= len(l.src) {
		return 0
	}
	return l.src[pos]
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek(0) {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '#':
			for l.peek(0) != 0 && l.peek(0) != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isWordChar reports whether c may continue an identifier. Hyphens and '!'
// are word characters ("peek-future", "paradox!").
func isWordChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_' || c == '-' || c == '!'
}

func (l *Lexer) readNumber() (Token, error) {
	line, col := l.line, l.col
	var value []byte

	if l.peek(0) == '-' {
		value = append(value, l.advance())
	}
	for isDigit(l.peek(0)) {
		value = append(value, l.advance())
	}
	if len(value) == 0 || (len(value) == 1 && value[0] == '-') {
		return Token{}, l.errorf("invalid number")
	}
	return Token{Type: NUMBER, Value: string(value), Line: line, Column: col}, nil
}

func (l *Lexer) readString() (Token, error) {
	line, col := l.line, l.col
	l.advance() // opening quote
	var value []byte

	for l.peek(0) != 0 && l.peek(0) != '"' {
		c := l.advance()
		if c == '\\' {
			esc := l.advance()
			switch esc {
			case 'n':
				value = append(value, '\n')
			case 't':
				value = append(value, '\t')
			case 'r':
				value = append(value, '\r')
			case '\\':
				value = append(value, '\\')
			case '"':
				value = append(value, '"')
			case 0:
				return Token{}, l.errorf("unterminated string")
			default:
				value = append(value, esc)
			}
			continue
		}
		value = append(value, c)
	}

	if l.peek(0) == 0 {
		return Token{}, l.errorf("unterminated string")
	}
	l.advance() // closing quote
	return Token{Type: STRING, Value: string(value), Line: line, Column: col}, nil
}

func (l *Lexer) readSymbol() (Token, error) {
	line, col := l.line, l.col
	l.advance() // colon

	if !isAlpha(l.peek(0)) && l.peek(0) != '_' {
		return Token{}, l.errorf("invalid symbol")
	}
	value := []byte{':'}
	for {
		c := l.peek(0)
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '-' {
			break
		}
		value = append(value, l.advance())
	}
	return Token{Type: SYMBOL, Value: string(value), Line: line, Column: col}, nil
}

func (l *Lexer) readIdentifier() Token {
	line, col := l.line, l.col
	value := []byte{l.advance()}
	for isWordChar(l.peek(0)) {
		value = append(value, l.advance())
	}

	word := string(value)
	if keywords[word] {
		return Token{Type: OPERATION, Value: word, Line: line, Column: col}
	}
	return Token{Type: SYMBOL, Value: word, Line: line, Column: col}
}

// Tokenize lexes the entire input.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		l.skipWhitespace()
		c := l.peek(0)
		if c == 0 {
			break
		}

		switch {
		case isDigit(c) || (c == '-' && isDigit(l.peek(1))):
			tok, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '"':
			tok, err := l.readString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == ':':
			tok, err := l.readSymbol()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '[':
			tokens = append(tokens, Token{Type: LBRACKET, Value: "[", Line: l.line, Column: l.col})
			l.advance()
		case c == ']':
			tokens = append(tokens, Token{Type: RBRACKET, Value: "]", Line: l.line, Column: l.col})
			l.advance()
		case c == ';':
			tokens = append(tokens, Token{Type: SEMICOLON, Value: ";", Line: l.line, Column: l.col})
			l.advance()
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%' ||
			c == '<' || c == '>' || c == '=' || isAlpha(c) || c == '_':
			tokens = append(tokens, l.readIdentifier())
		default:
			return nil, l.errorf("unexpected character %q", c)
		}
	}

	tokens = append(tokens, Token{Type: EOF, Line: l.line, Column: l.col})
	return tokens, nil
}
