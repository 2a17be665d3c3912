package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(t *testing.T, src string) []Token {
	t.Helper()
	tokens, err := NewLexer(src).Tokenize()
	require.NoError(t, err)
	return tokens
}

func TestLexer_EmptyInput(t *testing.T) {
	tokens := lex(t, "")
	require.Len(t, tokens, 1)
	assert.Equal(t, EOF, tokens[0].Type)
}

func TestLexer_Numbers(t *testing.T) {
	tokens := lex(t, "42 -17 0")

	assert.Equal(t, NUMBER, tokens[0].Type)
	assert.Equal(t, "42", tokens[0].Value)
	assert.Equal(t, "-17", tokens[1].Value)
	assert.Equal(t, "0", tokens[2].Value)
}

func TestLexer_Strings(t *testing.T) {
	tokens := lex(t, `"hello" "world with spaces" "escape\ntest"`)

	assert.Equal(t, STRING, tokens[0].Type)
	assert.Equal(t, "hello", tokens[0].Value)
	assert.Equal(t, "world with spaces", tokens[1].Value)
	assert.Equal(t, "escape\ntest", tokens[2].Value)
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, err := NewLexer(`"open`).Tokenize()
	require.Error(t, err)

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Contains(t, lexErr.Message, "unterminated")
}

func TestLexer_Symbols(t *testing.T) {
	tokens := lex(t, ":foo :bar-baz :test_123")

	for i, want := range []string{":foo", ":bar-baz", ":test_123"} {
		assert.Equal(t, SYMBOL, tokens[i].Type)
		assert.Equal(t, want, tokens[i].Value)
	}
}

func TestLexer_Keywords(t *testing.T) {
	src := "push pop dup swap rot tick rewind peek-future branch merge " +
		"paradox! echo send temporal-fold ripple + - * / % < > = and or not " +
		"if loop when-stable"
	tokens := lex(t, src)

	// Every keyword lexes as an OPERATION carrying its own name.
	for i := 0; tokens[i].Type != EOF; i++ {
		assert.Equal(t, OPERATION, tokens[i].Type, "token %q", tokens[i].Value)
	}
	assert.Equal(t, "peek-future", tokens[7].Value)
	assert.Equal(t, "paradox!", tokens[10].Value)
}

func TestLexer_BareIdentifierIsSymbol(t *testing.T) {
	tokens := lex(t, "double")
	assert.Equal(t, SYMBOL, tokens[0].Type)
	assert.Equal(t, "double", tokens[0].Value)
}

func TestLexer_Structure(t *testing.T) {
	tokens := lex(t, "[ 1 ] ;")

	assert.Equal(t, LBRACKET, tokens[0].Type)
	assert.Equal(t, NUMBER, tokens[1].Type)
	assert.Equal(t, RBRACKET, tokens[2].Type)
	assert.Equal(t, SEMICOLON, tokens[3].Type)
}

func TestLexer_CommentsSkipped(t *testing.T) {
	tokens := lex(t, "1 # the rest is ignored\n2")

	assert.Equal(t, "1", tokens[0].Value)
	assert.Equal(t, "2", tokens[1].Value)
	assert.Equal(t, EOF, tokens[2].Type)
}

func TestLexer_PositionTracking(t *testing.T) {
	tokens := lex(t, "1\n  tick")

	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 1, tokens[0].Column)
	assert.Equal(t, 2, tokens[1].Line)
	assert.Equal(t, 3, tokens[1].Column)
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	_, err := NewLexer("1 @ 2").Tokenize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected character")
}
