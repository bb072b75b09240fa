package slang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(t *testing.T, src string) []Token {
	t.Helper()
	tok := NewTokenizer("test", src)
	var out []Token
	for {
		tk, err := tok.Next()
		require.NoError(t, err)
		if tk.Kind == TokEOF {
			return out
		}
		out = append(out, tk)
	}
}

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestLexBasics(t *testing.T) {
	toks := lex(t, `(def x 42)`)
	assert.Equal(t, []TokenKind{TokLParen, TokSymbol, TokSymbol, TokInt, TokRParen}, kinds(toks))
	assert.Equal(t, int64(42), toks[3].IVal)
}

func TestLexNumbers(t *testing.T) {
	toks := lex(t, "1 -2 +3 1.5 -0.25 1.")
	assert.Equal(t, []TokenKind{TokInt, TokInt, TokInt, TokReal, TokReal, TokReal}, kinds(toks))
	assert.Equal(t, int64(-2), toks[1].IVal)
	assert.Equal(t, 1.5, toks[3].RVal)
	assert.Equal(t, -0.25, toks[4].RVal)
}

func TestLexBracketStyles(t *testing.T) {
	toks := lex(t, "([{}])")
	assert.Equal(t, []TokenKind{TokLParen, TokLParen, TokLParen, TokRParen, TokRParen, TokRParen}, kinds(toks))
	assert.Equal(t, "[", toks[1].Text)
	assert.Equal(t, "}", toks[3].Text)
}

func TestLexVectorMarker(t *testing.T) {
	toks := lex(t, "#(1 2)")
	assert.Equal(t, TokVectorMarker, toks[0].Kind)
	assert.Equal(t, TokLParen, toks[1].Kind)
}

func TestLexQuotes(t *testing.T) {
	toks := lex(t, "'a `b ,c ,@d @e")
	assert.Equal(t, []TokenKind{
		TokQuote, TokSymbol,
		TokQuasiquote, TokSymbol,
		TokUnquote, TokSymbol,
		TokUnquoteSplicing, TokSymbol,
		TokUnquoteSplicing, TokSymbol,
	}, kinds(toks))
}

func TestLexComments(t *testing.T) {
	toks := lex(t, "1 ; line comment\n 2 ;- block\n comment -; 3")
	assert.Equal(t, []TokenKind{TokInt, TokInt, TokInt}, kinds(toks))
}

func TestLexStringEscapes(t *testing.T) {
	toks := lex(t, `"a\n\t\\\"b\e\0"`)
	require.Len(t, toks, 1)
	assert.Equal(t, "a\n\t\\\"b\x1b\x00", toks[0].Text)
}

func TestLexPrefixes(t *testing.T) {
	toks := lex(t, "!flag -count /rate")
	assert.Equal(t, []TokenKind{TokNot, TokNegation, TokInvert}, kinds(toks))
	assert.Equal(t, "flag", toks[0].Text)
	assert.Equal(t, "count", toks[1].Text)
	assert.Equal(t, "rate", toks[2].Text)
}

func TestLexOperatorSymbolsAreNotPrefixes(t *testing.T) {
	toks := lex(t, "/= - / -> <=")
	assert.Equal(t, []TokenKind{TokSymbol, TokSymbol, TokSymbol, TokSymbol, TokSymbol}, kinds(toks))
	assert.Equal(t, "/=", toks[0].Text)
	assert.Equal(t, "->", toks[3].Text)
}

func TestLexEmbeddedPrimeStaysInIdentifier(t *testing.T) {
	toks := lex(t, "(car' x)")
	assert.Equal(t, []TokenKind{TokLParen, TokSymbol, TokSymbol, TokRParen}, kinds(toks))
	assert.Equal(t, "car'", toks[1].Text)

	// a leading quote is still the quote prefix
	toks = lex(t, "'car")
	assert.Equal(t, []TokenKind{TokQuote, TokSymbol}, kinds(toks))
	assert.Equal(t, "car", toks[1].Text)
}

func TestLexDot(t *testing.T) {
	toks := lex(t, "(a . b)")
	assert.Equal(t, []TokenKind{TokLParen, TokSymbol, TokDot, TokSymbol, TokRParen}, kinds(toks))
}

func TestLexDashDotIsError(t *testing.T) {
	tok := NewTokenizer("test", "-.")
	_, err := tok.Next()
	require.Error(t, err)
}

func TestLexUnterminatedString(t *testing.T) {
	tok := NewTokenizer("test", `"abc`)
	_, err := tok.Next()
	require.Error(t, err)
}

func TestLexLocations(t *testing.T) {
	toks := lex(t, "a\n  bb")
	assert.Equal(t, 1, toks[0].Loc.Line)
	assert.Equal(t, 1, toks[0].Loc.Col)
	assert.Equal(t, 2, toks[1].Loc.Line)
	assert.Equal(t, 3, toks[1].Loc.Col)
}
