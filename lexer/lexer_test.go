package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thobo70/stcc1-sub000/lexer"
	"github.com/thobo70/stcc1-sub000/testutil"
	"github.com/thobo70/stcc1-sub000/tokens"
)

// lexAll scans src and returns the full token stream.
func lexAll(t *testing.T, src string) []tokens.Token {
	t.Helper()
	pl := testutil.NewPipeline(t, 8)
	pl.Lex(t, src)
	out := make([]tokens.Token, pl.Toks.Count())
	for i := range out {
		tok, err := pl.Toks.At(uint32(i + 1))
		require.NoError(t, err)
		out[i] = tok
	}
	return out
}

func types(toks []tokens.Token) []tokens.Type {
	out := make([]tokens.Type, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestLexer_Declaration(t *testing.T) {
	toks := lexAll(t, "int x = 42;")
	require.Equal(t, []tokens.Type{
		tokens.TokenInt, tokens.TokenIdent, tokens.TokenAssign,
		tokens.TokenNumber, tokens.TokenSemicolon, tokens.TokenEOF,
	}, types(toks))
}

func TestLexer_Operators(t *testing.T) {
	toks := lexAll(t, "== != <= >= < > && || ! = + - * / %")
	require.Equal(t, []tokens.Type{
		tokens.TokenEq, tokens.TokenNe, tokens.TokenLe, tokens.TokenGe,
		tokens.TokenLt, tokens.TokenGt, tokens.TokenAndAnd, tokens.TokenOrOr,
		tokens.TokenNot, tokens.TokenAssign, tokens.TokenPlus, tokens.TokenMinus,
		tokens.TokenStar, tokens.TokenSlash, tokens.TokenPercent, tokens.TokenEOF,
	}, types(toks))
}

func TestLexer_Keywords(t *testing.T) {
	toks := lexAll(t, "int char void if else while for return break continue identifier")
	require.Equal(t, []tokens.Type{
		tokens.TokenInt, tokens.TokenChar_, tokens.TokenVoid, tokens.TokenIf,
		tokens.TokenElse, tokens.TokenWhile, tokens.TokenFor, tokens.TokenReturn,
		tokens.TokenBreak, tokens.TokenContinue, tokens.TokenIdent, tokens.TokenEOF,
	}, types(toks))
}

func TestLexer_Comments(t *testing.T) {
	toks := lexAll(t, `
		// line comment
		a /* block
		comment */ b
	`)
	require.Equal(t, []tokens.Type{
		tokens.TokenIdent, tokens.TokenIdent, tokens.TokenEOF,
	}, types(toks))
}

func TestLexer_LineAndColumn(t *testing.T) {
	toks := lexAll(t, "a\n  b")
	require.Equal(t, uint32(1), toks[0].Line)
	require.Equal(t, uint32(1), toks[0].Col)
	require.Equal(t, uint32(2), toks[1].Line)
	require.Equal(t, uint32(3), toks[1].Col)
}

func TestLexer_SpellingsInterned(t *testing.T) {
	pl := testutil.NewPipeline(t, 8)
	pl.Lex(t, "abc 0x1F abc \"hi\\n\" 'x'")

	tok, err := pl.Toks.At(1)
	require.NoError(t, err)
	spelling, err := pl.Strs.Get(tok.Str)
	require.NoError(t, err)
	require.Equal(t, "abc", spelling)

	tok, err = pl.Toks.At(2)
	require.NoError(t, err)
	spelling, err = pl.Strs.Get(tok.Str)
	require.NoError(t, err)
	require.Equal(t, "0x1F", spelling)

	// the second "abc" shares the first one's offset
	again, err := pl.Toks.At(3)
	require.NoError(t, err)
	first, err := pl.Toks.At(1)
	require.NoError(t, err)
	require.Equal(t, first.Str, again.Str)

	tok, err = pl.Toks.At(4)
	require.NoError(t, err)
	require.Equal(t, tokens.TokenString, tok.Type)
	spelling, err = pl.Strs.Get(tok.Str)
	require.NoError(t, err)
	require.Equal(t, "hi\n", spelling)

	tok, err = pl.Toks.At(5)
	require.NoError(t, err)
	require.Equal(t, tokens.TokenChar, tok.Type)
	spelling, err = pl.Strs.Get(tok.Str)
	require.NoError(t, err)
	require.Equal(t, "x", spelling)
}

func TestLexer_Errors(t *testing.T) {
	for _, src := range []string{
		`"unterminated`,
		`'a`,
		`/* never closed`,
		`@`,
		`"bad \q escape"`,
	} {
		pl := testutil.NewPipeline(t, 8)
		lx := lexer.New(src, pl.Strs, pl.Toks)
		require.Error(t, lx.Run(), "source: %s", src)
	}
}
