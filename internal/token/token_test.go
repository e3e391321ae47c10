package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ethereal-O/BFJIT/internal/bferror"
	"github.com/Ethereal-O/BFJIT/internal/token"
)

func TestLexMapsEachCharacter(t *testing.T) {
	tokens, err := token.Lex("+-<>,.[]")
	require.NoError(t, err)
	kinds := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []token.Kind{
		token.Increment, token.Decrement, token.MoveLeft, token.MoveRight,
		token.Input, token.Output, token.LeftLoop, token.RightLoop,
	}, kinds)
}

func TestLexSkipsComments(t *testing.T) {
	tokens, err := token.Lex("he+llo-")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.Increment, tokens[0].Kind)
	assert.Equal(t, token.Decrement, tokens[1].Kind)
}

func TestLexTracksLineAndColumnOnBrackets(t *testing.T) {
	tokens, err := token.Lex("+\n []")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	open := tokens[1]
	assert.Equal(t, token.LeftLoop, open.Kind)
	assert.Equal(t, 2, open.Line)
	assert.Equal(t, 1, open.Col)
}

func TestLexUnclosedLeftBracket(t *testing.T) {
	_, err := token.Lex("[")
	require.Error(t, err)
	var ce *bferror.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, bferror.UnclosedLeftBracket, ce.Kind)
	assert.Equal(t, 1, ce.Line)
	assert.Equal(t, 0, ce.Col)
}

func TestLexUnexpectedRightBracket(t *testing.T) {
	_, err := token.Lex("]")
	require.Error(t, err)
	var ce *bferror.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, bferror.UnexpectedRightBracket, ce.Kind)
	assert.Equal(t, 1, ce.Line)
	assert.Equal(t, 0, ce.Col)
}

func TestLexBracketBalanceEveryPrefix(t *testing.T) {
	_, err := token.Lex("[[]")
	require.Error(t, err)
	var ce *bferror.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, bferror.UnclosedLeftBracket, ce.Kind)
}

func TestLexIdempotence(t *testing.T) {
	const src = "++[>+<-]>."
	first, err := token.Lex(src)
	require.NoError(t, err)
	rendered := token.Render(first)
	second, err := token.Lex(rendered)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
