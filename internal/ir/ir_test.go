package ir_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ethereal-O/BFJIT/internal/ir"
	"github.com/Ethereal-O/BFJIT/internal/token"
)

func lower(t *testing.T, src string) []ir.Node {
	t.Helper()
	tokens, err := token.Lex(src)
	require.NoError(t, err)
	nodes, err := ir.Lower(tokens)
	require.NoError(t, err)
	return nodes
}

func TestLowerFoldsRuns(t *testing.T) {
	nodes := lower(t, "+++")
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.Add, nodes[0].Kind)
	assert.Equal(t, 3, nodes[0].N)
}

func TestLowerFoldsOppositeRunsToNetDelta(t *testing.T) {
	nodes := lower(t, "+++--")
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.Add, nodes[0].Kind)
	assert.Equal(t, 1, nodes[0].N)
}

func TestLowerCancelsToNothing(t *testing.T) {
	nodes := lower(t, "++--")
	assert.Empty(t, nodes)
}

func TestLowerFoldsMoves(t *testing.T) {
	nodes := lower(t, ">>><")
	require.Len(t, nodes, 1)
	assert.Equal(t, ir.MoveRight, nodes[0].Kind)
	assert.Equal(t, 2, nodes[0].N)
}

func TestLowerNoAdjacentSameClassSiblings(t *testing.T) {
	// ,+  is Input then Add; these are different classes and must not merge.
	nodes := lower(t, ",+")
	require.Len(t, nodes, 2)
	assert.Equal(t, ir.Input, nodes[0].Kind)
	assert.Equal(t, ir.Add, nodes[1].Kind)
}

func TestLowerBuildsNestedLoopTree(t *testing.T) {
	nodes := lower(t, "++[>+<-]>.")
	require.Len(t, nodes, 4)
	assert.Equal(t, ir.Add, nodes[0].Kind)
	assert.Equal(t, 2, nodes[0].N)
	require.Equal(t, ir.Loop, nodes[1].Kind)
	require.Len(t, nodes[1].Body, 4)
	assert.Equal(t, ir.MoveRight, nodes[1].Body[0].Kind)
	assert.Equal(t, ir.Add, nodes[1].Body[1].Kind)
	assert.Equal(t, ir.MoveLeft, nodes[1].Body[2].Kind)
	assert.Equal(t, ir.Sub, nodes[1].Body[3].Kind)
	assert.Equal(t, ir.MoveRight, nodes[2].Kind)
	assert.Equal(t, ir.Output, nodes[3].Kind)
}

func TestFlattenRoundTrip(t *testing.T) {
	const src = "++[>+<-]>."
	nodes := lower(t, src)
	again, err := ir.Lower(ir.Flatten(nodes))
	require.NoError(t, err)
	assert.Equal(t, nodes, again)
}

// interpret is a minimal reference interpreter over IR, used only to assert
// that lowering preserves token-stream semantics.
func interpret(t *testing.T, nodes []ir.Node, tape []byte, ptr int, input *bytes.Reader, output *bytes.Buffer) int {
	t.Helper()
	for _, n := range nodes {
		switch n.Kind {
		case ir.Add:
			tape[ptr] = byte(int(tape[ptr]) + n.N)
		case ir.Sub:
			tape[ptr] = byte(int(tape[ptr]) - n.N)
		case ir.MoveRight:
			ptr += n.N
		case ir.MoveLeft:
			ptr -= n.N
		case ir.Input:
			b, err := input.ReadByte()
			require.NoError(t, err)
			tape[ptr] = b
		case ir.Output:
			output.WriteByte(tape[ptr])
		case ir.Loop:
			for tape[ptr] != 0 {
				ptr = interpret(t, n.Body, tape, ptr, input, output)
			}
		}
	}
	return ptr
}

func TestLowererPreservesSemantics(t *testing.T) {
	const src = "++[>+<-]>."
	nodes := lower(t, src)

	tape := make([]byte, 30000)
	output := &bytes.Buffer{}
	interpret(t, nodes, tape, 0, bytes.NewReader(nil), output)

	assert.Equal(t, []byte{0x02}, output.Bytes())
}
