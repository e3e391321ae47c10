// Package ir lowers a balanced token stream into a tree of counted IR nodes,
// folding adjacent runs of the same operation class and building the nested
// loop structure.
package ir

import (
	"fmt"

	"github.com/Ethereal-O/BFJIT/internal/bferror"
	"github.com/Ethereal-O/BFJIT/internal/token"
)

// NodeKind tags a Node's variant.
type NodeKind byte

const (
	Add NodeKind = iota + 1
	Sub
	MoveRight
	MoveLeft
	Input
	Output
	Loop
)

// maxMove is the largest magnitude a single MoveLeft/MoveRight node may
// carry: the code generator encodes the distance as a signed 32-bit
// immediate, so longer folded runs are split by splitMove.
const maxMove = 1<<31 - 1

// Node is one IR element. For Add/Sub, N holds the (1..255) delta. For
// MoveLeft/MoveRight, N holds the (1..maxMove) distance. For Loop, Body holds
// the nested sequence. Input and Output carry no payload.
type Node struct {
	Kind NodeKind
	N    int
	Body []Node
}

// Lower folds tokens into the IR tree described in the component design.
func Lower(tokens []token.Token) ([]Node, error) {
	root := []Node{}
	stack := [][]Node{root}

	i := 0
	for i < len(tokens) {
		switch tokens[i].Kind {
		case token.Increment, token.Decrement:
			sum := 0
			for i < len(tokens) && (tokens[i].Kind == token.Increment || tokens[i].Kind == token.Decrement) {
				if tokens[i].Kind == token.Increment {
					sum++
				} else {
					sum--
				}
				i++
			}
			sum = ((sum % 256) + 256) % 256
			if sum != 0 {
				top := len(stack) - 1
				if sum <= 127 {
					stack[top] = append(stack[top], Node{Kind: Add, N: sum})
				} else {
					stack[top] = append(stack[top], Node{Kind: Sub, N: 256 - sum})
				}
			}
			continue

		case token.MoveLeft, token.MoveRight:
			count := 0
			for i < len(tokens) && (tokens[i].Kind == token.MoveLeft || tokens[i].Kind == token.MoveRight) {
				if tokens[i].Kind == token.MoveRight {
					count++
				} else {
					count--
				}
				i++
			}
			top := len(stack) - 1
			stack[top] = append(stack[top], splitMove(count)...)
			continue

		case token.Input:
			top := len(stack) - 1
			stack[top] = append(stack[top], Node{Kind: Input})
			i++

		case token.Output:
			top := len(stack) - 1
			stack[top] = append(stack[top], Node{Kind: Output})
			i++

		case token.LeftLoop:
			stack = append(stack, []Node{})
			i++

		case token.RightLoop:
			if len(stack) < 2 {
				return nil, &bferror.RuntimeError{Index: i, Kind: bferror.OutOfRange}
			}
			body := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top := len(stack) - 1
			stack[top] = append(stack[top], Node{Kind: Loop, Body: body})
			i++

		default:
			return nil, fmt.Errorf("ir: unrecognized token kind %v at index %d", tokens[i].Kind, i)
		}
	}

	if len(stack) != 1 {
		return nil, &bferror.RuntimeError{Index: len(tokens), Kind: bferror.OutOfRange}
	}
	return stack[0], nil
}

// splitMove turns a folded move count into one or more same-direction nodes,
// each within [1, maxMove], per the lowerer's tie-break rule for overlong
// runs.
func splitMove(count int) []Node {
	if count == 0 {
		return nil
	}
	kind := MoveRight
	abs := count
	if count < 0 {
		kind = MoveLeft
		abs = -count
	}
	var nodes []Node
	for abs > 0 {
		n := abs
		if n > maxMove {
			n = maxMove
		}
		nodes = append(nodes, Node{Kind: kind, N: n})
		abs -= n
	}
	return nodes
}

// Flatten renders an IR tree back to its canonical token stream, used by the
// round-trip property in the test suite.
func Flatten(nodes []Node) []token.Token {
	var out []token.Token
	for _, n := range nodes {
		switch n.Kind {
		case Add:
			for i := 0; i < n.N; i++ {
				out = append(out, token.Token{Kind: token.Increment})
			}
		case Sub:
			for i := 0; i < n.N; i++ {
				out = append(out, token.Token{Kind: token.Decrement})
			}
		case MoveRight:
			for i := 0; i < n.N; i++ {
				out = append(out, token.Token{Kind: token.MoveRight})
			}
		case MoveLeft:
			for i := 0; i < n.N; i++ {
				out = append(out, token.Token{Kind: token.MoveLeft})
			}
		case Input:
			out = append(out, token.Token{Kind: token.Input})
		case Output:
			out = append(out, token.Token{Kind: token.Output})
		case Loop:
			out = append(out, token.Token{Kind: token.LeftLoop})
			out = append(out, Flatten(n.Body)...)
			out = append(out, token.Token{Kind: token.RightLoop})
		}
	}
	return out
}
