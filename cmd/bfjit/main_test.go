package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.bf")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunIncrementAndOutput(t *testing.T) {
	path := writeSource(t, "+++.")
	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{path})
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, []byte{0x03}, stdOut.Bytes())
}

func TestRunMissingFileArgument(t *testing.T) {
	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{})
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stdErr.String(), "missing path to Brainfuck source file")
}

func TestRunUnclosedBracketIsCompileError(t *testing.T) {
	path := writeSource(t, "[")
	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{path})
	assert.Equal(t, exitCompile, code)
	assert.Contains(t, stdErr.String(), "unclosed left bracket")
}

func TestRunOutOfRangeIsRuntimeError(t *testing.T) {
	path := writeSource(t, "<")
	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{path})
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, stdErr.String(), "out of range")
}

func TestRunWithInputFlag(t *testing.T) {
	path := writeSource(t, ",+.")
	inputPath := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte{0x41}, 0o644))

	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{"-i", inputPath, path})
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, []byte{0x42}, stdOut.Bytes())
}

func TestRunFallsBackOnUnopenableInput(t *testing.T) {
	path := writeSource(t, "+.")
	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{"-i", "/does/not/exist", path})
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, stdErr.String(), "Parse input error")
}

func TestRunAsciiOffsetFlag(t *testing.T) {
	path := writeSource(t, ",.")
	inputPath := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("5"), 0o644))

	var stdOut, stdErr bytes.Buffer
	code := doMain(context.Background(), &stdOut, &stdErr, []string{"-ascii-offset", "-i", inputPath, path})
	assert.Equal(t, exitSuccess, code)
	assert.Equal(t, []byte("5"), stdOut.Bytes())
}

// TestRunTimeoutFlagAbortsNonTerminatingProgram runs the non-terminating
// program "+[]" through the CLI's -timeout flag: doMain must return promptly
// with exitTimeout rather than hang forever. The underlying engine goroutine
// is abandoned, not waited for; this test only asserts that doMain itself
// returns within a short deadline.
func TestRunTimeoutFlagAbortsNonTerminatingProgram(t *testing.T) {
	path := writeSource(t, "+[]")
	var stdOut, stdErr bytes.Buffer

	done := make(chan int, 1)
	go func() {
		done <- doMain(context.Background(), &stdOut, &stdErr, []string{"-timeout", "20ms", path})
	}()

	select {
	case code := <-done:
		assert.Equal(t, exitTimeout, code)
		assert.Contains(t, stdErr.String(), "run aborted")
	case <-time.After(5 * time.Second):
		t.Fatal("doMain did not return within its configured -timeout")
	}
}

// TestRunContextCancellationAbortsNonTerminatingProgram exercises the same
// program via a context cancelled out from under doMain, covering the
// external-interruption (signal) path independent of the -timeout flag.
func TestRunContextCancellationAbortsNonTerminatingProgram(t *testing.T) {
	path := writeSource(t, "+[]")
	var stdOut, stdErr bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan int, 1)
	go func() {
		done <- doMain(ctx, &stdOut, &stdErr, []string{path})
	}()

	select {
	case code := <-done:
		assert.Equal(t, exitTimeout, code)
	case <-time.After(5 * time.Second):
		t.Fatal("doMain did not return after its context was cancelled")
	}
}
