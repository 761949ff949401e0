package cmd

import (
	"errors"
	"testing"

	"github.com/bitllama/engine/exitcode"
	"github.com/bitllama/engine/fs/bitfile"
	"github.com/bitllama/engine/runner"
)

func TestExitCodeForNil(t *testing.T) {
	if got := ExitCodeFor(nil); got != exitcode.Success {
		t.Errorf("ExitCodeFor(nil) = %d, want %d", got, exitcode.Success)
	}
}

func TestExitCodeForLoadErrorIO(t *testing.T) {
	err := &bitfile.LoadError{Kind: bitfile.LoadErrorIO, Path: "x", Msg: "open"}
	if got := ExitCodeFor(err); got != exitcode.FileError {
		t.Errorf("ExitCodeFor(IO) = %d, want %d", got, exitcode.FileError)
	}
}

func TestExitCodeForLoadErrorFormat(t *testing.T) {
	err := &bitfile.LoadError{Kind: bitfile.LoadErrorMagicMismatch, Path: "x", Msg: "bad magic"}
	if got := ExitCodeFor(err); got != exitcode.FormatError {
		t.Errorf("ExitCodeFor(MagicMismatch) = %d, want %d", got, exitcode.FormatError)
	}
}

func TestExitCodeForLoadErrorResource(t *testing.T) {
	err := &bitfile.LoadError{Kind: bitfile.LoadErrorResource, Path: "x", Msg: "mmap: insufficient memory"}
	if got := ExitCodeFor(err); got != exitcode.OutOfMemory {
		t.Errorf("ExitCodeFor(Resource) = %d, want %d", got, exitcode.OutOfMemory)
	}
}

func TestExitCodeForCancelled(t *testing.T) {
	if got := ExitCodeFor(runner.ErrCancelled); got != exitcode.Cancelled {
		t.Errorf("ExitCodeFor(ErrCancelled) = %d, want %d", got, exitcode.Cancelled)
	}
}

func TestExitCodeForLogicalError(t *testing.T) {
	err := &runner.LogicalError{Msg: "bad args"}
	if got := ExitCodeFor(err); got != exitcode.InvalidArgs {
		t.Errorf("ExitCodeFor(LogicalError) = %d, want %d", got, exitcode.InvalidArgs)
	}
}

func TestExitCodeForRuntimeError(t *testing.T) {
	err := &runner.RuntimeError{Msg: "forward failed", Err: errors.New("boom")}
	if got := ExitCodeFor(err); got != exitcode.AcceleratorError {
		t.Errorf("ExitCodeFor(RuntimeError) = %d, want %d", got, exitcode.AcceleratorError)
	}
}
