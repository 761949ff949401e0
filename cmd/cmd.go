// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, ExitCodeFor
package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitllama/engine/exitcode"
	"github.com/bitllama/engine/fs/bitfile"
	"github.com/bitllama/engine/runner"
)

// ensureDir creates dir (and parents) if it doesn't already exist, used
// before opening the history database under ~/.bitllama.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// NewCLI builds the root command with run, serve, and show attached.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "bitllama",
		Short:         "Ternary-weight, test-time-training transformer inference",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newShowCmd())

	return rootCmd
}

// ExitCodeFor classifies an error returned from a command's RunE into
// one of the engine's defined process exit codes.
func ExitCodeFor(err error) int {
	if err == nil {
		return exitcode.Success
	}

	var loadErr *bitfile.LoadError
	if errors.As(err, &loadErr) {
		switch loadErr.Kind {
		case bitfile.LoadErrorIO:
			return exitcode.FileError
		case bitfile.LoadErrorResource:
			return exitcode.OutOfMemory
		default:
			return exitcode.FormatError
		}
	}

	var logicalErr *runner.LogicalError
	if errors.As(err, &logicalErr) {
		return exitcode.InvalidArgs
	}

	var runtimeErr *runner.RuntimeError
	if errors.As(err, &runtimeErr) {
		return exitcode.AcceleratorError
	}

	if errors.Is(err, runner.ErrCancelled) {
		return exitcode.Cancelled
	}

	return exitcode.InvalidArgs
}
