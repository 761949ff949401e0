// main.go - Prozesseinstieg: CLI ausfuehren, Fehler in Exit-Codes uebersetzen
package main

import (
	"fmt"
	"os"

	"github.com/bitllama/engine/cmd"
)

func main() {
	root := cmd.NewCLI()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCodeFor(err))
	}
}
