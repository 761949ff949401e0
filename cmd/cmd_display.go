// cmd_display.go - Terminal-Ausgabe mit Word-Wrap fuer den run Command
// Hauptfunktionen: displayResponse
package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// displayResponseState carries the word-wrap cursor across successive
// displayResponse calls, one per streamed token.
type displayResponseState struct {
	lineLength int
	wordBuffer string
}

// displayResponse prints one chunk of generated text, wrapping at the
// terminal width when stdout is a terminal wide enough to bother.
func displayResponse(content string, state *displayResponseState) {
	termWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	if termWidth < 10 {
		fmt.Print(content)
		return
	}

	for _, ch := range content {
		if state.lineLength+1 > termWidth-5 {
			if runewidth.StringWidth(state.wordBuffer) > termWidth-10 {
				fmt.Printf("%s%c", state.wordBuffer, ch)
				state.wordBuffer = ""
				state.lineLength = 0
				continue
			}

			fmt.Printf("\n%s%c", state.wordBuffer, ch)
			state.lineLength = runewidth.StringWidth(state.wordBuffer) + runewidth.RuneWidth(ch)
			continue
		}

		fmt.Print(string(ch))
		state.lineLength += runewidth.RuneWidth(ch)
		switch {
		case runewidth.RuneWidth(ch) >= 2:
			state.wordBuffer = ""
		case ch == ' ' || ch == '\t':
			state.wordBuffer = ""
		case ch == '\n' || ch == '\r':
			state.lineLength = 0
			state.wordBuffer = ""
		default:
			state.wordBuffer += string(ch)
		}
	}
}
