// Package cmdutils formats tutor output for the terminal.
package cmdutils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const logo = "🧸"

// Out is where replies go; tests swap it.
var Out io.Writer = os.Stdout

// PrintResponse prints a final tutor reply under the app banner.
func PrintResponse(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	fmt.Fprintf(Out, "\n%s kidslingo\n%s\n\n", logo, text)
}

// PrintProgress prints an interim hint, one line per hint line.
func PrintProgress(hint string) {
	for _, line := range strings.Split(strings.TrimSpace(hint), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(Out, "  ↳ %s\n", line)
		}
	}
}
