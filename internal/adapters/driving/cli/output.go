package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

// isTerminal reports whether w is an interactive terminal.
// Buffers and pipes get plain text output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// maskSecret hides all but the ends of a credential.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
