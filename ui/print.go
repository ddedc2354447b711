// Package ui holds the console helpers shared by the line-mode client: raw
// key events, key bindings and coloured output.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	greenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Out is where the printers write.
var Out io.Writer = os.Stdout

func DebugPrintf(enabled bool, format string, a ...interface{}) {
	if enabled {
		fmt.Fprint(Out, debugStyle.Render(fmt.Sprintf("[DEBUG] "+format, a...)))
	}
}

func GreenPrintf(format string, a ...interface{}) {
	fmt.Fprint(Out, greenStyle.Render(fmt.Sprintf(format, a...)))
}

func WarningPrintf(format string, a ...interface{}) {
	fmt.Fprint(Out, warnStyle.Render(fmt.Sprintf(format, a...)))
}

func ErrorPrintf(format string, a ...interface{}) {
	fmt.Fprint(Out, errorStyle.Render(fmt.Sprintf(format, a...)))
}

func ClearScreen() {
	fmt.Fprint(Out, "\033[2J\033[1;1H")
}
