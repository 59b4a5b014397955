package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"github.com/codefionn/dazeus/pkg/dazeus"
)

// renderer formats events for the terminal. Styling is only applied when writing to a terminal.
type renderer struct {
	styled bool

	typeStyle    lipgloss.Style
	commandStyle lipgloss.Style
	networkStyle lipgloss.Style
	nickStyle    lipgloss.Style
	textStyle    lipgloss.Style
}

func newRenderer(out io.Writer) *renderer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &renderer{
		styled:       styled,
		typeStyle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		commandStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")),
		networkStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		nickStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		textStyle:    lipgloss.NewStyle(),
	}
}

func (r *renderer) render(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

// event renders "TYPE network sender receiver: text". Events with fewer parameters print what
// they have.
func (r *renderer) event(evt dazeus.Event) string {
	var b strings.Builder

	label := evt.Type.String()
	if evt.Type.IsCommand() {
		b.WriteString(r.render(r.commandStyle, label))
	} else {
		b.WriteString(r.render(r.typeStyle, label))
	}

	params := evt.Params
	if len(params) > 0 {
		b.WriteString(" ")
		b.WriteString(r.render(r.networkStyle, "["+params[0]+"]"))
	}
	for i := 1; i < len(params) && i < 3; i++ {
		b.WriteString(" ")
		b.WriteString(r.render(r.nickStyle, params[i]))
	}
	if len(params) > 3 {
		b.WriteString(": ")
		b.WriteString(r.render(r.textStyle, strings.Join(params[3:], " ")))
	}
	return b.String()
}

// splitMessage breaks message into lines of at most width characters at word boundaries. Words
// longer than width are kept whole. A width of 0 or less only splits at existing newlines.
func splitMessage(message string, width int) []string {
	if width > 0 {
		message = wordwrap.String(message, width)
	}
	var lines []string
	for _, line := range strings.Split(message, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
