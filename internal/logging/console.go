package logging

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Console prints the startup banner and boot progress lines.
type Console struct {
	w io.Writer
	p *message.Printer
}

// NewConsole returns a Console writing to w with English number formatting.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, p: message.NewPrinter(language.English)}
}

func (c *Console) Banner(name, version string) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, "\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Fprintf(c.w, "\033[36;1m  │\033[0m %s \033[36;1m│\033[0m\n", center(name+"  "+version, 41))
	fmt.Fprintln(c.w, "\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Fprintln(c.w)
}

func (c *Console) Section(title string) {
	lineLen := 46 - utf8.RuneCountInString(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Fprintf(c.w, "  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

// Stat prints a dotted label/count line; counts get thousands separators.
func (c *Console) Stat(label string, count int) {
	num := c.p.Sprintf("%d", count)
	dots := 42 - utf8.RuneCountInString(label) - len(num)
	if dots < 3 {
		dots = 3
	}
	fmt.Fprintf(c.w, "  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dots), num)
}

func (c *Console) OK(msg string) {
	fmt.Fprintf(c.w, "  \033[32m✓\033[0m %s\n", msg)
}

func (c *Console) Fail(msg string) {
	fmt.Fprintf(c.w, "  \033[31m✗\033[0m %s\n", msg)
}

func (c *Console) Ready(msg string) {
	fmt.Fprintf(c.w, "  \033[32m▶\033[0m %s\n", msg)
}

func center(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
