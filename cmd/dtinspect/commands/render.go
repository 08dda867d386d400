// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// printer writes reports, styling them only when writing to a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func (a *app) printer() *printer {
	return &printer{w: a.out, styled: a.styled}
}

func (p *printer) style(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

func (p *printer) title(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(titleStyle, fmt.Sprintf(format, args...)))
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) faint(format string, args ...any) {
	fmt.Fprintln(p.w, p.style(faintStyle, fmt.Sprintf(format, args...)))
}

// table prints rows under headers in aligned columns. Cells may already
// carry styling; widths are measured on their visible text.
func (p *printer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = ansi.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], ansi.StringWidth(cell))
			}
		}
	}

	styledHeaders := make([]string, len(headers))
	for i, header := range headers {
		styledHeaders[i] = p.style(headerStyle, header)
	}
	p.row(styledHeaders, widths)
	for _, row := range rows {
		p.row(row, widths)
	}
}

func (p *printer) row(cells []string, widths []int) {
	var line strings.Builder
	line.WriteString("  ")
	for i, cell := range cells {
		line.WriteString(cell)
		if i == len(cells)-1 {
			break
		}
		line.WriteString(strings.Repeat(" ", widths[i]-ansi.StringWidth(cell)+2))
	}
	fmt.Fprintln(p.w, strings.TrimRight(line.String(), " "))
}
