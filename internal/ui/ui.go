// Package ui holds the terminal colors and table layout used by the CLI.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"flowcanvas/internal/domain"
)

// Colors
var (
	Brand  = color.New(color.FgHiMagenta, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// Table writes headers and rows as aligned columns
func Table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var head, sep strings.Builder
	head.WriteString("  ")
	sep.WriteString("  ")
	for i, h := range headers {
		fmt.Fprintf(&head, "%-*s  ", widths[i], h)
		sep.WriteString(strings.Repeat("─", widths[i]) + "  ")
	}
	Subtle.Fprintln(w, strings.TrimRight(head.String(), " "))
	Subtle.Fprintln(w, strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var line strings.Builder
		line.WriteString("  ")
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&line, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}
}

// Status colors a node status
func Status(s domain.NodeStatus) string {
	switch s {
	case domain.NodeStatusDone:
		return Good.Sprint("✓ done")
	case domain.NodeStatusError:
		return Bad.Sprint("✗ error")
	case domain.NodeStatusRunning:
		return Info.Sprint("… running")
	default:
		return Subtle.Sprint(string(s))
	}
}

// Ports joins port ids for display
func Ports(ports []domain.PortDefinition) string {
	if len(ports) == 0 {
		return "-"
	}
	ids := make([]string, len(ports))
	for i, p := range ports {
		ids[i] = fmt.Sprintf("%s:%s", p.ID, p.Type)
	}
	return strings.Join(ids, " ")
}
