// Package ui holds the terminal styles shared by the command line tools.
package ui

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/lipgloss"
)

const (
	Green   = lipgloss.Color("2")
	Red     = lipgloss.Color("1")
	Yellow  = lipgloss.Color("3")
	Blue    = lipgloss.Color("4")
	Magenta = lipgloss.Color("5")
	Cyan    = lipgloss.Color("6")
	Gray    = lipgloss.Color("8") // Bright black, often appears as gray
)

var (
	Title   = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	Success = lipgloss.NewStyle().Foreground(Green)
	Failure = lipgloss.NewStyle().Bold(true).Foreground(Red)
	Warning = lipgloss.NewStyle().Foreground(Yellow)
	Dim     = lipgloss.NewStyle().Foreground(Gray)
	Label   = lipgloss.NewStyle().Bold(true).Width(17)
)

var methodColors = map[string]lipgloss.Color{
	http.MethodGet:    Green,
	http.MethodPost:   Blue,
	http.MethodPut:    Cyan,
	http.MethodDelete: Yellow,
	http.MethodPatch:  Magenta,
}

// Method renders an HTTP method padded to a fixed width in its colour.
func Method(method string) string {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	return lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%-7s", method))
}

// Status renders a response status, red for errors and yellow for 4xx.
func Status(code int) string {
	switch {
	case code == 0:
		return Failure.Render("---")
	case code >= 500:
		return Failure.Render(fmt.Sprint(code))
	case code >= 400:
		return Warning.Render(fmt.Sprint(code))
	default:
		return Success.Render(fmt.Sprint(code))
	}
}

// Field renders a "label  value" line.
func Field(label, value string) string {
	return Label.Render(label) + value
}
