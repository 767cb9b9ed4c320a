package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for terminal output.
var (
	toolNameStyle = lipgloss.NewStyle().Bold(true)
	resultStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // green
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray

	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	diffHunkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)
