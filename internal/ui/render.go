package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// RenderAccent renders s in the accent color.
func RenderAccent(s string) string {
	if !ColorEnabled() {
		return s
	}
	return accentStyle.Render(s)
}

// RenderPass renders s in the success color.
func RenderPass(s string) string {
	if !ColorEnabled() {
		return s
	}
	return passStyle.Render(s)
}

// RenderWarn renders s in the warning color.
func RenderWarn(s string) string {
	if !ColorEnabled() {
		return s
	}
	return warnStyle.Render(s)
}

// RenderFail renders s in the error color.
func RenderFail(s string) string {
	if !ColorEnabled() {
		return s
	}
	return failStyle.Render(s)
}
