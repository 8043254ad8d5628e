package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
)

var (
	logInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	logWarnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	logErrorStyle = lipgloss.NewStyle().Foreground(dangerColor)
	logDebugStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelInfo:
		return "I"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "?"
	}
}

// renderLogTail renders recent log records, one per line.
func renderLogTail(entries []logging.Entry, width int) string {
	var b strings.Builder
	for _, e := range entries {
		line := e.Time.Format("15:04:05") + " " + logLevelChar(e.Level) + " "
		if e.Component != "" {
			line += "[" + e.Component + "] "
		}
		line += e.Message
		if width > 0 && len(line) > width {
			line = line[:width]
		}
		b.WriteString(logLevelStyle(e.Level).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
