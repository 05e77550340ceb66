package cmd

import (
	"github.com/fatih/color"

	"github.com/khanhnv2901/cipher-sentinel/internal/checker"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatSeverityWithColor(sev checker.Severity) string {
	switch sev {
	case checker.SeverityCritical:
		return colorError(sev.Label())
	case checker.SeverityWarning:
		return colorWarn(sev.Label())
	default:
		return colorInfo(sev.Label())
	}
}
