package benchgen

import (
	"fmt"

	"github.com/fatih/color"
)

// ColorMode is the value of the --color flag.
type ColorMode string

const (
	ColorModeAuto   ColorMode = "auto"   // Color when TTY
	ColorModeAlways ColorMode = "always" // Always color
	ColorModeNever  ColorMode = "never"  // No color
)

// ParseColorMode validates a --color value.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(s); mode {
	case ColorModeAuto, ColorModeAlways, ColorModeNever:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

var (
	// Table names and check section headers
	colorHeader = color.New(color.FgCyan, color.Bold).SprintFunc()

	// Check severities, generate warnings and notes
	colorOK      = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgHiBlack).SprintFunc()
	colorWarning = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// SetColorMode configures color output based on mode.
func SetColorMode(mode ColorMode) {
	switch mode {
	case ColorModeAlways:
		color.NoColor = false
	case ColorModeNever:
		color.NoColor = true
	case ColorModeAuto:
		// Use fatih/color default behavior (TTY detection)
	}
}

// IsColorEnabled returns whether color output is enabled.
// This should be called after SetColorMode.
func IsColorEnabled() bool {
	return !color.NoColor
}

// colorize applies fn only when enabled.
func colorize(enabled bool, fn func(a ...any) string, s string) string {
	if !enabled {
		return s
	}
	return fn(s)
}
