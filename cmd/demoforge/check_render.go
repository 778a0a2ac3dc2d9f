package main

import (
	"fmt"
	"strings"
)

type checkKind int

const (
	checkInfo checkKind = iota
	checkOK
	checkWarn
	checkFail
)

var checkStyles = map[checkKind]struct {
	label string
	color string
}{
	checkInfo: {"INFO", "\x1b[34m"},
	checkOK:   {"OK", "\x1b[32m"},
	checkWarn: {"WARN", "\x1b[33m"},
	checkFail: {"FAIL", "\x1b[31m"},
}

const (
	ansiReset       = "\x1b[0m"
	checkLabelWidth = 28
)

// renderCheckLine formats "  Label:    [OK] detail", colored on terminals.
func renderCheckLine(label string, kind checkKind, detail string, colorize bool) string {
	style := checkStyles[kind]
	status := "[" + style.label + "]"
	if detail != "" {
		status += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", checkLabelWidth, label+":", status)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func renderHeading(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return checkStyles[checkInfo].color + line + ansiReset
	}
	return line
}
