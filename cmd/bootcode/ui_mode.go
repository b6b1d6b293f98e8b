package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the --ui value of the repair command.
type uiMode uint8

const (
	uiAuto uiMode = iota // progress view only on a terminal
	uiOn
	uiOff
)

var uiModeNames = [...]string{uiAuto: "auto", uiOn: "on", uiOff: "off"}

func (m uiMode) String() string { return uiModeNames[m] }

func parseUIMode(value string) (uiMode, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return uiAuto, nil
	}
	for m, name := range uiModeNames {
		if name == v {
			return uiMode(m), nil
		}
	}
	return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// showProgress decides whether the candidate list is drawn on out.
func (m uiMode) showProgress(out *os.File) bool {
	switch m {
	case uiOn:
		return true
	case uiOff:
		return false
	default:
		return isTerminal(out)
	}
}
