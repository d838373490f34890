package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Switchboard banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{`  ___        _ _      _    _                      _ `, "#34d399"},
		{` / __|_ __ _(_) |_ __| |_ | |__  ___  __ _ _ _ __| |`, "#10b981"},
		{` \__ \ V  V / |  _/ _| ' \| '_ \/ _ \/ _` + "`" + ` | '_/ _` + "`" + ` |`, "#059669"},
		{` |___/\_/\_/|_|\__\__|_||_|_.__/\___/\__,_|_| \__,_|`, "#047857"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Status colors a short status word: green when ok, red otherwise.
func Status(text string, ok bool) string {
	p := termenv.ColorProfile()
	color := "#ef4444"
	if ok {
		color = "#22c55e"
	}
	return termenv.String(text).Foreground(p.Color(color)).Bold().String()
}
