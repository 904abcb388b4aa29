package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"        _                                  _",
	"  _ __ (_)_ __   ___  __ _ _ __ __ _ _ __ | |__",
	" | '_ \\| | '_ \\ / _ \\/ _` | '__/ _` | '_ \\| '_ \\",
	" | |_) | | |_) |  __/ (_| | | | (_| | |_) | | | |",
	" | .__/|_| .__/ \\___|\\__, |_|  \\__,_| .__/|_| |_|",
	" |_|     |_|         |___/          |_|",
}

// Teal to blue.
var bannerColors = []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8", "#a78bfa"}

// PrintBanner writes the pipegraph banner and version to stdout.
func PrintBanner(version string) {
	FprintBanner(termenv.NewOutput(os.Stdout), version)
}

// FprintBanner writes the banner to w, colored for the profile of the
// terminal behind w. Non terminals get plain text.
func FprintBanner(w io.Writer, version string) {
	p := termenv.Ascii
	if o, ok := w.(*termenv.Output); ok {
		p = o.Profile
	}
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
