package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Banner width bounds when sized from the terminal.
const (
	minBannerWidth = 40
	maxBannerWidth = 120
)

// bannerWidth sizes transcript banners to the terminal behind w. It
// returns 0 (the driver default) when w is not a terminal.
func bannerWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	cols, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return clampWidth(cols)
}

func clampWidth(cols int) int {
	switch {
	case cols < minBannerWidth:
		return minBannerWidth
	case cols > maxBannerWidth:
		return maxBannerWidth
	default:
		return cols
	}
}
