// Package logging sets up the run logger and the console screen banners.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out with the given level and format
// ("text" or "json").
func New(out io.Writer, level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.SetLevel(lvl)

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableColors: color.NoColor, FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var bannerColor = color.New(color.FgCyan, color.Bold)

// Banner prints informational screen-arrival lines.
type Banner struct {
	out io.Writer
}

// NewBanner returns a Banner writing to out.
func NewBanner(out io.Writer) *Banner {
	return &Banner{out: out}
}

// Println writes line in the banner color.
func (b *Banner) Println(line string) {
	_, _ = bannerColor.Fprintln(b.out, line)
}
