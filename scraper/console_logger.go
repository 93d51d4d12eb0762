package scraper

import (
	"fmt"
	"io"
	"os"
)

type ConsoleLogger struct {
	Out io.Writer // defaults to os.Stdout
}

func (logger ConsoleLogger) Printf(format string, a ...interface{}) {
	out := logger.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, format, a...)
	fmt.Fprintln(out)
}
