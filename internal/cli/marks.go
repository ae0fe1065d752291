package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// marks formats pass and fail lines in text output. Lines are colored
// only when w is a terminal.
type marks struct {
	pass func(format string, a ...any) string
	fail func(format string, a ...any) string
}

func newMarks(w io.Writer) marks {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return marks{pass: fmt.Sprintf, fail: fmt.Sprintf}
	}
	green := color.New(color.FgGreen)
	green.EnableColor()
	red := color.New(color.FgRed)
	red.EnableColor()
	return marks{pass: green.SprintfFunc(), fail: red.SprintfFunc()}
}
