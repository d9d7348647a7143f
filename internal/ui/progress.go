package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"

	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
)

// transferRenderer redraws a single-line progress bar as file_transfer
// events come in. Rendering only happens on a TTY; piped output stays clean.
type transferRenderer struct {
	bar   progress.Model
	out   io.Writer
	isTTY bool

	label string
	total int
}

func newTransferRenderer(out io.Writer, isTTY bool) *transferRenderer {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
	)
	bar.FullColor = string(ColorSuccess)
	bar.EmptyColor = string(ColorMuted)

	return &transferRenderer{bar: bar, out: out, isTTY: isTTY}
}

func (r *transferRenderer) start(ev dispatch.Event) bool {
	r.label = ev.String("label")
	r.total = ev.Int("size")
	if r.isTTY {
		fmt.Fprintf(r.out, "\r%s %s", r.label, r.bar.ViewAs(0))
	}
	return true
}

func (r *transferRenderer) update(ev dispatch.Event) bool {
	if !r.isTTY {
		return true
	}
	current, total := ev.Int("current"), ev.Int("total")
	ratio := 0.0
	if total > 0 {
		ratio = float64(current) / float64(total)
	}
	fmt.Fprintf(r.out, "\r%s %s", r.label, r.bar.ViewAs(ratio))
	return true
}

func (r *transferRenderer) end(ev dispatch.Event) bool {
	if r.isTTY {
		fmt.Fprint(r.out, "\n")
	}
	return true
}

// RegisterFileTransferListeners hooks a progress bar to the file transfer
// events emitted by the executor during Copy.
func RegisterFileTransferListeners(d *dispatch.Dispatcher) {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	r := newTransferRenderer(os.Stderr, isTTY)
	d.On("file_transfer.start", r.start)
	d.On("file_transfer.update", r.update)
	d.On("file_transfer.end", r.end)
}
