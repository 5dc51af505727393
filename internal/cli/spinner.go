package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a one-line status on w while a registry lookup runs.
// Cancelling the parent context stops it as well.
type Spinner struct {
	w       io.Writer
	message string

	ctx     context.Context
	halt    context.CancelFunc
	stopped chan struct{}
	stop    sync.Once
}

func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	s := &Spinner{w: w, message: message, stopped: make(chan struct{})}
	s.ctx, s.halt = context.WithCancel(ctx)
	return s
}

// Start draws frames until Stop is called or the context ends.
func (s *Spinner) Start() {
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.stopped)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()

	label := StyleDim.Render(s.message)
	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-s.ctx.Done():
			// Blank out the frame, the space and the message.
			fmt.Fprint(s.w, "\r"+strings.Repeat(" ", len(s.message)+4)+"\r")
			return
		case <-tick.C:
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[frame]), label)
		}
	}
}

// Stop clears the line and waits for the animation to finish. Later calls
// do nothing.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.halt()
		<-s.stopped
	})
}

// StopWithError stops and prints message as an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError(s.w, "%s", message)
}
