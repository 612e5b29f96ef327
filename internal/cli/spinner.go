package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerTick = 80 * time.Millisecond

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner animates message on w until stopped or until ctx ends.
type spinner struct {
	quit     chan struct{}
	finished chan struct{}
	stop     func() bool
}

func startSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	s := &spinner{quit: make(chan struct{}), finished: make(chan struct{})}
	go func() {
		defer close(s.finished)
		t := time.NewTicker(spinnerTick)
		defer t.Stop()
		for frame := 0; ; frame++ {
			select {
			case <-ctx.Done():
				return
			case <-s.quit:
				return
			case <-t.C:
				fmt.Fprintf(w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)]), StyleDim.Render(message))
			}
		}
	}()
	// stop reports whether ctx ended before it was called.
	s.stop = sync.OnceValue(func() bool {
		interrupted := ctx.Err() != nil
		close(s.quit)
		<-s.finished
		fmt.Fprint(w, "\r"+strings.Repeat(" ", len(message)+4)+"\r")
		return interrupted
	})
	return s
}

// spin runs fn behind a spinner on stderr. When fn fails because the user
// interrupted, the error is ctx.Err().
func spin[T any](ctx context.Context, message string, fn func() (T, error)) (T, error) {
	s := startSpinner(ctx, os.Stderr, message)
	v, err := fn()
	if s.stop() && err != nil {
		return v, ctx.Err()
	}
	return v, err
}
