package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner(t *testing.T) {
	t.Run("draws until stopped", func(t *testing.T) {
		var buf syncBuffer
		s := startSpinner(context.Background(), &buf, "Loading tenant")
		time.Sleep(3 * spinnerTick)
		if s.stop() {
			t.Error("stop reported an interrupt")
		}
		s.stop()
		if !strings.Contains(buf.String(), "Loading tenant") {
			t.Errorf("spinner output = %q", buf.String())
		}
	})
	t.Run("interrupted", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := startSpinner(ctx, &syncBuffer{}, "Saving")
		cancel()
		if !s.stop() {
			t.Error("stop did not report the cancelled context")
		}
	})
}

func TestSpin(t *testing.T) {
	got, err := spin(context.Background(), "Working", func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("spin() = %d, %v", got, err)
	}
	boom := errors.New("boom")
	if _, err := spin(context.Background(), "Working", func() (int, error) { return 0, boom }); err != boom {
		t.Errorf("spin() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err = spin(ctx, "Working", func() (int, error) { cancel(); return 0, boom })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("interrupted spin() error = %v, want context.Canceled", err)
	}
}
