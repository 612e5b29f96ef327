// Package changelog records structural mutations of a tenant document as
// immutable, timestamped, typed entries.
//
// A [Log] is owned by one editor session. It is append-only and bounded: once
// the configured capacity is reached the oldest entries are dropped. Entries
// are never mutated after creation; [Log.Entries] returns them oldest first.
//
// The log feeds three consumers: debugging (JSON export via [Log.Export]),
// auditing, and save-on-change (via [Log.Subscribe]).
package changelog

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/sitecraft/pkg/datamap"
)

// Type is the closed set of change-log entry types.
type Type string

const (
	ComponentAdded   Type = "component_added"
	ComponentDeleted Type = "component_deleted"
	ComponentUpdated Type = "component_updated"
	ComponentMoved   Type = "component_moved"
	PageCreated      Type = "page_created"
	PageDeleted      Type = "page_deleted"
	ThemeChanged     Type = "theme_changed"
	DataSaved        Type = "data_saved"
	Error            Type = "error"
	UserAction       Type = "user_action"
)

// Types lists every entry type.
var Types = []Type{
	ComponentAdded, ComponentDeleted, ComponentUpdated, ComponentMoved,
	PageCreated, PageDeleted, ThemeChanged, DataSaved, Error, UserAction,
}

// Valid reports whether t belongs to the closed set.
func (t Type) Valid() bool {
	for _, k := range Types {
		if k == t {
			return true
		}
	}
	return false
}

// Payload carries the before/after or action-specific detail of an entry.
type Payload map[string]any

// Clone returns a deep copy of p, including nested payloads, maps and slices.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Payload:
		return t.Clone()
	case map[string]any:
		return map[string]any(Payload(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	}
	return datamap.CloneValue(v)
}

// withOwnPayload returns e with a private copy of its payload.
func (e Entry) withOwnPayload() Entry {
	e.Payload = e.Payload.Clone()
	return e
}

// Entry is one immutable change-log record.
type Entry struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload,omitempty"`
}

// Recorder is the write side of a change log. The document model depends on
// this interface only.
type Recorder interface {
	Record(t Type, payload Payload) Entry
}

// DefaultCapacity is the ring size used when New is given a non-positive size.
const DefaultCapacity = 1000

// Log is a bounded, append-only ring of entries. It is safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	buf    []Entry
	start  int
	size   int
	now    func() time.Time
	subs   map[int]func(Entry)
	nextID int
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates a log holding at most capacity entries.
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{
		buf:  make([]Entry, capacity),
		now:  time.Now,
		subs: make(map[int]func(Entry)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends a new entry and notifies subscribers. The stored payload is
// a deep copy; the returned entry and every subscriber get their own copies,
// so nothing outside the log can change a recorded entry.
func (l *Log) Record(t Type, payload Payload) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: l.now().UTC(),
		Payload:   payload.Clone(),
	}

	l.mu.Lock()
	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = e
		l.size++
	} else {
		l.buf[l.start] = e
		l.start = (l.start + 1) % len(l.buf)
	}
	subs := make([]func(Entry), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(e.withOwnPayload())
	}
	return e.withOwnPayload()
}

// Errorf records an Error entry with a formatted message and optional
// structured detail.
func (l *Log) Errorf(detail Payload, format string, args ...any) Entry {
	p := maps.Clone(detail)
	if p == nil {
		p = Payload{}
	}
	p["message"] = fmt.Sprintf(format, args...)
	return l.Record(Error, p)
}

// Entries returns copies of all retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.start+i)%len(l.buf)].withOwnPayload()
	}
	return out
}

// Filter returns the retained entries whose type is one of types, oldest first.
func (l *Log) Filter(types ...Type) []Entry {
	want := make(map[Type]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []Entry
	for _, e := range l.Entries() {
		if want[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

// Since returns entries recorded strictly after t.
func (l *Log) Since(t time.Time) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Cap returns the ring capacity.
func (l *Log) Cap() int { return len(l.buf) }

// Clear drops all entries. Subscribers are kept.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.start, l.size = 0, 0
}

// Subscribe registers fn to be called synchronously for every new entry.
// The returned function removes the subscription.
func (l *Log) Subscribe(fn func(Entry)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}
}

// Export writes all retained entries as an indented JSON array.
func (l *Log) Export(w io.Writer) error {
	entries := l.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Discard is a Recorder that drops every entry.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(t Type, payload Payload) Entry { return Entry{Type: t, Payload: payload} }

var _ Recorder = (*Log)(nil)
