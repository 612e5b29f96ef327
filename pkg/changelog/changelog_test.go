package changelog

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRecordAndEntries(t *testing.T) {
	l := New(10, WithClock(fixedClock()))

	l.Record(PageCreated, Payload{"page": "homepage"})
	l.Record(ComponentAdded, Payload{"page": "homepage", "id": "a"})

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Type != PageCreated || entries[1].Type != ComponentAdded {
		t.Errorf("unexpected order: %v, %v", entries[0].Type, entries[1].Type)
	}
	if !entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Error("entries should be timestamp ordered")
	}
	if entries[0].ID == "" || entries[0].ID == entries[1].ID {
		t.Error("entries should have unique ids")
	}
}

func TestRingDropsOldest(t *testing.T) {
	l := New(3)
	for i := 0; i < 5; i++ {
		l.Record(UserAction, Payload{"n": i})
	}

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	for i, e := range entries {
		if got, want := e.Payload["n"], i+2; got != want {
			t.Errorf("entries[%d].n = %v, want %v", i, got, want)
		}
	}
	if l.Cap() != 3 {
		t.Errorf("Cap = %d, want 3", l.Cap())
	}
}

func TestPayloadIsCopied(t *testing.T) {
	l := New(5)
	p := Payload{"page": "a"}
	l.Record(PageCreated, p)
	p["page"] = "b"

	if got := l.Entries()[0].Payload["page"]; got != "a" {
		t.Errorf("payload leaked caller mutation: %v", got)
	}
}

func TestFilterAndSince(t *testing.T) {
	l := New(10, WithClock(fixedClock()))
	first := l.Record(PageCreated, nil)
	l.Record(Error, Payload{"message": "boom"})
	l.Record(ComponentMoved, nil)

	if got := l.Filter(Error); len(got) != 1 {
		t.Errorf("Filter(Error) = %d entries, want 1", len(got))
	}
	if got := l.Filter(Error, ComponentMoved); len(got) != 2 {
		t.Errorf("Filter(Error, Moved) = %d entries, want 2", len(got))
	}
	if got := l.Since(first.Timestamp); len(got) != 2 {
		t.Errorf("Since(first) = %d entries, want 2", len(got))
	}
}

func TestErrorf(t *testing.T) {
	l := New(5)
	e := l.Errorf(Payload{"id": "x"}, "instance %s not found", "x")

	if e.Type != Error {
		t.Errorf("Type = %v, want error", e.Type)
	}
	if e.Payload["message"] != "instance x not found" {
		t.Errorf("message = %v", e.Payload["message"])
	}
	if e.Payload["id"] != "x" {
		t.Errorf("detail lost: %v", e.Payload)
	}
}

func TestSubscribe(t *testing.T) {
	l := New(5)
	var got []Type
	unsub := l.Subscribe(func(e Entry) { got = append(got, e.Type) })

	l.Record(PageCreated, nil)
	unsub()
	unsub()
	l.Record(PageDeleted, nil)

	if len(got) != 1 || got[0] != PageCreated {
		t.Errorf("subscriber saw %v, want [page_created]", got)
	}
}

func TestClear(t *testing.T) {
	l := New(5)
	l.Record(PageCreated, nil)
	l.Clear()
	if l.Len() != 0 {
		t.Errorf("Len after Clear = %d", l.Len())
	}
	l.Record(PageDeleted, nil)
	if entries := l.Entries(); len(entries) != 1 || entries[0].Type != PageDeleted {
		t.Errorf("unexpected entries after Clear: %v", entries)
	}
}

func TestExport(t *testing.T) {
	l := New(5)
	var buf bytes.Buffer
	if err := l.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("empty export = %s, want []", got)
	}

	l.Record(ComponentMoved, Payload{"oldPosition": 2, "newPosition": 0})
	buf.Reset()
	if err := l.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded []Entry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Type != ComponentMoved {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestTypeValid(t *testing.T) {
	if !ComponentMoved.Valid() {
		t.Error("component_moved should be valid")
	}
	if Type("bogus").Valid() {
		t.Error("bogus type should be invalid")
	}
}

func TestEntriesCannotBeRewritten(t *testing.T) {
	l := New(10)
	var seen Entry
	l.Subscribe(func(e Entry) { seen = e })

	before := Payload{"componentName": "hero1", "tags": []any{"a"}}
	rec := l.Record(ComponentMoved, Payload{"oldPosition": 0, "before": before})

	before["componentName"] = "caller"
	rec.Payload["oldPosition"] = 97
	seen.Payload["oldPosition"] = 98
	l.Entries()[0].Payload["oldPosition"] = 99
	l.Entries()[0].Payload["before"].(Payload)["componentName"] = "mutated"
	l.Filter(ComponentMoved)[0].Payload["before"].(Payload)["tags"].([]any)[0] = "z"

	got := l.Entries()[0].Payload
	if got["oldPosition"] != 0 {
		t.Errorf("oldPosition = %v, want 0", got["oldPosition"])
	}
	nested := got["before"].(Payload)
	if nested["componentName"] != "hero1" {
		t.Errorf("before.componentName = %v, want hero1", nested["componentName"])
	}
	if tags := nested["tags"].([]any); tags[0] != "a" {
		t.Errorf("before.tags = %v, want [a]", tags)
	}
}

func TestPayloadCloneNil(t *testing.T) {
	if Payload(nil).Clone() != nil {
		t.Error("nil payload should clone to nil")
	}
}
