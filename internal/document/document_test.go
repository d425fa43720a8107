package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/diewo77/go-church/internal/store"
)

type inner struct {
	Mission string `json:"mission"`
	Vision  string `json:"vision"`
	Deep    struct {
		A string `json:"a"`
		B string `json:"b"`
	} `json:"deep"`
}

type doc struct {
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Count  int      `json:"count"`
	Tags   []string `json:"tags"`
	About  inner    `json:"about"`
	Active bool     `json:"active"`
}

func defaults() doc {
	d := doc{
		Name:   "Default",
		Color:  "#1E1E1E",
		Count:  3,
		Tags:   []string{"a", "b"},
		Active: true,
	}
	d.About.Mission = "M"
	d.About.Vision = "V"
	d.About.Deep.A = "A"
	d.About.Deep.B = "B"
	return d
}

// fakeStore records calls and can be told to fail.
type fakeStore struct {
	mu     sync.Mutex
	docs   map[string][]byte
	gets   int
	sets   int
	getErr error
	setErr error
}

func newFakeStore() *fakeStore { return &fakeStore{docs: map[string][]byte{}} }

func (f *fakeStore) Get(_ context.Context, c, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	raw, ok := f.docs[c+"/"+id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return raw, nil
}

func (f *fakeStore) Set(_ context.Context, c, id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.docs[c+"/"+id] = data
	return nil
}

func (f *fakeStore) put(id, raw string) { f.docs["docs/"+id] = []byte(raw) }

func newColl(s store.Store, validate func(doc) error) *Collection[doc] {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCollection(s, Config[doc]{Collection: "docs", Defaults: defaults, Validate: validate}, logger)
}

func TestMerge_PerNestingLevel(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		want   func(d *doc)
	}{
		{"empty", `{}`, func(d *doc) {}},
		{"top level scalar", `{"name":"X"}`, func(d *doc) { d.Name = "X" }},
		{"first nested level", `{"about":{"mission":"Serve"}}`, func(d *doc) { d.About.Mission = "Serve" }},
		{"second nested level", `{"about":{"deep":{"b":"Z"}}}`, func(d *doc) { d.About.Deep.B = "Z" }},
		{"arrays replace", `{"tags":["x"]}`, func(d *doc) { d.Tags = []string{"x"} }},
		{"null keeps default", `{"name":null,"about":null}`, func(d *doc) {}},
		{"false overrides true", `{"active":false}`, func(d *doc) { d.Active = false }},
		{"unknown keys ignored", `{"legacy":1}`, func(d *doc) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Merge(defaults(), []byte(tt.remote))
			if err != nil {
				t.Fatalf("merge: %v", err)
			}
			want := defaults()
			tt.want(&want)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestMerge_ScalarOverObjectIsConflict(t *testing.T) {
	got, conflicts, err := Merge(defaults(), []byte(`{"about":"flat","name":"Y"}`))
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %v", conflicts)
	}
	if got.About != defaults().About || got.Name != "Y" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestMerge_TypeMismatchFails(t *testing.T) {
	if _, _, err := Merge(defaults(), []byte(`{"count":"many"}`)); err == nil {
		t.Fatal("expected error for mismatched type")
	}
}

func TestCollection_LoadAbsentWritesDefaultsOnce(t *testing.T) {
	fs := newFakeStore()
	c := newColl(fs, nil)

	got, outcome := c.Load(context.Background(), "church")
	if outcome != OutcomeCreated {
		t.Fatalf("outcome: %s", outcome)
	}
	if !reflect.DeepEqual(got, defaults()) {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if fs.sets != 1 {
		t.Fatalf("expected exactly one write, got %d", fs.sets)
	}
	var stored doc
	if err := json.Unmarshal(fs.docs["docs/church"], &stored); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stored, defaults()) {
		t.Fatalf("stored document differs from defaults: %+v", stored)
	}

	// second load finds it and does not write again
	if _, outcome := c.Load(context.Background(), "church"); outcome != OutcomeFound {
		t.Fatalf("outcome: %s", outcome)
	}
	if fs.sets != 1 {
		t.Fatalf("expected no further writes, got %d", fs.sets)
	}
}

func TestCollection_ReadFailureFallsBackWithoutWrite(t *testing.T) {
	fs := newFakeStore()
	fs.getErr = errors.New("unavailable")
	c := newColl(fs, nil)

	got, outcome := c.Load(context.Background(), "church")
	if outcome != OutcomeFallback || !reflect.DeepEqual(got, defaults()) {
		t.Fatalf("expected defaults fallback, got %s %+v", outcome, got)
	}
	if fs.sets != 0 {
		t.Fatalf("expected no write, got %d", fs.sets)
	}
	if _, err := c.Update(context.Background(), "church", map[string]any{"name": "X"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable while the store is unreadable, got %v", err)
	}
}

func TestCollection_UpdateValidates(t *testing.T) {
	fs := newFakeStore()
	errBad := errors.New("bad color")
	c := newColl(fs, func(d doc) error {
		if d.Color == "" {
			return errBad
		}
		return nil
	})
	fs.put("u1", `{"name":"Stored"}`)

	if _, err := c.Update(context.Background(), "u1", map[string]any{"color": ""}); !errors.Is(err, errBad) {
		t.Fatalf("expected validation error, got %v", err)
	}
	got, err := c.Update(context.Background(), "u1", map[string]any{"about": map[string]any{"vision": "New"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Stored" || got.About.Vision != "New" || got.About.Mission != "M" {
		t.Fatalf("unexpected result %+v", got)
	}
	if _, err := c.Update(context.Background(), "u1", map[string]any{"about": "flat"}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch, got %v", err)
	}
}

func TestDocument_LoadAndUpdate(t *testing.T) {
	fs := newFakeStore()
	fs.put("church", `{"name":"X"}`)
	d := New(newColl(fs, nil), "church")

	if d.State() != StateLoading {
		t.Fatalf("expected loading state")
	}
	if got := d.Current(); got.Name != "Default" {
		t.Fatalf("expected defaults before load, got %+v", got)
	}

	var seen []string
	d.OnChange(func(v doc) { seen = append(seen, v.Color) })

	got := d.Load(context.Background())
	if got.Name != "X" || got.Color != "#1E1E1E" {
		t.Fatalf("unexpected effective value %+v", got)
	}
	if d.State() != StateLoaded {
		t.Fatalf("expected loaded state")
	}

	if _, err := d.Update(context.Background(), map[string]any{"color": "#FF0000"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	cur := d.Current()
	if cur.Color != "#FF0000" || cur.Name != "X" {
		t.Fatalf("unexpected value after update %+v", cur)
	}
	if d.State() != StateLoaded {
		t.Fatalf("update must not revisit loading")
	}
	if !reflect.DeepEqual(seen, []string{"#1E1E1E", "#FF0000"}) {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestDocument_FailedWriteKeepsSnapshot(t *testing.T) {
	fs := newFakeStore()
	d := New(newColl(fs, nil), "church")
	d.Load(context.Background())
	before := d.Current()

	fs.setErr = errors.New("write refused")
	_, err := d.Update(context.Background(), map[string]any{"name": "Nope", "tags": []string{"z"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(d.Current(), before) {
		t.Fatalf("in-memory value changed after failed write: %+v", d.Current())
	}
}

func TestDocument_CurrentIsCopy(t *testing.T) {
	d := New(newColl(newFakeStore(), nil), "church")
	d.Load(context.Background())
	cur := d.Current()
	cur.Tags[0] = "mutated"
	if d.Current().Tags[0] != "a" {
		t.Fatal("Current must not expose internal state")
	}
}

func TestDocument_UpdateAfterFallbackReloadsFirst(t *testing.T) {
	fs := newFakeStore()
	fs.put("church", `{"name":"Stored","about":{"mission":"Real"}}`)
	d := New(newColl(fs, nil), "church")

	fs.getErr = errors.New("unavailable")
	if got := d.Load(context.Background()); got.Name != "Default" {
		t.Fatalf("expected defaults on read failure, got %+v", got)
	}
	if _, err := d.Update(context.Background(), map[string]any{"color": "#FF0000"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if fs.sets != 0 {
		t.Fatalf("defaults must not be written over the stored document, got %d writes", fs.sets)
	}

	fs.getErr = nil
	got, err := d.Update(context.Background(), map[string]any{"color": "#FF0000"})
	if err != nil {
		t.Fatalf("update after recovery: %v", err)
	}
	if got.Name != "Stored" || got.About.Mission != "Real" || got.Color != "#FF0000" {
		t.Fatalf("stored fields lost: %+v", got)
	}
}
