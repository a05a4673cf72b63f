package history_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tailored-agentic-units/sktalk/history"
	"github.com/tailored-agentic-units/sktalk/memory"
)

func TestAppend_SkipsRepeat(t *testing.T) {
	h := history.New(history.DefaultCapacity)

	h.Append("x = 1")
	h.Append("x = 1")

	if diff := cmp.Diff([]string{"x = 1"}, h.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_RepeatOfOlderEntry(t *testing.T) {
	h := history.New(history.DefaultCapacity)

	h.Append("a")
	h.Append("b")
	h.Append("a")

	if diff := cmp.Diff([]string{"a", "b", "a"}, h.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_TrimsToCapacity(t *testing.T) {
	h := history.New(2)

	h.Append("one")
	h.Append("two")
	h.Append("three")

	if diff := cmp.Diff([]string{"three", "two"}, h.Entries()); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigate_ReverseChronological(t *testing.T) {
	h := history.New(history.DefaultCapacity)
	for _, e := range []string{"first", "second", "third"} {
		h.Append(e)
	}

	var got []string
	for range 3 {
		entry, ok := h.Navigate(1, "")
		if !ok {
			t.Fatalf("Navigate(1) ok = false after %v", got)
		}
		got = append(got, entry)
	}

	if diff := cmp.Diff([]string{"third", "second", "first"}, got); diff != "" {
		t.Errorf("navigation mismatch (-want +got):\n%s", diff)
	}

	if entry, ok := h.Navigate(1, "first"); ok {
		t.Errorf("Navigate past oldest = (%q, true), want no change", entry)
	}
}

func TestNavigate_BackToQuery(t *testing.T) {
	h := history.New(history.DefaultCapacity)
	h.Append("foo")
	h.Append("bar")

	if entry, _ := h.Navigate(1, "fo"); entry != "foo" {
		t.Fatalf("Navigate(1, fo) = %q, want foo", entry)
	}

	entry, ok := h.Navigate(-1, "foo")
	if !ok || entry != "fo" {
		t.Errorf("Navigate(-1) = (%q, %v), want (fo, true)", entry, ok)
	}
}

func TestNavigate_EmptyHistory(t *testing.T) {
	h := history.New(history.DefaultCapacity)

	entry, ok := h.Navigate(1, "draft")
	if !ok || entry != "draft" {
		t.Errorf("Navigate(1) = (%q, %v), want (draft, true)", entry, ok)
	}
}

func TestNavigate_ResetByAppend(t *testing.T) {
	h := history.New(history.DefaultCapacity)
	h.Append("a")
	h.Append("b")

	h.Navigate(1, "")
	h.Navigate(1, "b")
	h.Append("c")

	if entry, _ := h.Navigate(1, ""); entry != "c" {
		t.Errorf("Navigate(1) after Append = %q, want c", entry)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		collection []string
		want       []string
	}{
		{
			name:       "compact match first",
			query:      "fb",
			collection: []string{"foo_bar", "baz", "foobar"},
			want:       []string{"foobar", "foo_bar"},
		},
		{
			name:       "case insensitive",
			query:      "AB",
			collection: []string{"xaxb", "ab"},
			want:       []string{"ab", "xaxb"},
		},
		{
			name:       "ties keep original order",
			query:      "a",
			collection: []string{"ba", "ab", "cc"},
			want:       []string{"ba", "ab"},
		},
		{
			name:       "overlapping matches use narrowest",
			query:      "ab",
			collection: []string{"a____ab", "a__b"},
			want:       []string{"a____ab", "a__b"},
		},
		{
			name:       "metacharacters are literal",
			query:      "(.",
			collection: []string{"f(x).y", "fxy"},
			want:       []string{"f(x).y"},
		},
		{
			name:       "empty query matches all",
			query:      "",
			collection: []string{"one", "two"},
			want:       []string{"one", "two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]string, len(tt.collection))
			copy(entries, tt.collection)
			h := history.New(history.DefaultCapacity, history.WithEntries(entries))

			got := h.Search(tt.query)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestNavigate_Filtered(t *testing.T) {
	h := history.New(history.DefaultCapacity, history.WithEntries([]string{"foobar", "baz", "foo_bar"}))

	first, _ := h.Navigate(1, "fb")
	second, _ := h.Navigate(1, first)

	if first != "foobar" || second != "foo_bar" {
		t.Errorf("filtered navigation = [%q %q], want [foobar foo_bar]", first, second)
	}
	if _, ok := h.Navigate(1, second); ok {
		t.Error("Navigate past last match should not move")
	}
}

func TestLoadSave(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())
	ctx := context.Background()

	h := history.New(2)
	h.Append("a")
	h.Append("b")
	h.Append("c")
	if err := h.Save(ctx, store); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded := history.New(2)
	if err := loaded.Load(ctx, store); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"c", "b"}, loaded.Entries()); diff != "" {
		t.Errorf("loaded entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingOrCorrupt(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())
	ctx := context.Background()

	h := history.New(history.DefaultCapacity, history.WithEntries([]string{"stale"}))
	if err := h.Load(ctx, store); err != nil {
		t.Fatalf("Load(missing) failed: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("Len() after missing load = %d, want 0", h.Len())
	}

	if err := store.Save(ctx, memory.KeyHistory, []byte("{not json")); err != nil {
		t.Fatalf("store.Save() failed: %v", err)
	}
	if err := h.Load(ctx, store); err != nil {
		t.Fatalf("Load(corrupt) failed: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("Len() after corrupt load = %d, want 0", h.Len())
	}
}

func TestLoadSave_NilStore(t *testing.T) {
	h := history.New(history.DefaultCapacity)
	if err := h.Save(context.Background(), nil); err != nil {
		t.Errorf("Save(nil) error = %v", err)
	}
	if err := h.Load(context.Background(), nil); err != nil {
		t.Errorf("Load(nil) error = %v", err)
	}
}
