package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	a := Embed("Buy milk", 64)
	b := Embed("buy   MILK!", 64)
	require.Len(t, a, 64)
	assert.Equal(t, a, b, "case and punctuation must not matter")

	var norm float64
	for _, x := range a {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)

	empty := Embed("", 8)
	assert.Equal(t, make([]float64, 8), empty)
}

func TestVectorStore_SearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(0)

	milk := s.Add(ctx, "remember to buy milk", nil, "")
	s.Add(ctx, "the meeting with the design team is on friday", nil, "")
	s.Add(ctx, "quarterly summary of the roadmap", nil, TypeSummary)

	got := s.Search(ctx, "buy milk", 2, "")
	require.NotEmpty(t, got)
	assert.Equal(t, milk.ID, got[0].ID)
	assert.Greater(t, got[0].Score, 0.5)
	assert.LessOrEqual(t, len(got), 2)

	summaries := s.Search(ctx, "roadmap", 10, TypeSummary)
	require.Len(t, summaries, 1)
	assert.Equal(t, TypeSummary, summaries[0].Metadata["type"])
}

func TestVectorStore_AddMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(0)

	rec := s.Add(ctx, "x", map[string]any{"source": "chat"}, "")
	assert.Equal(t, TypeNote, rec.Metadata["type"])
	assert.Equal(t, "chat", rec.Metadata["source"])

	doc := s.IndexDocument(ctx, "release notes", nil)
	assert.Equal(t, TypeDocument, doc.Metadata["type"])
}

func TestVectorStore_Forget(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	newStore := func() (*VectorStore, []Record) {
		s := NewVectorStore(16)
		tick := base
		s.now = func() time.Time { tick = tick.Add(time.Hour); return tick }
		recs := []Record{
			s.Add(ctx, "a", map[string]any{"tags": []any{"work"}}, ""),
			s.Add(ctx, "b", map[string]any{"tags": []string{"home"}}, TypeSummary),
			s.Add(ctx, "c", map[string]any{"tags": "work"}, TypeDocument),
		}
		return s, recs
	}

	cutoff := base.Add(2 * time.Hour)
	tests := []struct {
		name    string
		filter  func([]Record) ForgetFilter
		removed int
	}{
		{"empty filter is a no-op", func([]Record) ForgetFilter { return ForgetFilter{} }, 0},
		{"by ids", func(r []Record) ForgetFilter { return ForgetFilter{IDs: []string{r[0].ID, r[2].ID}} }, 2},
		{"by type", func([]Record) ForgetFilter { return ForgetFilter{Type: TypeSummary} }, 1},
		{"by tag", func([]Record) ForgetFilter { return ForgetFilter{Tag: "work"} }, 2},
		{"by tag and type", func([]Record) ForgetFilter { return ForgetFilter{Tag: "work", Type: TypeDocument} }, 1},
		{"before", func([]Record) ForgetFilter { return ForgetFilter{Before: &cutoff} }, 1},
		{"purge all", func([]Record) ForgetFilter { return ForgetFilter{PurgeAll: true} }, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, recs := newStore()
			assert.Equal(t, tt.removed, s.Forget(ctx, tt.filter(recs)))
			assert.Len(t, s.Export(ctx), 3-tt.removed)
		})
	}
}

func TestVectorStore_ExportIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(0)
	s.Add(ctx, "a", nil, "")

	out := s.Export(ctx)
	out[0].Metadata["type"] = "hacked"

	assert.Equal(t, TypeNote, s.Export(ctx)[0].Metadata["type"])
}

func TestTaskStore(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	first := s.Add(ctx, "buy milk", "", nil)
	second := s.Add(ctx, "call mom", "done", map[string]any{"p": 1})

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, TaskOpen, first.Status)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, "done", second.Status)

	list := s.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "buy milk", list[0].Title)
	assert.NotNil(t, list[0].Metadata)
}
