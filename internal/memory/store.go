package memory

/*
Файл store.go: in-process замена внешнему векторному хранилищу.
Контракт повторяет внешний бэкенд: add, search (cosine), forget по фильтру, export.
*/

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы записей в metadata["type"]
const (
	TypeNote     = "note"
	TypeSummary  = "summary"
	TypeDocument = "document"
)

type Record struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`

	vector []float64
}

type Match struct {
	ID        string         `json:"id"`
	Score     float64        `json:"score"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// ForgetFilter: IDs имеют приоритет над остальными условиями, которые объединяются по AND.
// Пустой фильтр без PurgeAll ничего не удаляет.
type ForgetFilter struct {
	IDs      []string
	Type     string
	Tag      string
	Before   *time.Time
	PurgeAll bool
}

type VectorStore struct {
	mu      sync.RWMutex
	records []*Record
	dims    int
	now     func() time.Time
}

func NewVectorStore(dims int) *VectorStore {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &VectorStore{
		dims: dims,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Add сохраняет запись. memoryType кладется в metadata["type"] и перекрывается metadata.
func (s *VectorStore) Add(_ context.Context, content string, metadata map[string]any, memoryType string) Record {
	if memoryType == "" {
		memoryType = TypeNote
	}
	meta := map[string]any{"type": memoryType}
	maps.Copy(meta, metadata)

	rec := &Record{
		ID:        uuid.New().String(),
		Content:   content,
		Metadata:  meta,
		CreatedAt: s.now(),
		vector:    Embed(content, s.dims),
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	return rec.public()
}

func (s *VectorStore) IndexDocument(ctx context.Context, content string, metadata map[string]any) Record {
	return s.Add(ctx, content, metadata, TypeDocument)
}

// Search возвращает до limit записей, отсортированных по убыванию cosine similarity.
func (s *VectorStore) Search(_ context.Context, query string, limit int, memoryType string) []Match {
	if limit <= 0 {
		limit = 5
	}
	q := Embed(query, s.dims)

	s.mu.RLock()
	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if memoryType != "" && rec.Metadata["type"] != memoryType {
			continue
		}
		matches = append(matches, Match{
			ID:        rec.ID,
			Score:     cosine(q, rec.vector),
			Content:   rec.Content,
			Metadata:  maps.Clone(rec.Metadata),
			CreatedAt: rec.CreatedAt,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Forget удаляет записи по фильтру и возвращает их количество.
func (s *VectorStore) Forget(_ context.Context, f ForgetFilter) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var match func(*Record) bool
	switch {
	case f.PurgeAll:
		match = func(*Record) bool { return true }
	case len(f.IDs) > 0:
		match = func(r *Record) bool { return slices.Contains(f.IDs, r.ID) }
	case f.Type != "" || f.Tag != "" || f.Before != nil:
		match = func(r *Record) bool {
			if f.Type != "" && r.Metadata["type"] != f.Type {
				return false
			}
			if f.Tag != "" && !hasTag(r.Metadata["tags"], f.Tag) {
				return false
			}
			if f.Before != nil && !r.CreatedAt.Before(*f.Before) {
				return false
			}
			return true
		}
	default:
		return 0
	}

	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, match)
	return before - len(s.records)
}

// Export отдает все записи в порядке добавления.
func (s *VectorStore) Export(_ context.Context) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.public())
	}
	return out
}

func (r *Record) public() Record {
	return Record{
		ID:        r.ID,
		Content:   r.Content,
		Metadata:  maps.Clone(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
}

func hasTag(v any, tag string) bool {
	switch tags := v.(type) {
	case string:
		return tags == tag
	case []string:
		return slices.Contains(tags, tag)
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && s == tag {
				return true
			}
		}
	}
	return false
}
