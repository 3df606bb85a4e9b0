package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/spaceai-assistant/internal/domain"
	"github.com/xela07ax/spaceai-assistant/internal/memory"
)

// MemoryTools: обработчики несенситивных capability поверх памяти и списка задач.
type MemoryTools struct {
	store *memory.VectorStore
	tasks *memory.TaskStore
}

func NewMemoryTools(store *memory.VectorStore, tasks *memory.TaskStore) *MemoryTools {
	return &MemoryTools{store: store, tasks: tasks}
}

func metadataOf(args domain.Arguments) map[string]any {
	m, _ := args["metadata"].(map[string]any)
	return m
}

func (m *MemoryTools) Remember(ctx context.Context, args domain.Arguments) domain.Result {
	rec := m.store.Add(ctx, args.String("content"), metadataOf(args), memory.TypeNote)
	return domain.Result{"status": domain.StatusOK, "memory_id": rec.ID, "content": rec.Content}
}

func (m *MemoryTools) StoreSummary(ctx context.Context, args domain.Arguments) domain.Result {
	rec := m.store.Add(ctx, args.String("content"), metadataOf(args), memory.TypeSummary)
	return domain.Result{"status": domain.StatusOK, "summary_id": rec.ID, "content": rec.Content}
}

func (m *MemoryTools) IndexDocument(ctx context.Context, args domain.Arguments) domain.Result {
	rec := m.store.IndexDocument(ctx, args.String("content"), metadataOf(args))
	return domain.Result{"status": domain.StatusOK, "document_id": rec.ID, "content": rec.Content}
}

func (m *MemoryTools) Recall(ctx context.Context, args domain.Arguments) domain.Result {
	matches := m.store.Search(ctx, args.String("query"), intOf(args["limit"], 5), args.String("memory_type"))
	return domain.Result{"status": domain.StatusOK, "matches": matches}
}

func (m *MemoryTools) Forget(ctx context.Context, args domain.Arguments) domain.Result {
	filter := memory.ForgetFilter{
		Type:     args.String("memory_type"),
		Tag:      args.String("tag"),
		PurgeAll: args.Bool("purge_all"),
	}
	if ids, ok := args["ids"]; ok {
		filter.IDs = stringsOf(ids)
	}
	if before := args.String("before"); before != "" {
		ts, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return domain.ErrorResult(fmt.Sprintf("Invalid 'before' timestamp: %s", before))
		}
		filter.Before = &ts
	}

	removed := m.store.Forget(ctx, filter)
	return domain.Result{"status": domain.StatusOK, "removed": removed}
}

func (m *MemoryTools) Export(ctx context.Context, _ domain.Arguments) domain.Result {
	return domain.Result{"status": domain.StatusOK, "memories": m.store.Export(ctx)}
}

func (m *MemoryTools) CreateTask(ctx context.Context, args domain.Arguments) domain.Result {
	task := m.tasks.Add(ctx, stringOr(args, "title", "Untitled task"), args.String("status"), metadataOf(args))
	return domain.Result{"status": domain.StatusOK, "task_id": task.ID, "title": task.Title, "task_status": task.Status}
}
