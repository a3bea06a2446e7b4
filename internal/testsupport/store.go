package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"steelloop/internal/config"
	"steelloop/internal/domain"
	"steelloop/internal/infrastructure/storage"
)

// MustOpenStore opens a Store in a temp dir and registers cleanup.
func MustOpenStore(t testing.TB) *storage.Store {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "steelloop.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewProject creates a project in the linking state.
func NewProject(t testing.TB, store *storage.Store, ownerID, name string) domain.Project {
	t.Helper()

	project := domain.Project{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Status:  domain.ProjectLinking,
	}
	if err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("store.CreateProject: %v", err)
	}
	return project
}

// NewItem creates a pipeline item for project with the given status.
func NewItem(t testing.TB, store *storage.Store, project domain.Project, status domain.ItemStatus) domain.PipelineItem {
	t.Helper()

	item := domain.PipelineItem{
		ID:        uuid.NewString(),
		OwnerID:   project.OwnerID,
		ProjectID: project.ID,
		Status:    status,
	}
	if err := store.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("store.CreateItem: %v", err)
	}
	return item
}

// NewSparks stores texts as the sparks of item.
func NewSparks(t testing.TB, store *storage.Store, itemID string, texts ...string) []domain.Spark {
	t.Helper()

	sparks, err := store.SaveSparks(context.Background(), itemID, texts)
	if err != nil {
		t.Fatalf("store.SaveSparks: %v", err)
	}
	return sparks
}

// NewConfig returns the default configuration pointed at a temp database,
// with orchestrator delays shortened for tests.
func NewConfig(t testing.TB) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "steelloop.db")
	cfg.Orchestrator.BaseDelay = time.Millisecond
	cfg.Orchestrator.MaxDelay = time.Millisecond
	cfg.Orchestrator.PollInterval = 10 * time.Millisecond
	return cfg
}
