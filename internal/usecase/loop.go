// Package usecase implements the Steel Loop: the orchestrated jobs that move
// a project from raw documents to scored post drafts, and the user actions
// that gate each stage.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"steelloop/internal/domain"
	"steelloop/internal/orchestrator"
	"steelloop/internal/ports"
	"steelloop/internal/stages"
	"steelloop/internal/vaultaudit"
)

const defaultRefreshBuffer = 5 * time.Minute

// EventSender persists an event for asynchronous delivery. SendWithID
// ignores an id it has already stored.
type EventSender interface {
	Send(ctx context.Context, name string, payload any) (orchestrator.Event, error)
	SendWithID(ctx context.Context, id, name string, payload any) (orchestrator.Event, error)
}

// Deps wires all driven adapters into the Steel Loop.
type Deps struct {
	Projects  ports.ProjectRepository
	Files     ports.FileRepository
	Items     ports.PipelineRepository
	Sparks    ports.SparkRepository
	Drafts    ports.DraftRepository
	Vaults    ports.VaultRepository
	Accounts  ports.AccountRepository
	Drive     ports.CloudDrive
	Extractor ports.TextExtractor
	Publisher ports.Publisher
	Carousel  ports.CarouselRenderer
	Stages    *stages.Runner
	Events    EventSender

	// RefreshBuffer is how close to expiry a cloud token is refreshed.
	RefreshBuffer time.Duration
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Loop implements the Steel Loop jobs and user actions.
type Loop struct {
	projects  ports.ProjectRepository
	files     ports.FileRepository
	items     ports.PipelineRepository
	sparks    ports.SparkRepository
	drafts    ports.DraftRepository
	vaults    ports.VaultRepository
	accounts  ports.AccountRepository
	drive     ports.CloudDrive
	extractor ports.TextExtractor
	publisher ports.Publisher
	carousel  ports.CarouselRenderer
	stages    *stages.Runner
	events    EventSender

	refreshBuffer time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewLoop constructs the Steel Loop component.
func NewLoop(deps Deps) *Loop {
	l := &Loop{
		projects:      deps.Projects,
		files:         deps.Files,
		items:         deps.Items,
		sparks:        deps.Sparks,
		drafts:        deps.Drafts,
		vaults:        deps.Vaults,
		accounts:      deps.Accounts,
		drive:         deps.Drive,
		extractor:     deps.Extractor,
		publisher:     deps.Publisher,
		carousel:      deps.Carousel,
		stages:        deps.Stages,
		events:        deps.Events,
		refreshBuffer: deps.RefreshBuffer,
		logger:        deps.Logger,
		now:           deps.Clock,
	}
	if l.refreshBuffer <= 0 {
		l.refreshBuffer = defaultRefreshBuffer
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Jobs returns the orchestrator jobs of the Steel Loop.
func (l *Loop) Jobs() []orchestrator.Job {
	return []orchestrator.Job{
		{Name: JobIngestFiles, Trigger: EventIngestFiles, Handler: l.ingestFiles, OnFailure: l.failIngestion},
		{Name: JobHookGeneration, Trigger: EventHookGeneration, Handler: l.generateHooks, OnFailure: l.failItem},
		{Name: JobDraftExpansion, Trigger: EventDraftExpansion, Handler: l.expandDrafts, OnFailure: l.failItem},
		{Name: JobBuildCarousel, Trigger: EventBuildCarousel, Handler: l.buildCarousel},
	}
}

// Register adds every job to the engine.
func (l *Loop) Register(engine *orchestrator.Engine) error {
	for _, job := range l.Jobs() {
		if err := engine.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// loadVault returns the user's vault or nil when none is stored.
func (l *Loop) loadVault(ctx context.Context, userID string) (*domain.IdentityVault, error) {
	vault, err := l.vaults.GetVault(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}
	return &vault, nil
}

// typedVault decodes a stored vault for scoring hints; an undecodable vault
// yields nil so scoring falls back to defaults.
func (l *Loop) typedVault(vault *domain.IdentityVault) *vaultaudit.Vault {
	if vault == nil {
		return nil
	}
	decoded, err := vaultaudit.Decode(vault.Data)
	if err != nil {
		l.logger.Warn("vault not usable for scoring", "user_id", vault.UserID, "error", err)
		return nil
	}
	return &decoded
}
