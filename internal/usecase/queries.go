package usecase

import (
	"context"
	"errors"
	"fmt"

	"steelloop/internal/domain"
	"steelloop/internal/ports"
	"steelloop/internal/qualitygate"
	"steelloop/internal/stages"
	"steelloop/internal/vaultaudit"
)

// ItemDetail is a pipeline item with its sparks.
type ItemDetail struct {
	Item   domain.PipelineItem
	Sparks []domain.Spark
}

// DraftDetail is a draft with its carousel slides.
type DraftDetail struct {
	Draft  domain.PostDraft
	Slides []domain.CarouselSlide
}

// ListProjects returns the owner's projects.
func (l *Loop) ListProjects(ctx context.Context, ownerID string) ([]domain.Project, error) {
	return l.projects.ListProjects(ctx, ownerID)
}

// ListItems returns the owner's pipeline items, newest first.
func (l *Loop) ListItems(ctx context.Context, ownerID string, statuses []domain.ItemStatus, limit int) ([]domain.PipelineItem, error) {
	return l.items.ListItems(ctx, ports.ItemFilter{OwnerID: ownerID, Statuses: statuses, Limit: limit})
}

// Item returns an owned item with its sparks.
func (l *Loop) Item(ctx context.Context, ownerID, itemID string) (ItemDetail, error) {
	item, err := l.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return ItemDetail{}, err
	}
	sparks, err := l.sparks.ListSparks(ctx, itemID)
	if err != nil {
		return ItemDetail{}, err
	}
	return ItemDetail{Item: item, Sparks: sparks}, nil
}

// SparkDrafts returns the drafts of an owned spark with their slides.
func (l *Loop) SparkDrafts(ctx context.Context, ownerID, sparkID string) ([]DraftDetail, error) {
	if _, _, err := l.ownedSpark(ctx, ownerID, sparkID); err != nil {
		return nil, err
	}
	drafts, err := l.drafts.ListDrafts(ctx, sparkID)
	if err != nil {
		return nil, err
	}
	out := make([]DraftDetail, 0, len(drafts))
	for _, d := range drafts {
		slides, err := l.drafts.ListSlides(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, DraftDetail{Draft: d, Slides: slides})
	}
	return out, nil
}

// Vault returns the user's stored vault and a fresh audit of it.
func (l *Loop) Vault(ctx context.Context, userID string) (domain.IdentityVault, vaultaudit.Result, error) {
	vault, err := l.vaults.GetVault(ctx, userID)
	if err != nil {
		return domain.IdentityVault{}, vaultaudit.Result{}, err
	}
	return vault, vaultaudit.Audit(vault.Data), nil
}

// Score runs the quality gate over content with the user's vault hints.
func (l *Loop) Score(ctx context.Context, userID, content string, lengthType domain.LengthType) (qualitygate.Result, error) {
	vault, err := l.loadVault(ctx, userID)
	if err != nil {
		return qualitygate.Result{}, err
	}
	return stages.ScoreDraft(content, l.typedVault(vault), lengthType), nil
}

func (l *Loop) ownedProject(ctx context.Context, ownerID, id string) (domain.Project, error) {
	project, err := l.projects.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, err
	}
	if project.OwnerID != ownerID {
		return domain.Project{}, notOwned("project", id)
	}
	return project, nil
}

func (l *Loop) ownedItem(ctx context.Context, ownerID, id string) (domain.PipelineItem, error) {
	item, err := l.items.GetItem(ctx, id)
	if err != nil {
		return domain.PipelineItem{}, err
	}
	if item.OwnerID != ownerID {
		return domain.PipelineItem{}, notOwned("pipeline item", id)
	}
	return item, nil
}

func (l *Loop) ownedSpark(ctx context.Context, ownerID, id string) (domain.Spark, domain.PipelineItem, error) {
	spark, err := l.sparks.GetSpark(ctx, id)
	if err != nil {
		return domain.Spark{}, domain.PipelineItem{}, err
	}
	item, err := l.items.GetItem(ctx, spark.PipelineItemID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && item.OwnerID != ownerID) {
		return domain.Spark{}, domain.PipelineItem{}, notOwned("spark", id)
	}
	if err != nil {
		return domain.Spark{}, domain.PipelineItem{}, err
	}
	return spark, item, nil
}

func (l *Loop) ownedDraft(ctx context.Context, ownerID, id string) (domain.PostDraft, error) {
	draft, err := l.drafts.GetDraft(ctx, id)
	if err != nil {
		return domain.PostDraft{}, err
	}
	if _, _, err := l.ownedSpark(ctx, ownerID, draft.SparkID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PostDraft{}, notOwned("post draft", id)
		}
		return domain.PostDraft{}, err
	}
	return draft, nil
}

// notOwned hides whether the row exists.
func notOwned(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}
