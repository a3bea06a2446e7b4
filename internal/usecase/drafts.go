package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"steelloop/internal/domain"
	"steelloop/internal/lifecycle"
	"steelloop/internal/orchestrator"
	"steelloop/internal/stages"
)

// expandDrafts writes the three scored drafts of an approved spark and marks
// it drafted; the item becomes ready once every live spark is drafted.
func (l *Loop) expandDrafts(ctx context.Context, run *orchestrator.Run, event orchestrator.Event) error {
	var p DraftExpansionPayload
	if err := event.Decode(&p); err != nil {
		return err
	}
	if p.SparkID == "" || p.PipelineItemID == "" {
		return orchestrator.Preconditionf("run-draft-expansion payload is missing ids")
	}
	logger := run.Logger().With("spark_id", p.SparkID, "pipeline_item_id", p.PipelineItemID)

	drafted, err := orchestrator.Step(ctx, run, "check-drafted", func(ctx context.Context) (bool, error) {
		return l.alreadyDrafted(ctx, p.SparkID)
	})
	if err != nil {
		return err
	}
	if drafted {
		logger.Info("spark already drafted, skipping generation")
		_, err := orchestrator.Step(ctx, run, "check-item-ready", func(ctx context.Context) (domain.ItemStatus, error) {
			return l.promoteIfDrafted(ctx, p.PipelineItemID)
		})
		return err
	}

	set, err := orchestrator.Step(ctx, run, "generate-drafts", func(ctx context.Context) (stages.DraftSet, error) {
		return l.generateDrafts(ctx, p)
	})
	if err != nil {
		return err
	}
	if _, err := orchestrator.Step(ctx, run, "save-drafts", func(ctx context.Context) (int, error) {
		return l.saveDrafts(ctx, p, set, logger)
	}); err != nil {
		return err
	}
	status, err := orchestrator.Step(ctx, run, "check-item-ready", func(ctx context.Context) (domain.ItemStatus, error) {
		return l.promoteIfDrafted(ctx, p.PipelineItemID)
	})
	if err != nil {
		return err
	}
	logger.Info("drafts saved", "slides", len(set.Slides), "item_status", string(status))
	return nil
}

// alreadyDrafted reports whether the spark is drafted with one draft per
// length type, in which case expansion has nothing left to do.
func (l *Loop) alreadyDrafted(ctx context.Context, sparkID string) (bool, error) {
	spark, err := l.sparks.GetSpark(ctx, sparkID)
	if err != nil {
		return false, preconditionIfMissing(err)
	}
	if spark.Status != domain.SparkDrafted {
		return false, nil
	}
	drafts, err := l.drafts.ListDrafts(ctx, sparkID)
	if err != nil {
		return false, err
	}
	have := make(map[domain.LengthType]bool, len(drafts))
	for _, d := range drafts {
		have[d.LengthType] = true
	}
	for _, lengthType := range domain.LengthTypes() {
		if !have[lengthType] {
			return false, nil
		}
	}
	return true, nil
}

func (l *Loop) generateDrafts(ctx context.Context, p DraftExpansionPayload) (stages.DraftSet, error) {
	spark, err := l.sparks.GetSpark(ctx, p.SparkID)
	if err != nil {
		return stages.DraftSet{}, preconditionIfMissing(err)
	}
	if spark.Status != domain.SparkApproved && spark.Status != domain.SparkDrafted {
		return stages.DraftSet{}, orchestrator.Preconditionf("spark %s is %s, drafts need an approved spark", spark.ID, spark.Status)
	}
	item, err := l.items.GetItem(ctx, spark.PipelineItemID)
	if err != nil {
		return stages.DraftSet{}, preconditionIfMissing(err)
	}
	if item.ForensicBrief == nil {
		return stages.DraftSet{}, orchestrator.Preconditionf("pipeline item %s has no forensic brief", item.ID)
	}
	vault, err := l.loadVault(ctx, item.OwnerID)
	if err != nil {
		return stages.DraftSet{}, err
	}
	return l.stages.Drafts(ctx, stages.DraftInput{
		Vault:     stages.VaultContext(vault),
		SparkText: spark.Text,
		Brief:     *item.ForensicBrief,
	})
}

// saveDrafts scores and upserts one draft per length type, attaches the
// slides to each, then moves the spark to drafted.
func (l *Loop) saveDrafts(ctx context.Context, p DraftExpansionPayload, set stages.DraftSet, logger *slog.Logger) (int, error) {
	item, err := l.items.GetItem(ctx, p.PipelineItemID)
	if err != nil {
		return 0, preconditionIfMissing(err)
	}
	vault, err := l.loadVault(ctx, item.OwnerID)
	if err != nil {
		return 0, err
	}
	typed := l.typedVault(vault)

	saved := 0
	for _, lengthType := range domain.LengthTypes() {
		content := set.Content(lengthType)
		result := stages.ScoreDraft(content, typed, lengthType)
		score := result.OverallScore

		draft, err := l.drafts.UpsertDraft(ctx, domain.PostDraft{
			SparkID:    p.SparkID,
			LengthType: lengthType,
			Content:    content,
			Score:      &score,
		})
		if err != nil {
			return saved, fmt.Errorf("save %s draft: %w", lengthType, err)
		}
		if draft.Status == domain.DraftDraft && len(set.Slides) > 0 {
			if err := l.drafts.ReplaceSlides(ctx, draft.ID, toCarouselSlides(draft.ID, set.Slides)); err != nil {
				return saved, fmt.Errorf("save %s slides: %w", lengthType, err)
			}
		}
		logger.Debug("draft scored",
			"length_type", string(lengthType),
			"score", score,
			"passed", result.Passed,
			"violations", len(result.Violations))
		saved++
	}

	if err := l.sparks.TransitionSpark(ctx, p.SparkID, domain.SparkDrafted); err != nil {
		return saved, permanentIfIllegal(err)
	}
	return saved, nil
}

func toCarouselSlides(draftID string, slides []stages.Slide) []domain.CarouselSlide {
	out := make([]domain.CarouselSlide, 0, len(slides))
	for _, s := range slides {
		out = append(out, domain.CarouselSlide{
			PostDraftID: draftID,
			SlideNumber: s.Number,
			Headline:    s.Headline,
			Content:     s.Content,
		})
	}
	return out
}

// promoteIfDrafted moves a drafting item to ready when every non-rejected
// spark is drafted, and returns the item's status afterwards.
func (l *Loop) promoteIfDrafted(ctx context.Context, itemID string) (domain.ItemStatus, error) {
	item, err := l.items.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if item.Status != domain.ItemDrafting {
		return item.Status, nil
	}
	sparks, err := l.sparks.ListSparks(ctx, itemID)
	if err != nil {
		return "", err
	}
	if !lifecycle.DraftingComplete(sparks) {
		return item.Status, nil
	}
	if err := l.items.TransitionItem(ctx, itemID, domain.ItemReady); err != nil {
		return "", permanentIfIllegal(err)
	}
	return domain.ItemReady, nil
}
