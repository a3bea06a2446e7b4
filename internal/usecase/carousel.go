package usecase

import (
	"context"

	"steelloop/internal/orchestrator"
)

const (
	carouselRendered = "rendered"
	carouselSkipped  = "skipped"
)

// buildCarousel renders an approved draft's slides to HTML. It is best-effort
// and has no failure handler: the draft is usable without a carousel.
func (l *Loop) buildCarousel(ctx context.Context, run *orchestrator.Run, event orchestrator.Event) error {
	var p BuildCarouselPayload
	if err := event.Decode(&p); err != nil {
		return err
	}
	if p.PostDraftID == "" {
		return orchestrator.Preconditionf("build-carousel payload is missing the draft id")
	}

	outcome, err := orchestrator.Step(ctx, run, "render-carousel", func(ctx context.Context) (string, error) {
		if _, err := l.drafts.GetDraft(ctx, p.PostDraftID); err != nil {
			return "", preconditionIfMissing(err)
		}
		slides, err := l.drafts.ListSlides(ctx, p.PostDraftID)
		if err != nil {
			return "", err
		}
		if len(slides) == 0 {
			return carouselSkipped, nil
		}
		html, err := l.carousel.Render(slides)
		if err != nil {
			return "", orchestrator.Permanent(err)
		}
		if err := l.drafts.SetCarouselHTML(ctx, p.PostDraftID, html); err != nil {
			return "", err
		}
		return carouselRendered, nil
	})
	if err != nil {
		return err
	}
	run.Logger().Info("carousel processed", "post_draft_id", p.PostDraftID, "outcome", outcome)
	return nil
}
