package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"steelloop/internal/domain"
	"steelloop/internal/lifecycle"
	"steelloop/internal/ports"
)

var _ ports.DraftRepository = (*Store)(nil)

var draftColumns = []string{
	"id", "spark_id", "length_type", "content", "score", "status",
	"published_at", "external_post_id", "carousel_html", "created_at", "updated_at",
}

func scanDraft(row rowScanner) (domain.PostDraft, error) {
	var (
		d                    domain.PostDraft
		lengthType, status   string
		score                sql.NullInt64
		publishedAt          sql.NullString
		externalID, carousel sql.NullString
		createdAt, updated   string
	)
	if err := row.Scan(&d.ID, &d.SparkID, &lengthType, &d.Content, &score, &status,
		&publishedAt, &externalID, &carousel, &createdAt, &updated); err != nil {
		return domain.PostDraft{}, err
	}
	d.LengthType = domain.LengthType(lengthType)
	d.Status = domain.DraftStatus(status)
	if score.Valid {
		v := int(score.Int64)
		d.Score = &v
	}
	d.PublishedAt = timePtr(publishedAt)
	d.ExternalPostID = externalID.String
	d.CarouselHTML = carousel.String
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updated)
	return d, nil
}

// UpsertDraft inserts the draft for (spark, lengthType) or, while it is still
// a draft, refreshes its content and score.
func (s *Store) UpsertDraft(ctx context.Context, draft domain.PostDraft) (domain.PostDraft, error) {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.Status == "" {
		draft.Status = domain.DraftDraft
	}
	ts := now()
	_, err := s.exec(ctx, sq.Insert("post_drafts").
		Columns("id", "spark_id", "length_type", "content", "score", "status", "created_at", "updated_at").
		Values(draft.ID, draft.SparkID, string(draft.LengthType), draft.Content, draft.Score, string(draft.Status), ts, ts).
		Suffix(`ON CONFLICT (spark_id, length_type) DO UPDATE SET
			content = excluded.content,
			score = excluded.score,
			updated_at = excluded.updated_at
			WHERE post_drafts.status = 'draft'`))
	if err != nil {
		return domain.PostDraft{}, fmt.Errorf("upsert post draft: %w", err)
	}

	row, err := s.queryRow(ctx, sq.Select(draftColumns...).From("post_drafts").Where(sq.Eq{
		"spark_id":    draft.SparkID,
		"length_type": string(draft.LengthType),
	}))
	if err != nil {
		return domain.PostDraft{}, err
	}
	stored, err := scanDraft(row)
	if err != nil {
		return domain.PostDraft{}, fmt.Errorf("reload post draft: %w", err)
	}
	return stored, nil
}

// GetDraft loads a draft by id.
func (s *Store) GetDraft(ctx context.Context, id string) (domain.PostDraft, error) {
	row, err := s.queryRow(ctx, sq.Select(draftColumns...).From("post_drafts").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.PostDraft{}, err
	}
	d, err := scanDraft(row)
	if err != nil {
		return domain.PostDraft{}, notFound("post draft", id, err)
	}
	return d, nil
}

// ListDrafts returns a spark's drafts ordered short, medium, long.
func (s *Store) ListDrafts(ctx context.Context, sparkID string) ([]domain.PostDraft, error) {
	rows, err := s.query(ctx, sq.Select(draftColumns...).From("post_drafts").
		Where(sq.Eq{"spark_id": sparkID}).
		OrderBy("CASE length_type WHEN 'short' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END"))
	if err != nil {
		return nil, fmt.Errorf("list post drafts: %w", err)
	}
	return collect(rows, scanDraft)
}

// TransitionDraft moves a draft along its lifecycle.
func (s *Store) TransitionDraft(ctx context.Context, id string, to domain.DraftStatus) error {
	return s.transition(ctx, "post_drafts", "post draft", id, string(to), toStrings(lifecycle.DraftSources(to)))
}

// MarkPublished records a successful publish of an approved draft.
func (s *Store) MarkPublished(ctx context.Context, id, externalPostID string, at time.Time) error {
	res, err := s.exec(ctx, sq.Update("post_drafts").
		Set("status", string(domain.DraftPublished)).
		Set("published_at", stamp(at)).
		Set("external_post_id", externalPostID).
		Set("updated_at", now()).
		Where(sq.Eq{"id": id, "status": string(domain.DraftApproved)}))
	if err != nil {
		return fmt.Errorf("mark draft published: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	d, err := s.GetDraft(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: post draft %s is %s, cannot move to %s",
		lifecycle.ErrIllegalTransition, id, d.Status, domain.DraftPublished)
}

// ReplaceSlides swaps a draft's carousel slides in one transaction.
func (s *Store) ReplaceSlides(ctx context.Context, draftID string, slides []domain.CarouselSlide) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := execTx(ctx, tx, sq.Delete("carousel_slides").Where(sq.Eq{"post_draft_id": draftID})); err != nil {
			return fmt.Errorf("clear slides: %w", err)
		}
		if len(slides) == 0 {
			return nil
		}
		insert := sq.Insert("carousel_slides").Columns("post_draft_id", "slide_number", "headline", "content")
		for _, slide := range slides {
			insert = insert.Values(draftID, slide.SlideNumber, slide.Headline, slide.Content)
		}
		if err := execTx(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert slides: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace carousel slides: %w", err)
	}
	return nil
}

// ListSlides returns a draft's slides by number.
func (s *Store) ListSlides(ctx context.Context, draftID string) ([]domain.CarouselSlide, error) {
	rows, err := s.query(ctx, sq.Select("post_draft_id", "slide_number", "headline", "content").
		From("carousel_slides").
		Where(sq.Eq{"post_draft_id": draftID}).
		OrderBy("slide_number"))
	if err != nil {
		return nil, fmt.Errorf("list carousel slides: %w", err)
	}
	return collect(rows, func(row rowScanner) (domain.CarouselSlide, error) {
		var slide domain.CarouselSlide
		err := row.Scan(&slide.PostDraftID, &slide.SlideNumber, &slide.Headline, &slide.Content)
		return slide, err
	})
}

// SetCarouselHTML stores the rendered carousel of a draft.
func (s *Store) SetCarouselHTML(ctx context.Context, draftID, html string) error {
	res, err := s.exec(ctx, sq.Update("post_drafts").
		Set("carousel_html", html).
		Set("updated_at", now()).
		Where(sq.Eq{"id": draftID}))
	if err != nil {
		return fmt.Errorf("set carousel html: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("post draft %s: %w", draftID, domain.ErrNotFound)
	}
	return nil
}
