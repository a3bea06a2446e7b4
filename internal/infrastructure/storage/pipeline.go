package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"steelloop/internal/domain"
	"steelloop/internal/lifecycle"
	"steelloop/internal/ports"
)

var (
	_ ports.PipelineRepository = (*Store)(nil)
	_ ports.SparkRepository    = (*Store)(nil)
)

var itemColumns = []string{"id", "owner_id", "project_id", "status", "forensic_brief", "created_at", "updated_at"}

func scanItem(row rowScanner) (domain.PipelineItem, error) {
	var (
		item               domain.PipelineItem
		status             string
		brief              sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &item.ProjectID, &status, &brief, &createdAt, &updated); err != nil {
		return domain.PipelineItem{}, err
	}
	item.Status = domain.ItemStatus(status)
	item.ForensicBrief = stringPtr(brief)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updated)
	return item, nil
}

// CreateItem inserts a pipeline item.
func (s *Store) CreateItem(ctx context.Context, item domain.PipelineItem) error {
	if item.ID == "" {
		return fmt.Errorf("create pipeline item: id is required")
	}
	ts := now()
	_, err := s.exec(ctx, sq.Insert("pipeline_items").
		Columns(itemColumns...).
		Values(item.ID, item.OwnerID, item.ProjectID, string(item.Status), item.ForensicBrief, ts, ts))
	if err != nil {
		return fmt.Errorf("insert pipeline item: %w", err)
	}
	return nil
}

// GetItem loads a pipeline item by id.
func (s *Store) GetItem(ctx context.Context, id string) (domain.PipelineItem, error) {
	row, err := s.queryRow(ctx, sq.Select(itemColumns...).From("pipeline_items").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.PipelineItem{}, err
	}
	item, err := scanItem(row)
	if err != nil {
		return domain.PipelineItem{}, notFound("pipeline item", id, err)
	}
	return item, nil
}

// ListItems returns items matching filter, newest first.
func (s *Store) ListItems(ctx context.Context, filter ports.ItemFilter) ([]domain.PipelineItem, error) {
	stmt := sq.Select(itemColumns...).From("pipeline_items").OrderBy("created_at DESC")
	if filter.OwnerID != "" {
		stmt = stmt.Where(sq.Eq{"owner_id": filter.OwnerID})
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where(sq.Eq{"status": toStrings(filter.Statuses)})
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(uint64(filter.Limit))
	}
	rows, err := s.query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list pipeline items: %w", err)
	}
	return collect(rows, scanItem)
}

// TransitionItem moves an item along its lifecycle.
func (s *Store) TransitionItem(ctx context.Context, id string, to domain.ItemStatus) error {
	return s.transition(ctx, "pipeline_items", "pipeline item", id, string(to), toStrings(lifecycle.ItemSources(to)))
}

// SetForensicBrief writes the brief only if none is stored yet.
func (s *Store) SetForensicBrief(ctx context.Context, id, brief string) (bool, error) {
	res, err := s.exec(ctx, sq.Update("pipeline_items").
		Set("forensic_brief", brief).
		Set("updated_at", now()).
		Where(sq.And{sq.Eq{"id": id}, sq.Eq{"forensic_brief": nil}}))
	if err != nil {
		return false, fmt.Errorf("set forensic brief: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if err := s.exists(ctx, "pipeline_items", "pipeline item", id); err != nil {
		return false, err
	}
	return false, nil
}

var sparkColumns = []string{"id", "pipeline_item_id", "spark_text", "sort_order", "status", "created_at", "updated_at"}

func scanSpark(row rowScanner) (domain.Spark, error) {
	var (
		spark              domain.Spark
		status             string
		createdAt, updated string
	)
	if err := row.Scan(&spark.ID, &spark.PipelineItemID, &spark.Text, &spark.SortOrder, &status, &createdAt, &updated); err != nil {
		return domain.Spark{}, err
	}
	spark.Status = domain.SparkStatus(status)
	spark.CreatedAt = parseTime(createdAt)
	spark.UpdatedAt = parseTime(updated)
	return spark, nil
}

// SaveSparks stores up to MaxSparksPerItem texts with sortOrder 1..n in one
// transaction. Existing (item, sortOrder) rows are kept, so a replay cannot
// duplicate or reorder sparks.
func (s *Store) SaveSparks(ctx context.Context, itemID string, texts []string) ([]domain.Spark, error) {
	if len(texts) > domain.MaxSparksPerItem {
		return nil, fmt.Errorf("save sparks: %d exceeds limit of %d", len(texts), domain.MaxSparksPerItem)
	}
	if len(texts) > 0 {
		ts := now()
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			for i, text := range texts {
				stmt := sq.Insert("sparks").
					Columns(sparkColumns...).
					Values(uuid.NewString(), itemID, text, i+1, string(domain.SparkPending), ts, ts).
					Suffix("ON CONFLICT (pipeline_item_id, sort_order) DO NOTHING")
				if err := execTx(ctx, tx, stmt); err != nil {
					return fmt.Errorf("insert spark %d: %w", i+1, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("save sparks: %w", err)
		}
	}
	return s.ListSparks(ctx, itemID)
}

// GetSpark loads a spark by id.
func (s *Store) GetSpark(ctx context.Context, id string) (domain.Spark, error) {
	row, err := s.queryRow(ctx, sq.Select(sparkColumns...).From("sparks").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Spark{}, err
	}
	spark, err := scanSpark(row)
	if err != nil {
		return domain.Spark{}, notFound("spark", id, err)
	}
	return spark, nil
}

// ListSparks returns an item's sparks by sortOrder.
func (s *Store) ListSparks(ctx context.Context, itemID string) ([]domain.Spark, error) {
	rows, err := s.query(ctx, sq.Select(sparkColumns...).From("sparks").
		Where(sq.Eq{"pipeline_item_id": itemID}).
		OrderBy("sort_order"))
	if err != nil {
		return nil, fmt.Errorf("list sparks: %w", err)
	}
	return collect(rows, scanSpark)
}

// TransitionSpark moves a spark along its lifecycle.
func (s *Store) TransitionSpark(ctx context.Context, id string, to domain.SparkStatus) error {
	return s.transition(ctx, "sparks", "spark", id, string(to), toStrings(lifecycle.SparkSources(to)))
}
