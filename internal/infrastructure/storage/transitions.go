package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"steelloop/internal/lifecycle"
)

// transition performs a conditional status update keyed on the entity id and
// the legal source statuses. An entity already at the target status is left
// alone, so replayed steps succeed.
func (s *Store) transition(ctx context.Context, table, kind, id, to string, from []string) error {
	res, err := s.exec(ctx, sq.Update(table).
		Set("status", to).
		Set("updated_at", now()).
		Where(sq.Eq{"id": id, "status": from}))
	if err != nil {
		return fmt.Errorf("update %s status: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s status: %w", kind, err)
	}
	if affected > 0 {
		return nil
	}

	row, err := s.queryRow(ctx, sq.Select("status").From(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	var current string
	if err := row.Scan(&current); err != nil {
		return notFound(kind, id, err)
	}
	if current == to {
		return nil
	}
	return fmt.Errorf("%w: %s %s is %s, cannot move to %s", lifecycle.ErrIllegalTransition, kind, id, current, to)
}

func (s *Store) exists(ctx context.Context, table, kind, id string) error {
	row, err := s.queryRow(ctx, sq.Select("1").From(table).Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	var one int
	if err := row.Scan(&one); err != nil {
		return notFound(kind, id, err)
	}
	return nil
}

