package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lumarkic/volonterko/internal/model"
)

// TagRepo provides persistence for tags and the action_tags join table.
type TagRepo struct {
	db *sql.DB
}

// NewTagRepo returns a new TagRepo bound to the given database.
func NewTagRepo(db *sql.DB) *TagRepo { return &TagRepo{db: db} }

// List returns all tags ordered by name.
func (r *TagRepo) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ForAction returns the tags attached to an action, ordered by name.
func (r *TagRepo) ForAction(ctx context.Context, actionID uint64) ([]model.Tag, error) {
	const q = `SELECT t.id, t.name FROM tags t
	           JOIN action_tags at ON at.tag_id = t.id
	           WHERE at.action_id = ?
	           ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, q, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Tag, 0)
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetForAction replaces an action's tag set with the given names inside
// one transaction.  Unknown tags are created on the fly; names are
// trimmed and deduplicated case-insensitively.
func (r *TagRepo) SetForAction(ctx context.Context, actionID uint64, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM action_tags WHERE action_id = ?", actionID); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		var tagID uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM tags WHERE name = ?", name).Scan(&tagID)
		if err == sql.ErrNoRows {
			res, insErr := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
			if insErr != nil {
				return insErr
			}
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return idErr
			}
			tagID = uint64(id)
		} else if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO action_tags (action_id, tag_id) VALUES (?, ?)", actionID, tagID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
