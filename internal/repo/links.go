package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smartstart/internal/domain"
)

const linkColumns = `id,parent_id,student_id,status,created_at,updated_at`

func scanLink(row interface{ Scan(...any) error }) (domain.ParentLink, error) {
	var l domain.ParentLink
	err := row.Scan(&l.ID, &l.ParentID, &l.StudentID, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r Repo) InsertLinkTx(ctx context.Context, tx *sql.Tx, l domain.ParentLink) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO parent_links(`+linkColumns+`) VALUES (?,?,?,?,?,?)`,
		l.ID, l.ParentID, l.StudentID, l.Status, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r Repo) GetLink(ctx context.Context, id string) (domain.ParentLink, error) {
	l, err := scanLink(r.DB.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM parent_links WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("link %s: %w", id, ErrNotFound)
	}
	return l, err
}

// FindLink looks up the link between a parent and a student, if any.
func (r Repo) FindLink(ctx context.Context, parentID, studentID string) (domain.ParentLink, error) {
	l, err := scanLink(r.DB.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM parent_links WHERE parent_id=? AND student_id=?`, parentID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("link %s/%s: %w", parentID, studentID, ErrNotFound)
	}
	return l, err
}

func (r Repo) UpdateLinkStatusTx(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE parent_links SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("link %s: %w", id, ErrNotFound)
	}
	return nil
}

// AcceptedStudentIDs lists students a parent may view, in link creation order.
func (r Repo) AcceptedStudentIDs(ctx context.Context, parentID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT student_id FROM parent_links WHERE parent_id=? AND status=? ORDER BY created_at, id`,
		parentID, domain.LinkAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
