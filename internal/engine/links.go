package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"smartstart/internal/domain"
	"smartstart/internal/events"
	"smartstart/internal/repo"
)

// RequestLink asks to link a parent to a student. A previously rejected request is reopened.
func (e Engine) RequestLink(ctx context.Context, parentID, studentID string) (domain.ParentLink, error) {
	if strings.TrimSpace(parentID) == "" {
		return domain.ParentLink{}, &ValidationError{Field: "parent_id", Reason: "is required"}
	}
	if parentID == studentID {
		return domain.ParentLink{}, &ValidationError{Field: "student_id", Reason: "cannot link a student to themselves"}
	}
	if _, err := e.Repo.GetStudent(ctx, studentID); err != nil {
		return domain.ParentLink{}, err
	}
	stamp := repo.FormatTime(e.now())

	existing, err := e.Repo.FindLink(ctx, parentID, studentID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return domain.ParentLink{}, err
	case existing.Status == domain.LinkAccepted:
		return domain.ParentLink{}, fmt.Errorf("already linked to %s: %w", studentID, ErrLinkConflict)
	case existing.Status == domain.LinkPending:
		return domain.ParentLink{}, fmt.Errorf("request to %s already pending: %w", studentID, ErrLinkConflict)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ParentLink{}, err
	}
	defer tx.Rollback()

	link := existing
	if link.ID != "" {
		if err := e.Repo.UpdateLinkStatusTx(ctx, tx, link.ID, domain.LinkPending, stamp); err != nil {
			return domain.ParentLink{}, err
		}
		link.Status = domain.LinkPending
		link.UpdatedAt = stamp
	} else {
		link = domain.ParentLink{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(parentID+"|"+studentID)).String(),
			ParentID:  parentID,
			StudentID: studentID,
			Status:    domain.LinkPending,
			CreatedAt: stamp,
			UpdatedAt: stamp,
		}
		if err := e.Repo.InsertLinkTx(ctx, tx, link); err != nil {
			return domain.ParentLink{}, fmt.Errorf("insert link: %w", err)
		}
	}
	if err := e.eventWriter().Append(ctx, tx, events.LinkRequested, studentID, "link", link.ID, events.Payload{"parent_id": parentID}); err != nil {
		return domain.ParentLink{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ParentLink{}, err
	}
	return link, nil
}

// RespondLink lets the student accept or reject a pending request addressed to them.
func (e Engine) RespondLink(ctx context.Context, studentID, linkID, status string) (domain.ParentLink, error) {
	if status != domain.LinkAccepted && status != domain.LinkRejected {
		return domain.ParentLink{}, &ValidationError{Field: "status", Reason: "must be accepted or rejected"}
	}
	link, err := e.Repo.GetLink(ctx, linkID)
	if err != nil {
		return domain.ParentLink{}, err
	}
	if link.StudentID != studentID {
		return domain.ParentLink{}, fmt.Errorf("link %s for student %s: %w", linkID, studentID, repo.ErrNotFound)
	}
	if link.Status != domain.LinkPending {
		return domain.ParentLink{}, fmt.Errorf("link %s already %s: %w", linkID, link.Status, ErrLinkConflict)
	}
	stamp := repo.FormatTime(e.now())

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ParentLink{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateLinkStatusTx(ctx, tx, linkID, status, stamp); err != nil {
		return domain.ParentLink{}, err
	}
	if err := e.eventWriter().Append(ctx, tx, events.LinkResponded, studentID, "link", linkID, events.Payload{
		"parent_id": link.ParentID,
		"status":    status,
	}); err != nil {
		return domain.ParentLink{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ParentLink{}, err
	}
	link.Status = status
	link.UpdatedAt = stamp
	e.Log.Info().Str("student_id", studentID).Str("parent_id", link.ParentID).Str("status", status).Msg("link responded")
	return link, nil
}
