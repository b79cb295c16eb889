// AngelaMos | 2026
// service.go

package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/repuestospro/backend/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Notify stores one notification per recipient. Empty and repeated
// recipients are skipped.
func (s *Service) Notify(
	ctx context.Context,
	recipients []string,
	kind, title, body string,
	orderID *string,
) error {
	seen := make(map[string]struct{}, len(recipients))
	items := make([]Notification, 0, len(recipients))

	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		items = append(items, Notification{
			ID:      uuid.New().String(),
			UserID:  userID,
			Kind:    kind,
			Title:   title,
			Body:    body,
			OrderID: orderID,
		})
	}

	if err := s.repo.InsertMany(ctx, items); err != nil {
		return fmt.Errorf("notify %s: %w", kind, err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Notification, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("mark notification read: %w", core.ErrNotFound)
	}
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
