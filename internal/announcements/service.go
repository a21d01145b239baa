package announcements

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/labportal/reagent-portal/internal/shared"
)

// Service manages announcements.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: shared.NewValidator()}
}

// Create publishes an active announcement.
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateAnnouncementRequest) (Announcement, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Announcement{}, err
	}
	var created Announcement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		a, err := tx.Create(ctx, req.Title, req.Body)
		if err != nil {
			return fmt.Errorf("create announcement: %w", err)
		}
		created = a
		return audit(ctx, tx, actor, "announcement.create", a.ID, map[string]any{"title": a.Title})
	})
	if err != nil {
		return Announcement{}, err
	}
	return created, nil
}

// ListActive returns active announcements, newest first.
func (s *Service) ListActive(ctx context.Context) ([]Announcement, error) {
	out, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return out, nil
}

// Deactivate hides an announcement.
func (s *Service) Deactivate(ctx context.Context, actor shared.Actor, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Deactivate(ctx, id); err != nil {
			return err
		}
		return audit(ctx, tx, actor, "announcement.deactivate", id, nil)
	})
}

func audit(ctx context.Context, tx Repository, actor shared.Actor, action string, id int64, meta map[string]any) error {
	err := tx.Audit(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "announcement",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}
