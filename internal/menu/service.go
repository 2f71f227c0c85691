package menu

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nagulan13/oboma/internal/apperr"
)

// Notifier publishes document snapshots to subscribers.
type Notifier interface {
	Notify(ctx context.Context, path string, doc any) error
	NotifyDeleted(ctx context.Context, path string) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx)
}

// Save creates or replaces a menu item.
func (s *Service) Save(ctx context.Context, item Item) (Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	switch {
	case item.ID == "":
		return Item{}, apperr.Invalid("id", "is required")
	case item.Name == "":
		return Item{}, apperr.Invalid("name", "is required")
	case item.Price < 0:
		return Item{}, apperr.Invalid("price", "must not be negative")
	}

	saved, err := s.repo.Upsert(ctx, item)
	if err != nil {
		return Item{}, err
	}
	if err := s.notifier.Notify(ctx, Path(saved.ID), saved); err != nil {
		s.logger.Warn().Err(err).Str("menu_item_id", saved.ID).Msg("notify menu change")
	}
	return saved, nil
}

// Delete removes a menu item. Carts and orders keep their own copies of the
// item's name and price.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperr.Invalid("id", "is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.notifier.NotifyDeleted(ctx, Path(id)); err != nil {
		s.logger.Warn().Err(err).Str("menu_item_id", id).Msg("notify menu deletion")
	}
	return nil
}
