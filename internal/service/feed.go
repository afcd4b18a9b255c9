package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// FeedService builds per-viewer notification feeds and tracks read state.
type FeedService struct {
	db     repository.DBTX
	tx     repository.Transactor
	repos  repository.Repositories
	logger *slog.Logger
	now    Clock
}

// NewFeedService creates a FeedService.
func NewFeedService(db repository.DBTX, tx repository.Transactor, repos repository.Repositories, logger *slog.Logger) *FeedService {
	return &FeedService{db: db, tx: tx, repos: repos, logger: logger, now: time.Now}
}

// List returns the viewer's feed: one synthetic entry per quest followed by
// stored notifications, newest first. A nil viewer sees every notification unread.
func (s *FeedService) List(ctx context.Context, viewer *domain.Identity) ([]domain.FeedItem, error) {
	var userID *int64
	if viewer != nil {
		userID = &viewer.ID
	}

	notes, err := s.repos.Notifications.ListForViewer(ctx, s.db, userID)
	if err != nil {
		return nil, storageFailure(s.logger, "list notifications", err)
	}
	quests, err := s.repos.Quests.List(ctx, s.db)
	if err != nil {
		return nil, storageFailure(s.logger, "list quests", err)
	}

	now := s.now().UTC()
	items := make([]domain.FeedItem, 0, len(quests)+len(notes))
	for _, q := range quests {
		items = append(items, domain.QuestFeedItem(q, now))
	}
	for _, n := range notes {
		items = append(items, domain.NotificationFeedItem(n))
	}
	domain.SortFeed(items)
	return items, nil
}

// MarkAllRead records every unread notification as read for the viewer.
// Calling it again inserts nothing.
func (s *FeedService) MarkAllRead(ctx context.Context, viewer *domain.Identity) (int64, error) {
	if viewer == nil {
		return 0, domain.ErrUnauthorized("authentication required")
	}
	n, err := s.repos.Notifications.MarkAllRead(ctx, s.db, viewer.ID, s.now().UTC())
	if err != nil {
		return 0, storageFailure(s.logger, "mark notifications read", err)
	}
	return n, nil
}

// Publish stores a new admin notification.
func (s *FeedService) Publish(ctx context.Context, in domain.NotificationInput) (int64, error) {
	n, err := in.Notification()
	if err != nil {
		return 0, domain.ErrValidation(err.Error())
	}

	var id int64
	err = s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		var err error
		if id, err = s.repos.Notifications.Create(ctx, tx, n); err != nil {
			return err
		}
		draft, err := domain.NewOutboxDraft(domain.AggregateNotification, strconv.FormatInt(id, 10),
			domain.EventNotificationCreated,
			domain.NotificationPublishedPayload{NotificationID: id, Title: n.Title, Category: n.Category},
			s.now().UTC())
		if err != nil {
			return err
		}
		return s.repos.Outbox.Insert(ctx, tx, draft)
	})
	if err != nil {
		return 0, storageFailure(s.logger, "publish notification", err)
	}
	s.logger.Info("notification published", "id", id, "category", n.Category)
	return id, nil
}
