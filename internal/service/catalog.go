package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/streamteamhq/platform/internal/audit"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// CatalogService is the admin registry for cards, quests and streamer flags.
type CatalogService struct {
	db     repository.DBTX
	repos  repository.Repositories
	audit  audit.Sink
	logger *slog.Logger
	now    Clock
}

// NewCatalogService creates a CatalogService. Card mutations are written to sink.
func NewCatalogService(db repository.DBTX, repos repository.Repositories, sink audit.Sink, logger *slog.Logger) *CatalogService {
	return &CatalogService{db: db, repos: repos, audit: sink, logger: logger, now: time.Now}
}

// record writes an audit entry. Failures are logged and never returned.
func (s *CatalogService) record(ctx context.Context, e audit.Entry) {
	e.Time = s.now().UTC()
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("card audit write failed", "action", e.Action, "card_id", e.CardID, "error", err)
	}
}

func (s *CatalogService) cardFailure(ctx context.Context, op string, err error) *domain.AppError {
	s.record(ctx, audit.Entry{Action: audit.ActionError, Op: op, Err: err})
	return storageFailure(s.logger, op, err)
}

// --- Cards ---

// ListCards returns all cards, newest first.
func (s *CatalogService) ListCards(ctx context.Context) ([]domain.Card, error) {
	cards, err := s.repos.Cards.List(ctx, s.db)
	if err != nil {
		return nil, storageFailure(s.logger, "list cards", err)
	}
	return cards, nil
}

// CreateCard validates and stores a card and returns its id.
func (s *CatalogService) CreateCard(ctx context.Context, in domain.CardInput) (int64, error) {
	card, err := in.Card()
	if err != nil {
		return 0, domain.ErrValidation(err.Error())
	}
	id, err := s.repos.Cards.Create(ctx, s.db, card)
	if err != nil {
		return 0, s.cardFailure(ctx, "create card", err)
	}
	s.record(ctx, audit.Entry{Action: audit.ActionCreate, CardID: id, Name: card.Name, Rarity: card.Rarity})
	return id, nil
}

// UpdateCard overwrites every mutable field of card id.
func (s *CatalogService) UpdateCard(ctx context.Context, id int64, in domain.CardInput) error {
	card, err := in.Card()
	if err != nil {
		return domain.ErrValidation(err.Error())
	}
	found, err := s.repos.Cards.Update(ctx, s.db, id, card)
	if err != nil {
		return s.cardFailure(ctx, "update card", err)
	}
	if !found {
		return domain.ErrNotFound("card", strconv.FormatInt(id, 10))
	}
	s.record(ctx, audit.Entry{Action: audit.ActionUpdate, CardID: id, Name: card.Name, Rarity: card.Rarity})
	return nil
}

// DeleteCard removes card id. Quests rewarding it lose the reference.
func (s *CatalogService) DeleteCard(ctx context.Context, id int64) error {
	found, err := s.repos.Cards.Delete(ctx, s.db, id)
	if err != nil {
		return s.cardFailure(ctx, "delete card", err)
	}
	if !found {
		return domain.ErrNotFound("card", strconv.FormatInt(id, 10))
	}
	s.record(ctx, audit.Entry{Action: audit.ActionDelete, CardID: id})
	return nil
}

// --- Quests ---

// ListQuests returns all quests, newest first.
func (s *CatalogService) ListQuests(ctx context.Context) ([]domain.Quest, error) {
	quests, err := s.repos.Quests.List(ctx, s.db)
	if err != nil {
		return nil, storageFailure(s.logger, "list quests", err)
	}
	return quests, nil
}

// CreateQuest validates and stores a quest and returns its id.
func (s *CatalogService) CreateQuest(ctx context.Context, in domain.QuestInput) (int64, error) {
	q, err := in.Quest()
	if err != nil {
		return 0, domain.ErrValidation(err.Error())
	}
	id, err := s.repos.Quests.Create(ctx, s.db, q)
	if err != nil {
		return 0, s.questFailure("create quest", err)
	}
	s.logger.Info("quest created", "quest_id", id, "title", q.Title)
	return id, nil
}

// UpdateQuest overwrites every mutable field of quest id.
func (s *CatalogService) UpdateQuest(ctx context.Context, id int64, in domain.QuestInput) error {
	q, err := in.Quest()
	if err != nil {
		return domain.ErrValidation(err.Error())
	}
	found, err := s.repos.Quests.Update(ctx, s.db, id, q)
	if err != nil {
		return s.questFailure("update quest", err)
	}
	if !found {
		return domain.ErrNotFound("quest", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteQuest removes quest id.
func (s *CatalogService) DeleteQuest(ctx context.Context, id int64) error {
	found, err := s.repos.Quests.Delete(ctx, s.db, id)
	if err != nil {
		return storageFailure(s.logger, "delete quest", err)
	}
	if !found {
		return domain.ErrNotFound("quest", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *CatalogService) questFailure(op string, err error) *domain.AppError {
	if errors.Is(err, repository.ErrInvalidReference) {
		return domain.ErrValidation("card_reward_id does not reference an existing card")
	}
	return storageFailure(s.logger, op, err)
}

// --- Streamers ---

// ListStreamers returns every streamer for the admin panel.
func (s *CatalogService) ListStreamers(ctx context.Context) ([]domain.Streamer, error) {
	rows, err := s.repos.Streamers.ListAll(ctx, s.db)
	if err != nil {
		return nil, storageFailure(s.logger, "list streamers", err)
	}
	if rows == nil {
		rows = []domain.Streamer{}
	}
	return rows, nil
}

// IsAdmin reports whether streamer id currently holds is_admin == 1.
// Unknown streamers are not admins.
func (s *CatalogService) IsAdmin(ctx context.Context, id int64) (bool, error) {
	st, err := s.repos.Streamers.FindByID(ctx, s.db, id)
	if err != nil {
		return false, storageFailure(s.logger, "check admin flag", err)
	}
	return st != nil && st.IsAdmin == 1, nil
}

// ToggleAdmin flips the admin flag of streamer id and returns the new value.
// Admins cannot change their own flag.
func (s *CatalogService) ToggleAdmin(ctx context.Context, actor *domain.Identity, id int64) (int, error) {
	if actor != nil && actor.ID == id {
		return 0, domain.ErrValidation("you cannot change your own admin flag")
	}
	st, err := s.repos.Streamers.FindByID(ctx, s.db, id)
	if err != nil {
		return 0, storageFailure(s.logger, "find streamer", err)
	}
	if st == nil {
		return 0, domain.ErrNotFound("streamer", strconv.FormatInt(id, 10))
	}

	next := 1
	if st.IsAdmin == 1 {
		next = 0
	}
	if err := s.SetAdmin(ctx, id, next == 1); err != nil {
		return 0, err
	}
	return next, nil
}

// SetAdmin grants or revokes the admin flag.
func (s *CatalogService) SetAdmin(ctx context.Context, id int64, admin bool) error {
	val := 0
	if admin {
		val = 1
	}
	found, err := s.repos.Streamers.SetAdmin(ctx, s.db, id, val)
	if err != nil {
		return storageFailure(s.logger, "set admin", err)
	}
	if !found {
		return domain.ErrNotFound("streamer", strconv.FormatInt(id, 10))
	}
	s.logger.Info("admin flag changed", "streamer_id", id, "is_admin", val)
	return nil
}
