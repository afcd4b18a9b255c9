package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// LedgerService owns the engagement counters: profile clicks and salves.
type LedgerService struct {
	db       repository.DBTX
	tx       repository.Transactor
	repos    repository.Repositories
	cooldown time.Duration
	logger   *slog.Logger
	now      Clock
}

// NewLedgerService creates a LedgerService. A zero cooldown uses the 24h default.
func NewLedgerService(db repository.DBTX, tx repository.Transactor, repos repository.Repositories, cooldown time.Duration, logger *slog.Logger) *LedgerService {
	if cooldown <= 0 {
		cooldown = domain.DefaultSalveCooldown
	}
	return &LedgerService{db: db, tx: tx, repos: repos, cooldown: cooldown, logger: logger, now: time.Now}
}

// SalveResult is returned by a successful SendSalve.
type SalveResult struct {
	Salve         domain.Salve
	Receiver      string
	ReceiverTotal int64
	Message       string
}

// RecordProfileClick creates the streamer row or adds one click to it.
func (s *LedgerService) RecordProfileClick(ctx context.Context, login string) (int64, error) {
	login = domain.NormalizeLogin(login)
	if login == "" {
		return 0, domain.ErrValidation("login is required")
	}

	var clicks int64
	err := s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		var err error
		clicks, err = s.repos.Streamers.IncrementClicks(ctx, tx, login)
		if err != nil {
			return err
		}
		draft, err := domain.NewOutboxDraft(domain.AggregateStreamer, login, domain.EventProfileClicked,
			map[string]any{"login": login, "clicks": clicks}, s.now().UTC())
		if err != nil {
			return err
		}
		return s.repos.Outbox.Insert(ctx, tx, draft)
	})
	if err != nil {
		return 0, storageFailure(s.logger, "record profile click", err)
	}
	return clicks, nil
}

// SendSalve sends one salve from the caller to targetLogin. A pair may salve
// at most once per cooldown window. The insert, the counter increment and the
// outbox event commit together or not at all.
func (s *LedgerService) SendSalve(ctx context.Context, id *domain.Identity, targetLogin string) (*SalveResult, error) {
	if id == nil {
		return nil, domain.ErrUnauthorized("authentication required")
	}
	login := domain.NormalizeLogin(targetLogin)
	if login == "" {
		return nil, domain.ErrValidation("login is required")
	}
	if login == domain.NormalizeLogin(id.Login) {
		return nil, domain.ErrValidation("you cannot send a salve to yourself")
	}

	receiver, err := s.repos.Streamers.FindByLogin(ctx, s.db, login)
	if err != nil {
		return nil, storageFailure(s.logger, "find salve receiver", err)
	}
	if receiver == nil {
		return nil, domain.ErrNotFound("streamer", login)
	}
	if receiver.ID == id.ID {
		return nil, domain.ErrValidation("you cannot send a salve to yourself")
	}

	now := s.now().UTC()
	result := &SalveResult{Receiver: receiver.Login}
	err = s.tx.WithTx(ctx, func(tx repository.DBTX) error {
		if err := s.repos.Salves.LockPair(ctx, tx, id.ID, receiver.ID); err != nil {
			return err
		}
		recent, err := s.repos.Salves.ExistsSince(ctx, tx, id.ID, receiver.ID, domain.CooldownStart(now, s.cooldown))
		if err != nil {
			return err
		}
		if recent {
			return domain.ErrRateLimited(fmt.Sprintf("you already sent a salve to %s in the last %s", receiver.Login, formatWindow(s.cooldown)))
		}

		salve, err := s.repos.Salves.Insert(ctx, tx, id.ID, receiver.ID, now)
		if err != nil {
			return err
		}
		total, err := s.repos.Streamers.IncrementSalves(ctx, tx, receiver.ID)
		if err != nil {
			return err
		}
		draft, err := domain.NewOutboxDraft(domain.AggregateStreamer, strconv.FormatInt(receiver.ID, 10), domain.EventSalveSent,
			domain.SalveSentPayload{
				SalveID:       salve.ID,
				SenderID:      id.ID,
				SenderLogin:   id.Login,
				ReceiverID:    receiver.ID,
				ReceiverLogin: receiver.Login,
				ReceiverTotal: total,
				SentAt:        now,
			}, now)
		if err != nil {
			return err
		}
		if err := s.repos.Outbox.Insert(ctx, tx, draft); err != nil {
			return err
		}

		result.Salve = *salve
		result.ReceiverTotal = total
		return nil
	})
	if err != nil {
		if appErr, ok := passThrough(err); ok {
			return nil, appErr
		}
		return nil, storageFailure(s.logger, "send salve", err)
	}

	name := receiver.DisplayName
	if name == "" {
		name = receiver.Login
	}
	result.Message = fmt.Sprintf("Salve sent to %s!", name)
	s.logger.Info("salve sent", "sender_id", id.ID, "receiver", receiver.Login, "total", result.ReceiverTotal)
	return result, nil
}

// GetStats returns the aggregate stats for login. Unknown logins yield zeros.
func (s *LedgerService) GetStats(ctx context.Context, login string) (*domain.ProfileStats, error) {
	login = domain.NormalizeLogin(login)
	if login == "" {
		return nil, domain.ErrValidation("login is required")
	}

	stats := &domain.ProfileStats{}
	streamer, err := s.repos.Streamers.FindByLogin(ctx, s.db, login)
	if err != nil {
		return nil, storageFailure(s.logger, "load streamer counters", err)
	}
	if streamer != nil {
		stats.Clicks = streamer.Clicks
		stats.Salves = streamer.Salves
	}
	if stats.Clips, err = s.repos.Clips.CountByLogin(ctx, s.db, login); err != nil {
		return nil, storageFailure(s.logger, "count clips", err)
	}
	if stats.LiveCount, err = s.repos.LiveStreams.CountByLogin(ctx, s.db, login); err != nil {
		return nil, storageFailure(s.logger, "count live streams", err)
	}
	return stats, nil
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
