package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/streamteamhq/platform/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Transactor runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx DBTX) error) error
}

// StreamerRepository provides access to streamers.
type StreamerRepository interface {
	// IncrementClicks creates the row with clicks=1 or adds one to clicks,
	// in a single statement. Returns the new total.
	IncrementClicks(ctx context.Context, db DBTX, login string) (int64, error)

	// FindByLogin returns nil, nil when no row matches.
	FindByLogin(ctx context.Context, db DBTX, login string) (*domain.Streamer, error)

	// FindByID returns nil, nil when no row matches.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Streamer, error)

	// IncrementSalves adds one to the receiver's salves counter and returns the new total.
	IncrementSalves(ctx context.Context, db DBTX, id int64) (int64, error)

	// UpsertFromTwitch inserts the streamer or refreshes its display fields.
	UpsertFromTwitch(ctx context.Context, db DBTX, u domain.TwitchUser) (*domain.Streamer, error)

	// ListRecent returns the newest streamers that have a profile image.
	ListRecent(ctx context.Context, db DBTX, limit int) ([]domain.StreamerSummary, error)

	// Search returns streamers whose login or display name contains q, case-insensitively.
	Search(ctx context.Context, db DBTX, q string, limit int) ([]domain.StreamerSummary, error)

	// ListAll returns every streamer ordered by id.
	ListAll(ctx context.Context, db DBTX) ([]domain.Streamer, error)

	// SetAdmin sets is_admin. Returns false when no row matches.
	SetAdmin(ctx context.Context, db DBTX, id int64, isAdmin int) (bool, error)

	// ListLogins returns all registered logins.
	ListLogins(ctx context.Context, db DBTX) ([]string, error)
}

// SalveRepository provides access to salves.
type SalveRepository interface {
	// LockPair serializes salve attempts for one ordered pair until the
	// surrounding transaction ends.
	LockPair(ctx context.Context, db DBTX, senderID, receiverID int64) error

	// ExistsSince reports whether the pair has a salve created after since.
	ExistsSince(ctx context.Context, db DBTX, senderID, receiverID int64, since time.Time) (bool, error)

	// Insert appends a salve row.
	Insert(ctx context.Context, db DBTX, senderID, receiverID int64, at time.Time) (*domain.Salve, error)
}

// NotificationRepository provides access to notifications and user_notifications.
type NotificationRepository interface {
	// ListForViewer returns all notifications newest first with Read computed
	// for userID. A nil userID marks everything unread.
	ListForViewer(ctx context.Context, db DBTX, userID *int64) ([]domain.Notification, error)

	// MarkAllRead inserts read rows for every notification the user has not
	// read yet. Returns the number of rows inserted.
	MarkAllRead(ctx context.Context, db DBTX, userID int64, at time.Time) (int64, error)

	// Create inserts a notification and returns its id.
	Create(ctx context.Context, db DBTX, n domain.Notification) (int64, error)
}

// CardRepository provides access to cards.
type CardRepository interface {
	List(ctx context.Context, db DBTX) ([]domain.Card, error)
	Create(ctx context.Context, db DBTX, c domain.Card) (int64, error)
	// Update overwrites all mutable fields. Returns false when no row matches.
	Update(ctx context.Context, db DBTX, id int64, c domain.Card) (bool, error)
	// Delete returns false when no row matches.
	Delete(ctx context.Context, db DBTX, id int64) (bool, error)
}

// QuestRepository provides access to quests.
type QuestRepository interface {
	List(ctx context.Context, db DBTX) ([]domain.Quest, error)
	Create(ctx context.Context, db DBTX, q domain.Quest) (int64, error)
	Update(ctx context.Context, db DBTX, id int64, q domain.Quest) (bool, error)
	Delete(ctx context.Context, db DBTX, id int64) (bool, error)
}

// ClipRepository provides access to twitch_clips.
type ClipRepository interface {
	CountByLogin(ctx context.Context, db DBTX, login string) (int64, error)
	// SaveMany inserts clips, skipping ones already cached. Returns rows inserted.
	SaveMany(ctx context.Context, db DBTX, login string, clips []domain.TwitchClip) (int64, error)
	// DeleteOlderThan removes clips cached before cutoff.
	DeleteOlderThan(ctx context.Context, db DBTX, cutoff time.Time) (int64, error)
}

// LiveStreamRepository provides access to live_streams.
type LiveStreamRepository interface {
	CountByLogin(ctx context.Context, db DBTX, login string) (int64, error)
	// Record stores a live session once per stream id.
	Record(ctx context.Context, db DBTX, s domain.TwitchStream) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the state change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events in insertion order.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRecord, error)

	// MarkPublished stamps published_at on the given rows.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// Repositories bundles one repository per entity.
type Repositories struct {
	Streamers     StreamerRepository
	Salves        SalveRepository
	Notifications NotificationRepository
	Cards         CardRepository
	Quests        QuestRepository
	Clips         ClipRepository
	LiveStreams   LiveStreamRepository
	Outbox        OutboxRepository
}

// NewPgRepositories returns the pgx-backed implementations.
func NewPgRepositories() Repositories {
	return Repositories{
		Streamers:     NewStreamerRepository(),
		Salves:        NewSalveRepository(),
		Notifications: NewNotificationRepository(),
		Cards:         NewCardRepository(),
		Quests:        NewQuestRepository(),
		Clips:         NewClipRepository(),
		LiveStreams:   NewLiveStreamRepository(),
		Outbox:        NewOutboxRepository(),
	}
}
