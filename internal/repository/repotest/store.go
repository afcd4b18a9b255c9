// Package repotest provides an in-memory implementation of the repository
// interfaces for unit tests.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// ErrInjected is the default error returned by operations registered with FailOn.
var ErrInjected = errors.New("injected storage failure")

type readKey struct {
	userID         int64
	notificationID int64
}

type clipRow struct {
	login    string
	clip     domain.TwitchClip
	cachedAt time.Time
}

type outboxRow struct {
	rec       domain.OutboxRecord
	published bool
}

type state struct {
	seq           map[string]int64
	streamers     map[int64]domain.Streamer
	salves        []domain.Salve
	notifications []domain.Notification
	reads         map[readKey]time.Time
	cards         map[int64]domain.Card
	quests        map[int64]domain.Quest
	clips         map[string]clipRow
	live          map[string]domain.TwitchStream
	outbox        []outboxRow
}

func newState() state {
	return state{
		seq:       map[string]int64{},
		streamers: map[int64]domain.Streamer{},
		reads:     map[readKey]time.Time{},
		cards:     map[int64]domain.Card{},
		quests:    map[int64]domain.Quest{},
		clips:     map[string]clipRow{},
		live:      map[string]domain.TwitchStream{},
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.seq {
		c.seq[k] = v
	}
	for k, v := range st.streamers {
		c.streamers[k] = v
	}
	c.salves = append([]domain.Salve(nil), st.salves...)
	c.notifications = append([]domain.Notification(nil), st.notifications...)
	for k, v := range st.reads {
		c.reads[k] = v
	}
	for k, v := range st.cards {
		c.cards[k] = v
	}
	for k, v := range st.quests {
		c.quests[k] = v
	}
	for k, v := range st.clips {
		c.clips[k] = v
	}
	for k, v := range st.live {
		c.live[k] = v
	}
	c.outbox = append([]outboxRow(nil), st.outbox...)
	return c
}

func (st *state) nextID(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

// Store is a mutex-guarded in-memory database. Transactions are serialized and
// restore a snapshot when fn fails.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	st     state
	failOn map[string]error

	// Now stamps rows that would get a database default timestamp.
	Now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), failOn: map[string]error{}, Now: time.Now}
}

// Repositories returns the store's implementations of every repository.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Streamers:     &streamerRepo{s},
		Salves:        &salveRepo{s},
		Notifications: &notificationRepo{s},
		Cards:         &cardRepo{s},
		Quests:        &questRepo{s},
		Clips:         &clipRepo{s},
		LiveStreams:   &liveStreamRepo{s},
		Outbox:        &outboxRepo{s},
	}
}

// DB returns a handle to pass where a repository.DBTX is expected. The
// in-memory repositories ignore it.
func (s *Store) DB() repository.DBTX { return memDB{} }

// WithTx implements repository.Transactor.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.DBTX) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(memDB{}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// FailOn makes the named operation (for example "salves.Insert") return err.
// A nil err uses ErrInjected.
func (s *Store) FailOn(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[op] = err
}

// ClearFailures removes every injected failure.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = map[string]error{}
}

// lock acquires the store mutex and returns the injected error for op, if any.
// The caller must unlock.
func (s *Store) lock(op string) error {
	s.mu.Lock()
	if err, ok := s.failOn[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// --- Seeding and inspection helpers ---

// SeedStreamer inserts a streamer, assigning an id when zero.
func (s *Store) SeedStreamer(st domain.Streamer) domain.Streamer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		st.ID = s.st.nextID("streamers")
	} else if st.ID > s.st.seq["streamers"] {
		s.st.seq["streamers"] = st.ID
	}
	if st.DisplayName == "" {
		st.DisplayName = st.Login
	}
	if st.CreatedAtSite.IsZero() {
		st.CreatedAtSite = s.Now()
	}
	s.st.streamers[st.ID] = st
	return st
}

// SeedNotification inserts a notification, stamping created_at when zero.
func (s *Store) SeedNotification(n domain.Notification) domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.st.nextID("notifications")
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.Now()
	}
	n.Read = false
	s.st.notifications = append(s.st.notifications, n)
	return n
}

// SeedSalve appends a salve row as if sent at.
func (s *Store) SeedSalve(senderID, receiverID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.salves = append(s.st.salves, domain.Salve{
		ID: s.st.nextID("salves"), SenderID: senderID, ReceiverID: receiverID, CreatedAt: at,
	})
}

// SeedClip caches a clip for login as if fetched at cachedAt.
func (s *Store) SeedClip(login string, c domain.TwitchClip, cachedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.clips[c.ID] = clipRow{login: login, clip: c, cachedAt: cachedAt}
}

// Streamer returns the row for login.
func (s *Store) Streamer(login string) (domain.Streamer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st.byLogin(login)
	if st == nil {
		return domain.Streamer{}, false
	}
	return *st, true
}

// Salves returns every salve row.
func (s *Store) Salves() []domain.Salve {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Salve(nil), s.st.salves...)
}

// ReadCount returns the number of read rows stored for userID.
func (s *Store) ReadCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.st.reads {
		if k.userID == userID {
			n++
		}
	}
	return n
}

// OutboxEvents returns every outbox row, published or not.
func (s *Store) OutboxEvents() []domain.OutboxRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OutboxRecord, len(s.st.outbox))
	for i, r := range s.st.outbox {
		out[i] = r.rec
	}
	return out
}

// ClipCount returns the number of cached clips.
func (s *Store) ClipCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.clips)
}

func (st *state) byLogin(login string) *domain.Streamer {
	for _, v := range st.streamers {
		if v.Login == login {
			v := v
			return &v
		}
	}
	return nil
}

// memDB satisfies repository.DBTX. Every call fails; in-memory repositories
// never use it.
type memDB struct{}

var errMemDB = errors.New("repotest: in-memory store has no SQL connection")

func (memDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errMemDB
}

func (memDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errMemDB
}

func (memDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return errRow{}
}

type errRow struct{}

func (errRow) Scan(...any) error { return errMemDB }
