package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// --- streamers ---

type streamerRepo struct{ s *Store }

func (r *streamerRepo) IncrementClicks(_ context.Context, _ repository.DBTX, login string) (int64, error) {
	err := r.s.lock("streamers.IncrementClicks")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	st := &r.s.st
	if cur := st.byLogin(login); cur != nil {
		cur.Clicks++
		st.streamers[cur.ID] = *cur
		return cur.Clicks, nil
	}
	row := domain.Streamer{
		ID: st.nextID("streamers"), Login: login, DisplayName: login,
		CreatedAtSite: r.s.Now(), Clicks: 1,
	}
	st.streamers[row.ID] = row
	return 1, nil
}

func (r *streamerRepo) FindByLogin(_ context.Context, _ repository.DBTX, login string) (*domain.Streamer, error) {
	err := r.s.lock("streamers.FindByLogin")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.s.st.byLogin(login), nil
}

func (r *streamerRepo) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.Streamer, error) {
	err := r.s.lock("streamers.FindByID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	st, ok := r.s.st.streamers[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *streamerRepo) IncrementSalves(_ context.Context, _ repository.DBTX, id int64) (int64, error) {
	err := r.s.lock("streamers.IncrementSalves")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	st, ok := r.s.st.streamers[id]
	if !ok {
		return 0, fmt.Errorf("increment salves: streamer %d missing", id)
	}
	st.Salves++
	r.s.st.streamers[id] = st
	return st.Salves, nil
}

func (r *streamerRepo) UpsertFromTwitch(_ context.Context, _ repository.DBTX, u domain.TwitchUser) (*domain.Streamer, error) {
	err := r.s.lock("streamers.UpsertFromTwitch")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	st := &r.s.st
	login := domain.NormalizeLogin(u.Login)
	row := st.byLogin(login)
	if row == nil {
		row = &domain.Streamer{ID: st.nextID("streamers"), Login: login, CreatedAtSite: r.s.Now()}
	}
	row.TwitchID = u.ID
	row.DisplayName = u.DisplayName
	row.ProfileImageURL = u.ProfileImageURL
	st.streamers[row.ID] = *row
	out := *row
	return &out, nil
}

func (r *streamerRepo) ListRecent(_ context.Context, _ repository.DBTX, limit int) ([]domain.StreamerSummary, error) {
	err := r.s.lock("streamers.ListRecent")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows := r.s.st.sortedStreamers(func(a, b domain.Streamer) bool {
		if !a.CreatedAtSite.Equal(b.CreatedAtSite) {
			return a.CreatedAtSite.After(b.CreatedAtSite)
		}
		return a.ID > b.ID
	})
	var out []domain.StreamerSummary
	for _, st := range rows {
		if st.ProfileImageURL == "" {
			continue
		}
		out = append(out, summary(st))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *streamerRepo) Search(_ context.Context, _ repository.DBTX, q string, limit int) ([]domain.StreamerSummary, error) {
	err := r.s.lock("streamers.Search")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(q)
	rows := r.s.st.sortedStreamers(func(a, b domain.Streamer) bool {
		if a.Clicks != b.Clicks {
			return a.Clicks > b.Clicks
		}
		return a.ID < b.ID
	})
	var out []domain.StreamerSummary
	for _, st := range rows {
		if !strings.Contains(strings.ToLower(st.Login), needle) &&
			!strings.Contains(strings.ToLower(st.DisplayName), needle) {
			continue
		}
		out = append(out, summary(st))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *streamerRepo) ListAll(_ context.Context, _ repository.DBTX) ([]domain.Streamer, error) {
	err := r.s.lock("streamers.ListAll")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.s.st.sortedStreamers(func(a, b domain.Streamer) bool { return a.ID < b.ID }), nil
}

func (r *streamerRepo) SetAdmin(_ context.Context, _ repository.DBTX, id int64, isAdmin int) (bool, error) {
	err := r.s.lock("streamers.SetAdmin")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	st, ok := r.s.st.streamers[id]
	if !ok {
		return false, nil
	}
	st.IsAdmin = isAdmin
	r.s.st.streamers[id] = st
	return true, nil
}

func (r *streamerRepo) ListLogins(_ context.Context, _ repository.DBTX) ([]string, error) {
	err := r.s.lock("streamers.ListLogins")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var logins []string
	for _, st := range r.s.st.streamers {
		logins = append(logins, st.Login)
	}
	sort.Strings(logins)
	return logins, nil
}

func (st *state) sortedStreamers(less func(a, b domain.Streamer) bool) []domain.Streamer {
	rows := make([]domain.Streamer, 0, len(st.streamers))
	for _, v := range st.streamers {
		rows = append(rows, v)
	}
	sort.Slice(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return rows
}

func summary(st domain.Streamer) domain.StreamerSummary {
	return domain.StreamerSummary{
		Login: st.Login, DisplayName: st.DisplayName, ProfileImageURL: st.ProfileImageURL,
		Clicks: st.Clicks, Salves: st.Salves,
	}
}

// --- salves ---

type salveRepo struct{ s *Store }

// LockPair is a no-op: transactions on the store are already serialized.
func (r *salveRepo) LockPair(_ context.Context, _ repository.DBTX, _, _ int64) error {
	err := r.s.lock("salves.LockPair")
	r.s.mu.Unlock()
	return err
}

func (r *salveRepo) ExistsSince(_ context.Context, _ repository.DBTX, senderID, receiverID int64, since time.Time) (bool, error) {
	err := r.s.lock("salves.ExistsSince")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	for _, sv := range r.s.st.salves {
		if sv.SenderID == senderID && sv.ReceiverID == receiverID && sv.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *salveRepo) Insert(_ context.Context, _ repository.DBTX, senderID, receiverID int64, at time.Time) (*domain.Salve, error) {
	err := r.s.lock("salves.Insert")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("insert salve: sender equals receiver")
	}
	sv := domain.Salve{ID: r.s.st.nextID("salves"), SenderID: senderID, ReceiverID: receiverID, CreatedAt: at}
	r.s.st.salves = append(r.s.st.salves, sv)
	return &sv, nil
}

// --- notifications ---

type notificationRepo struct{ s *Store }

func (r *notificationRepo) ListForViewer(_ context.Context, _ repository.DBTX, userID *int64) ([]domain.Notification, error) {
	err := r.s.lock("notifications.ListForViewer")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, len(r.s.st.notifications))
	for i, n := range r.s.st.notifications {
		if userID != nil {
			_, n.Read = r.s.st.reads[readKey{*userID, n.ID}]
		}
		out[i] = n
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, _ repository.DBTX, userID int64, at time.Time) (int64, error) {
	err := r.s.lock("notifications.MarkAllRead")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var inserted int64
	for _, n := range r.s.st.notifications {
		k := readKey{userID, n.ID}
		if _, ok := r.s.st.reads[k]; ok {
			continue
		}
		r.s.st.reads[k] = at
		inserted++
	}
	return inserted, nil
}

func (r *notificationRepo) Create(_ context.Context, _ repository.DBTX, n domain.Notification) (int64, error) {
	err := r.s.lock("notifications.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	n.ID = r.s.st.nextID("notifications")
	n.CreatedAt = r.s.Now()
	n.Read = false
	r.s.st.notifications = append(r.s.st.notifications, n)
	return n.ID, nil
}

// --- cards ---

type cardRepo struct{ s *Store }

func (r *cardRepo) List(_ context.Context, _ repository.DBTX) ([]domain.Card, error) {
	err := r.s.lock("cards.List")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	cards := []domain.Card{}
	for _, c := range r.s.st.cards {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID > cards[j].ID
	})
	return cards, nil
}

func (r *cardRepo) Create(_ context.Context, _ repository.DBTX, c domain.Card) (int64, error) {
	err := r.s.lock("cards.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	c.ID = r.s.st.nextID("cards")
	c.CreatedAt = r.s.Now()
	r.s.st.cards[c.ID] = c
	return c.ID, nil
}

func (r *cardRepo) Update(_ context.Context, _ repository.DBTX, id int64, c domain.Card) (bool, error) {
	err := r.s.lock("cards.Update")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	cur, ok := r.s.st.cards[id]
	if !ok {
		return false, nil
	}
	c.ID, c.CreatedAt = cur.ID, cur.CreatedAt
	r.s.st.cards[id] = c
	return true, nil
}

// Delete also clears quest references, mirroring ON DELETE SET NULL.
func (r *cardRepo) Delete(_ context.Context, _ repository.DBTX, id int64) (bool, error) {
	err := r.s.lock("cards.Delete")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if _, ok := r.s.st.cards[id]; !ok {
		return false, nil
	}
	delete(r.s.st.cards, id)
	for qid, q := range r.s.st.quests {
		if q.CardRewardID != nil && *q.CardRewardID == id {
			q.CardRewardID = nil
			r.s.st.quests[qid] = q
		}
	}
	return true, nil
}

// --- quests ---

type questRepo struct{ s *Store }

func (r *questRepo) List(_ context.Context, _ repository.DBTX) ([]domain.Quest, error) {
	err := r.s.lock("quests.List")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	quests := []domain.Quest{}
	for _, q := range r.s.st.quests {
		quests = append(quests, q)
	}
	sort.Slice(quests, func(i, j int) bool {
		if !quests[i].CreatedAt.Equal(quests[j].CreatedAt) {
			return quests[i].CreatedAt.After(quests[j].CreatedAt)
		}
		return quests[i].ID > quests[j].ID
	})
	return quests, nil
}

func (r *questRepo) checkCard(q domain.Quest) error {
	if q.CardRewardID == nil {
		return nil
	}
	if _, ok := r.s.st.cards[*q.CardRewardID]; !ok {
		return fmt.Errorf("%w: quests_card_reward_id_fkey", repository.ErrInvalidReference)
	}
	return nil
}

func (r *questRepo) Create(_ context.Context, _ repository.DBTX, q domain.Quest) (int64, error) {
	err := r.s.lock("quests.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if err := r.checkCard(q); err != nil {
		return 0, fmt.Errorf("insert quest: %w", err)
	}
	q.ID = r.s.st.nextID("quests")
	q.CreatedAt = r.s.Now()
	r.s.st.quests[q.ID] = q
	return q.ID, nil
}

func (r *questRepo) Update(_ context.Context, _ repository.DBTX, id int64, q domain.Quest) (bool, error) {
	err := r.s.lock("quests.Update")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if err := r.checkCard(q); err != nil {
		return false, fmt.Errorf("update quest: %w", err)
	}
	cur, ok := r.s.st.quests[id]
	if !ok {
		return false, nil
	}
	q.ID, q.CreatedAt = cur.ID, cur.CreatedAt
	r.s.st.quests[id] = q
	return true, nil
}

func (r *questRepo) Delete(_ context.Context, _ repository.DBTX, id int64) (bool, error) {
	err := r.s.lock("quests.Delete")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if _, ok := r.s.st.quests[id]; !ok {
		return false, nil
	}
	delete(r.s.st.quests, id)
	return true, nil
}

// --- clips ---

type clipRepo struct{ s *Store }

func (r *clipRepo) CountByLogin(_ context.Context, _ repository.DBTX, login string) (int64, error) {
	err := r.s.lock("clips.CountByLogin")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range r.s.st.clips {
		if c.login == login {
			n++
		}
	}
	return n, nil
}

func (r *clipRepo) SaveMany(_ context.Context, _ repository.DBTX, login string, clips []domain.TwitchClip) (int64, error) {
	err := r.s.lock("clips.SaveMany")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range clips {
		if _, ok := r.s.st.clips[c.ID]; ok {
			continue
		}
		r.s.st.clips[c.ID] = clipRow{login: login, clip: c, cachedAt: r.s.Now()}
		n++
	}
	return n, nil
}

func (r *clipRepo) DeleteOlderThan(_ context.Context, _ repository.DBTX, cutoff time.Time) (int64, error) {
	err := r.s.lock("clips.DeleteOlderThan")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.s.st.clips {
		if c.cachedAt.Before(cutoff) {
			delete(r.s.st.clips, id)
			n++
		}
	}
	return n, nil
}

// --- live streams ---

type liveStreamRepo struct{ s *Store }

func (r *liveStreamRepo) CountByLogin(_ context.Context, _ repository.DBTX, login string) (int64, error) {
	err := r.s.lock("live_streams.CountByLogin")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, ls := range r.s.st.live {
		if domain.NormalizeLogin(ls.UserLogin) == login {
			n++
		}
	}
	return n, nil
}

func (r *liveStreamRepo) Record(_ context.Context, _ repository.DBTX, s domain.TwitchStream) error {
	err := r.s.lock("live_streams.Record")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	if _, ok := r.s.st.live[s.ID]; !ok {
		r.s.st.live[s.ID] = s
	}
	return nil
}

// --- outbox ---

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	err := r.s.lock("outbox.Insert")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	rec := domain.OutboxRecord{SeqID: r.s.st.nextID("event_outbox"), OutboxDraft: draft}
	r.s.st.outbox = append(r.s.st.outbox, outboxRow{rec: rec})
	return nil
}

func (r *outboxRepo) FetchUnpublished(_ context.Context, _ repository.DBTX, limit int) ([]domain.OutboxRecord, error) {
	err := r.s.lock("outbox.FetchUnpublished")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []domain.OutboxRecord
	for _, row := range r.s.st.outbox {
		if row.published {
			continue
		}
		out = append(out, row.rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(_ context.Context, _ repository.DBTX, ids []int64) error {
	err := r.s.lock("outbox.MarkPublished")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range r.s.st.outbox {
		if want[r.s.st.outbox[i].rec.SeqID] {
			r.s.st.outbox[i].published = true
		}
	}
	return nil
}

var (
	_ repository.Transactor = (*Store)(nil)
	_ repository.DBTX       = memDB{}
)
