package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	recentLimit      = 50
	searchCandidates = 50
	searchResults    = 5
	profileClips     = 12
	// statsParallelism bounds concurrent per-row stat lookups.
	statsParallelism = 8
	statsTimeout     = 3 * time.Second
)

// TwitchAPI is the subset of the Helix client used by the directory.
type TwitchAPI interface {
	GetUser(ctx context.Context, login string) (*domain.TwitchUser, error)
	GetStreams(ctx context.Context, logins []string) ([]domain.TwitchStream, error)
	GetClips(ctx context.Context, broadcasterID string, first int) ([]domain.TwitchClip, error)
}

// DirectoryService serves the public streamer directory. Upstream failures
// never touch ledger or feed state.
type DirectoryService struct {
	db     repository.DBTX
	repos  repository.Repositories
	ledger *LedgerService
	twitch TwitchAPI
	logger *slog.Logger
	now    Clock
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(db repository.DBTX, repos repository.Repositories, ledger *LedgerService, twitch TwitchAPI, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{db: db, repos: repos, ledger: ledger, twitch: twitch, logger: logger, now: time.Now}
}

// Recent returns the newest streamers with a profile image, each enhanced
// with its stats. Lookups run concurrently; row order is preserved.
func (s *DirectoryService) Recent(ctx context.Context) ([]domain.StreamerSummary, error) {
	rows, err := s.repos.Streamers.ListRecent(ctx, s.db, recentLimit)
	if err != nil {
		return nil, storageFailure(s.logger, "list recent streamers", err)
	}
	if len(rows) == 0 {
		return []domain.StreamerSummary{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(statsParallelism)
	for i := range rows {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			qctx, cancel := context.WithTimeout(gctx, statsTimeout)
			defer cancel()
			st, err := s.ledger.GetStats(qctx, rows[i].Login)
			if err != nil {
				return err
			}
			rows[i].ApplyStats(*st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if appErr, ok := passThrough(err); ok {
			return nil, appErr
		}
		return nil, storageFailure(s.logger, "enhance streamer stats", err)
	}
	return rows, nil
}

type summarySource []domain.StreamerSummary

func (s summarySource) Len() int { return len(s) }

func (s summarySource) String(i int) string {
	return s[i].Login + " " + strings.ToLower(s[i].DisplayName)
}

// Search returns up to five streamers matching q, best fuzzy match first.
func (s *DirectoryService) Search(ctx context.Context, q string) ([]domain.StreamerSummary, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []domain.StreamerSummary{}, nil
	}

	candidates, err := s.repos.Streamers.Search(ctx, s.db, q, searchCandidates)
	if err != nil {
		return nil, storageFailure(s.logger, "search streamers", err)
	}

	matches := fuzzy.FindFrom(q, summarySource(candidates))
	out := make([]domain.StreamerSummary, 0, searchResults)
	for _, m := range matches {
		out = append(out, candidates[m.Index])
		if len(out) == searchResults {
			break
		}
	}
	return out, nil
}

// Profile merges Twitch user data, live state and clips with local stats.
// Live state and clips are best effort.
func (s *DirectoryService) Profile(ctx context.Context, login string) (*domain.StreamerProfile, error) {
	login = domain.NormalizeLogin(login)
	if err := domain.ValidateLogin(login); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	user, err := s.twitch.GetUser(ctx, login)
	if err != nil {
		s.logger.Warn("twitch user lookup failed", "login", login, "error", err)
		return nil, domain.ErrUpstream("twitch is unavailable", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("streamer", login)
	}

	profile := &domain.StreamerProfile{User: *user, Clips: []domain.TwitchClip{}}

	if streams, err := s.twitch.GetStreams(ctx, []string{login}); err != nil {
		s.logger.Warn("twitch stream lookup failed", "login", login, "error", err)
	} else if len(streams) > 0 {
		profile.IsLive = true
		s.recordLive(ctx, streams)
	}

	if clips, err := s.twitch.GetClips(ctx, user.ID, profileClips); err != nil {
		s.logger.Warn("twitch clip lookup failed", "login", login, "error", err)
	} else if len(clips) > 0 {
		profile.Clips = clips
		if _, err := s.repos.Clips.SaveMany(ctx, s.db, login, clips); err != nil {
			s.logger.Warn("clip cache write failed", "login", login, "error", err)
		}
	}

	stats, err := s.ledger.GetStats(ctx, login)
	if err != nil {
		return nil, err
	}
	profile.Stats = *stats
	return profile, nil
}

// Live returns the registered streamers currently live.
func (s *DirectoryService) Live(ctx context.Context) ([]domain.TwitchStream, error) {
	logins, err := s.repos.Streamers.ListLogins(ctx, s.db)
	if err != nil {
		return nil, storageFailure(s.logger, "list logins", err)
	}
	streams, err := s.twitch.GetStreams(ctx, logins)
	if err != nil {
		s.logger.Warn("twitch live lookup failed", "logins", len(logins), "error", err)
		return nil, domain.ErrUpstream("twitch is unavailable", err)
	}
	if streams == nil {
		streams = []domain.TwitchStream{}
	}
	s.recordLive(ctx, streams)
	return streams, nil
}

func (s *DirectoryService) recordLive(ctx context.Context, streams []domain.TwitchStream) {
	for _, st := range streams {
		if err := s.repos.LiveStreams.Record(ctx, s.db, st); err != nil {
			s.logger.Warn("live stream record failed", "stream_id", st.ID, "error", err)
		}
	}
}

// CleanupClips deletes cached clips older than retention.
func (s *DirectoryService) CleanupClips(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, domain.ErrValidation(fmt.Sprintf("invalid clip retention %s", retention))
	}
	cutoff := s.now().UTC().Add(-retention)
	n, err := s.repos.Clips.DeleteOlderThan(ctx, s.db, cutoff)
	if err != nil {
		return 0, storageFailure(s.logger, "cleanup clips", err)
	}
	s.logger.Info("old clips deleted", "deleted", n, "cutoff", cutoff)
	return n, nil
}
