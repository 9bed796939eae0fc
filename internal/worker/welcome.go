package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Roster is the ledger slice the runner needs: who still needs a welcome,
// and the flag write after a successful send.
type Roster interface {
	UnwelcomedUsers(ctx context.Context) ([]int64, error)
	MarkWelcomed(ctx context.Context, userID int64, welcomed bool) error
}

// Platform resolves community membership and delivers direct messages.
type Platform interface {
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)
	SendDirect(ctx context.Context, userID int64, text string) error
}

// AttemptStore records recent delivery attempts so a permanently
// unreachable user is not re-messaged on every run. *redis.Client
// satisfies it.
type AttemptStore interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

const defaultAttemptBackoff = 48 * time.Hour

// Welcomer sends the one-time onboarding message to every user the ledger
// has not yet flagged as welcomed. One user's failure never stops the
// batch; the flag is written only after a confirmed delivery, so a failed
// user is retried on a later run (throttled by the attempt store).
type Welcomer struct {
	Roster      Roster
	Platform    Platform
	Attempts    AttemptStore
	CommunityID int64
	HelpStr     string
	ExportURL   string
	Backoff     time.Duration
	Log         *zap.Logger

	running atomic.Bool
}

func NewWelcomer(roster Roster, platform Platform, attempts AttemptStore, communityID int64, helpStr, exportURL string, log *zap.Logger) *Welcomer {
	return &Welcomer{
		Roster:      roster,
		Platform:    platform,
		Attempts:    attempts,
		CommunityID: communityID,
		HelpStr:     helpStr,
		ExportURL:   exportURL,
		Backoff:     defaultAttemptBackoff,
		Log:         log,
	}
}

// Run executes one onboarding batch. Not re-entrant: a Run while another is
// in progress returns immediately.
func (w *Welcomer) Run(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.Log.Warn("welcome batch already running, skipping")
		return
	}
	defer w.running.Store(false)

	if w.Roster == nil {
		return
	}

	users, err := w.Roster.UnwelcomedUsers(ctx)
	if err != nil {
		w.Log.Error("failed to list unwelcomed users", zap.Error(err))
		return
	}

	w.Log.Info("welcoming new users", zap.Int("count", len(users)))
	for _, userID := range users {
		w.welcome(ctx, userID)
	}
}

func (w *Welcomer) welcome(ctx context.Context, userID int64) {
	key := fmt.Sprintf("welcome_attempt_%d", userID)
	if w.Attempts != nil {
		if seen, _ := w.Attempts.Exists(ctx, key).Result(); seen > 0 {
			return
		}
	}

	member, err := w.Platform.IsMember(ctx, w.CommunityID, userID)
	if err != nil || !member {
		w.Log.Info("user is not a reachable member of the community",
			zap.Int64("user", userID), zap.Error(err))
		w.noteAttempt(ctx, key)
		return
	}

	text := fmt.Sprintf("Welcome! You can deposit or withdraw tao using the following commands:\n%s\n\nPlease backup your mnemonic on the following website: %s",
		w.HelpStr, w.ExportURL)

	if err := w.Platform.SendDirect(ctx, userID, text); err != nil {
		// Flag stays unset so the user is retried on a future run.
		w.Log.Warn("can't send welcome message to user", zap.Int64("user", userID), zap.Error(err))
		w.noteAttempt(ctx, key)
		return
	}

	if err := w.Roster.MarkWelcomed(ctx, userID, true); err != nil {
		w.Log.Error("failed to flag user as welcomed", zap.Int64("user", userID), zap.Error(err))
	}
}

func (w *Welcomer) noteAttempt(ctx context.Context, key string) {
	if w.Attempts == nil {
		return
	}
	backoff := w.Backoff
	if backoff <= 0 {
		backoff = defaultAttemptBackoff
	}
	w.Attempts.Set(ctx, key, "true", backoff)
}
