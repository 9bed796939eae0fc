package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type fakeRoster struct {
	unwelcomed []int64
	listErr    error
	listCalls  int
	marked     map[int64]bool
}

func (r *fakeRoster) UnwelcomedUsers(_ context.Context) ([]int64, error) {
	r.listCalls++
	return r.unwelcomed, r.listErr
}

func (r *fakeRoster) MarkWelcomed(_ context.Context, userID int64, welcomed bool) error {
	if r.marked == nil {
		r.marked = make(map[int64]bool)
	}
	r.marked[userID] = welcomed
	return nil
}

type fakePlatform struct {
	nonMembers map[int64]bool
	memberErr  map[int64]error
	sendErr    map[int64]error
	sent       []int64
}

func (p *fakePlatform) IsMember(_ context.Context, _ int64, userID int64) (bool, error) {
	if err := p.memberErr[userID]; err != nil {
		return false, err
	}
	return !p.nonMembers[userID], nil
}

func (p *fakePlatform) SendDirect(_ context.Context, userID int64, _ string) error {
	if err := p.sendErr[userID]; err != nil {
		return err
	}
	p.sent = append(p.sent, userID)
	return nil
}

type fakeAttempts struct {
	seen map[string]bool
	set  []string
}

func (a *fakeAttempts) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if a.seen[keys[0]] {
		return redis.NewIntResult(1, nil)
	}
	return redis.NewIntResult(0, nil)
}

func (a *fakeAttempts) Set(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.StatusCmd {
	a.set = append(a.set, key)
	return redis.NewStatusResult("OK", nil)
}

func newTestWelcomer(roster *fakeRoster, platform *fakePlatform, attempts AttemptStore) *Welcomer {
	return NewWelcomer(roster, platform, attempts, -100, "/tip, /withdraw", "https://example.com/backup", zap.NewNop())
}

func TestWelcomeSuccessSetsFlag(t *testing.T) {
	roster := &fakeRoster{unwelcomed: []int64{1, 2}}
	platform := &fakePlatform{}
	w := newTestWelcomer(roster, platform, nil)

	w.Run(context.Background())

	if len(platform.sent) != 2 {
		t.Fatalf("sent %d welcomes, want 2", len(platform.sent))
	}
	if !roster.marked[1] || !roster.marked[2] {
		t.Fatalf("flags not set after delivery: %v", roster.marked)
	}
}

func TestWelcomeDeliveryFailureLeavesFlagUnset(t *testing.T) {
	roster := &fakeRoster{unwelcomed: []int64{1, 2, 3}}
	platform := &fakePlatform{sendErr: map[int64]error{2: errors.New("blocked the bot")}}
	w := newTestWelcomer(roster, platform, nil)

	w.Run(context.Background())

	if _, marked := roster.marked[2]; marked {
		t.Fatal("failed delivery must leave the flag unset")
	}
	if !roster.marked[1] || !roster.marked[3] {
		t.Fatalf("one failure halted the batch: %v", roster.marked)
	}
}

func TestWelcomeMemberResolutionFailureSkips(t *testing.T) {
	roster := &fakeRoster{unwelcomed: []int64{1, 2}}
	platform := &fakePlatform{
		nonMembers: map[int64]bool{1: true},
		memberErr:  map[int64]error{2: errors.New("chat not found")},
	}
	w := newTestWelcomer(roster, platform, nil)

	w.Run(context.Background())

	if len(platform.sent) != 0 {
		t.Fatalf("sent %d welcomes to unresolvable users", len(platform.sent))
	}
	if len(roster.marked) != 0 {
		t.Fatalf("flags set for unresolvable users: %v", roster.marked)
	}
}

func TestWelcomeBackoffSuppressesRecentAttempt(t *testing.T) {
	roster := &fakeRoster{unwelcomed: []int64{7}}
	platform := &fakePlatform{sendErr: map[int64]error{7: errors.New("unreachable")}}
	attempts := &fakeAttempts{seen: map[string]bool{}}
	w := newTestWelcomer(roster, platform, attempts)

	w.Run(context.Background())

	key := fmt.Sprintf("welcome_attempt_%d", int64(7))
	if len(attempts.set) != 1 || attempts.set[0] != key {
		t.Fatalf("failed attempt not noted, set=%v", attempts.set)
	}

	// Simulate the next run inside the backoff window: no new send attempt.
	attempts.seen[key] = true
	platform.sendErr = nil
	w.Run(context.Background())

	if len(platform.sent) != 0 {
		t.Fatal("user retried inside the backoff window")
	}
	if _, marked := roster.marked[7]; marked {
		t.Fatal("flag must stay unset while the user is backed off")
	}
}

func TestWelcomeRunIsNotReentrant(t *testing.T) {
	roster := &fakeRoster{unwelcomed: []int64{1}}
	w := newTestWelcomer(roster, &fakePlatform{}, nil)

	w.running.Store(true)
	w.Run(context.Background())

	if roster.listCalls != 0 {
		t.Fatal("second run started while one was in progress")
	}

	w.running.Store(false)
	w.Run(context.Background())
	if roster.listCalls != 1 {
		t.Fatalf("run after completion did not execute, listCalls=%d", roster.listCalls)
	}
}

func TestWelcomeNilRosterIsNoop(t *testing.T) {
	w := newTestWelcomer(nil, &fakePlatform{}, nil)
	w.Roster = nil
	w.Run(context.Background())
}
