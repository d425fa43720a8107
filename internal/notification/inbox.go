package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/diewo77/go-church/internal/metrics"
	"github.com/robfig/cron/v3"
)

// CountSource provides the authoritative unread count.
type CountSource interface {
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

// Inbox is the unread counter of one signed-in user. Local changes are
// applied optimistically; a refresh replaces the counter with the server
// value.
type Inbox struct {
	userID uint

	mu          sync.Mutex
	unread      int64
	generation  uint64 // bumped by every local change
	refreshedAt time.Time
	lastSeen    time.Time
	entry       cron.EntryID
}

func (i *Inbox) touch(now time.Time) {
	i.mu.Lock()
	i.lastSeen = now
	i.mu.Unlock()
}

func (i *Inbox) idleSince(now time.Time) time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return now.Sub(i.lastSeen)
}

// Unread returns the current counter.
func (i *Inbox) Unread() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unread
}

// RefreshedAt is the time of the last applied server value.
func (i *Inbox) RefreshedAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.refreshedAt
}

// MarkedRead decrements the counter by one, never below zero.
func (i *Inbox) MarkedRead() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unread > 0 {
		i.unread--
	}
	i.generation++
}

// MarkedAllRead sets the counter to zero.
func (i *Inbox) MarkedAllRead() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.unread = 0
	i.generation++
}

func (i *Inbox) snapshot() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.generation
}

// apply stores a server value unless a local change happened while it
// was being fetched.
func (i *Inbox) apply(n int64, gen uint64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.generation != gen {
		return false
	}
	i.unread = n
	i.refreshedAt = time.Now()
	return true
}

// Inboxes tracks open inboxes and refreshes each on a fixed interval.
// Inboxes not used for longer than the idle timeout are closed, so
// sessions that end without logging out stop refreshing.
type Inboxes struct {
	source   CountSource
	interval time.Duration
	idle     time.Duration
	cron     *cron.Cron
	logger   *slog.Logger

	mu   sync.Mutex
	open map[uint]*Inbox
}

func NewInboxes(source CountSource, interval, idle time.Duration, logger *slog.Logger) *Inboxes {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if idle <= 0 {
		idle = 12 * time.Hour
	}
	r := &Inboxes{
		source:   source,
		interval: interval,
		idle:     idle,
		cron:     cron.New(),
		logger:   logger.With("service", "inbox"),
		open:     make(map[uint]*Inbox),
	}
	r.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		r.Sweep(time.Now())
	}))
	return r
}

// Start runs the refresh scheduler in its own goroutine.
func (r *Inboxes) Start() {
	r.cron.Start()
	r.logger.Info("inbox refresh scheduler started", "interval", r.interval)
}

// Stop halts the scheduler and waits for running refreshes or ctx.
func (r *Inboxes) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	r.logger.Info("inbox refresh scheduler stopped")
}

// Open returns the inbox of userID, creating and scheduling it on first
// use. A new inbox is refreshed before it is returned.
func (r *Inboxes) Open(ctx context.Context, userID uint) *Inbox {
	now := time.Now()
	r.mu.Lock()
	if inbox, ok := r.open[userID]; ok {
		r.mu.Unlock()
		inbox.touch(now)
		return inbox
	}
	inbox := &Inbox{userID: userID, lastSeen: now}
	r.open[userID] = inbox
	inbox.entry = r.cron.Schedule(cron.Every(r.interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.interval)
		defer cancel()
		r.refresh(ctx, inbox)
	}))
	r.mu.Unlock()
	metrics.OpenInboxes.Inc()

	r.refresh(ctx, inbox)
	return inbox
}

// Get returns the open inbox of userID.
func (r *Inboxes) Get(userID uint) (*Inbox, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	inbox, ok := r.open[userID]
	r.mu.Unlock()
	if ok {
		inbox.touch(time.Now())
	}
	return inbox, ok
}

// Sweep closes inboxes idle for longer than the idle timeout at now and
// reports how many were closed.
func (r *Inboxes) Sweep(now time.Time) int {
	r.mu.Lock()
	var idle []uint
	for uid, inbox := range r.open {
		if inbox.idleSince(now) > r.idle {
			idle = append(idle, uid)
		}
	}
	r.mu.Unlock()
	for _, uid := range idle {
		r.Close(uid)
	}
	if len(idle) > 0 {
		r.logger.Info("closed idle inboxes", "count", len(idle))
	}
	return len(idle)
}

// Close stops refreshing the inbox of userID and forgets it.
func (r *Inboxes) Close(userID uint) {
	r.mu.Lock()
	inbox, ok := r.open[userID]
	if ok {
		delete(r.open, userID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	r.cron.Remove(inbox.entry)
	metrics.OpenInboxes.Dec()
}

// Refresh reconciles the inbox of userID with the server now.
func (r *Inboxes) Refresh(ctx context.Context, userID uint) (int64, error) {
	inbox, ok := r.Get(userID)
	if !ok {
		inbox = r.Open(ctx, userID)
		return inbox.Unread(), nil
	}
	if err := r.refresh(ctx, inbox); err != nil {
		return inbox.Unread(), err
	}
	return inbox.Unread(), nil
}

func (r *Inboxes) refresh(ctx context.Context, inbox *Inbox) error {
	gen := inbox.snapshot()
	n, err := r.source.UnreadCount(ctx, inbox.userID)
	if err != nil {
		metrics.InboxRefreshes.WithLabelValues("error").Inc()
		r.logger.Warn("unread count refresh failed", "user_id", inbox.userID, "error", err)
		return err
	}
	if !inbox.apply(n, gen) {
		metrics.InboxRefreshes.WithLabelValues("stale").Inc()
		return nil
	}
	metrics.InboxRefreshes.WithLabelValues("ok").Inc()
	return nil
}

// Len reports the number of open inboxes.
func (r *Inboxes) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
