package connector

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// Options configures the resilience layer added by Wrap.
type Options struct {
	Backoff Backoff
	// ReadConcurrency bounds in-flight read calls per connector.
	// Zero or negative means unbounded.
	ReadConcurrency int64
	// MutationRate limits mutations per second per connector.
	// Zero means unlimited.
	MutationRate rate.Limit
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Backoff: DefaultBackoff(), ReadConcurrency: 4}
}

// Wrap returns a Set whose connectors retry retryable failures with backoff,
// bound concurrent reads, and serialise mutations. Nil connectors stay nil.
func Wrap(set Set, opts Options) Set {
	var out Set
	if set.Mail != nil {
		out.Mail = &resilientMail{next: set.Mail, g: newGuard(opts)}
	}
	if set.Media != nil {
		out.Media = &resilientMedia{next: set.Media, g: newGuard(opts)}
	}
	if set.Storage != nil {
		out.Storage = &resilientStorage{next: set.Storage, g: newGuard(opts)}
	}
	if set.Calendar != nil {
		out.Calendar = &resilientCalendar{next: set.Calendar, g: newGuard(opts)}
	}
	if set.Identity != nil {
		out.Identity = &resilientIdentity{next: set.Identity, g: newGuard(opts)}
	}
	return out
}

// guard holds the per-connector retry policy, read semaphore, and
// mutation lock.
type guard struct {
	backoff Backoff
	reads   *semaphore.Weighted
	limiter *rate.Limiter

	mu sync.Mutex
}

func newGuard(opts Options) *guard {
	g := &guard{backoff: opts.Backoff}
	if opts.ReadConcurrency > 0 {
		g.reads = semaphore.NewWeighted(opts.ReadConcurrency)
	}
	if opts.MutationRate > 0 {
		g.limiter = rate.NewLimiter(opts.MutationRate, 1)
	}
	return g
}

func (g *guard) read(ctx context.Context, fn func(context.Context) error) error {
	if g.reads != nil {
		if err := g.reads.Acquire(ctx, 1); err != nil {
			return err
		}
		defer g.reads.Release(1)
	}
	return g.backoff.Do(ctx, fn)
}

func (g *guard) mutate(ctx context.Context, fn func(context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return g.backoff.Do(ctx, fn)
}

func readValue[T any](ctx context.Context, g *guard, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := g.read(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// ── mail ─────────────────────────────────────────────────────────────────────

type resilientMail struct {
	next MailConnector
	g    *guard
}

func (r *resilientMail) ListUnread(ctx context.Context, limit int) ([]models.MessageRef, error) {
	return readValue(ctx, r.g, func(ctx context.Context) ([]models.MessageRef, error) {
		return r.next.ListUnread(ctx, limit)
	})
}

func (r *resilientMail) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	return readValue(ctx, r.g, func(ctx context.Context) (*models.Message, error) {
		return r.next.GetMessage(ctx, id)
	})
}

func (r *resilientMail) GetForwardingAddresses(ctx context.Context) ([]models.ForwardingAddress, error) {
	return readValue(ctx, r.g, r.next.GetForwardingAddresses)
}

func (r *resilientMail) ListFilters(ctx context.Context) ([]models.MailFilter, error) {
	return readValue(ctx, r.g, r.next.ListFilters)
}

func (r *resilientMail) DeleteMessage(ctx context.Context, id string) error {
	return r.g.mutate(ctx, func(ctx context.Context) error { return r.next.DeleteMessage(ctx, id) })
}

func (r *resilientMail) MarkAsSpam(ctx context.Context, id string) error {
	return r.g.mutate(ctx, func(ctx context.Context) error { return r.next.MarkAsSpam(ctx, id) })
}

// ── media ────────────────────────────────────────────────────────────────────

type resilientMedia struct {
	next MediaConnector
	g    *guard
}

func (r *resilientMedia) ListOwnedVideos(ctx context.Context) ([]models.VideoSummary, error) {
	return readValue(ctx, r.g, r.next.ListOwnedVideos)
}

func (r *resilientMedia) GetVideoDetails(ctx context.Context, id string) (*models.Video, error) {
	return readValue(ctx, r.g, func(ctx context.Context) (*models.Video, error) {
		return r.next.GetVideoDetails(ctx, id)
	})
}

func (r *resilientMedia) SetPrivacy(ctx context.Context, id string, privacy models.MediaPrivacy) error {
	return r.g.mutate(ctx, func(ctx context.Context) error { return r.next.SetPrivacy(ctx, id, privacy) })
}

// ── storage ──────────────────────────────────────────────────────────────────

type resilientStorage struct {
	next FileStorageConnector
	g    *guard
}

func (r *resilientStorage) ListFiles(ctx context.Context, pageSize int) ([]models.File, error) {
	return readValue(ctx, r.g, func(ctx context.Context) ([]models.File, error) {
		return r.next.ListFiles(ctx, pageSize)
	})
}

func (r *resilientStorage) GetPermissions(ctx context.Context, fileID string) ([]models.Permission, error) {
	return readValue(ctx, r.g, func(ctx context.Context) ([]models.Permission, error) {
		return r.next.GetPermissions(ctx, fileID)
	})
}

func (r *resilientStorage) DeletePermission(ctx context.Context, fileID, permID string) error {
	return r.g.mutate(ctx, func(ctx context.Context) error {
		return r.next.DeletePermission(ctx, fileID, permID)
	})
}

func (r *resilientStorage) SetPermissionRole(ctx context.Context, fileID, permID string, role models.PermissionRole) error {
	return r.g.mutate(ctx, func(ctx context.Context) error {
		return r.next.SetPermissionRole(ctx, fileID, permID, role)
	})
}

// ── calendar ─────────────────────────────────────────────────────────────────

type resilientCalendar struct {
	next CalendarConnector
	g    *guard
}

func (r *resilientCalendar) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	return readValue(ctx, r.g, r.next.ListCalendars)
}

func (r *resilientCalendar) GetACL(ctx context.Context, calendarID string) ([]models.ACLRule, error) {
	return readValue(ctx, r.g, func(ctx context.Context) ([]models.ACLRule, error) {
		return r.next.GetACL(ctx, calendarID)
	})
}

func (r *resilientCalendar) DeleteACLRule(ctx context.Context, calendarID, ruleID string) error {
	return r.g.mutate(ctx, func(ctx context.Context) error {
		return r.next.DeleteACLRule(ctx, calendarID, ruleID)
	})
}

// ── identity ─────────────────────────────────────────────────────────────────

type resilientIdentity struct {
	next IdentityConnector
	g    *guard
}

func (r *resilientIdentity) GetIdentity(ctx context.Context) (*models.Identity, error) {
	return readValue(ctx, r.g, r.next.GetIdentity)
}
