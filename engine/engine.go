// Package engine orchestrates moderation actions: trust score recomputation,
// automatic and explicit flagging, pattern and spike detection, and organizer
// revocation with cascading side effects. It is the only component in the
// module which performs I/O; the scoring, detection, permission, and diff
// logic it composes is pure.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hackforge/sentinel/cachestore"
	"github.com/hackforge/sentinel/countstore"
	"github.com/hackforge/sentinel/detect"
	"github.com/hackforge/sentinel/flagstore"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
	"github.com/hackforge/sentinel/trust"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrEmptyReason      = errors.New("a reason is required for moderation actions")
)

// EventQuery filters a page of activity events. Results are always ordered
// by occurrence time descending; Cursor continues a prior page.
type EventQuery struct {
	Types      []string
	ActorID    *uint64
	TargetType string
	TargetID   uint64
	Severity   string
	Since      time.Time
	Until      time.Time
	Cursor     string
	Limit      int
}

type EventPage struct {
	Events     []*models.ActivityEvent
	HasMore    bool
	NextCursor string
}

// StateTransition is the before/after snapshot pair returned by a dependent
// entity state change.
type StateTransition struct {
	Before map[string]any
	After  map[string]any
}

// Store is the persistence collaborator. The engine owns no query logic of
// its own; implementations aggregate factor snapshots and page event feeds
// however they see fit.
type Store interface {
	SubjectFactors(ctx context.Context, subjectID uint64) (*trust.SubjectFactors, error)
	OrganizerFactors(ctx context.Context, organizerID uint64) (*trust.OrganizerFactors, error)
	// UpsertScore replaces the stored snapshot wholesale; no history kept.
	UpsertScore(ctx context.Context, subjectID uint64, res *trust.ScoreResult) error
	QueryEvents(ctx context.Context, q EventQuery) (*EventPage, error)
	WriteEvent(ctx context.Context, evt *models.ActivityEvent) error
	WriteAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
	// ListActiveDependents returns the organizer's published hackathons.
	ListActiveDependents(ctx context.Context, organizerID uint64) ([]*models.Hackathon, error)
	TransitionHackathonState(ctx context.Context, hackathonID uint64, newState string) (*StateTransition, error)
	GetAdminRole(ctx context.Context, userID uint64) (*rbac.Role, error)
}

// Notifier delivers out-of-band notifications to the people affected by a
// cascade. Delivery mechanics (and whether delivery should be queued) are
// unresolved upstream, so the engine only ever calls this best-effort.
type Notifier interface {
	NotifyAffected(ctx context.Context, organizerID uint64, hackathons []*models.Hackathon) error
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyAffected(ctx context.Context, organizerID uint64, hackathons []*models.Hackathon) error {
	return nil
}

// AdminActor identifies the moderator or automation performing an action.
type AdminActor struct {
	UserID uint64
	Email  string
	Role   *rbac.Role
}

// QuotaConfig bounds automated action volume (circuit breakers).
type QuotaConfig struct {
	// maximum automatic flags per day, across all subjects
	AutoFlagDay int
}

func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{AutoFlagDay: 25}
}

// Engine executes moderation workflows against injected collaborators.
//
// Careful when initializing: Logger, Store, Flags, and Counters are expected
// to be non-nil; Cache and Notifier are optional.
type Engine struct {
	Logger   *slog.Logger
	Store    Store
	Flags    flagstore.FlagStore
	Counters countstore.CountStore
	Cache    cachestore.CacheStore
	Notifier Notifier

	Detection detect.Config
	AutoFlag  trust.AutoFlagConfig
	Quotas    QuotaConfig

	SlackWebhookURL string

	slackOnce    sync.Once
	slackLimiter *rate.Limiter
}

const (
	factorCacheName = "factors"

	// page size used when assembling detection windows
	detectPageSize = 500

	// how many pages detection will walk before giving up; bounds the cost
	// of a detection run on a very hot feed
	detectMaxPages = 20
)

func factorCacheKey(kind trust.ScoreKind, id uint64) string {
	return string(kind) + "/" + itoa(id)
}

// subjectFactorsCached reads the subject factor snapshot through the cache.
func (eng *Engine) subjectFactorsCached(ctx context.Context, subjectID uint64) (*trust.SubjectFactors, error) {
	var cached trust.SubjectFactors
	if eng.cacheGet(ctx, factorCacheKey(trust.KindSubject, subjectID), &cached) {
		return &cached, nil
	}
	factors, err := eng.Store.SubjectFactors(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	eng.cacheSet(ctx, factorCacheKey(trust.KindSubject, subjectID), factors)
	return factors, nil
}

func (eng *Engine) organizerFactorsCached(ctx context.Context, organizerID uint64) (*trust.OrganizerFactors, error) {
	var cached trust.OrganizerFactors
	if eng.cacheGet(ctx, factorCacheKey(trust.KindOrganizer, organizerID), &cached) {
		return &cached, nil
	}
	factors, err := eng.Store.OrganizerFactors(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	eng.cacheSet(ctx, factorCacheKey(trust.KindOrganizer, organizerID), factors)
	return factors, nil
}

func (eng *Engine) cacheGet(ctx context.Context, key string, out any) bool {
	if eng.Cache == nil {
		return false
	}
	raw, err := eng.Cache.Get(ctx, factorCacheName, key)
	if err != nil {
		eng.Logger.Warn("factor cache read failed", "key", key, "err", err)
		return false
	}
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		eng.Logger.Warn("factor cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (eng *Engine) cacheSet(ctx context.Context, key string, val any) {
	if eng.Cache == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := eng.Cache.Set(ctx, factorCacheName, key, string(raw)); err != nil {
		eng.Logger.Warn("factor cache write failed", "key", key, "err", err)
	}
}

// PurgeFactorCaches drops any cached factor snapshots for the subject, so
// the next score calculation sees fresh counts.
func (eng *Engine) PurgeFactorCaches(ctx context.Context, subjectID uint64) {
	if eng.Cache == nil {
		return
	}
	for _, kind := range []trust.ScoreKind{trust.KindSubject, trust.KindOrganizer} {
		if err := eng.Cache.Purge(ctx, factorCacheName, factorCacheKey(kind, subjectID)); err != nil {
			eng.Logger.Warn("factor cache purge failed", "subject", subjectID, "err", err)
		}
	}
}

// requirePermission gates an orchestrator action on the acting admin's role.
func (eng *Engine) requirePermission(admin AdminActor, perm string) error {
	dec, err := rbac.CheckPermission(admin.Role, perm)
	if err != nil {
		return err
	}
	if !dec.Allowed {
		return &PermissionError{Permission: perm, Reason: dec.Reason}
	}
	return nil
}

// PermissionError carries the enforcer's reason alongside the sentinel.
type PermissionError struct {
	Permission string
	Reason     string
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Reason
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}
