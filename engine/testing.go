package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hackforge/sentinel/cachestore"
	"github.com/hackforge/sentinel/countstore"
	"github.com/hackforge/sentinel/detect"
	"github.com/hackforge/sentinel/flagstore"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
	"github.com/hackforge/sentinel/trust"
)

// MemStore is an in-memory Store for tests and local development. Factor
// snapshots, roles, and hackathons are seeded directly on the maps;
// FailTransitions injects per-hackathon transition failures for cascade
// tests.
type MemStore struct {
	mu sync.Mutex

	Subjects   map[uint64]*trust.SubjectFactors
	Organizers map[uint64]*trust.OrganizerFactors
	Scores     map[uint64]*trust.ScoreResult
	Roles      map[uint64]*rbac.Role
	Hackathons map[uint64]*models.Hackathon
	Events     []*models.ActivityEvent
	AuditLog   []*models.AuditLogEntry

	FailTransitions map[uint64]error
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		Subjects:        make(map[uint64]*trust.SubjectFactors),
		Organizers:      make(map[uint64]*trust.OrganizerFactors),
		Scores:          make(map[uint64]*trust.ScoreResult),
		Roles:           make(map[uint64]*rbac.Role),
		Hackathons:      make(map[uint64]*models.Hackathon),
		FailTransitions: make(map[uint64]error),
	}
}

func (s *MemStore) SubjectFactors(ctx context.Context, subjectID uint64) (*trust.SubjectFactors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.Subjects[subjectID]
	if !ok {
		return &trust.SubjectFactors{}, nil
	}
	cp := *f
	return &cp, nil
}

func (s *MemStore) OrganizerFactors(ctx context.Context, organizerID uint64) (*trust.OrganizerFactors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.Organizers[organizerID]
	if !ok {
		return &trust.OrganizerFactors{}, nil
	}
	cp := *f
	return &cp, nil
}

func (s *MemStore) UpsertScore(ctx context.Context, subjectID uint64, res *trust.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Scores[subjectID] = res
	return nil
}

func (s *MemStore) QueryEvents(ctx context.Context, q EventQuery) (*EventPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.ActivityEvent, 0, len(s.Events))
	for _, evt := range s.Events {
		if len(q.Types) > 0 && !containsStr(q.Types, evt.Type) {
			continue
		}
		if q.ActorID != nil && (evt.ActorID == nil || *evt.ActorID != *q.ActorID) {
			continue
		}
		if q.TargetType != "" && evt.TargetType != q.TargetType {
			continue
		}
		if q.TargetID != 0 && evt.TargetID != q.TargetID {
			continue
		}
		if q.Severity != "" && evt.Severity != q.Severity {
			continue
		}
		if !q.Since.IsZero() && evt.OccurredAt.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && evt.OccurredAt.After(q.Until) {
			continue
		}
		matched = append(matched, evt)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	// offset cursors are fine for a test store; the gorm store uses keysets
	offset := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(q.Cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %q", q.Cursor)
		}
		offset = n
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	page := &EventPage{}
	if len(matched) > limit {
		page.Events = matched[:limit]
		page.HasMore = true
		page.NextCursor = strconv.Itoa(offset + limit)
	} else {
		page.Events = matched
	}
	return page, nil
}

func (s *MemStore) WriteEvent(ctx context.Context, evt *models.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evt.ID = uint64(len(s.Events) + 1)
	s.Events = append(s.Events, evt)
	return nil
}

func (s *MemStore) WriteAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uint64(len(s.AuditLog) + 1)
	s.AuditLog = append(s.AuditLog, entry)
	return nil
}

func (s *MemStore) ListActiveDependents(ctx context.Context, organizerID uint64) ([]*models.Hackathon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Hackathon
	for _, h := range s.Hackathons {
		if h.OrganizerID == organizerID && h.Status == models.HackathonStatusPublished {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) TransitionHackathonState(ctx context.Context, hackathonID uint64, newState string) (*StateTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailTransitions[hackathonID]; ok {
		return nil, err
	}
	h, ok := s.Hackathons[hackathonID]
	if !ok {
		return nil, fmt.Errorf("hackathon %d not found", hackathonID)
	}
	before := map[string]any{"status": h.Status}
	h.Status = newState
	h.UpdatedAt = time.Now().UTC()
	return &StateTransition{
		Before: before,
		After:  map[string]any{"status": newState},
	}, nil
}

func (s *MemStore) GetAdminRole(ctx context.Context, userID uint64) (*rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Roles[userID], nil
}

func containsStr(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// EngineTestFixture returns an engine wired entirely to in-memory
// collaborators with default thresholds.
func EngineTestFixture() *Engine {
	return &Engine{
		Logger:    slog.Default(),
		Store:     NewMemStore(),
		Flags:     flagstore.NewMemFlagStore(),
		Counters:  countstore.NewMemCountStore(),
		Cache:     cachestore.NewMemCacheStore(100, time.Hour),
		Notifier:  NoopNotifier{},
		Detection: detect.DefaultConfig(),
		AutoFlag:  trust.DefaultAutoFlagConfig(),
		Quotas:    DefaultQuotaConfig(),
	}
}
