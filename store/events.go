package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hackforge/sentinel/engine"
	"github.com/hackforge/sentinel/models"
)

const defaultEventPageSize = 50

// QueryEvents pages the activity feed newest-first with a keyset cursor
// ("<unix-micros>|<id>"), so pages stay stable while new events land.
func (s *Store) QueryEvents(ctx context.Context, q engine.EventQuery) (*engine.EventPage, error) {
	db := s.db.WithContext(ctx).Model(&models.ActivityEvent{})

	if len(q.Types) > 0 {
		db = db.Where("type IN ?", q.Types)
	}
	if q.ActorID != nil {
		db = db.Where("actor_id = ?", *q.ActorID)
	}
	if q.TargetType != "" {
		db = db.Where("target_type = ?", q.TargetType)
	}
	if q.TargetID != 0 {
		db = db.Where("target_id = ?", q.TargetID)
	}
	if q.Severity != "" {
		db = db.Where("severity = ?", q.Severity)
	}
	if !q.Since.IsZero() {
		db = db.Where("occurred_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		db = db.Where("occurred_at <= ?", q.Until)
	}
	if q.Cursor != "" {
		ts, id, err := parseEventCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		db = db.Where("occurred_at < ? OR (occurred_at = ? AND id < ?)", ts, ts, id)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventPageSize
	}

	var events []*models.ActivityEvent
	// over-fetch by one to learn whether another page exists
	if err := db.Order("occurred_at DESC, id DESC").Limit(limit + 1).Find(&events).Error; err != nil {
		return nil, err
	}

	page := &engine.EventPage{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		page.HasMore = true
		last := page.Events[limit-1]
		page.NextCursor = formatEventCursor(last.OccurredAt, last.ID)
	}
	return page, nil
}

func formatEventCursor(ts time.Time, id uint64) string {
	return strconv.FormatInt(ts.UTC().UnixMicro(), 10) + "|" + strconv.FormatUint(id, 10)
}

func parseEventCursor(cursor string) (time.Time, uint64, error) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("invalid event cursor: %q", cursor)
	}
	micros, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid event cursor: %q", cursor)
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid event cursor: %q", cursor)
	}
	return time.UnixMicro(micros).UTC(), id, nil
}
