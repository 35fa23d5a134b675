package models

import (
	"time"
)

// Activity event severities, low to high.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Audit log action types written by the moderation engine.
const (
	AuditActionOrganizerRevoke    = "organizer_revoke"
	AuditActionHackathonUnpublish = "hackathon_unpublish"
	AuditActionUserFlag           = "user_flag"
	AuditActionUserUnflag         = "user_unflag"
	AuditActionAutoFlag           = "auto_flag"
	AuditActionViolationIssued    = "violation_issued"
	AuditActionUserWarning        = "user_warning"
	AuditActionContentRemoval     = "content_removal"
	AuditActionAdminRoleChange    = "admin_role_change"
)

// Activity event types recorded by the platform and consumed by detection.
const (
	EventTypeAccountCreated      = "account_created"
	EventTypeRegistrationCreated = "registration_created"
	EventTypeReportFiled         = "report_filed"
	EventTypeGroupJoined         = "group_joined"
	EventTypeSubmissionCreated   = "submission_created"
	EventTypeModeration          = "moderation"
)

// ActivityEvent is an append-only activity feed record. Events are never
// mutated or deleted by the engine; the feed is ordered by OccurredAt
// descending.
type ActivityEvent struct {
	ID         uint64  `gorm:"primaryKey"`
	Type       string  `gorm:"index;not null"`
	ActorID    *uint64 `gorm:"index"`
	TargetType string  `gorm:"index:idx_activity_target;not null"`
	TargetID   uint64  `gorm:"index:idx_activity_target;not null"`
	TargetName string
	Action     string `gorm:"not null"`
	Metadata   []byte
	Severity   string    `gorm:"index;not null"`
	OccurredAt time.Time `gorm:"index;not null"`
}

// AuditLogEntry is immutable once written. BeforeState and AfterState hold
// JSON snapshots of the mutated record.
type AuditLogEntry struct {
	ID          uint64 `gorm:"primaryKey"`
	ActionType  string `gorm:"index;not null"`
	ActorID     uint64 `gorm:"index;not null"`
	ActorEmail  string
	TargetType  string `gorm:"index:idx_audit_target;not null"`
	TargetID    uint64 `gorm:"index:idx_audit_target;not null"`
	Reason      string `gorm:"not null"`
	BeforeState []byte
	AfterState  []byte
	CreatedAt   time.Time `gorm:"not null"`
}

// ScoreSnapshot is the latest trust score for a subject, replaced wholesale
// on each recomputation. No score history is retained at this layer.
type ScoreSnapshot struct {
	ID         uint64 `gorm:"primaryKey"`
	SubjectID  uint64 `gorm:"index:idx_score_subject_kind,unique;not null"`
	Kind       string `gorm:"index:idx_score_subject_kind,unique;not null"`
	Score      int    `gorm:"not null"`
	Factors    []byte
	Breakdown  []byte
	ComputedAt time.Time `gorm:"not null"`
}

// AdminRole assigns a role type plus a permission override map to a user.
// Permissions holds the JSON-encoded effective permission map (defaults for
// the role type with any per-role overrides already applied).
type AdminRole struct {
	ID          uint64 `gorm:"primaryKey"`
	UserID      uint64 `gorm:"uniqueIndex;not null"`
	RoleType    string `gorm:"not null"`
	Permissions []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubjectFlag is the persisted form of a flagged subject. A row exists only
// while the subject is flagged; unflagging deletes the row, so the invalid
// "flagged without reason" state has no representation.
type SubjectFlag struct {
	SubjectID uint64    `gorm:"primaryKey"`
	Reason    string    `gorm:"not null"`
	FlaggedAt time.Time `gorm:"not null"`
}
