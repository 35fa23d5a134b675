package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackforge/sentinel/engine"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
	"github.com/hackforge/sentinel/trust"
)

// Store implements both engine.Store and flagstore.FlagStore on one gorm
// handle, so the daemon can run without redis.
type Store struct {
	db *gorm.DB
}

var _ engine.Store = (*Store)(nil)

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Hackathon{},
		&models.Registration{},
		&models.Report{},
		&models.ActivityEvent{},
		&models.AuditLogEntry{},
		&models.ScoreSnapshot{},
		&models.AdminRole{},
		&models.SubjectFlag{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// moderationActionTypes are the audit action types which count against a
// subject's trust score.
var moderationActionTypes = []string{
	models.AuditActionUserFlag,
	models.AuditActionUserWarning,
	models.AuditActionContentRemoval,
	models.AuditActionViolationIssued,
}

func (s *Store) SubjectFactors(ctx context.Context, subjectID uint64) (*trust.SubjectFactors, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, subjectID).Error; err != nil {
		return nil, fmt.Errorf("loading user %d: %w", subjectID, err)
	}

	var completed, validFiled, received, modActions int64
	if err := db.Model(&models.Registration{}).
		Where("user_id = ? AND status = ?", subjectID, models.RegistrationStatusCompleted).
		Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("counting completed registrations: %w", err)
	}
	if err := db.Model(&models.Report{}).
		Where("reporter_id = ? AND status = ?", subjectID, models.ReportStatusValid).
		Count(&validFiled).Error; err != nil {
		return nil, fmt.Errorf("counting valid reports filed: %w", err)
	}
	if err := db.Model(&models.Report{}).
		Where("target_id = ?", subjectID).
		Count(&received).Error; err != nil {
		return nil, fmt.Errorf("counting reports received: %w", err)
	}
	if err := db.Model(&models.AuditLogEntry{}).
		Where("target_type = ? AND target_id = ? AND action_type IN ?", "user", subjectID, moderationActionTypes).
		Count(&modActions).Error; err != nil {
		return nil, fmt.Errorf("counting moderation actions: %w", err)
	}

	return &trust.SubjectFactors{
		AccountAgeDays:    int(time.Since(user.CreatedAt).Hours() / 24),
		SuccessfulEvents:  int(completed),
		ValidReportsFiled: int(validFiled),
		ReportsReceived:   int(received),
		ModerationActions: int(modActions),
		IdentityVerified:  user.EmailVerified,
	}, nil
}

func (s *Store) OrganizerFactors(ctx context.Context, organizerID uint64) (*trust.OrganizerFactors, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, organizerID).Error; err != nil {
		return nil, fmt.Errorf("loading user %d: %w", organizerID, err)
	}

	type hackAgg struct {
		Total        int64
		Approved     int64
		Rejected     int64
		Participants int64
	}
	var agg hackAgg
	if err := db.Model(&models.Hackathon{}).
		Select("COUNT(*) AS total,"+
			" COUNT(CASE WHEN status = ? THEN 1 END) AS approved,"+
			" COUNT(CASE WHEN status = ? THEN 1 END) AS rejected,"+
			" COALESCE(SUM(participant_count), 0) AS participants",
			models.HackathonStatusApproved, models.HackathonStatusRejected).
		Where("organizer_id = ?", organizerID).
		Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("aggregating hackathons: %w", err)
	}

	var violations int64
	if err := db.Model(&models.AuditLogEntry{}).
		Where("target_type = ? AND target_id = ? AND action_type = ?",
			"organizer", organizerID, models.AuditActionViolationIssued).
		Count(&violations).Error; err != nil {
		return nil, fmt.Errorf("counting violations: %w", err)
	}

	return &trust.OrganizerFactors{
		AccountAgeDays:     int(time.Since(user.CreatedAt).Hours() / 24),
		TotalHackathons:    int(agg.Total),
		ApprovedHackathons: int(agg.Approved),
		RejectedHackathons: int(agg.Rejected),
		TotalParticipants:  int(agg.Participants),
		Violations:         int(violations),
	}, nil
}

func (s *Store) UpsertScore(ctx context.Context, subjectID uint64, res *trust.ScoreResult) error {
	var factors any
	switch res.Kind {
	case trust.KindSubject:
		factors = res.SubjectFactors
	case trust.KindOrganizer:
		factors = res.OrganizerFactors
	}
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return fmt.Errorf("encoding factors: %w", err)
	}
	breakdownJSON, err := json.Marshal(res.Breakdown)
	if err != nil {
		return fmt.Errorf("encoding breakdown: %w", err)
	}

	snap := models.ScoreSnapshot{
		SubjectID:  subjectID,
		Kind:       string(res.Kind),
		Score:      res.Score,
		Factors:    factorsJSON,
		Breakdown:  breakdownJSON,
		ComputedAt: res.ComputedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "factors", "breakdown", "computed_at"}),
	}).Create(&snap).Error
}

// GetScore reads the latest persisted snapshot, or nil when the subject has
// never been scored.
func (s *Store) GetScore(ctx context.Context, subjectID uint64, kind trust.ScoreKind) (*models.ScoreSnapshot, error) {
	var snap models.ScoreSnapshot
	err := s.db.WithContext(ctx).
		Where("subject_id = ? AND kind = ?", subjectID, string(kind)).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) WriteEvent(ctx context.Context, evt *models.ActivityEvent) error {
	return s.db.WithContext(ctx).Create(evt).Error
}

func (s *Store) WriteAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) ListActiveDependents(ctx context.Context, organizerID uint64) ([]*models.Hackathon, error) {
	var out []*models.Hackathon
	if err := s.db.WithContext(ctx).
		Where("organizer_id = ? AND status = ?", organizerID, models.HackathonStatusPublished).
		Order("id").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) TransitionHackathonState(ctx context.Context, hackathonID uint64, newState string) (*engine.StateTransition, error) {
	var trans *engine.StateTransition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var hack models.Hackathon
		if err := tx.First(&hack, hackathonID).Error; err != nil {
			return fmt.Errorf("loading hackathon %d: %w", hackathonID, err)
		}
		before := map[string]any{"status": hack.Status}
		if err := tx.Model(&hack).Update("status", newState).Error; err != nil {
			return fmt.Errorf("updating hackathon %d status: %w", hackathonID, err)
		}
		trans = &engine.StateTransition{
			Before: before,
			After:  map[string]any{"status": newState},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trans, nil
}

func (s *Store) GetAdminRole(ctx context.Context, userID uint64) (*rbac.Role, error) {
	var row models.AdminRole
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	perms := make(map[string]bool)
	if len(row.Permissions) > 0 {
		if err := json.Unmarshal(row.Permissions, &perms); err != nil {
			return nil, fmt.Errorf("decoding role permissions for user %d: %w", userID, err)
		}
	} else {
		defaults, err := rbac.DefaultPermissions(rbac.RoleType(row.RoleType))
		if err != nil {
			return nil, err
		}
		perms = defaults
	}
	return &rbac.Role{
		ID:          row.ID,
		UserID:      row.UserID,
		Type:        rbac.RoleType(row.RoleType),
		Permissions: perms,
	}, nil
}

// PutAdminRole persists a role assignment, replacing any existing row for
// the user.
func (s *Store) PutAdminRole(ctx context.Context, role *rbac.Role) error {
	permsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("encoding role permissions: %w", err)
	}
	row := models.AdminRole{
		UserID:      role.UserID,
		RoleType:    string(role.Type),
		Permissions: permsJSON,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role_type", "permissions", "updated_at"}),
	}).Create(&row).Error
}
