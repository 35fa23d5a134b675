package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackforge/sentinel/flagstore"
	"github.com/hackforge/sentinel/models"
)

var _ flagstore.FlagStore = (*Store)(nil)

func (s *Store) Get(ctx context.Context, subjectID uint64) (*flagstore.State, error) {
	var row models.SubjectFlag
	err := s.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &flagstore.State{Reason: row.Reason, FlaggedAt: row.FlaggedAt}, nil
}

func (s *Store) Set(ctx context.Context, subjectID uint64, reason string, at time.Time) error {
	if reason == "" {
		return flagstore.ErrEmptyReason
	}
	row := models.SubjectFlag{SubjectID: subjectID, Reason: reason, FlaggedAt: at}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "flagged_at"}),
	}).Create(&row).Error
}

func (s *Store) Clear(ctx context.Context, subjectID uint64) error {
	return s.db.WithContext(ctx).Delete(&models.SubjectFlag{}, "subject_id = ?", subjectID).Error
}
