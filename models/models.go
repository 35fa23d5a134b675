package models

import (
	"time"
)

// Hackathon lifecycle states. Only "published" hackathons count as active
// dependents of an organizer.
const (
	HackathonStatusDraft       = "draft"
	HackathonStatusPublished   = "published"
	HackathonStatusUnpublished = "unpublished"
	HackathonStatusApproved    = "approved"
	HackathonStatusRejected    = "rejected"
)

const (
	ReportStatusPending   = "pending"
	ReportStatusValid     = "valid"
	ReportStatusDismissed = "dismissed"
)

const (
	RegistrationStatusActive    = "active"
	RegistrationStatusCompleted = "completed"
	RegistrationStatusWithdrawn = "withdrawn"
)

type User struct {
	ID            uint64 `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;not null"`
	DisplayName   string
	EmailVerified bool
	IsOrganizer   bool
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time
}

type Hackathon struct {
	ID               uint64 `gorm:"primaryKey"`
	OrganizerID      uint64 `gorm:"index;not null"`
	Title            string `gorm:"not null"`
	Status           string `gorm:"index;not null"`
	ParticipantCount int
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}

type Registration struct {
	ID          uint64 `gorm:"primaryKey"`
	UserID      uint64 `gorm:"index:idx_registration_user_hackathon,unique;not null"`
	HackathonID uint64 `gorm:"index:idx_registration_user_hackathon,unique;not null"`
	Status      string `gorm:"not null"`
	CreatedAt   time.Time
}

type Report struct {
	ID         uint64 `gorm:"primaryKey"`
	ReporterID uint64 `gorm:"index;not null"`
	TargetID   uint64 `gorm:"index;not null"`
	Status     string `gorm:"not null"`
	Reason     string
	CreatedAt  time.Time `gorm:"not null"`
}
