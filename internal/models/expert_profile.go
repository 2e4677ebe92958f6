package models

import "gorm.io/datatypes"

// ExpertVerificationStatus tracks the credential review state of an expert.
type ExpertVerificationStatus string

const (
	ExpertVerificationPending  ExpertVerificationStatus = "pending"
	ExpertVerificationVerified ExpertVerificationStatus = "verified"
	ExpertVerificationRejected ExpertVerificationStatus = "rejected"
)

// ExpertProfile is the side-record created alongside expert registrations.
type ExpertProfile struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	Specializations datatypes.JSON `json:"specializations,omitempty"`
	Credentials     datatypes.JSON `json:"credentials,omitempty"`
	Availability    datatypes.JSON `json:"availability,omitempty"`

	VerificationStatus ExpertVerificationStatus `gorm:"default:pending;index" json:"verification_status"`

	Rating        float64 `gorm:"default:0" json:"rating"`
	TotalSessions int     `gorm:"default:0" json:"total_sessions"`
	IsActive      bool    `gorm:"default:true" json:"is_active"`
}
