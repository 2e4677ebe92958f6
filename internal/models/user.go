package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserKind enumerates the supported account kinds.
type UserKind string

const (
	// UserKindVictim identifies help-seeking accounts.
	UserKindVictim UserKind = "victim"
	// UserKindExpert identifies credentialed helper accounts.
	UserKindExpert UserKind = "expert"
	// UserKindAdmin identifies administrative accounts.
	UserKindAdmin UserKind = "admin"
)

// Valid reports whether the kind is one of the known account kinds.
func (k UserKind) Valid() bool {
	switch k {
	case UserKindVictim, UserKindExpert, UserKindAdmin:
		return true
	}
	return false
}

// User is the shared account record for victims, experts, and administrators.
// The email address is the unique identity key across every account kind.
type User struct {
	ID       string   `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string   `gorm:"uniqueIndex;not null" json:"email"`
	Password string   `gorm:"not null" json:"-"`
	Kind     UserKind `gorm:"not null;index" json:"kind"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`

	IsAnonymous bool `gorm:"default:false" json:"is_anonymous"`
	IsVerified  bool `gorm:"default:false" json:"is_verified"`

	PrivacySettings   datatypes.JSON `json:"privacy_settings,omitempty"`
	EmergencyContacts datatypes.JSON `json:"emergency_contacts,omitempty"`

	// Password reset codes are persisted, unlike registration OTPs which
	// live only in memory: reset codes gate a credential change and must
	// survive a process restart.
	ResetCode      string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`

	VictimProfile *VictimProfile `gorm:"foreignKey:UserID" json:"victim_profile,omitempty"`
	ExpertProfile *ExpertProfile `gorm:"foreignKey:UserID" json:"expert_profile,omitempty"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate normalises the identity key and assigns a UUID.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail lowercases and trims an identity key so lookups are
// case-insensitive regardless of how the address was entered.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
