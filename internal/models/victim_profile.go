package models

import "gorm.io/datatypes"

// VictimProfile is the side-record created alongside victim registrations.
type VictimProfile struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	// ExpertPreferences captures free-form matching preferences such as
	// desired specialisations or language.
	ExpertPreferences datatypes.JSON `json:"expert_preferences,omitempty"`

	MatchedExperts []ExpertProfile `gorm:"many2many:victim_matched_experts;" json:"matched_experts,omitempty"`
}
