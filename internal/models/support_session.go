package models

import "time"

// SessionStatus tracks the lifecycle of a booked support session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// SupportSession is a scheduled one-on-one session between a victim and an
// expert. Bookings are rejected when either party already holds a pending
// or confirmed session at the same time.
type SupportSession struct {
	BaseModel

	VictimID string         `gorm:"type:uuid;not null;index" json:"victim_id"`
	Victim   *VictimProfile `gorm:"foreignKey:VictimID" json:"victim,omitempty"`

	ExpertID string         `gorm:"type:uuid;not null;index" json:"expert_id"`
	Expert   *ExpertProfile `gorm:"foreignKey:ExpertID" json:"expert,omitempty"`

	ScheduledAt time.Time     `gorm:"not null;index" json:"scheduled_at"`
	Status      SessionStatus `gorm:"default:pending;index" json:"status"`
	Notes       string        `json:"notes"`
}
