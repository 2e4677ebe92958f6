package models

// SupportGroup is a peer support community users can join and leave.
type SupportGroup struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Category    string `gorm:"default:general" json:"category"`

	Members []User `gorm:"many2many:support_group_members;" json:"members,omitempty"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`
	CreatedBy   *User   `gorm:"foreignKey:CreatedByID" json:"-"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}
