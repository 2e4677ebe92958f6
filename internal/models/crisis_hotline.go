package models

// CrisisHotline is a publicly listed emergency contact line.
type CrisisHotline struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Phone       string `gorm:"not null" json:"phone"`
	Country     string `gorm:"index" json:"country"`
	Description string `json:"description"`
}
