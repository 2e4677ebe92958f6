package models

import "time"

// ResourceType distinguishes published resource categories.
type ResourceType string

const (
	ResourceTypeArticle       ResourceType = "article"
	ResourceTypeSurvivorStory ResourceType = "survivor-story"
)

// Resource is a published article or survivor story.
type Resource struct {
	BaseModel

	Type     ResourceType `gorm:"not null;index" json:"type"`
	Title    string       `gorm:"not null" json:"title"`
	Content  string       `gorm:"not null" json:"content"`
	Author   string       `json:"author"`
	Category string       `gorm:"default:general;index" json:"category"`

	IsPublished bool      `gorm:"default:true" json:"is_published"`
	PublishedAt time.Time `json:"published_at"`
}
