package database

import (
	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.VictimProfile{},
		&models.ExpertProfile{},
		&models.RefreshToken{},
		&models.Resource{},
		&models.SupportGroup{},
		&models.CrisisHotline{},
		&models.SupportSession{},
	)
}

// SeedData populates the default crisis hotline directory. Hotlines must be
// reachable even on a fresh install, before any admin has logged in.
func SeedData(db *gorm.DB) error {
	hotlines := []models.CrisisHotline{
		{
			BaseModel:   models.BaseModel{ID: "hotline-us-dv"},
			Name:        "National Domestic Violence Hotline",
			Phone:       "1-800-799-7233",
			Country:     "US",
			Description: "24/7 confidential support for victims of domestic violence",
		},
		{
			BaseModel:   models.BaseModel{ID: "hotline-us-988"},
			Name:        "988 Suicide & Crisis Lifeline",
			Phone:       "988",
			Country:     "US",
			Description: "24/7 free and confidential crisis support",
		},
		{
			BaseModel:   models.BaseModel{ID: "hotline-uk-refuge"},
			Name:        "Refuge National Domestic Abuse Helpline",
			Phone:       "0808 2000 247",
			Country:     "UK",
			Description: "Free 24-hour helpline for women and children",
		},
	}

	for _, hotline := range hotlines {
		err := db.Where(models.CrisisHotline{BaseModel: models.BaseModel{ID: hotline.ID}}).
			Attrs(hotline).
			FirstOrCreate(&models.CrisisHotline{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}
