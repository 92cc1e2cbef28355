package models

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Category is the closed set of sections an article can be filed under
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryWorld         Category = "world"
	CategoryNation        Category = "nation"
	CategoryBusiness      Category = "business"
	CategoryTechnology    Category = "technology"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryGeneral,
	CategoryWorld,
	CategoryNation,
	CategoryBusiness,
	CategoryTechnology,
	CategoryEntertainment,
	CategorySports,
	CategoryScience,
	CategoryHealth,
}

var titleCaser = cases.Title(language.English)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the human readable name, e.g. "Technology"
func (c Category) Label() string {
	return titleCaser.String(string(c))
}

// Article is a published news item
type Article struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Title         string    `gorm:"size:100;not null" json:"title"`
	Description   string    `gorm:"size:250" json:"description"`
	Body          string    `gorm:"size:5000;not null" json:"body"`
	Source        string    `gorm:"size:100" json:"source"`
	Writer        string    `gorm:"size:100" json:"writer"`
	Category      Category  `gorm:"size:20;not null;default:'general';index" json:"category"`
	Image         string    `json:"image,omitempty"` // media store key
	TimePublished time.Time `gorm:"not null;index" json:"time_published"`
	SiteID        *uint     `gorm:"index" json:"site_id,omitempty"`
	Site          *Source   `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"site,omitempty"`
}

// BeforeCreate stamps the publication time; it is never changed afterwards
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	a.TimePublished = tx.NowFunc()
	return nil
}

// Source is a news outlet articles can be attributed to
type Source struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	URL  string `gorm:"size:500" json:"url"`
}

// ContactMessage is a message left through the public contact form
type ContactMessage struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Name    string `gorm:"size:100;not null" json:"name"`
	Email   string `gorm:"size:100;not null" json:"email"`
	Title   string `gorm:"size:100;not null" json:"title"`
	Content string `gorm:"size:250;not null" json:"content"`
}
