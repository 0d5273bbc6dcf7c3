package catalogapi

import (
	"fmt"
	"time"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("unknown difficulty '%s'", s)
	}
}

// CatalogItem is a purchasable digital sheet-music product
type CatalogItem struct {
	UID          string
	Title        string
	Composer     string
	Price        int64
	Pages        int
	Difficulty   Difficulty
	Category     string
	Description  string
	Duration     string
	ImageURL     string
	YoutubeURL   string
	Visible      bool
	CreatedAt    time.Time
	LastModified *time.Time
}

func (i CatalogItem) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("missing title")
	}
	if i.Price < 0 {
		return fmt.Errorf("price must not be negative: %d", i.Price)
	}
	if i.Pages < 0 {
		return fmt.Errorf("pages must not be negative: %d", i.Pages)
	}
	_, err := ParseDifficulty(string(i.Difficulty))
	if err != nil {
		return err
	}
	return nil
}
