package catalog

import (
	"fmt"
	"net/http"
	"net/url"

	formcodec "github.com/go-playground/form/v4"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

type itemForm struct {
	Title       string `form:"title"`
	Composer    string `form:"composer"`
	Price       int64  `form:"price"`
	Pages       int    `form:"pages"`
	Difficulty  string `form:"difficulty"`
	Category    string `form:"category"`
	Description string `form:"description"`
	Duration    string `form:"duration"`
	ImageURL    string `form:"imageUrl"`
	YoutubeURL  string `form:"youtubeUrl"`
	Visible     bool   `form:"visible"`
}

func itemFromRequest(r *http.Request) (catalogapi.CatalogItem, error) {
	err := r.ParseForm()
	if err != nil {
		return catalogapi.CatalogItem{}, myerrors.NewInvalidInputError(err)
	}
	return itemFromValues(r.Form)
}

func itemFromValues(values url.Values) (catalogapi.CatalogItem, error) {
	f := itemForm{}
	err := formcodec.NewDecoder().Decode(&f, values)
	if err != nil {
		return catalogapi.CatalogItem{}, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}

	return catalogapi.CatalogItem{
		Title:       f.Title,
		Composer:    f.Composer,
		Price:       f.Price,
		Pages:       f.Pages,
		Difficulty:  catalogapi.Difficulty(f.Difficulty),
		Category:    f.Category,
		Description: f.Description,
		Duration:    f.Duration,
		ImageURL:    f.ImageURL,
		YoutubeURL:  f.YoutubeURL,
		Visible:     f.Visible,
	}, nil
}

type listQuery struct {
	Categories   []string `form:"category"`
	Difficulties []string `form:"difficulty"`
}

// filterFromRequest reads the repeatable category and difficulty query parameters
func filterFromRequest(r *http.Request, visibleOnly bool) (itemFilter, error) {
	q := listQuery{}
	err := formcodec.NewDecoder().Decode(&q, r.URL.Query())
	if err != nil {
		return itemFilter{}, myerrors.NewInvalidInputError(fmt.Errorf("error decoding query: %s", err))
	}

	filter := itemFilter{
		VisibleOnly: visibleOnly,
	}
	for _, category := range q.Categories {
		if category != "" {
			filter.Categories = append(filter.Categories, category)
		}
	}
	for _, d := range q.Difficulties {
		if d == "" {
			continue
		}
		difficulty, err := catalogapi.ParseDifficulty(d)
		if err != nil {
			return itemFilter{}, myerrors.NewInvalidInputError(err)
		}
		filter.Difficulties = append(filter.Difficulties, difficulty)
	}
	return filter, nil
}
