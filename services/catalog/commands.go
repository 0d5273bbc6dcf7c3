package catalog

import (
	"context"
	"fmt"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogevents"
)

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, catalogevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", catalogevents.TopicName, err)
	}
	return nil
}

// itemFilter narrows a catalog listing; several values for one field match an item having any of them
type itemFilter struct {
	VisibleOnly  bool
	Categories   []string
	Difficulties []catalogapi.Difficulty
}

func (f itemFilter) storeFilters() []mystore.Filter {
	filters := []mystore.Filter{}
	if f.VisibleOnly {
		filters = append(filters, mystore.Filter{Field: "Visible", Compare: "=", Value: true})
	}
	if len(f.Categories) > 0 {
		values := []any{}
		for _, category := range f.Categories {
			values = append(values, category)
		}
		filters = append(filters, mystore.Filter{Field: "Category", Compare: "in", Value: values})
	}
	if len(f.Difficulties) > 0 {
		values := []any{}
		for _, difficulty := range f.Difficulties {
			values = append(values, string(difficulty))
		}
		filters = append(filters, mystore.Filter{Field: "Difficulty", Compare: "in", Value: values})
	}
	return filters
}

func (s *service) listItems(c context.Context, filter itemFilter) ([]catalogapi.CatalogItem, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "Fetch catalog (visible-only: %v, categories: %v, difficulties: %v)", filter.VisibleOnly, filter.Categories, filter.Difficulties)

	items, err := s.itemStore.Query(c, filter.storeFilters(), "-CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}
	return items, nil
}

func (s *service) getItem(c context.Context, itemUID string, visibleOnly bool) (catalogapi.CatalogItem, error) {
	s.logger.Log(c, itemUID, mylog.SeverityInfo, "Fetch catalog item %s", itemUID)

	item, found, err := s.itemStore.Get(c, itemUID)
	if err != nil {
		return catalogapi.CatalogItem{}, myerrors.NewInternalError(err)
	}
	if !found || (visibleOnly && !item.Visible) {
		return catalogapi.CatalogItem{}, myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", itemUID))
	}
	return item, nil
}

func (s *service) createItem(c context.Context, item catalogapi.CatalogItem) (catalogapi.CatalogItem, error) {
	err := item.Validate()
	if err != nil {
		return catalogapi.CatalogItem{}, myerrors.NewValidationError(err)
	}

	// uid is assigned here so it is unique from the moment it is written
	item.UID = uidPrefix + s.uuider.Create()
	item.CreatedAt = s.nower.Now()
	item.LastModified = nil

	s.logger.Log(c, item.UID, mylog.SeverityInfo, "Create catalog item %s (%s)", item.UID, item.Title)

	err = s.itemStore.RunInTransaction(c, func(c context.Context) error {
		_, exists, err := s.itemStore.Get(c, item.UID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if exists {
			return myerrors.NewConflictError(fmt.Errorf("catalog item with uid %s already exists", item.UID))
		}

		err = s.itemStore.Put(c, item.UID, item)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, catalogevents.TopicName, catalogevents.ItemCreated{
			ItemUID: item.UID,
			Title:   item.Title,
			Price:   item.Price,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return catalogapi.CatalogItem{}, err
	}

	return item, nil
}

func (s *service) updateItem(c context.Context, itemUID string, update catalogapi.CatalogItem) (catalogapi.CatalogItem, error) {
	err := update.Validate()
	if err != nil {
		return catalogapi.CatalogItem{}, myerrors.NewValidationError(err)
	}

	s.logger.Log(c, itemUID, mylog.SeverityInfo, "Update catalog item %s", itemUID)

	now := s.nower.Now()
	var item catalogapi.CatalogItem
	err = s.itemStore.RunInTransaction(c, func(c context.Context) error {
		existing, found, err := s.itemStore.Get(c, itemUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", itemUID))
		}

		item = update
		item.UID = existing.UID
		item.CreatedAt = existing.CreatedAt
		item.LastModified = &now

		err = s.itemStore.Put(c, itemUID, item)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, catalogevents.TopicName, catalogevents.ItemUpdated{
			ItemUID: item.UID,
			Title:   item.Title,
			Price:   item.Price,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return catalogapi.CatalogItem{}, err
	}

	return item, nil
}

func (s *service) setVisibility(c context.Context, itemUID string, visible bool) (catalogapi.CatalogItem, error) {
	s.logger.Log(c, itemUID, mylog.SeverityInfo, "Set visibility of catalog item %s to %v", itemUID, visible)

	now := s.nower.Now()
	var item catalogapi.CatalogItem
	err := s.itemStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		var err error
		item, found, err = s.itemStore.Get(c, itemUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", itemUID))
		}
		if item.Visible == visible {
			return nil
		}

		item.Visible = visible
		item.LastModified = &now

		err = s.itemStore.Put(c, itemUID, item)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, catalogevents.TopicName, catalogevents.ItemVisibilityChanged{
			ItemUID: itemUID,
			Visible: visible,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return catalogapi.CatalogItem{}, err
	}

	return item, nil
}

func (s *service) removeItem(c context.Context, itemUID string) error {
	s.logger.Log(c, itemUID, mylog.SeverityInfo, "Remove catalog item %s", itemUID)

	return s.itemStore.RunInTransaction(c, func(c context.Context) error {
		_, found, err := s.itemStore.Get(c, itemUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", itemUID))
		}

		err = s.itemStore.Delete(c, itemUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, catalogevents.TopicName, catalogevents.ItemRemoved{
			ItemUID: itemUID,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
}
