package catalogevents

const (
	TopicName             = "catalog"
	itemCreatedName       = TopicName + ".item.created"
	itemUpdatedName       = TopicName + ".item.updated"
	itemVisibilityChanged = TopicName + ".item.visibility.changed"
	itemRemovedName       = TopicName + ".item.removed"
)

type ItemCreated struct {
	ItemUID string
	Title   string
	Price   int64
}

func (e ItemCreated) GetEventTypeName() string {
	return itemCreatedName
}

func (e ItemCreated) GetAggregateName() string {
	return e.ItemUID
}

type ItemUpdated struct {
	ItemUID string
	Title   string
	Price   int64
}

func (e ItemUpdated) GetEventTypeName() string {
	return itemUpdatedName
}

func (e ItemUpdated) GetAggregateName() string {
	return e.ItemUID
}

type ItemVisibilityChanged struct {
	ItemUID string
	Visible bool
}

func (e ItemVisibilityChanged) GetEventTypeName() string {
	return itemVisibilityChanged
}

func (e ItemVisibilityChanged) GetAggregateName() string {
	return e.ItemUID
}

type ItemRemoved struct {
	ItemUID string
}

func (e ItemRemoved) GetEventTypeName() string {
	return itemRemovedName
}

func (e ItemRemoved) GetAggregateName() string {
	return e.ItemUID
}
