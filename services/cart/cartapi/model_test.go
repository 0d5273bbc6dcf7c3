package cartapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

var (
	now    = time.Date(2026, time.February, 27, 23, 58, 59, 0, time.UTC)
	satie  = catalogapi.CatalogItem{UID: "product_1", Title: "Gymnopédie No.1", Price: 15000}
	debuss = catalogapi.CatalogItem{UID: "product_2", Title: "Clair de Lune", Price: 22000}
)

func TestAddIsIdempotent(t *testing.T) {
	session := NewCartSession("session-1", now)

	assert.True(t, session.Add(satie, now))
	assert.False(t, session.Add(satie, now))

	assert.Len(t, session.Entries, 1)
	assert.Equal(t, 1, session.Entries[0].Quantity)
	assert.Equal(t, int64(15000), session.TotalPrice())
}

func TestRemoveIsIdempotent(t *testing.T) {
	session := NewCartSession("session-1", now)
	session.Add(satie, now)
	session.Add(debuss, now)

	assert.True(t, session.Remove(satie.UID))
	assert.False(t, session.Remove(satie.UID))

	assert.Equal(t, 1, session.TotalCount())
	assert.Equal(t, debuss.UID, session.Entries[0].Item.UID)
}

func TestTotals(t *testing.T) {
	session := NewCartSession("session-1", now)
	assert.Equal(t, 0, session.TotalCount())
	assert.Equal(t, int64(0), session.TotalPrice())

	session.Add(satie, now)
	session.Add(debuss, now)
	assert.Equal(t, 2, session.TotalCount())
	assert.Equal(t, int64(37000), session.TotalPrice())

	assert.True(t, session.Clear())
	assert.False(t, session.Clear())
	assert.Equal(t, 0, session.TotalCount())
	assert.Equal(t, int64(0), session.TotalPrice())
}

func TestNotice(t *testing.T) {
	notice := NewNotice(NoticeAlreadyInCart, satie.UID, satie.Title)
	assert.Equal(t, "이미 장바구니에 담긴 상품입니다.", notice.Message)
	assert.Equal(t, satie.UID, notice.ItemUID)
}
