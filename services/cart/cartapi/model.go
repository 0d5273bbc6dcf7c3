package cartapi

import (
	"time"

	"github.com/MarcGrol/sheetmusicshop/services/catalog/catalogapi"
)

// CartEntry is a snapshot of a catalog item taken when it was added. Digital goods are bought once, so quantity is always 1.
type CartEntry struct {
	Item     catalogapi.CatalogItem
	Quantity int
	AddedAt  time.Time
}

// CartSession is the selection of one session key. Version is raised on every mutation.
type CartSession struct {
	SessionUID   string
	Entries      []CartEntry
	Version      int64
	CreatedAt    time.Time
	LastModified *time.Time
}

func NewCartSession(sessionUID string, now time.Time) CartSession {
	return CartSession{
		SessionUID: sessionUID,
		Entries:    []CartEntry{},
		CreatedAt:  now,
	}
}

func (s CartSession) Contains(itemUID string) bool {
	return s.indexOf(itemUID) >= 0
}

func (s CartSession) indexOf(itemUID string) int {
	for idx, e := range s.Entries {
		if e.Item.UID == itemUID {
			return idx
		}
	}
	return -1
}

// Add returns false when the item is already in the cart
func (s *CartSession) Add(item catalogapi.CatalogItem, now time.Time) bool {
	if s.Contains(item.UID) {
		return false
	}
	s.Entries = append(s.Entries, CartEntry{
		Item:     item,
		Quantity: 1,
		AddedAt:  now,
	})
	return true
}

// Remove returns false when the item was not in the cart
func (s *CartSession) Remove(itemUID string) bool {
	idx := s.indexOf(itemUID)
	if idx < 0 {
		return false
	}
	entries := make([]CartEntry, 0, len(s.Entries)-1)
	entries = append(entries, s.Entries[:idx]...)
	s.Entries = append(entries, s.Entries[idx+1:]...)
	return true
}

// Clear returns false when the cart was already empty
func (s *CartSession) Clear() bool {
	if len(s.Entries) == 0 {
		return false
	}
	s.Entries = []CartEntry{}
	return true
}

func (s CartSession) TotalCount() int {
	return len(s.Entries)
}

func (s CartSession) TotalPrice() int64 {
	total := int64(0)
	for _, e := range s.Entries {
		total += e.Item.Price
	}
	return total
}

type NoticeCode string

const (
	NoticeAlreadyInCart          NoticeCode = "already-in-cart"
	NoticeItemUnavailable        NoticeCode = "item-unavailable"
	NoticeItemRemovedUnavailable NoticeCode = "item-removed-unavailable"
)

var noticeMessages = map[NoticeCode]string{
	NoticeAlreadyInCart:          "이미 장바구니에 담긴 상품입니다.",
	NoticeItemUnavailable:        "구매할 수 없는 상품입니다.",
	NoticeItemRemovedUnavailable: "판매가 중단된 상품이 장바구니에서 삭제되었습니다.",
}

// Notice informs the buyer about something that happened to the cart without being an error
type Notice struct {
	Code    NoticeCode
	ItemUID string
	Title   string
	Message string
}

func NewNotice(code NoticeCode, itemUID string, title string) Notice {
	return Notice{
		Code:    code,
		ItemUID: itemUID,
		Title:   title,
		Message: noticeMessages[code],
	}
}
