package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/services/cart/cartapi"
)

type loadResult struct {
	session cartapi.CartSession
	notices []cartapi.Notice
}

// Load rehydrates the cart of a session key. Entries of items that disappeared from the catalog are
// dropped and reported as notices. A cart that cannot be read is treated as an empty cart.
func (s *service) Load(c context.Context, sessionUID string) (cartapi.CartSession, []cartapi.Notice, error) {
	if sessionUID == "" {
		return cartapi.CartSession{}, nil, myerrors.NewInvalidInputError(fmt.Errorf("missing session"))
	}

	// callers share the load, so one of them going away must not cancel it for the others
	shared := context.WithoutCancel(c)
	result, err, _ := s.loads.Do(sessionUID, func() (interface{}, error) {
		return s.load(shared, sessionUID)
	})
	if err != nil {
		s.logger.Log(c, sessionUID, mylog.SeverityError, "Error loading cart of session %s, continuing with empty cart: %s", sessionUID, err)
		return cartapi.NewCartSession(sessionUID, s.nower.Now()), []cartapi.Notice{}, nil
	}

	loaded := result.(loadResult)
	return loaded.session, loaded.notices, nil
}

func (s *service) load(c context.Context, sessionUID string) (loadResult, error) {
	var result loadResult
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		session, changed, err := s.obtain(c, sessionUID)
		if err != nil {
			return err
		}

		notices := s.reconcile(c, &session)
		if len(notices) > 0 {
			changed = true
		}

		if changed {
			err = s.write(c, &session)
			if err != nil {
				return err
			}
		}

		result = loadResult{session: session, notices: notices}
		return nil
	})
	return result, err
}

// obtain reads the stored cart; changed tells that the returned cart is not yet stored
func (s *service) obtain(c context.Context, sessionUID string) (cartapi.CartSession, bool, error) {
	session, found, err := s.cartStore.Get(c, sessionUID)
	if err != nil {
		if !errors.Is(err, mystore.ErrCorruptValue) {
			return cartapi.CartSession{}, false, err
		}
		s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Stored cart of session %s is unreadable and is reset: %s", sessionUID, err)
		found = false
	}
	if found {
		if session.Entries == nil {
			session.Entries = []cartapi.CartEntry{}
		}
		return session, false, nil
	}

	session = cartapi.NewCartSession(sessionUID, s.nower.Now())
	if !s.demoSeed {
		return session, false, nil
	}

	seeded := s.seed(c, &session)
	return session, seeded, nil
}

func (s *service) seed(c context.Context, session *cartapi.CartSession) bool {
	items, err := s.catalog.ListItems(c, true)
	if err != nil {
		s.logger.Log(c, session.SessionUID, mylog.SeverityWarn, "Error fetching catalog for demo cart: %s", err)
		return false
	}

	now := s.nower.Now()
	seeded := false
	for _, pos := range demoSeedPositions {
		if pos < len(items) {
			seeded = session.Add(items[pos], now) || seeded
		}
	}
	if seeded {
		s.logger.Log(c, session.SessionUID, mylog.SeverityInfo, "Seeded new cart of session %s with %d demo items", session.SessionUID, session.TotalCount())
	}
	return seeded
}

// reconcile drops entries of which the item no longer exists in the catalog
func (s *service) reconcile(c context.Context, session *cartapi.CartSession) []cartapi.Notice {
	notices := []cartapi.Notice{}
	for _, entry := range append([]cartapi.CartEntry{}, session.Entries...) {
		_, found, err := s.catalog.GetItem(c, entry.Item.UID)
		if err != nil {
			s.logger.Log(c, session.SessionUID, mylog.SeverityWarn, "Error checking catalog item %s: %s", entry.Item.UID, err)
			continue
		}
		if !found {
			s.logger.Log(c, session.SessionUID, mylog.SeverityInfo, "Catalog item %s is gone, removing it from cart", entry.Item.UID)
			session.Remove(entry.Item.UID)
			notices = append(notices, cartapi.NewNotice(cartapi.NoticeItemRemovedUnavailable, entry.Item.UID, entry.Item.Title))
		}
	}
	return notices
}

func (s *service) write(c context.Context, session *cartapi.CartSession) error {
	now := s.nower.Now()
	session.Version++
	session.LastModified = &now

	err := s.cartStore.Put(c, session.SessionUID, *session)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing cart of session %s: %s", session.SessionUID, err))
	}
	return nil
}

// mutate applies f to the stored cart and writes it before returning. f tells if it changed the cart.
// With tolerateWriteFailure a cart that could not be stored is still returned; the failure is only logged.
func (s *service) mutate(c context.Context, sessionUID string, expectedVersion *int64, tolerateWriteFailure bool, f func(session *cartapi.CartSession) ([]cartapi.Notice, bool)) (cartapi.CartSession, []cartapi.Notice, error) {
	if sessionUID == "" {
		return cartapi.CartSession{}, nil, myerrors.NewInvalidInputError(fmt.Errorf("missing session"))
	}

	var session cartapi.CartSession
	var notices []cartapi.Notice
	writing := false
	var storedVersion int64
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		writing = false
		var changed bool
		var err error
		session, changed, err = s.obtain(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		if expectedVersion != nil && *expectedVersion != session.Version {
			return myerrors.NewConflictError(fmt.Errorf("cart of session %s has version %d, expected %d", sessionUID, session.Version, *expectedVersion))
		}

		var mutated bool
		notices, mutated = f(&session)
		if !mutated && !changed {
			return nil
		}

		writing = true
		storedVersion = session.Version
		return s.write(c, &session)
	})
	if err != nil {
		if writing && tolerateWriteFailure {
			s.logger.Log(c, sessionUID, mylog.SeverityError, "Cart of session %s is changed but not stored: %s", sessionUID, err)
			session.Version = storedVersion
			return session, notices, nil
		}
		return cartapi.CartSession{}, nil, err
	}

	return session, notices, nil
}

func (s *service) add(c context.Context, sessionUID string, itemUID string, expectedVersion *int64) (cartapi.CartSession, []cartapi.Notice, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Add item %s to cart of session %s", itemUID, sessionUID)

	item, found, err := s.catalog.GetItem(c, itemUID)
	if err != nil {
		return cartapi.CartSession{}, nil, myerrors.NewInternalError(err)
	}

	return s.mutate(c, sessionUID, expectedVersion, true, func(session *cartapi.CartSession) ([]cartapi.Notice, bool) {
		if !found || !item.Visible {
			return []cartapi.Notice{cartapi.NewNotice(cartapi.NoticeItemUnavailable, itemUID, item.Title)}, false
		}
		if !session.Add(item, s.nower.Now()) {
			return []cartapi.Notice{cartapi.NewNotice(cartapi.NoticeAlreadyInCart, itemUID, item.Title)}, false
		}
		return []cartapi.Notice{}, true
	})
}

func (s *service) remove(c context.Context, sessionUID string, itemUID string, expectedVersion *int64) (cartapi.CartSession, []cartapi.Notice, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Remove item %s from cart of session %s", itemUID, sessionUID)

	return s.mutate(c, sessionUID, expectedVersion, true, func(session *cartapi.CartSession) ([]cartapi.Notice, bool) {
		return []cartapi.Notice{}, session.Remove(itemUID)
	})
}

func (s *service) clear(c context.Context, sessionUID string, expectedVersion *int64) (cartapi.CartSession, []cartapi.Notice, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Clear cart of session %s", sessionUID)

	return s.mutate(c, sessionUID, expectedVersion, true, func(session *cartapi.CartSession) ([]cartapi.Notice, bool) {
		return []cartapi.Notice{}, session.Clear()
	})
}

// Clear empties the cart after an order completed. Unlike the buyer's own changes, a failed write is reported.
func (s *service) Clear(c context.Context, sessionUID string) error {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Clear cart of session %s after order", sessionUID)

	_, _, err := s.mutate(c, sessionUID, nil, false, func(session *cartapi.CartSession) ([]cartapi.Notice, bool) {
		return []cartapi.Notice{}, session.Clear()
	})
	return err
}
