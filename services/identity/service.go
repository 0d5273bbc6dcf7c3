package identity

import (
	"strings"

	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/lib/mypublisher"
	"github.com/MarcGrol/sheetmusicshop/lib/mystore"
	"github.com/MarcGrol/sheetmusicshop/lib/mytime"
)

type service struct {
	memberStore  mystore.Store[Member]
	sessionStore mystore.Store[SessionIdentity]
	adminEmails  map[string]bool
	nower        mytime.Nower
	logger       mylog.Logger
	publisher    mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(memberStore mystore.Store[Member], sessionStore mystore.Store[SessionIdentity], adminEmails []string, nower mytime.Nower, logger mylog.Logger, pub mypublisher.Publisher) *service {
	admins := map[string]bool{}
	for _, email := range adminEmails {
		email = normalizeEmail(email)
		if email != "" {
			admins[email] = true
		}
	}
	return &service{
		memberStore:  memberStore,
		sessionStore: sessionStore,
		adminEmails:  admins,
		nower:        nower,
		logger:       logger,
		publisher:    pub,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
