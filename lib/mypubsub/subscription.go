package mypubsub

import (
	"net/url"
	"strings"
)

// subscriptionSuffix derives a stable name from the path of a push endpoint: "/api/notification/event" becomes "api-notification-event"
func subscriptionSuffix(urlToPostTo string) string {
	path := urlToPostTo
	u, err := url.Parse(urlToPostTo)
	if err == nil {
		path = u.Path
	}
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}
