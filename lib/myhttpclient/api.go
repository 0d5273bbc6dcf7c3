package myhttpclient

import (
	"context"
)

//go:generate mockgen -source=api.go -package myhttpclient -destination httpclient_mock.go HTTPSender
type HTTPSender interface {
	Send(c context.Context, method string, url string, body []byte) (int, []byte, error)
}

// New returns a json-speaking client protected by a circuit-breaker. The headers are added to every request.
func New(name string, headers map[string]string) HTTPSender {
	return newJSONHTTPClient(name, headers)
}
