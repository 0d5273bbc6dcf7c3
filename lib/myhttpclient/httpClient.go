package myhttpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
)

const (
	timeout = 5 * time.Second
)

type response struct {
	status int
	body   []byte
}

type jsonHTTPClient struct {
	headers    map[string]string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[response]
}

func newJSONHTTPClient(name string, headers map[string]string) *jsonHTTPClient {
	return &jsonHTTPClient{
		headers: headers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Printf("Circuit-breaker %s changed from %s to %s", name, from, to)
			},
		}),
	}
}

func (c *jsonHTTPClient) Send(ctx context.Context, method string, url string, body []byte) (int, []byte, error) {
	resp, err := c.breaker.Execute(func() (response, error) {
		return c.send(ctx, method, url, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, []byte{}, myerrors.NewUnavailableError(fmt.Errorf("%s %s not attempted: %s", method, url, err))
		}
		return resp.status, resp.body, err
	}

	return resp.status, resp.body, nil
}

func (c *jsonHTTPClient) send(ctx context.Context, method string, url string, body []byte) (response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("error creating http request for %s %s: %s", method, url, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	log.Printf("HTTP request: %s %s", method, url)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response{}, fmt.Errorf("error sending %s %s: %s", method, url, err)
	}

	defer httpResp.Body.Close()

	respPayload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return response{}, fmt.Errorf("error reading response %s %s: %s", method, url, err)
	}

	log.Printf("HTTP resp: %d", httpResp.StatusCode)

	resp := response{status: httpResp.StatusCode, body: respPayload}
	if httpResp.StatusCode >= http.StatusInternalServerError {
		// counts as failure for the circuit-breaker
		return resp, fmt.Errorf("server error on %s %s: %d", method, url, httpResp.StatusCode)
	}

	return resp, nil
}
