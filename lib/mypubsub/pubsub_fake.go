package mypubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
)

// fakePubSub pushes every published message to the endpoints that subscribed to its topic
type fakePubSub struct {
	sync.Mutex
	client        *http.Client
	subscriptions map[string][]string
	sequence      int
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" && os.Getenv("KAFKA_BROKERS") == "" {
		New = newFakePubSub
	}
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	return &fakePubSub{
			client:        &http.Client{Timeout: 10 * time.Second},
			subscriptions: map[string][]string{},
		}, func() {
		}, nil
}

func (ps *fakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	ps.Lock()
	defer ps.Unlock()

	for _, url := range ps.subscriptions[topic] {
		if url == urlToPostTo {
			return nil
		}
	}
	ps.subscriptions[topic] = append(ps.subscriptions[topic], urlToPostTo)

	return nil
}

func (ps *fakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *fakePubSub) Publish(c context.Context, topic string, data string) error {
	ps.Lock()
	ps.sequence++
	messageID := ps.sequence
	urls := append([]string{}, ps.subscriptions[topic]...)
	ps.Unlock()

	body, err := json.Marshal(myevents.NewPushRequest(topic, strconv.Itoa(messageID), []byte(data)))
	if err != nil {
		return err
	}

	for _, url := range urls {
		go ps.push(url, body)
	}

	return nil
}

func (ps *fakePubSub) push(url string, body []byte) {
	resp, err := ps.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("error pushing message to %s: %s", url, err)
		return
	}
	resp.Body.Close()
}
