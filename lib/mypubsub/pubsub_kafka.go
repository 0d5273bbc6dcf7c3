package mypubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"github.com/MarcGrol/sheetmusicshop/lib/myevents"
)

// kafkaPubSub publishes on kafka topics. A subscription is a consumer-group that pushes every
// record to its endpoint, the same way a push-subscription does.
type kafkaPubSub struct {
	sync.Mutex
	brokers    []string
	producer   *kgo.Client
	consumers  []*kgo.Client
	httpClient *http.Client
	cancel     context.CancelFunc
	ctx        context.Context
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" && os.Getenv("KAFKA_BROKERS") != "" {
		New = newKafkaPubSub
	}
}

func kafkaOpts(brokers []string) []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	}
	if os.Getenv("KAFKA_USERNAME") != "" && os.Getenv("KAFKA_PASSWORD") != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: os.Getenv("KAFKA_USERNAME"),
			Pass: os.Getenv("KAFKA_PASSWORD"),
		}.AsMechanism()))
	}
	return opts
}

func newKafkaPubSub(c context.Context) (PubSub, func(), error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")

	producer, err := kgo.NewClient(append(kafkaOpts(brokers), kgo.RequiredAcks(kgo.AllISRAcks()))...)
	if err != nil {
		return nil, func() {}, fmt.Errorf("error creating kafka client: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ps := &kafkaPubSub{
		brokers:    brokers,
		producer:   producer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ctx:        ctx,
		cancel:     cancel,
	}

	return ps, ps.close, nil
}

func (ps *kafkaPubSub) close() {
	ps.cancel()

	ps.Lock()
	defer ps.Unlock()
	for _, consumer := range ps.consumers {
		consumer.Close()
	}
	ps.producer.Close()
}

// CreateTopic relies on auto topic creation of the brokers
func (ps *kafkaPubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *kafkaPubSub) Publish(c context.Context, topic string, data string) error {
	err := ps.producer.ProduceSync(c, &kgo.Record{
		Topic: topic,
		Value: []byte(data),
	}).FirstErr()
	if err != nil {
		return fmt.Errorf("error publishing event on topic %s: %s", topic, err)
	}
	return nil
}

func (ps *kafkaPubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	group := topic + "-" + subscriptionSuffix(urlToPostTo)
	consumer, err := kgo.NewClient(append(kafkaOpts(ps.brokers),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
	)...)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer for topic %s: %s", topic, err)
	}

	ps.Lock()
	ps.consumers = append(ps.consumers, consumer)
	ps.Unlock()

	go ps.consume(consumer, topic, urlToPostTo)

	log.Printf("*** Subscribed %s to topic %s", urlToPostTo, topic)

	return nil
}

func (ps *kafkaPubSub) consume(consumer *kgo.Client, topic string, urlToPostTo string) {
	for {
		fetches := consumer.PollFetches(ps.ctx)
		if fetches.IsClientClosed() || ps.ctx.Err() != nil {
			return
		}
		fetches.EachError(func(t string, p int32, err error) {
			log.Printf("error fetching from topic %s partition %d: %s", t, p, err)
		})

		fetches.EachRecord(func(record *kgo.Record) {
			ps.push(topic, record, urlToPostTo)
		})

		err := consumer.CommitUncommittedOffsets(ps.ctx)
		if err != nil {
			log.Printf("error committing offsets of topic %s: %s", topic, err)
		}
	}
}

func (ps *kafkaPubSub) push(topic string, record *kgo.Record, urlToPostTo string) {
	messageID := fmt.Sprintf("%d-%d", record.Partition, record.Offset)
	body, err := json.Marshal(myevents.NewPushRequest(topic, messageID, record.Value))
	if err != nil {
		log.Printf("error wrapping record %s: %s", messageID, err)
		return
	}

	// at-least-once: keep pushing until the endpoint accepts it
	for attempt := 1; ps.ctx.Err() == nil; attempt++ {
		resp, err := ps.httpClient.Post(urlToPostTo, "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < http.StatusInternalServerError {
				return
			}
		}
		log.Printf("Push of record %s to %s failed (attempt %d)", messageID, urlToPostTo, attempt)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
}
