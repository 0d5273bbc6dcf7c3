package myqueue

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/MarcGrol/sheetmusicshop/lib/myhttp"
)

// fakeTaskQueue delivers tasks to the own webserver after the requested delay
type fakeTaskQueue struct {
	sync.Mutex
	baseURL  string
	client   *http.Client
	enqueued map[string]bool
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakeQueue
	}
}

func newFakeQueue(c context.Context) (TaskQueuer, func(), error) {
	return &fakeTaskQueue{
			baseURL:  myhttp.GuessHostnameWithScheme(),
			client:   &http.Client{Timeout: 10 * time.Second},
			enqueued: map[string]bool{},
		}, func() {
		}, nil
}

func (q *fakeTaskQueue) Enqueue(c context.Context, task Task) error {
	q.Lock()
	defer q.Unlock()

	if q.enqueued[task.UID] {
		log.Printf("task with id %s already exists -> ignore\n", task.UID)
		return nil
	}
	q.enqueued[task.UID] = true

	delay := task.Delay
	if delay == 0 {
		delay = 100 * time.Millisecond
	}

	time.AfterFunc(delay, func() {
		defer q.forget(task.UID)

		req, err := http.NewRequest(http.MethodPut, q.baseURL+task.WebhookURLPath, bytes.NewReader(task.Payload))
		if err != nil {
			log.Printf("error creating task request %s: %s", task.UID, err)
			return
		}
		resp, err := q.client.Do(req)
		if err != nil {
			log.Printf("error delivering task %s: %s", task.UID, err)
			return
		}
		resp.Body.Close()
	})

	return nil
}

// forget drops a delivered task; only tasks that are still pending are de-duplicated
func (q *fakeTaskQueue) forget(taskUID string) {
	q.Lock()
	defer q.Unlock()

	delete(q.enqueued, taskUID)
}

func (q *fakeTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	return 0, 0
}
