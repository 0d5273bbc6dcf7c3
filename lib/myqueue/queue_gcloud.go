package myqueue

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	grpcCodes "google.golang.org/grpc/codes"
	grpcStatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// defaultDelay gives the browser time to follow its redirect before an outbox trigger fires
const defaultDelay = 5 * time.Second

type gcloudTaskQueue struct {
	client    *cloudtasks.Client
	queuePath string
}

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newGcloudQueue
	}
}

func newGcloudQueue(c context.Context) (TaskQueuer, func(), error) {
	client, err := cloudtasks.NewClient(c)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating cloudtask-client: %s", err)
	}

	queueName := os.Getenv("QUEUE_NAME")
	if queueName == "" {
		queueName = "default"
	}

	return &gcloudTaskQueue{
			client:    client,
			queuePath: fmt.Sprintf("projects/%s/locations/%s/queues/%s", os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("LOCATION_ID"), queueName),
		}, func() {
			client.Close()
		}, nil
}

func (q *gcloudTaskQueue) taskPath(taskUID string) string {
	return fmt.Sprintf("%s/tasks/%s", q.queuePath, taskUID)
}

func (q *gcloudTaskQueue) Enqueue(c context.Context, task Task) error {
	delay := task.Delay
	if delay == 0 {
		delay = defaultDelay
	}

	_, err := q.client.CreateTask(c, &taskspb.CreateTaskRequest{
		Parent: q.queuePath,
		Task: &taskspb.Task{
			// a named task is created at most once
			Name:         q.taskPath(task.UID),
			ScheduleTime: timestamppb.New(time.Now().Add(delay)),
			MessageType: &taskspb.Task_AppEngineHttpRequest{
				AppEngineHttpRequest: &taskspb.AppEngineHttpRequest{
					HttpMethod:  taskspb.HttpMethod_PUT,
					RelativeUri: task.WebhookURLPath,
					Body:        task.Payload,
				},
			},
			View: taskspb.Task_FULL,
		},
	})
	if err != nil {
		if rsp, ok := grpcStatus.FromError(err); ok && rsp.Code() == grpcCodes.AlreadyExists {
			log.Printf("Task %s already exists, ignored", task.UID)
			return nil
		}
		return fmt.Errorf("error submitting task %s to queue: %s", task.UID, err)
	}
	return nil
}

// IsLastAttempt returns how often the task was dispatched and how often the queue will try at most.
// The maximum is -1 when unknown.
func (q *gcloudTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	maxAttempts := int32(-1)

	queue, err := q.client.GetQueue(c, &taskspb.GetQueueRequest{Name: q.queuePath})
	if err != nil {
		log.Printf("Error getting queue %s: %s", q.queuePath, err)
		return 0, maxAttempts
	}
	if queue.RetryConfig != nil {
		maxAttempts = queue.RetryConfig.MaxAttempts
	}

	task, err := q.client.GetTask(c, &taskspb.GetTaskRequest{Name: q.taskPath(taskUID)})
	if err != nil {
		log.Printf("Error getting task %s: %s", taskUID, err)
		return 0, maxAttempts
	}

	return task.DispatchCount, maxAttempts
}
