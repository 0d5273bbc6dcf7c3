package orderapi

import "context"

//go:generate mockgen -source=api.go -package orderapi -destination recorder_mock.go Recorder
type Recorder interface {
	// Append stores a new order record; appending a record with a known uid is a no-op
	Append(c context.Context, record OrderRecord) error
}
