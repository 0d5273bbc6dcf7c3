package mylog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" {
		New = newCloudLogger
		// Cloud Logging only parses lines that are pure JSON
		log.SetFlags(0)
	}
}

// structuredLogger writes one JSON document per line in the format understood by Cloud Logging.
type structuredLogger struct {
	componentName string
	out           io.Writer
}

func newCloudLogger(componentName string) Logger {
	return structuredLogger{
		componentName: componentName,
		out:           os.Stdout,
	}
}

func (l structuredLogger) Log(ctx context.Context, subject string, severity Severity, format string, a ...any) {
	e := entry{
		Component: l.componentName,
		Trace:     mycontext.TraceFromContext(ctx),
		Session:   mycontext.SessionUIDFromContext(ctx),
		Severity:  string(severity),
		Message:   fmt.Sprintf(format, a...),
	}
	if subject != "" {
		e.Labels = map[string]string{"subject": subject}
	}

	err := json.NewEncoder(l.out).Encode(e)
	if err != nil {
		log.Printf("error writing log entry of %s: %s", l.componentName, err)
	}
}

type entry struct {
	Component string            `json:"component,omitempty"`
	Labels    map[string]string `json:"logging.googleapis.com/labels,omitempty"`
	Trace     string            `json:"logging.googleapis.com/trace,omitempty"`
	Session   string            `json:"session,omitempty"`
	Severity  string            `json:"severity,omitempty"`
	Message   string            `json:"message"`
}
