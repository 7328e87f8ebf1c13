package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mkravets/job-tracker/internal/summary"
)

// DefaultSummarySubject is the subject daily digests are published on.
const DefaultSummarySubject = "jobs.summary.daily"

// NATSDispatcher publishes daily summaries as JSON messages on a NATS
// subject, leaving delivery to whatever reporting consumer subscribes there.
type NATSDispatcher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSDispatcher connects to the broker at url. An empty subject falls
// back to DefaultSummarySubject.
func NewNATSDispatcher(url, subject string) (*NATSDispatcher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultSummarySubject
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSDispatcher{conn: conn, subject: subject}, nil
}

// SendDailySummary publishes the digest and flushes, so a broker outage
// surfaces as an error on this call rather than silently queueing.
func (d *NATSDispatcher) SendDailySummary(s *summary.DailySummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal daily summary: %w", err)
	}

	if err := d.conn.Publish(d.subject, data); err != nil {
		return fmt.Errorf("failed to publish daily summary: %w", err)
	}

	if err := d.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("failed to flush daily summary: %w", err)
	}

	return nil
}

func (d *NATSDispatcher) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}
