// Package alog is the action log: a durable, timestamped CSV audit trail
// of protocol-level events, distinct from process diagnostics. A single
// writer goroutine owns the file; every other goroutine only ever sends
// on a channel.
package alog

import (
	"encoding/csv"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/axgrid/broker/action"
	"github.com/axgrid/broker/pkg/logger"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Record is one row of the action log.
type Record struct {
	Time     time.Time
	ClientID string
	Action   action.Action
}

// ActionSink buffers records on a channel and appends them to a CSV file
// from a single writer goroutine, so concurrent dispatcher/client
// goroutines never contend on the file handle.
type ActionSink struct {
	records chan Record
	done    chan struct{}

	senders sync.WaitGroup
	mirror  logger.Logger
}

// Open creates (or appends to) the CSV file at path, writing the header
// row only when the file is new, and starts the writer goroutine.
// mirror, when non-nil, additionally logs each record at Info level —
// this is the shared config key log_in_terminal from §6.
func Open(path string, mirror logger.Logger) (*ActionSink, error) {
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "alog: open action log")
	}

	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write([]string{"Time", "Client_ID", "Action"}); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "alog: write header")
		}
		w.Flush()
	}

	s := &ActionSink{
		records: make(chan Record, 256),
		done:    make(chan struct{}),
		mirror:  mirror,
	}
	go s.run(f, w)
	return s, nil
}

func (s *ActionSink) run(f *os.File, w *csv.Writer) {
	defer close(s.done)
	defer f.Close()

	for rec := range s.records {
		row := []string{
			rec.Time.Local().Format(timeLayout),
			rec.ClientID,
			rec.Action.String(),
		}
		if err := w.Write(row); err != nil {
			continue
		}
		w.Flush()

		if s.mirror != nil {
			s.mirror.Info("action", "client_id", rec.ClientID, "action", rec.Action.String())
		}
	}
}

// Log records one action. Safe to call from any goroutine; panics if
// called after Close (matches the teacher's "send on closed channel is
// a programming error" convention rather than silently dropping).
func (s *ActionSink) Log(clientID string, a action.Action) {
	s.senders.Add(1)
	defer s.senders.Done()
	s.records <- Record{Time: time.Now(), ClientID: clientID, Action: a}
}

// Close stops accepting new senders and blocks until every buffered
// record has been written and the writer goroutine has exited.
func (s *ActionSink) Close() {
	s.senders.Wait()
	close(s.records)
	<-s.done
}
