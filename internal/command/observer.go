// internal/command/observer.go
package command

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"vendingbackend/internal/logger"
)

// ActivityRecord is one observed command with its timing. Append-only and
// purely informational; the terminal never reads it back.
type ActivityRecord struct {
	SessionID  string
	Command    string
	ObservedAt time.Time
	Elapsed    time.Duration
}

// Observer is the remote party receiving terminal state transitions. For each
// received command it sends back the fixed acknowledgment and records how long
// the terminal dwelt on the previous command before this one arrived.
type Observer struct {
	SessionID string
	conn      net.Conn
	reader    *bufio.Reader
	lastSeen  time.Time

	mu       sync.Mutex
	activity []ActivityRecord
}

// Connect dials the terminal and performs the handshake: identifier out,
// welcome line back.
func Connect(addr, sessionID string) (*Observer, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to terminal at %s: %w", addr, err)
	}

	o := &Observer{
		SessionID: sessionID,
		conn:      conn,
		reader:    bufio.NewReader(conn),
	}

	if _, err := fmt.Fprintf(conn, "%s\n", sessionID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send identifier: %w", err)
	}
	welcome, err := readLine(o.reader)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read welcome: %w", err)
	}
	logger.LogInfo("%s", welcome)

	o.lastSeen = time.Now()
	return o, nil
}

// Run processes commands until EXIT or disconnect. Disconnect (an empty read)
// is a normal terminal condition, not an error.
func (o *Observer) Run() error {
	defer o.conn.Close()

	for {
		raw, err := readLine(o.reader)
		if err != nil {
			logger.LogInfo("Terminal disconnected.")
			return nil
		}
		if raw == "" {
			continue
		}

		o.record(raw)

		ack := AckFor(raw)
		logger.LogInfo("Command %q -> %s", raw, ack)
		if _, err := fmt.Fprintf(o.conn, "%s\n", ack); err != nil {
			return fmt.Errorf("failed to send acknowledgment: %w", err)
		}

		if strings.EqualFold(raw, string(Exit)) {
			logger.LogInfo("Terminal requested exit. Closing connection.")
			return nil
		}
	}
}

// Activity returns a snapshot of the records collected so far. Safe to call
// while Run is processing commands on another goroutine.
func (o *Observer) Activity() []ActivityRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ActivityRecord(nil), o.activity...)
}

// LogActivity prints the per-command dwell times for this session.
func (o *Observer) LogActivity() {
	logger.LogInfo("Session %s activity:", o.SessionID)
	for _, rec := range o.activity {
		logger.LogInfo(" - Command: %s, Time Spent: %.2f seconds", rec.Command, rec.Elapsed.Seconds())
	}
}

// record appends an ActivityRecord. Elapsed is the time between consecutive
// commands: the dwell on whatever the previous command put on screen.
func (o *Observer) record(cmd string) {
	now := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activity = append(o.activity, ActivityRecord{
		SessionID:  o.SessionID,
		Command:    cmd,
		ObservedAt: now,
		Elapsed:    now.Sub(o.lastSeen),
	})
	o.lastSeen = now
}

func trimLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}
