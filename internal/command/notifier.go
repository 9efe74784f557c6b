// internal/command/notifier.go
package command

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"vendingbackend/internal/logger"
)

// Notifier is the terminal side of the command channel. Engine operations
// enqueue tokens with Notify; a session goroutine forwards them to the one
// connected observer and waits for its acknowledgment line. The queue is
// bounded and sends never block, so a slow or absent observer cannot stall
// an inventory operation or deadlock the engine's critical section.
//
// Observers connect sequentially over the terminal's lifetime: one session at
// a time, the next accept happening after the previous session ends.
type Notifier struct {
	addr     string
	queue    chan Token
	listener net.Listener
	done     chan struct{}
	wg       sync.WaitGroup
	attached atomic.Bool
	inflight atomic.Bool
	closed   atomic.Bool

	connMu sync.Mutex
	conn   net.Conn
}

func NewNotifier(addr string, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Notifier{
		addr:  addr,
		queue: make(chan Token, queueSize),
		done:  make(chan struct{}),
	}
}

// Start begins listening and accepting observer sessions.
func (n *Notifier) Start() error {
	ln, err := net.Listen("tcp", n.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.addr, err)
	}
	n.listener = ln
	logger.LogInfo("Command channel listening on %s", ln.Addr())

	n.wg.Add(1)
	go n.acceptLoop()
	return nil
}

// Addr returns the bound listen address.
func (n *Notifier) Addr() string {
	if n.listener == nil {
		return n.addr
	}
	return n.listener.Addr().String()
}

// Attached reports whether an observer session is currently live.
func (n *Notifier) Attached() bool {
	return n.attached.Load()
}

// Notify enqueues a token for the connected observer. When no observer is
// attached the token is dropped; when the queue is full the token is dropped
// with a warning. Either way the caller never blocks.
func (n *Notifier) Notify(t Token) {
	if !n.attached.Load() {
		return
	}
	select {
	case n.queue <- t:
	default:
		logger.LogWarn("Command queue full, dropping %s", t)
	}
}

// Drain waits until every queued token has been delivered and acknowledged,
// or the timeout passes. Used at shutdown so the final EXIT reaches the
// observer before the listener closes. A token leaves the queue an instant
// before its in-flight mark is set; requiring two consecutive idle polls
// covers that window.
func (n *Notifier) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	idle := 0
	for time.Now().Before(deadline) {
		if len(n.queue) == 0 && !n.inflight.Load() {
			idle++
			if idle >= 2 {
				return
			}
		} else {
			idle = 0
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Close stops accepting observers and ends any active session.
func (n *Notifier) Close() error {
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(n.done)
	var err error
	if n.listener != nil {
		err = n.listener.Close()
	}
	n.connMu.Lock()
	if n.conn != nil {
		n.conn.Close()
	}
	n.connMu.Unlock()
	n.wg.Wait()
	return err
}

func (n *Notifier) setConn(conn net.Conn) {
	n.connMu.Lock()
	n.conn = conn
	n.connMu.Unlock()
}

func (n *Notifier) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept()
		if err != nil {
			select {
			case <-n.done:
				return
			default:
			}
			logger.LogWarn("Accept failed: %v", err)
			return
		}
		logger.LogInfo("Accepted observer connection from %s", conn.RemoteAddr())
		n.serveObserver(conn)
	}
}

func (n *Notifier) serveObserver(conn net.Conn) {
	defer conn.Close()
	n.setConn(conn)
	defer n.setConn(nil)

	reader := bufio.NewReader(conn)

	// Handshake: the observer transmits a self-chosen identifier first.
	identifier, err := readLine(reader)
	if err != nil || identifier == "" {
		logger.LogWarn("Observer handshake failed: %v", err)
		return
	}
	welcome := fmt.Sprintf("%s connected to Vending Machine System.\n", identifier)
	if _, err := conn.Write([]byte(welcome)); err != nil {
		logger.LogWarn("Failed to welcome observer %s: %v", identifier, err)
		return
	}
	logger.LogInfo("Observer %s connected", identifier)

	// Commands queued while nobody was attached are stale; start clean.
	n.drainQueue()
	n.attached.Store(true)
	defer n.attached.Store(false)

	for {
		select {
		case <-n.done:
			return
		case token := <-n.queue:
			n.inflight.Store(true)
			ok := n.deliver(conn, reader, identifier, token)
			n.inflight.Store(false)
			if !ok {
				return
			}
			if token == Exit {
				logger.LogInfo("Observer %s session ended", identifier)
				return
			}
		}
	}
}

// deliver writes one token and blocks on receipt of the acknowledgment, not
// on its content. Reports whether the session can continue.
func (n *Notifier) deliver(conn net.Conn, reader *bufio.Reader, identifier string, token Token) bool {
	if _, err := fmt.Fprintf(conn, "%s\n", token); err != nil {
		logger.LogWarn("Observer %s disconnected, continuing standalone: %v", identifier, err)
		return false
	}
	ack, err := readLine(reader)
	if err != nil {
		logger.LogWarn("Observer %s disconnected, continuing standalone: %v", identifier, err)
		return false
	}
	logger.LogInfo("Observer %s acknowledged %s: %s", identifier, token, ack)
	return true
}

func (n *Notifier) drainQueue() {
	for {
		select {
		case <-n.queue:
		default:
			return
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return trimLine(line), nil
}
