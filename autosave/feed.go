package autosave

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"
)

// FeedMessage is one change notification received from a form server
type FeedMessage struct {
	Address   string
	Arguments []any
	Timestamp time.Time
}

// FeedListener receives the OSC change feed published by OSCNotifier and
// keeps every message it sees
type FeedListener struct {
	addr     string
	conn     net.PacketConn
	server   *osc.Server
	mu       sync.RWMutex
	received []FeedMessage
	onMsg    func(FeedMessage)
	running  bool
}

// NewFeedListener creates a listener for addr, e.g. "127.0.0.1:53100".
// Port 0 picks a free port; see Addr after Start.
func NewFeedListener(addr string) *FeedListener {
	return &FeedListener{addr: addr}
}

// OnMessage registers a callback run for every received message
func (l *FeedListener) OnMessage(fn func(FeedMessage)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onMsg = fn
}

// Dispatch implements osc.Dispatcher
func (l *FeedListener) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		l.capture(p)
	case *osc.Bundle:
		for _, msg := range p.Messages {
			l.capture(msg)
		}
		for _, b := range p.Bundles {
			l.Dispatch(b)
		}
	}
}

// Start listens in the background until Stop
func (l *FeedListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("feed listener already running")
	}

	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}
	l.conn = conn
	l.server = &osc.Server{Addr: conn.LocalAddr().String(), Dispatcher: l}

	server := l.server
	go func() {
		if err := server.Serve(conn); err != nil && !isClosedConn(err) {
			log.Errorf("Feed listener error: %v", err)
		}
	}()

	l.running = true
	log.Infof("Listening for form changes on %s", conn.LocalAddr())
	return nil
}

// Stop closes the listening socket
func (l *FeedListener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}
	l.running = false
	l.server = nil

	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("failed to close feed listener: %w", err)
	}
	log.Debug("Feed listener stopped")
	return nil
}

// Addr returns the bound address once started
func (l *FeedListener) Addr() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.conn == nil {
		return l.addr
	}
	return l.conn.LocalAddr().String()
}

// Port returns the bound UDP port once started
func (l *FeedListener) Port() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.conn == nil {
		return 0
	}
	if udp, ok := l.conn.LocalAddr().(*net.UDPAddr); ok {
		return udp.Port
	}
	return 0
}

func (l *FeedListener) capture(msg *osc.Message) {
	received := FeedMessage{
		Address:   msg.Address,
		Arguments: append([]any{}, msg.Arguments...),
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	l.received = append(l.received, received)
	onMsg := l.onMsg
	l.mu.Unlock()

	if onMsg != nil {
		onMsg(received)
	}
}

// Messages returns a copy of everything received so far
func (l *FeedListener) Messages() []FeedMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	received := make([]FeedMessage, len(l.received))
	copy(received, l.received)
	return received
}

// MessagesFor returns the received messages whose address contains pattern
func (l *FeedListener) MessagesFor(pattern string) []FeedMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matches []FeedMessage
	for _, msg := range l.received {
		if strings.Contains(msg.Address, pattern) {
			matches = append(matches, msg)
		}
	}
	return matches
}

// Clear drops the received messages
func (l *FeedListener) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = nil
}

func isClosedConn(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
