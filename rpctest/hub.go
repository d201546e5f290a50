package rpctest

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/kbukum/rpcclient/logger"
)

const clientBuffer = 256

// Message is one event queued for a subscriber.
type Message struct {
	Event string
	ID    string
	Data  []byte
}

// subscriber is one connected stream client. Its id is "<path>:<uuid>".
type subscriber struct {
	id     string
	events chan *Message
	once   sync.Once
}

func newSubscriber(id string) *subscriber {
	return &subscriber{id: id, events: make(chan *Message, clientBuffer)}
}

// send returns false if the subscriber is too slow to keep up.
func (s *subscriber) send(msg *Message) bool {
	select {
	case s.events <- msg:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.events) })
}

// hub routes published messages to subscribers by glob pattern over their ids.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*subscriber
	closed  bool
	log     *logger.Logger
}

func newHub(log *logger.Logger) *hub {
	return &hub{clients: make(map[string]*subscriber), log: log}
}

func (h *hub) register(s *subscriber) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.close()
		return
	}
	h.clients[s.id] = s
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("subscriber registered", logger.Fields("client_id", s.id, "total_clients", total))
}

func (h *hub) unregister(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[s.id]; ok {
		delete(h.clients, s.id)
		s.close()
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("subscriber unregistered", logger.Fields("client_id", s.id, "total_clients", total))
}

// broadcast delivers msg to every subscriber matching pattern and returns
// how many accepted it.
func (h *hub) broadcast(pattern string, msg *Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, s := range h.clients {
		matched, err := filepath.Match(pattern, id)
		if err != nil {
			h.log.Error("pattern match error", logger.Fields("pattern", pattern, logger.FieldError, err.Error()))
			return 0
		}
		if !matched {
			continue
		}
		if s.send(msg) {
			delivered++
		} else {
			h.log.Warn("subscriber channel full, dropping message", logger.Fields("client_id", id))
		}
	}
	return delivered
}

// drop disconnects every subscriber matching pattern.
func (h *hub) drop(pattern string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for id, s := range h.clients {
		if matched, _ := filepath.Match(pattern, id); matched {
			delete(h.clients, id)
			s.close()
			n++
		}
	}
	return n
}

func (h *hub) count(pattern string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for id := range h.clients {
		if matched, _ := filepath.Match(pattern, id); matched {
			n++
		}
	}
	return n
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.clients {
		s.close()
		delete(h.clients, id)
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)

// pathPattern matches every subscriber of path.
func pathPattern(path string) string {
	return globEscaper.Replace(path) + ":*"
}
