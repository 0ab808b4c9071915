package notifications

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type is the notification kind the UI renders
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// DefaultTTL is how long a notification stays listed before auto-removal
const DefaultTTL = 3 * time.Second

// Notification is one toast shown to dashboard users
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Push marks notifications that are also sent to managers' devices
	Push bool `json:"-"`
}

// Subscriber receives every added notification
type Subscriber func(Notification)

// Center holds the active notifications, newest first
type Center struct {
	mu          sync.RWMutex
	items       []Notification
	timers      map[string]*time.Timer
	ttl         time.Duration
	subscribers []Subscriber
	now         func() time.Time
}

// NewCenter creates a notification center; ttl <= 0 uses DefaultTTL
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		timers: make(map[string]*time.Timer),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Subscribe registers fn for every notification added after this call
func (c *Center) Subscribe(fn Subscriber) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// Add publishes a notification and schedules its removal. It returns the new id.
func (c *Center) Add(message string, t Type) string {
	return c.Publish(Notification{Message: message, Type: t})
}

// Publish adds a fully built notification. Missing id, type and timestamp are filled in.
func (c *Center) Publish(n Notification) string {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now()
	}

	c.mu.Lock()
	c.items = append([]Notification{n}, c.items...)
	id := n.ID
	c.timers[id] = time.AfterFunc(c.ttl, func() { c.Remove(id) })
	subscribers := append([]Subscriber{}, c.subscribers...)
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(n)
	}
	return id
}

// Title publishes a notification with a heading
func (c *Center) Title(t Type, title, message string) string {
	return c.Publish(Notification{Type: t, Title: title, Message: message})
}

func (c *Center) Success(message string) string { return c.Add(message, TypeSuccess) }
func (c *Center) Error(message string) string   { return c.Add(message, TypeError) }
func (c *Center) Warning(message string) string { return c.Add(message, TypeWarning) }
func (c *Center) Info(message string) string    { return c.Add(message, TypeInfo) }

// Remove drops a notification; unknown ids are ignored
func (c *Center) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.timers[id]; ok {
		timer.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return
		}
	}
}

// ClearAll drops every notification
func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
	if len(c.items) > 0 {
		log.Printf("🧹 Cleared %d notifications", len(c.items))
	}
	c.items = nil
}

// List returns the active notifications, newest first
func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Notification{}, c.items...)
}
