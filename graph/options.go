package graph

import (
	"log/slog"
	"time"
)

// An Option configures a Graph.
type Option func(*Graph)

// WithIDAllocator makes the graph draw ids from a instead of its own
// allocator. The graph never resets an injected allocator. A nil a is ignored.
func WithIDAllocator(a *IDAllocator) Option {
	return func(g *Graph) {
		if a != nil {
			g.ids = a
		}
	}
}

// WithClock sets the time source used for timestamps. A nil now is ignored.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the logger. Graph events are logged at debug level. A nil
// log is ignored.
func WithLogger(log *slog.Logger) Option {
	return func(g *Graph) {
		if log != nil {
			g.log = log
		}
	}
}

// A UserOption sets an optional user attribute.
type UserOption func(*User)

func WithBio(bio string) UserOption {
	return func(u *User) { u.Bio = bio }
}

func WithAvatar(ref string) UserOption {
	return func(u *User) { u.Avatar = ref }
}

// A ChatOption sets an optional chat attribute.
type ChatOption func(*Chat)

// AsGroup marks the chat as a group chat.
func AsGroup() ChatOption {
	return func(c *Chat) { c.IsGroup = true }
}

func WithChatAvatar(ref string) ChatOption {
	return func(c *Chat) { c.Avatar = ref }
}

// A MessageOption sets an optional message attribute.
type MessageOption func(*Message)

// WithStatus overrides the initial status, which defaults to StatusSent.
func WithStatus(s MessageStatus) MessageOption {
	return func(m *Message) { m.Status = s }
}

// WithSentAt overrides the message timestamp.
func WithSentAt(t time.Time) MessageOption {
	return func(m *Message) { m.Timestamp = t }
}

// A PostOption sets an optional post attribute.
type PostOption func(*Post)

func WithPhoto(ref string) PostOption {
	return func(p *Post) { p.Photo = ref }
}

// WithPostDate overrides the publication date.
func WithPostDate(t time.Time) PostOption {
	return func(p *Post) { p.Date = t }
}
