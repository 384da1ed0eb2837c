package redis

import (
	"time"

	"github.com/GetStream/social-graph/graph"
)

// A message represents a chat message in the cache.
type message struct {
	ID       int64  `redis:"id"`
	Text     string `redis:"text"`
	Status   string `redis:"status"`
	SentAt   int64  `redis:"sent_at"`
	SenderID int64  `redis:"sender_id"`
	ChatID   int64  `redis:"chat_id"`
}

func newMessage(msg graph.Message) *message {
	return &message{
		ID:       msg.ID,
		Text:     msg.Text,
		Status:   string(msg.Status),
		SentAt:   msg.Timestamp.UnixNano(),
		SenderID: msg.SenderID,
		ChatID:   msg.ChatID,
	}
}

func (m message) GraphMessage() graph.Message {
	return graph.Message{
		ID:        m.ID,
		Text:      m.Text,
		Status:    graph.MessageStatus(m.Status),
		Timestamp: time.Unix(0, m.SentAt).UTC(),
		SenderID:  m.SenderID,
		ChatID:    m.ChatID,
	}
}
