package store

import (
	"time"

	"github.com/GetStream/social-graph/graph"
	"github.com/uptrace/bun"
)

// A user represents a user in the database.
type user struct {
	bun.BaseModel `bun:"table:users"`

	ID       int64  `bun:",pk"`
	Username string `bun:",notnull"`
	Email    string `bun:",notnull"`
	Bio      string `bun:",nullzero"`
	Avatar   string `bun:",nullzero"`
}

type chat struct {
	bun.BaseModel `bun:"table:chats"`

	ID      int64  `bun:",pk"`
	Title   string `bun:",notnull"`
	IsGroup bool   `bun:",notnull"`
	Avatar  string `bun:",nullzero"`
}

type chatMember struct {
	bun.BaseModel `bun:"table:chat_members"`

	ChatID   int64     `bun:",pk"`
	UserID   int64     `bun:",pk"`
	JoinedAt time.Time `bun:",notnull"`
	Role     string    `bun:",notnull"`
}

type message struct {
	bun.BaseModel `bun:"table:messages"`

	ID       int64     `bun:",pk"`
	Text     string    `bun:"message_text,notnull"`
	Status   string    `bun:",notnull"`
	SentAt   time.Time `bun:",notnull"`
	SenderID int64     `bun:",notnull"`
	ChatID   int64     `bun:",notnull"`
}

type post struct {
	bun.BaseModel `bun:"table:posts"`

	ID          int64     `bun:",pk"`
	Text        string    `bun:"post_text,notnull"`
	Photo       string    `bun:",nullzero"`
	PublishedAt time.Time `bun:",notnull"`
	AuthorID    int64     `bun:",notnull"`
}

type comment struct {
	bun.BaseModel `bun:"table:comments"`

	ID        int64     `bun:",pk"`
	Text      string    `bun:"comment_text,notnull"`
	CreatedAt time.Time `bun:",notnull"`
	AuthorID  int64     `bun:",notnull"`
	PostID    int64     `bun:",notnull"`
	LikeCount int       `bun:",notnull"`
}

type postLike struct {
	bun.BaseModel `bun:"table:post_likes"`

	UserID  int64     `bun:",pk"`
	PostID  int64     `bun:",pk"`
	LikedAt time.Time `bun:",notnull"`
}

func (m message) GraphMessage() graph.Message {
	return graph.Message{
		ID:        m.ID,
		Text:      m.Text,
		Status:    graph.MessageStatus(m.Status),
		Timestamp: m.SentAt.UTC(),
		SenderID:  m.SenderID,
		ChatID:    m.ChatID,
	}
}
