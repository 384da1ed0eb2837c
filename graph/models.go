package graph

import (
	"fmt"
	"slices"
	"time"
)

// A User is a member of the network. Optional fields are empty when unset.
type User struct {
	ID         int64            `json:"id"`
	Username   string           `json:"username"`
	Email      string           `json:"email"`
	Bio        string           `json:"bio,omitempty"`
	Avatar     string           `json:"avatar,omitempty"`
	Chats      []ChatMembership `json:"chats"`
	MessageIDs []int64          `json:"message_ids"`
	PostIDs    []int64          `json:"post_ids"`
	CommentIDs []int64          `json:"comment_ids"`
	LikedPosts []PostLike       `json:"liked_posts"`
}

// A Chat is a direct or group conversation.
type Chat struct {
	ID         int64            `json:"id"`
	Title      string           `json:"title"`
	IsGroup    bool             `json:"is_group"`
	Avatar     string           `json:"avatar,omitempty"`
	Users      []ChatMembership `json:"users"`
	MessageIDs []int64          `json:"message_ids"`
}

// MessageStatus is the delivery state of a message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Valid reports whether s is one of the known statuses.
func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusRead:
		return true
	}
	return false
}

// A Message is a text sent by a user into a chat.
type Message struct {
	ID        int64         `json:"id"`
	Text      string        `json:"text"`
	Status    MessageStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	SenderID  int64         `json:"sender_id"`
	ChatID    int64         `json:"chat_id"`
}

// A Post is a publication on a user's feed.
type Post struct {
	ID           int64      `json:"id"`
	Text         string     `json:"text"`
	Photo        string     `json:"photo,omitempty"`
	Date         time.Time  `json:"date"`
	AuthorID     int64      `json:"author_id"`
	CommentIDs   []int64    `json:"comment_ids"`
	Likes        []PostLike `json:"likes"`
	CommentCount int        `json:"comment_count"`
}

// A Comment is a reply to a post. LikeCount is a plain counter; comments do
// not track who liked them.
type Comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
	AuthorID  int64     `json:"author_id"`
	PostID    int64     `json:"post_id"`
	LikeCount int       `json:"like_count"`
}

// DefaultRole is the role given to users joining a chat.
const DefaultRole = "member"

// A ChatMembership associates a user with a chat.
type ChatMembership struct {
	UserID   int64     `json:"user_id"`
	ChatID   int64     `json:"chat_id"`
	JoinedAt time.Time `json:"joined_at"`
	Role     string    `json:"role"`
}

// Key returns the composite key of the membership, chatID_userID.
func (m ChatMembership) Key() string {
	return fmt.Sprintf("%d_%d", m.ChatID, m.UserID)
}

// A PostLike associates a user with a post they liked.
type PostLike struct {
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the composite key of the like, userID_postID.
func (l PostLike) Key() string {
	return fmt.Sprintf("%d_%d", l.UserID, l.PostID)
}

func (u *User) clone() User {
	c := *u
	c.Chats = slices.Clone(u.Chats)
	c.MessageIDs = slices.Clone(u.MessageIDs)
	c.PostIDs = slices.Clone(u.PostIDs)
	c.CommentIDs = slices.Clone(u.CommentIDs)
	c.LikedPosts = slices.Clone(u.LikedPosts)
	return c
}

func (c *Chat) clone() Chat {
	out := *c
	out.Users = slices.Clone(c.Users)
	out.MessageIDs = slices.Clone(c.MessageIDs)
	return out
}

func (p *Post) clone() Post {
	c := *p
	c.CommentIDs = slices.Clone(p.CommentIDs)
	c.Likes = slices.Clone(p.Likes)
	return c
}
