package graph

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// User returns the user with the given id.
func (g *Graph) User(id int64) (User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[id]
	if !ok {
		return User{}, false
	}
	return u.clone(), true
}

// Chat returns the chat with the given id.
func (g *Graph) Chat(id int64) (Chat, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.chats[id]
	if !ok {
		return Chat{}, false
	}
	return c.clone(), true
}

// Message returns the message with the given id.
func (g *Graph) Message(id int64) (Message, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.messages[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Post returns the post with the given id.
func (g *Graph) Post(id int64) (Post, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.posts[id]
	if !ok {
		return Post{}, false
	}
	return p.clone(), true
}

// Comment returns the comment with the given id.
func (g *Graph) Comment(id int64) (Comment, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.comments[id]
	if !ok {
		return Comment{}, false
	}
	return *c, true
}

// Users returns every user ordered by id.
func (g *Graph) Users() []User {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedByID(lo.MapToSlice(g.users, func(_ int64, u *User) User { return u.clone() }),
		func(u User) int64 { return u.ID })
}

// Chats returns every chat ordered by id.
func (g *Graph) Chats() []Chat {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedByID(lo.MapToSlice(g.chats, func(_ int64, c *Chat) Chat { return c.clone() }),
		func(c Chat) int64 { return c.ID })
}

// Posts returns every post ordered by id.
func (g *Graph) Posts() []Post {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedByID(lo.MapToSlice(g.posts, func(_ int64, p *Post) Post { return p.clone() }),
		func(p Post) int64 { return p.ID })
}

func sortedByID[T any](items []T, id func(T) int64) []T {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(id(a), id(b)) })
	return items
}

// MembershipsForUser returns the chats the user belongs to, in join order.
func (g *Graph) MembershipsForUser(userID int64) ([]ChatMembership, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[userID]
	if !ok {
		return nil, missing("memberships", "user", KindUser, userID)
	}
	return slices.Clone(u.Chats), nil
}

// MembershipsForChat returns the members of the chat, in join order.
func (g *Graph) MembershipsForChat(chatID int64) ([]ChatMembership, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.chats[chatID]
	if !ok {
		return nil, missing("memberships", "chat", KindChat, chatID)
	}
	return slices.Clone(c.Users), nil
}

// MessagesInChat returns the messages appended to the chat, in append order.
func (g *Graph) MessagesInChat(chatID int64) ([]Message, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.chats[chatID]
	if !ok {
		return nil, missing("messages", "chat", KindChat, chatID)
	}
	return lo.FilterMap(c.MessageIDs, func(id int64, _ int) (Message, bool) {
		m, ok := g.messages[id]
		if !ok {
			return Message{}, false
		}
		return *m, true
	}), nil
}

// CommentsOnPost returns the comments attached to the post, in append order.
func (g *Graph) CommentsOnPost(postID int64) ([]Comment, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.posts[postID]
	if !ok {
		return nil, missing("comments", "post", KindPost, postID)
	}
	return lo.FilterMap(p.CommentIDs, func(id int64, _ int) (Comment, bool) {
		c, ok := g.comments[id]
		if !ok {
			return Comment{}, false
		}
		return *c, true
	}), nil
}

// LikesForPost returns the likes on the post.
func (g *Graph) LikesForPost(postID int64) ([]PostLike, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.posts[postID]
	if !ok {
		return nil, missing("likes", "post", KindPost, postID)
	}
	return slices.Clone(p.Likes), nil
}

// LikedPostsByUser returns the likes given by the user.
func (g *Graph) LikedPostsByUser(userID int64) ([]PostLike, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	u, ok := g.users[userID]
	if !ok {
		return nil, missing("likes", "user", KindUser, userID)
	}
	return slices.Clone(u.LikedPosts), nil
}

// HasLiked reports whether the user likes the post.
func (g *Graph) HasLiked(userID, postID int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.likes[PostLike{UserID: userID, PostID: postID}.Key()]
	return ok
}

// IsMember reports whether the user belongs to the chat.
func (g *Graph) IsMember(userID, chatID int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.memberships[ChatMembership{UserID: userID, ChatID: chatID}.Key()]
	return ok
}
