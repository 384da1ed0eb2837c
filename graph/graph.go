// Package graph holds users, chats, messages, posts and comments in memory
// and keeps the user/chat memberships and user/post likes consistent on both
// sides.
//
// Entities refer to each other by id only. The graph owns one index per kind
// and answers relationship questions through explicit queries. Every returned
// entity is a copy; state changes only through Graph methods.
package graph

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Graph is the in-memory entity graph. It is safe for concurrent use: every
// mutating operation holds a single write lock for its whole duration.
type Graph struct {
	log *slog.Logger
	ids *IDAllocator
	now func() time.Time
	// ownsIDs is false when the allocator was injected.
	ownsIDs bool

	mu          sync.RWMutex
	users       map[int64]*User
	chats       map[int64]*Chat
	messages    map[int64]*Message
	posts       map[int64]*Post
	comments    map[int64]*Comment
	memberships map[string]ChatMembership
	likes       map[string]PostLike
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.ids == nil {
		g.ids = NewIDAllocator()
		g.ownsIDs = true
	}
	g.init()
	return g
}

func (g *Graph) init() {
	g.users = make(map[int64]*User)
	g.chats = make(map[int64]*Chat)
	g.messages = make(map[int64]*Message)
	g.posts = make(map[int64]*Post)
	g.comments = make(map[int64]*Comment)
	g.memberships = make(map[string]ChatMembership)
	g.likes = make(map[string]PostLike)
}

// Reset drops every entity. The id sequences restart only when the graph owns
// its allocator; an injected allocator is left to its owner, so ids handed
// out before the reset are never reused.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.init()
	if g.ownsIDs {
		g.ids.Reset()
	}
	g.log.Debug("Graph reset")
}

// CreateUser adds a user and returns it.
func (g *Graph) CreateUser(username, email string, opts ...UserOption) User {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := &User{
		Username:   username,
		Email:      email,
		Chats:      []ChatMembership{},
		MessageIDs: []int64{},
		PostIDs:    []int64{},
		CommentIDs: []int64{},
		LikedPosts: []PostLike{},
	}
	for _, opt := range opts {
		opt(u)
	}
	u.ID = g.ids.Next(KindUser)
	g.users[u.ID] = u
	g.log.Debug("User created", "user_id", u.ID, "username", u.Username)
	return u.clone()
}

// CreateChat adds a chat and returns it. Chats are direct unless AsGroup is
// given.
func (g *Graph) CreateChat(title string, opts ...ChatOption) Chat {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := &Chat{
		Title:      title,
		Users:      []ChatMembership{},
		MessageIDs: []int64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ID = g.ids.Next(KindChat)
	g.chats[c.ID] = c
	g.log.Debug("Chat created", "chat_id", c.ID, "group", c.IsGroup)
	return c.clone()
}

// LinkUserToChat makes the user a member of the chat. The membership is
// recorded once on each side; linking an existing pair returns the existing
// membership and false.
func (g *Graph) LinkUserToChat(userID, chatID int64) (ChatMembership, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.link(userID, chatID)
}

func (g *Graph) link(userID, chatID int64) (ChatMembership, bool, error) {
	u, ok := g.users[userID]
	if !ok {
		return ChatMembership{}, false, missing("membership", "user", KindUser, userID)
	}
	c, ok := g.chats[chatID]
	if !ok {
		return ChatMembership{}, false, missing("membership", "chat", KindChat, chatID)
	}

	m := ChatMembership{UserID: userID, ChatID: chatID}
	if existing, ok := g.memberships[m.Key()]; ok {
		return existing, false, nil
	}
	m.JoinedAt = g.now()
	m.Role = DefaultRole
	g.memberships[m.Key()] = m
	u.Chats = append(u.Chats, m)
	c.Users = append(c.Users, m)
	g.log.Debug("User joined chat", "user_id", userID, "chat_id", chatID)
	return m, true, nil
}

// CreateMessage builds a message from sender into chat. The message is not
// added to any list; see AppendUserMessage and AppendChatMessage.
func (g *Graph) CreateMessage(text string, senderID, chatID int64, opts ...MessageOption) (Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := g.createMessage(text, senderID, chatID, opts)
	if err != nil {
		return Message{}, err
	}
	return *m, nil
}

func (g *Graph) createMessage(text string, senderID, chatID int64, opts []MessageOption) (*Message, error) {
	if _, ok := g.users[senderID]; !ok {
		return nil, missing("message", "sender", KindUser, senderID)
	}
	if _, ok := g.chats[chatID]; !ok {
		return nil, missing("message", "chat", KindChat, chatID)
	}
	m := &Message{
		Text:      text,
		Status:    StatusSent,
		Timestamp: g.now(),
		SenderID:  senderID,
		ChatID:    chatID,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	m.ID = g.ids.Next(KindMessage)
	g.messages[m.ID] = m
	g.log.Debug("Message created", "message_id", m.ID, "sender_id", senderID, "chat_id", chatID)
	return m, nil
}

// AppendUserMessage appends the message to the user's sent list.
func (g *Graph) AppendUserMessage(userID, messageID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.appendUserMessage(userID, messageID)
}

func (g *Graph) appendUserMessage(userID, messageID int64) error {
	u, ok := g.users[userID]
	if !ok {
		return missing("append", "user", KindUser, userID)
	}
	if _, ok := g.messages[messageID]; !ok {
		return missing("append", "message", KindMessage, messageID)
	}
	u.MessageIDs = append(u.MessageIDs, messageID)
	return nil
}

// AppendChatMessage appends the message to the chat's message list.
func (g *Graph) AppendChatMessage(chatID, messageID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.appendChatMessage(chatID, messageID)
}

func (g *Graph) appendChatMessage(chatID, messageID int64) error {
	c, ok := g.chats[chatID]
	if !ok {
		return missing("append", "chat", KindChat, chatID)
	}
	if _, ok := g.messages[messageID]; !ok {
		return missing("append", "message", KindMessage, messageID)
	}
	c.MessageIDs = append(c.MessageIDs, messageID)
	return nil
}

// SendMessage creates a message and appends it to both the sender's and the
// chat's lists.
func (g *Graph) SendMessage(text string, senderID, chatID int64, opts ...MessageOption) (Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, err := g.createMessage(text, senderID, chatID, opts)
	if err != nil {
		return Message{}, err
	}
	// Both references were checked by createMessage.
	_ = g.appendUserMessage(senderID, m.ID)
	_ = g.appendChatMessage(chatID, m.ID)
	return *m, nil
}

// CreatePost builds a post by author. It is not added to the author's list;
// see AppendUserPost.
func (g *Graph) CreatePost(text string, authorID int64, opts ...PostOption) (Post, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.createPost(text, authorID, opts)
	if err != nil {
		return Post{}, err
	}
	return p.clone(), nil
}

func (g *Graph) createPost(text string, authorID int64, opts []PostOption) (*Post, error) {
	if _, ok := g.users[authorID]; !ok {
		return nil, missing("post", "author", KindUser, authorID)
	}
	p := &Post{
		Text:       text,
		Date:       g.now(),
		AuthorID:   authorID,
		CommentIDs: []int64{},
		Likes:      []PostLike{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ID = g.ids.Next(KindPost)
	g.posts[p.ID] = p
	g.log.Debug("Post created", "post_id", p.ID, "author_id", authorID)
	return p, nil
}

// AppendUserPost appends the post to the user's authored list.
func (g *Graph) AppendUserPost(userID, postID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.appendUserPost(userID, postID)
}

func (g *Graph) appendUserPost(userID, postID int64) error {
	u, ok := g.users[userID]
	if !ok {
		return missing("append", "user", KindUser, userID)
	}
	if _, ok := g.posts[postID]; !ok {
		return missing("append", "post", KindPost, postID)
	}
	u.PostIDs = append(u.PostIDs, postID)
	return nil
}

// PublishPost creates a post and appends it to the author's list.
func (g *Graph) PublishPost(text string, authorID int64, opts ...PostOption) (Post, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.createPost(text, authorID, opts)
	if err != nil {
		return Post{}, err
	}
	_ = g.appendUserPost(authorID, p.ID)
	return p.clone(), nil
}

// CreateComment builds a comment by author on post. It is attached to
// nothing; see AddCommentToPost and AppendUserComment.
func (g *Graph) CreateComment(text string, authorID, postID int64) (Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, err := g.createComment(text, authorID, postID)
	if err != nil {
		return Comment{}, err
	}
	return *c, nil
}

func (g *Graph) createComment(text string, authorID, postID int64) (*Comment, error) {
	if _, ok := g.users[authorID]; !ok {
		return nil, missing("comment", "author", KindUser, authorID)
	}
	if _, ok := g.posts[postID]; !ok {
		return nil, missing("comment", "post", KindPost, postID)
	}
	c := &Comment{
		Text:     text,
		Date:     g.now(),
		AuthorID: authorID,
		PostID:   postID,
	}
	c.ID = g.ids.Next(KindComment)
	g.comments[c.ID] = c
	g.log.Debug("Comment created", "comment_id", c.ID, "author_id", authorID, "post_id", postID)
	return c, nil
}

// AppendUserComment appends the comment to the user's authored list.
func (g *Graph) AppendUserComment(userID, commentID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.appendUserComment(userID, commentID)
}

func (g *Graph) appendUserComment(userID, commentID int64) error {
	u, ok := g.users[userID]
	if !ok {
		return missing("append", "user", KindUser, userID)
	}
	if _, ok := g.comments[commentID]; !ok {
		return missing("append", "comment", KindComment, commentID)
	}
	u.CommentIDs = append(u.CommentIDs, commentID)
	return nil
}

// AddCommentToPost appends the comment to the post and recomputes
// CommentCount from the list.
func (g *Graph) AddCommentToPost(postID, commentID int64) (Post, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.addCommentToPost(postID, commentID)
	if err != nil {
		return Post{}, err
	}
	return p.clone(), nil
}

func (g *Graph) addCommentToPost(postID, commentID int64) (*Post, error) {
	p, ok := g.posts[postID]
	if !ok {
		return nil, missing("append", "post", KindPost, postID)
	}
	if _, ok := g.comments[commentID]; !ok {
		return nil, missing("append", "comment", KindComment, commentID)
	}
	p.CommentIDs = append(p.CommentIDs, commentID)
	p.CommentCount = len(p.CommentIDs)
	return p, nil
}

// CommentOnPost creates a comment and attaches it to both the author and
// the post.
func (g *Graph) CommentOnPost(text string, authorID, postID int64) (Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.createComment(text, authorID, postID)
	if err != nil {
		return Comment{}, err
	}
	_ = g.appendUserComment(authorID, c.ID)
	_, _ = g.addCommentToPost(postID, c.ID)
	return *c, nil
}

// LikeFromUser records that the user likes the post. It returns the like and
// whether it was created by this call.
func (g *Graph) LikeFromUser(userID, postID int64) (PostLike, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.like(userID, postID)
}

// LikeFromPost is LikeFromUser entered from the post side. Arguments are in
// the same (user, post) order. Both share one dedup index, so either entry
// point yields a single like per pair.
func (g *Graph) LikeFromPost(userID, postID int64) (PostLike, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.like(userID, postID)
}

func (g *Graph) like(userID, postID int64) (PostLike, bool, error) {
	u, ok := g.users[userID]
	if !ok {
		return PostLike{}, false, missing("like", "user", KindUser, userID)
	}
	p, ok := g.posts[postID]
	if !ok {
		return PostLike{}, false, missing("like", "post", KindPost, postID)
	}

	l := PostLike{UserID: userID, PostID: postID}
	if existing, ok := g.likes[l.Key()]; ok {
		return existing, false, nil
	}
	l.Timestamp = g.now()
	g.likes[l.Key()] = l
	u.LikedPosts = append(u.LikedPosts, l)
	p.Likes = append(p.Likes, l)
	g.log.Debug("Post liked", "user_id", userID, "post_id", postID)
	return l, true, nil
}

// IncrementCommentLike adds one like to the comment's counter. There is no
// per-user tracking; every call counts.
func (g *Graph) IncrementCommentLike(commentID int64) (Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.comments[commentID]
	if !ok {
		return Comment{}, missing("comment like", "comment", KindComment, commentID)
	}
	c.LikeCount++
	return *c, nil
}
