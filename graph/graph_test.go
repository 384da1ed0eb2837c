package graph

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New(
		WithClock(func() time.Time { return testTime }),
		WithLogger(slogt.New(t)),
	)
}

func TestGraph_CreateUser(t *testing.T) {
	g := newTestGraph(t)

	alice := g.CreateUser("alice", "alice@example.com", WithBio("hi"), WithAvatar("alice.png"))
	bob := g.CreateUser("bob", "bob@example.com")

	want := User{
		ID:         1,
		Username:   "alice",
		Email:      "alice@example.com",
		Bio:        "hi",
		Avatar:     "alice.png",
		Chats:      []ChatMembership{},
		MessageIDs: []int64{},
		PostIDs:    []int64{},
		CommentIDs: []int64{},
		LikedPosts: []PostLike{},
	}
	if diff := cmp.Diff(want, alice); diff != "" {
		t.Errorf("CreateUser() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, int64(2), bob.ID)
	require.Empty(t, bob.Bio)

	got, ok := g.User(alice.ID)
	require.True(t, ok)
	require.Equal(t, alice, got)
}

func TestGraph_IDsIncreasePerKind(t *testing.T) {
	g := newTestGraph(t)

	var last int64
	for i := 0; i < 5; i++ {
		u := g.CreateUser("u", "u@example.com")
		require.Greater(t, u.ID, last)
		last = u.ID
	}

	// Chats have their own sequence.
	c1 := g.CreateChat("one")
	c2 := g.CreateChat("two", AsGroup())
	require.Equal(t, int64(1), c1.ID)
	require.Equal(t, int64(2), c2.ID)
	require.True(t, c2.IsGroup)
	require.False(t, c1.IsGroup)
}

func TestGraph_LinkUserToChat(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general", AsGroup())

	m, created, err := g.LinkUserToChat(u.ID, c.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, ChatMembership{UserID: u.ID, ChatID: c.ID, JoinedAt: testTime, Role: DefaultRole}, m)
	require.Equal(t, "1_1", m.Key())

	again, created, err := g.LinkUserToChat(u.ID, c.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, m, again)

	userSide, err := g.MembershipsForUser(u.ID)
	require.NoError(t, err)
	chatSide, err := g.MembershipsForChat(c.ID)
	require.NoError(t, err)
	require.Equal(t, []ChatMembership{m}, userSide)
	require.Equal(t, []ChatMembership{m}, chatSide)
	require.True(t, g.IsMember(u.ID, c.ID))
}

func TestGraph_LinkUserToChat_Missing(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general")

	tests := []struct {
		name      string
		userID    int64
		chatID    int64
		wantField string
	}{
		{name: "UnknownUser", userID: 42, chatID: c.ID, wantField: "user"},
		{name: "UnknownChat", userID: u.ID, chatID: 42, wantField: "chat"},
		{name: "ZeroUser", userID: 0, chatID: c.ID, wantField: "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := g.LinkUserToChat(tt.userID, tt.chatID)
			var mre *MissingReferenceError
			require.ErrorAs(t, err, &mre)
			require.Equal(t, tt.wantField, mre.Field)
			require.ErrorIs(t, err, ErrMissingReference)
		})
	}

	chat, _ := g.Chat(c.ID)
	require.Empty(t, chat.Users)
}

func TestGraph_CreateMessage(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general")

	m, err := g.CreateMessage("hello", u.ID, c.ID)
	require.NoError(t, err)
	want := Message{ID: 1, Text: "hello", Status: StatusSent, Timestamp: testTime, SenderID: u.ID, ChatID: c.ID}
	require.Equal(t, want, m)

	// Creation alone does not touch either list.
	user, _ := g.User(u.ID)
	chat, _ := g.Chat(c.ID)
	require.Empty(t, user.MessageIDs)
	require.Empty(t, chat.MessageIDs)

	require.NoError(t, g.AppendUserMessage(u.ID, m.ID))
	require.NoError(t, g.AppendChatMessage(c.ID, m.ID))
	user, _ = g.User(u.ID)
	chat, _ = g.Chat(c.ID)
	require.Equal(t, []int64{m.ID}, user.MessageIDs)
	require.Equal(t, []int64{m.ID}, chat.MessageIDs)
}

func TestGraph_CreateMessage_Options(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general")
	at := testTime.Add(time.Hour)

	m, err := g.CreateMessage("read already", u.ID, c.ID, WithStatus(StatusRead), WithSentAt(at))
	require.NoError(t, err)
	require.Equal(t, StatusRead, m.Status)
	require.Equal(t, at, m.Timestamp)

	_, err = g.CreateMessage("nope", u.ID, c.ID, WithStatus("lost"))
	require.ErrorIs(t, err, ErrInvalidStatus)

	// The rejected message did not consume an id.
	next, err := g.CreateMessage("again", u.ID, c.ID)
	require.NoError(t, err)
	require.Equal(t, m.ID+1, next.ID)
}

func TestGraph_MissingReferenceCreatesNothing(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general")
	p, err := g.PublishPost("post", u.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		do   func() error
		kind Kind
	}{
		{
			name: "MessageWithoutSender",
			do:   func() error { _, err := g.CreateMessage("x", 0, c.ID); return err },
			kind: KindMessage,
		},
		{
			name: "MessageWithoutChat",
			do:   func() error { _, err := g.SendMessage("x", u.ID, 99); return err },
			kind: KindMessage,
		},
		{
			name: "PostWithoutAuthor",
			do:   func() error { _, err := g.CreatePost("x", 99); return err },
			kind: KindPost,
		},
		{
			name: "PublishWithoutAuthor",
			do:   func() error { _, err := g.PublishPost("x", 0); return err },
			kind: KindPost,
		},
		{
			name: "CommentWithoutAuthor",
			do:   func() error { _, err := g.CreateComment("x", 99, p.ID); return err },
			kind: KindComment,
		},
		{
			name: "CommentWithoutPost",
			do:   func() error { _, err := g.CommentOnPost("x", u.ID, 99); return err },
			kind: KindComment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := g.ids.Peek(tt.kind)
			err := tt.do()
			require.ErrorIs(t, err, ErrMissingReference)
			require.Equal(t, before, g.ids.Peek(tt.kind))
		})
	}

	user, _ := g.User(u.ID)
	require.Empty(t, user.MessageIDs)
	require.Empty(t, user.CommentIDs)
	require.Equal(t, []int64{p.ID}, user.PostIDs)
	post, _ := g.Post(p.ID)
	require.Empty(t, post.CommentIDs)
	require.Len(t, g.Posts(), 1)
}

func TestGraph_MissingReferenceError_Message(t *testing.T) {
	g := newTestGraph(t)
	c := g.CreateChat("general")

	_, err := g.CreateMessage("x", 0, c.ID)
	require.EqualError(t, err, "message: missing sender")

	_, err = g.CreateMessage("x", 7, c.ID)
	require.EqualError(t, err, "message: sender 7 not found")
}

func TestGraph_AppendMissing(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general")
	p, err := g.CreatePost("post", u.ID)
	require.NoError(t, err)

	for name, err := range map[string]error{
		"UserMessage": g.AppendUserMessage(u.ID, 1),
		"ChatMessage": g.AppendChatMessage(c.ID, 1),
		"UserPost":    g.AppendUserPost(99, p.ID),
		"UserComment": g.AppendUserComment(u.ID, 1),
		"UnknownChat": g.AppendChatMessage(99, 1),
		"UnknownUser": g.AppendUserMessage(99, 1),
		"UnknownPost": g.AppendUserPost(u.ID, 99),
	} {
		if !errors.Is(err, ErrMissingReference) {
			t.Errorf("%s: got error %v, want ErrMissingReference", name, err)
		}
	}

	_, err = g.AddCommentToPost(p.ID, 1)
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestGraph_AddCommentToPost(t *testing.T) {
	g := newTestGraph(t)
	alice := g.CreateUser("alice", "alice@example.com")
	bob := g.CreateUser("bob", "bob@example.com")
	p, err := g.CreatePost("launch", alice.ID, WithPhoto("launch.png"))
	require.NoError(t, err)
	require.Equal(t, "launch.png", p.Photo)

	for i := 1; i <= 3; i++ {
		c, err := g.CreateComment("nice", bob.ID, p.ID)
		require.NoError(t, err)
		require.Equal(t, int64(i), c.ID)

		post, err := g.AddCommentToPost(p.ID, c.ID)
		require.NoError(t, err)
		require.Equal(t, len(post.CommentIDs), post.CommentCount)
		require.Equal(t, i, post.CommentCount)
	}

	comments, err := g.CommentsOnPost(p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	for _, c := range comments {
		require.Equal(t, p.ID, c.PostID)
		require.Equal(t, bob.ID, c.AuthorID)
	}
}

func TestGraph_CommentOnPost(t *testing.T) {
	g := newTestGraph(t)
	alice := g.CreateUser("alice", "alice@example.com")
	bob := g.CreateUser("bob", "bob@example.com")
	p, err := g.PublishPost("launch", alice.ID)
	require.NoError(t, err)

	c, err := g.CommentOnPost("great", bob.ID, p.ID)
	require.NoError(t, err)

	post, _ := g.Post(p.ID)
	user, _ := g.User(bob.ID)
	require.Equal(t, []int64{c.ID}, post.CommentIDs)
	require.Equal(t, 1, post.CommentCount)
	require.Equal(t, []int64{c.ID}, user.CommentIDs)
}

func TestGraph_LikeFromUser_Idempotent(t *testing.T) {
	g := newTestGraph(t)
	alice := g.CreateUser("alice", "alice@example.com")
	bob := g.CreateUser("bob", "bob@example.com")
	p, err := g.PublishPost("launch", alice.ID)
	require.NoError(t, err)

	first, created, err := g.LikeFromUser(bob.ID, p.ID)
	require.NoError(t, err)
	require.True(t, created)
	second, created, err := g.LikeFromUser(bob.ID, p.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first, second)

	liked, err := g.LikedPostsByUser(bob.ID)
	require.NoError(t, err)
	likes, err := g.LikesForPost(p.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	require.Len(t, likes, 1)
	require.Equal(t, bob.ID, likes[0].UserID)
	require.Equal(t, "2_1", likes[0].Key())
}

func TestGraph_LikeEntryPointsShareDedup(t *testing.T) {
	tests := []struct {
		name  string
		first func(g *Graph, userID, postID int64) (PostLike, bool, error)
		then  func(g *Graph, userID, postID int64) (PostLike, bool, error)
	}{
		{
			name:  "UserThenPost",
			first: func(g *Graph, u, p int64) (PostLike, bool, error) { return g.LikeFromUser(u, p) },
			then:  func(g *Graph, u, p int64) (PostLike, bool, error) { return g.LikeFromPost(u, p) },
		},
		{
			name:  "PostThenUser",
			first: func(g *Graph, u, p int64) (PostLike, bool, error) { return g.LikeFromPost(u, p) },
			then:  func(g *Graph, u, p int64) (PostLike, bool, error) { return g.LikeFromUser(u, p) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t)
			u := g.CreateUser("bob", "bob@example.com")
			p, err := g.PublishPost("launch", u.ID)
			require.NoError(t, err)

			_, created, err := tt.first(g, u.ID, p.ID)
			require.NoError(t, err)
			require.True(t, created)
			_, created, err = tt.then(g, u.ID, p.ID)
			require.NoError(t, err)
			require.False(t, created)

			user, _ := g.User(u.ID)
			post, _ := g.Post(p.ID)
			require.Len(t, user.LikedPosts, 1)
			require.Len(t, post.Likes, 1)
			require.True(t, g.HasLiked(u.ID, p.ID))
		})
	}
}

func TestGraph_LikeMissing(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("bob", "bob@example.com")

	_, _, err := g.LikeFromUser(u.ID, 1)
	require.ErrorIs(t, err, ErrMissingReference)
	_, _, err = g.LikeFromPost(99, 1)
	require.ErrorIs(t, err, ErrMissingReference)

	user, _ := g.User(u.ID)
	require.Empty(t, user.LikedPosts)
}

func TestGraph_IncrementCommentLike(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("bob", "bob@example.com")
	p, err := g.PublishPost("launch", u.ID)
	require.NoError(t, err)
	c, err := g.CommentOnPost("me too", u.ID, p.ID)
	require.NoError(t, err)

	const n = 7
	for i := 0; i < n; i++ {
		_, err := g.IncrementCommentLike(c.ID)
		require.NoError(t, err)
	}
	got, ok := g.Comment(c.ID)
	require.True(t, ok)
	require.Equal(t, n, got.LikeCount)

	// Post likes are unaffected.
	post, _ := g.Post(p.ID)
	require.Empty(t, post.Likes)

	_, err = g.IncrementCommentLike(99)
	require.ErrorIs(t, err, ErrMissingReference)
}

func TestGraph_SnapshotsAreCopies(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("alice", "alice@example.com")
	c := g.CreateChat("general")
	_, _, err := g.LinkUserToChat(u.ID, c.ID)
	require.NoError(t, err)

	snap, _ := g.User(u.ID)
	snap.Chats[0].Role = "owner"
	snap.Chats = append(snap.Chats, ChatMembership{})

	fresh, _ := g.User(u.ID)
	require.Len(t, fresh.Chats, 1)
	require.Equal(t, DefaultRole, fresh.Chats[0].Role)
}

func TestGraph_Reset(t *testing.T) {
	g := newTestGraph(t)
	g.CreateUser("alice", "alice@example.com")
	g.CreateChat("general")

	g.Reset()

	require.Empty(t, g.Users())
	require.Empty(t, g.Chats())
	require.Equal(t, int64(1), g.CreateUser("bob", "bob@example.com").ID)
	require.Equal(t, int64(1), g.CreateChat("general").ID)
}

func TestGraph_ResetKeepsSharedAllocator(t *testing.T) {
	ids := NewIDAllocator()
	a := New(WithIDAllocator(ids))
	b := New(WithIDAllocator(ids))

	a.CreateUser("alice", "alice@example.com")
	bob := b.CreateUser("bob", "bob@example.com")
	require.Equal(t, int64(2), bob.ID)

	a.Reset()
	require.Empty(t, a.Users())

	carol := b.CreateUser("carol", "carol@example.com")
	require.Equal(t, int64(3), carol.ID)

	got, ok := b.User(bob.ID)
	require.True(t, ok)
	require.Equal(t, "bob", got.Username)
	require.Len(t, b.Users(), 2)
	require.Equal(t, int64(4), a.CreateUser("dave", "dave@example.com").ID)
}

func TestGraph_NilOptionsAreIgnored(t *testing.T) {
	g := New(WithLogger(nil), WithClock(nil), WithIDAllocator(nil))

	u := g.CreateUser("alice", "alice@example.com")
	require.Equal(t, int64(1), u.ID)
	_, _, err := g.LinkUserToChat(u.ID, g.CreateChat("general").ID)
	require.NoError(t, err)
	m, err := g.SendMessage("hi", u.ID, 1)
	require.NoError(t, err)
	require.False(t, m.Timestamp.IsZero())
}

func TestGraph_ConcurrentLikes(t *testing.T) {
	g := newTestGraph(t)
	u := g.CreateUser("bob", "bob@example.com")
	p, err := g.PublishPost("launch", u.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = g.LikeFromUser(u.ID, p.ID)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = g.LikeFromPost(u.ID, p.ID)
		}()
	}
	wg.Wait()

	post, _ := g.Post(p.ID)
	user, _ := g.User(u.ID)
	require.Len(t, post.Likes, 1)
	require.Len(t, user.LikedPosts, 1)
}

func TestGraph_EndToEnd(t *testing.T) {
	g := newTestGraph(t)

	alice := g.CreateUser("alice", "alice@example.com")
	bob := g.CreateUser("bob", "bob@example.com")
	chat := g.CreateChat("Friends", AsGroup())
	for _, id := range []int64{alice.ID, bob.ID} {
		_, _, err := g.LinkUserToChat(id, chat.ID)
		require.NoError(t, err)
	}
	members, err := g.MembershipsForChat(chat.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	_, err = g.SendMessage("Hello everyone!", alice.ID, chat.ID)
	require.NoError(t, err)
	_, err = g.SendMessage("Hi Alice, what's new?", bob.ID, chat.ID)
	require.NoError(t, err)
	msgs, err := g.MessagesInChat(chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "Hello everyone!", msgs[0].Text)

	post, err := g.PublishPost("Just launched a new feature!", alice.ID)
	require.NoError(t, err)
	_, err = g.CommentOnPost("Great job, Alice!", bob.ID, post.ID)
	require.NoError(t, err)
	post, _ = g.Post(post.ID)
	require.Equal(t, 1, post.CommentCount)

	_, _, err = g.LikeFromUser(bob.ID, post.ID)
	require.NoError(t, err)
	post, _ = g.Post(post.ID)
	bob, _ = g.User(bob.ID)
	require.Len(t, post.Likes, 1)
	require.Len(t, bob.LikedPosts, 1)
	require.Equal(t, bob.ID, post.Likes[0].UserID)
}
