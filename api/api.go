package api

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"

	"github.com/GetStream/social-graph/api/validator"
	"github.com/GetStream/social-graph/graph"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// A DB mirrors the graph into durable storage. The graph stays authoritative;
// the DB receives every entity after it has been created in memory.
type DB interface {
	InsertUser(ctx context.Context, u graph.User) error
	InsertChat(ctx context.Context, c graph.Chat) error
	InsertMembership(ctx context.Context, m graph.ChatMembership) error
	InsertMessage(ctx context.Context, msg graph.Message) error
	InsertPost(ctx context.Context, p graph.Post) error
	InsertComment(ctx context.Context, c graph.Comment) error
	InsertLike(ctx context.Context, l graph.PostLike) error
	UpdateCommentLikes(ctx context.Context, commentID int64, likes int) error
	ListMessages(ctx context.Context, chatID int64, limit, offset int) ([]graph.Message, error)
}

// A Cache keeps recent chat messages and post likes for fast reads.
type Cache interface {
	ListMessages(ctx context.Context, chatID int64) ([]graph.Message, error)
	InsertMessage(ctx context.Context, msg graph.Message) error
	InsertLike(ctx context.Context, l graph.PostLike) error
	LikeCount(ctx context.Context, postID int64) (int64, error)
	HasLiked(ctx context.Context, userID, postID int64) (bool, error)
}

// API provides the REST endpoints for the application. DB and Cache are
// optional.
type API struct {
	Logger *slog.Logger
	Graph  *graph.Graph
	DB     DB
	Cache  Cache
	Val    *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

// pageSize defines the default number of items displayed on a single page in pagination.
var pageSize = 10

const requestIDHeader = "X-Request-ID"

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", a.createUser)
	mux.HandleFunc("GET /users/{userID}", a.getUser)
	mux.HandleFunc("POST /users/{userID}/likes", a.likeFromUser)

	mux.HandleFunc("POST /chats", a.createChat)
	mux.HandleFunc("GET /chats/{chatID}", a.getChat)
	mux.HandleFunc("POST /chats/{chatID}/members", a.addMember)
	mux.HandleFunc("GET /chats/{chatID}/messages", a.listMessages)
	mux.HandleFunc("POST /chats/{chatID}/messages", a.createMessage)

	mux.HandleFunc("POST /posts", a.createPost)
	mux.HandleFunc("GET /posts/{postID}", a.getPost)
	mux.HandleFunc("POST /posts/{postID}/comments", a.createComment)
	mux.HandleFunc("GET /posts/{postID}/likes", a.getLikes)
	mux.HandleFunc("POST /posts/{postID}/likes", a.likeFromPost)

	mux.HandleFunc("POST /comments/{commentID}/likes", a.likeComment)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, reqID)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path, "request_id", reqID)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondGraphError maps graph errors to HTTP statuses. Missing references
// are reported with the graph's own message.
func (a *API) respondGraphError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, graph.ErrMissingReference):
		a.respondError(w, http.StatusNotFound, err, err.Error())
	case errors.Is(err, graph.ErrInvalidStatus):
		a.respondError(w, http.StatusBadRequest, err, err.Error())
	default:
		a.respondError(w, http.StatusInternalServerError, err, msg)
	}
}

func (a *API) validateBody(w http.ResponseWriter, s any) bool {
	type response struct {
		Errors []validator.ValidationError `json:"errors"`
	}

	if errs := a.Val.ValidateStruct(s); len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

// decodeBody decodes and validates the request body into dst. It writes the
// error response and returns false when the body is unusable.
func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	if err := r.Body.Close(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return false
	}
	return a.validateBody(w, dst)
}

func (a *API) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		if err == nil {
			err = errors.New("non-positive id")
		}
		a.respondError(w, http.StatusBadRequest, err, "Invalid "+name+" "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}

// persist mirrors a created entity to the DB. A failure is reported to the
// client; the entity stays in the graph.
func (a *API) persist(w http.ResponseWriter, r *http.Request, what string, fn func(ctx context.Context, db DB) error) bool {
	if a.DB == nil {
		return true
	}
	if err := fn(r.Context(), a.DB); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not persist "+what)
		return false
	}
	return true
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Username string `json:"username" validate:"required"`
		Email    string `json:"email" validate:"required"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	u := a.Graph.CreateUser(body.Username, body.Email, graph.WithBio(body.Bio), graph.WithAvatar(body.Avatar))
	if !a.persist(w, r, "user", func(ctx context.Context, db DB) error { return db.InsertUser(ctx, u) }) {
		return
	}
	a.respond(w, http.StatusCreated, u)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "userID")
	if !ok {
		return
	}
	u, ok := a.Graph.User(id)
	if !ok {
		a.respondError(w, http.StatusNotFound, errors.New("user not found"), "User not found")
		return
	}
	a.respond(w, http.StatusOK, u)
}

func (a *API) createChat(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Title   string `json:"title" validate:"required"`
		IsGroup bool   `json:"is_group"`
		Avatar  string `json:"avatar"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	opts := []graph.ChatOption{graph.WithChatAvatar(body.Avatar)}
	if body.IsGroup {
		opts = append(opts, graph.AsGroup())
	}
	c := a.Graph.CreateChat(body.Title, opts...)
	if !a.persist(w, r, "chat", func(ctx context.Context, db DB) error { return db.InsertChat(ctx, c) }) {
		return
	}
	a.respond(w, http.StatusCreated, c)
}

func (a *API) getChat(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "chatID")
	if !ok {
		return
	}
	c, ok := a.Graph.Chat(id)
	if !ok {
		a.respondError(w, http.StatusNotFound, errors.New("chat not found"), "Chat not found")
		return
	}
	a.respond(w, http.StatusOK, c)
}

func (a *API) addMember(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID int64 `json:"user_id" validate:"required"`
	}

	chatID, ok := a.pathID(w, r, "chatID")
	if !ok {
		return
	}
	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	m, created, err := a.Graph.LinkUserToChat(body.UserID, chatID)
	if err != nil {
		a.respondGraphError(w, err, "Could not add member")
		return
	}
	// A replay is persisted again so that an earlier failed write is repaired.
	if !a.persist(w, r, "membership", func(ctx context.Context, db DB) error { return db.InsertMembership(ctx, m) }) {
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	a.respond(w, status, MembershipResult{Membership: m, Created: created})
}

// listMessages returns one page of a chat's messages, oldest first. Cached
// messages are merged with the stored history before the page is cut, so a
// page never repeats or skips a message.
func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []graph.Message `json:"messages"`
	}

	chatID, ok := a.pathID(w, r, "chatID")
	if !ok {
		return
	}
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	offset := pageSize * (page - 1)

	history, err := a.Graph.MessagesInChat(chatID)
	if err != nil {
		a.respondGraphError(w, err, "Could not list messages")
		return
	}

	// Get messages from cache
	var msgs []graph.Message
	if a.Cache != nil {
		msgs, err = a.Cache.ListMessages(r.Context(), chatID)
		if err != nil {
			a.Logger.Error("Could not list cached messages", "error", err.Error(), "chat_id", chatID)
			msgs = nil
		}
		a.Logger.Info("Got messages from cache", "count", len(msgs))
	}

	// Get the stored history up to the end of the page. The DB is read from
	// the start so that cached messages keep their position in the merge.
	if a.DB != nil {
		history, err = a.DB.ListMessages(r.Context(), chatID, offset+pageSize, 0)
		if err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not list messages")
			return
		}
		a.Logger.Info("Got messages from database", "count", len(history))
	}

	msgs = append(msgs, history...)
	msgs = lo.UniqBy(msgs, func(m graph.Message) int64 { return m.ID })
	slices.SortFunc(msgs, func(x, y graph.Message) int { return cmp.Compare(x.ID, y.ID) })
	msgs = lo.Subset(msgs, offset, uint(pageSize))
	if msgs == nil {
		msgs = []graph.Message{}
	}
	a.respond(w, http.StatusOK, response{Messages: msgs})
}

func (a *API) createMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Text     string `json:"text" validate:"required"`
		SenderID int64  `json:"sender_id" validate:"required"`
		Status   string `json:"status" validate:"omitempty,oneof=sent delivered read"`
	}

	chatID, ok := a.pathID(w, r, "chatID")
	if !ok {
		return
	}
	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	var opts []graph.MessageOption
	if body.Status != "" {
		opts = append(opts, graph.WithStatus(graph.MessageStatus(body.Status)))
	}
	msg, err := a.Graph.SendMessage(body.Text, body.SenderID, chatID, opts...)
	if err != nil {
		a.respondGraphError(w, err, "Could not create message")
		return
	}
	if !a.persist(w, r, "message", func(ctx context.Context, db DB) error { return db.InsertMessage(ctx, msg) }) {
		return
	}

	if a.Cache != nil {
		if err := a.Cache.InsertMessage(r.Context(), msg); err != nil {
			a.Logger.Error("Could not cache message", "error", err.Error())
		}
	}

	a.respond(w, http.StatusCreated, msg)
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Text     string `json:"text" validate:"required"`
		AuthorID int64  `json:"author_id" validate:"required"`
		Photo    string `json:"photo"`
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	p, err := a.Graph.PublishPost(body.Text, body.AuthorID, graph.WithPhoto(body.Photo))
	if err != nil {
		a.respondGraphError(w, err, "Could not create post")
		return
	}
	if !a.persist(w, r, "post", func(ctx context.Context, db DB) error { return db.InsertPost(ctx, p) }) {
		return
	}
	a.respond(w, http.StatusCreated, p)
}

func (a *API) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "postID")
	if !ok {
		return
	}
	p, ok := a.Graph.Post(id)
	if !ok {
		a.respondError(w, http.StatusNotFound, errors.New("post not found"), "Post not found")
		return
	}
	a.respond(w, http.StatusOK, p)
}

// getLikes reports how many users liked a post and, given ?user_id, whether
// that user did. The cache answers when it can; the graph answers otherwise.
func (a *API) getLikes(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.pathID(w, r, "postID")
	if !ok {
		return
	}
	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			a.respondError(w, http.StatusBadRequest, errors.New("invalid user id"), "Invalid user_id "+strconv.Quote(raw))
			return
		}
		userID = id
	}

	likes, err := a.Graph.LikesForPost(postID)
	if err != nil {
		a.respondGraphError(w, err, "Could not list likes")
		return
	}
	res := LikeSummary{PostID: postID, Count: int64(len(likes))}
	if userID != 0 {
		liked := a.Graph.HasLiked(userID, postID)
		res.Liked = &liked
	}

	if a.Cache != nil {
		n, err := a.Cache.LikeCount(r.Context(), postID)
		if err != nil {
			a.Logger.Error("Could not count cached likes", "error", err.Error(), "post_id", postID)
			a.respond(w, http.StatusOK, res)
			return
		}
		cached := LikeSummary{PostID: postID, Count: n}
		if userID != 0 {
			liked, err := a.Cache.HasLiked(r.Context(), userID, postID)
			if err != nil {
				a.Logger.Error("Could not read cached like", "error", err.Error(), "post_id", postID)
				a.respond(w, http.StatusOK, res)
				return
			}
			cached.Liked = &liked
		}
		res = cached
	}
	a.respond(w, http.StatusOK, res)
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Text     string `json:"text" validate:"required"`
		AuthorID int64  `json:"author_id" validate:"required"`
	}

	postID, ok := a.pathID(w, r, "postID")
	if !ok {
		return
	}
	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	c, err := a.Graph.CommentOnPost(body.Text, body.AuthorID, postID)
	if err != nil {
		a.respondGraphError(w, err, "Could not create comment")
		return
	}
	if !a.persist(w, r, "comment", func(ctx context.Context, db DB) error { return db.InsertComment(ctx, c) }) {
		return
	}
	a.respond(w, http.StatusCreated, c)
}

func (a *API) likeFromUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		PostID int64 `json:"post_id" validate:"required"`
	}

	userID, ok := a.pathID(w, r, "userID")
	if !ok {
		return
	}
	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	l, created, err := a.Graph.LikeFromUser(userID, body.PostID)
	a.respondLike(w, r, l, created, err)
}

func (a *API) likeFromPost(w http.ResponseWriter, r *http.Request) {
	type request struct {
		UserID int64 `json:"user_id" validate:"required"`
	}

	postID, ok := a.pathID(w, r, "postID")
	if !ok {
		return
	}
	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	l, created, err := a.Graph.LikeFromPost(body.UserID, postID)
	a.respondLike(w, r, l, created, err)
}

func (a *API) respondLike(w http.ResponseWriter, r *http.Request, l graph.PostLike, created bool, err error) {
	if err != nil {
		a.respondGraphError(w, err, "Could not like post")
		return
	}
	// Replays are written again; both mirrors ignore duplicates.
	if !a.persist(w, r, "like", func(ctx context.Context, db DB) error { return db.InsertLike(ctx, l) }) {
		return
	}
	if a.Cache != nil {
		if err := a.Cache.InsertLike(r.Context(), l); err != nil {
			a.Logger.Error("Could not cache like", "error", err.Error())
		}
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	a.respond(w, status, LikeResult{Like: l, Created: created})
}

func (a *API) likeComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := a.pathID(w, r, "commentID")
	if !ok {
		return
	}

	c, err := a.Graph.IncrementCommentLike(commentID)
	if err != nil {
		a.respondGraphError(w, err, "Could not like comment")
		return
	}
	if !a.persist(w, r, "comment likes", func(ctx context.Context, db DB) error {
		return db.UpdateCommentLikes(ctx, c.ID, c.LikeCount)
	}) {
		return
	}
	a.respond(w, http.StatusOK, c)
}
