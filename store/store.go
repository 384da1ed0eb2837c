// Package store mirrors the entity graph into a relational database through
// bun. PostgreSQL and SQLite are supported.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/GetStream/social-graph/graph"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// Store provides storage in a SQL database.
type Store struct {
	bun *bun.DB
}

// Connect connects to PostgreSQL and pings the DB to ensure the connection is
// working.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{
		bun: bun.NewDB(sqlDB, pgdialect.New()),
	}, nil
}

// OpenSQLite opens the SQLite database at path, creating it if needed.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{
		bun: bun.NewDB(sqlDB, sqlitedialect.New()),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.bun.Close()
}

// CreateSchema creates every table that does not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	models := []any{
		(*user)(nil),
		(*chat)(nil),
		(*chatMember)(nil),
		(*message)(nil),
		(*post)(nil),
		(*comment)(nil),
		(*postLike)(nil),
	}
	for _, m := range models {
		if _, err := s.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// InsertUser inserts a user.
func (s *Store) InsertUser(ctx context.Context, u graph.User) error {
	m := &user{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Bio:      u.Bio,
		Avatar:   u.Avatar,
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertChat inserts a chat.
func (s *Store) InsertChat(ctx context.Context, c graph.Chat) error {
	m := &chat{
		ID:      c.ID,
		Title:   c.Title,
		IsGroup: c.IsGroup,
		Avatar:  c.Avatar,
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertMembership inserts a chat membership. Inserting an existing
// (chat, user) pair is a no-op.
func (s *Store) InsertMembership(ctx context.Context, cm graph.ChatMembership) error {
	m := &chatMember{
		ChatID:   cm.ChatID,
		UserID:   cm.UserID,
		JoinedAt: cm.JoinedAt,
		Role:     cm.Role,
	}
	if _, err := s.bun.NewInsert().Model(m).On("CONFLICT (chat_id, user_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertMessage inserts a message.
func (s *Store) InsertMessage(ctx context.Context, msg graph.Message) error {
	m := &message{
		ID:       msg.ID,
		Text:     msg.Text,
		Status:   string(msg.Status),
		SentAt:   msg.Timestamp,
		SenderID: msg.SenderID,
		ChatID:   msg.ChatID,
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertPost inserts a post.
func (s *Store) InsertPost(ctx context.Context, p graph.Post) error {
	m := &post{
		ID:          p.ID,
		Text:        p.Text,
		Photo:       p.Photo,
		PublishedAt: p.Date,
		AuthorID:    p.AuthorID,
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertComment inserts a comment.
func (s *Store) InsertComment(ctx context.Context, c graph.Comment) error {
	m := &comment{
		ID:        c.ID,
		Text:      c.Text,
		CreatedAt: c.Date,
		AuthorID:  c.AuthorID,
		PostID:    c.PostID,
		LikeCount: c.LikeCount,
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// InsertLike inserts a post like. Inserting an existing (user, post) pair is
// a no-op.
func (s *Store) InsertLike(ctx context.Context, l graph.PostLike) error {
	m := &postLike{
		UserID:  l.UserID,
		PostID:  l.PostID,
		LikedAt: l.Timestamp,
	}
	if _, err := s.bun.NewInsert().Model(m).On("CONFLICT (user_id, post_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// UpdateCommentLikes stores the like counter of a comment.
func (s *Store) UpdateCommentLikes(ctx context.Context, commentID int64, likes int) error {
	res, err := s.bun.NewUpdate().
		Model((*comment)(nil)).
		Set("like_count = ?", likes).
		Where("id = ?", commentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update: comment %d not found", commentID)
	}
	return nil
}

// ListMessages returns the messages of a chat ordered by id.
func (s *Store) ListMessages(ctx context.Context, chatID int64, limit, offset int) ([]graph.Message, error) {
	var msgs []message
	err := s.bun.NewSelect().
		Model(&msgs).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]graph.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.GraphMessage()
	}
	return out, nil
}

// MaxIDs returns the highest stored id of each entity kind. Kinds with no
// rows are absent.
func (s *Store) MaxIDs(ctx context.Context) (map[graph.Kind]int64, error) {
	tables := map[graph.Kind]any{
		graph.KindUser:    (*user)(nil),
		graph.KindChat:    (*chat)(nil),
		graph.KindMessage: (*message)(nil),
		graph.KindPost:    (*post)(nil),
		graph.KindComment: (*comment)(nil),
	}
	out := make(map[graph.Kind]int64, len(tables))
	for kind, model := range tables {
		var n int64
		err := s.bun.NewSelect().
			Model(model).
			ColumnExpr("COALESCE(MAX(id), 0)").
			Scan(ctx, &n)
		if err != nil {
			return nil, fmt.Errorf("max %s id: %w", kind, err)
		}
		if n > 0 {
			out[kind] = n
		}
	}
	return out, nil
}
