package api

import "github.com/GetStream/social-graph/graph"

// A MembershipResult is returned when a user is added to a chat. Created is
// false when the user was already a member.
type MembershipResult struct {
	Membership graph.ChatMembership `json:"membership"`
	Created    bool                 `json:"created"`
}

// A LikeResult is returned by both like endpoints. Created is false when the
// user had already liked the post.
type LikeResult struct {
	Like    graph.PostLike `json:"like"`
	Created bool           `json:"created"`
}

// A LikeSummary counts the likes of a post. Liked is set only when a user was
// asked about.
type LikeSummary struct {
	PostID int64 `json:"post_id"`
	Count  int64 `json:"count"`
	Liked  *bool `json:"liked,omitempty"`
}
