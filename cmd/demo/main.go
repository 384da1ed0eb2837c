// Command demo runs a short scenario against an in-memory graph and prints
// what it built.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/GetStream/social-graph/config"
	"github.com/GetStream/social-graph/graph"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	level := flag.String("log-level", "WARN", "log level of the graph")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Parse()

	if *noColor {
		color.Disable()
	}
	if err := run(os.Stdout, config.NewLogger(*level)); err != nil {
		fmt.Fprintf(os.Stderr, "Demo failed: %v\n", err)
		os.Exit(1)
	}
}

var (
	okStyle   = color.New(color.FgGreen, color.OpBold)
	stepStyle = color.New(color.FgCyan)
)

// run plays the scenario, printing a status line after each step and a
// summary table at the end.
func run(w io.Writer, log *slog.Logger) error {
	g := graph.New(graph.WithLogger(log))

	step := func(format string, args ...any) {
		fmt.Fprintln(w, stepStyle.Sprintf("==> "+format, args...))
	}
	ok := func(format string, args ...any) {
		fmt.Fprintln(w, okStyle.Sprintf("    "+format, args...))
	}

	step("Creating users")
	alice := g.CreateUser("alice", "alice@example.com", graph.WithBio("Building things"))
	bob := g.CreateUser("bob", "bob@example.com", graph.WithAvatar("bob.png"))
	ok("Created %s (id %d) and %s (id %d)", alice.Username, alice.ID, bob.Username, bob.ID)

	step("Creating a group chat")
	chat := g.CreateChat("Friends", graph.AsGroup())
	for _, id := range []int64{alice.ID, bob.ID} {
		if _, _, err := g.LinkUserToChat(id, chat.ID); err != nil {
			return fmt.Errorf("link user %d: %w", id, err)
		}
	}
	members, err := g.MembershipsForChat(chat.ID)
	if err != nil {
		return err
	}
	if err := expect("chat members", 2, len(members)); err != nil {
		return err
	}
	ok("Chat %q has %d participants", chat.Title, len(members))

	step("Sending messages")
	if _, err := g.SendMessage("Hello everyone!", alice.ID, chat.ID); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if _, err := g.SendMessage("Hi Alice, what's new?", bob.ID, chat.ID); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	msgs, err := g.MessagesInChat(chat.ID)
	if err != nil {
		return err
	}
	if err := expect("chat messages", 2, len(msgs)); err != nil {
		return err
	}
	ok("Chat %q has %d messages", chat.Title, len(msgs))

	step("Publishing a post")
	post, err := g.PublishPost("Just launched a new feature!", alice.ID)
	if err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	if _, err := g.CommentOnPost("Great job, Alice!", bob.ID, post.ID); err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	post, _ = g.Post(post.ID)
	if err := expect("post comments", 1, post.CommentCount); err != nil {
		return err
	}
	ok("Post %d by %s has %d comment", post.ID, alice.Username, post.CommentCount)

	step("Liking the post")
	if _, _, err := g.LikeFromUser(bob.ID, post.ID); err != nil {
		return fmt.Errorf("like: %w", err)
	}
	post, _ = g.Post(post.ID)
	bob, _ = g.User(bob.ID)
	if err := expect("post likes", 1, len(post.Likes)); err != nil {
		return err
	}
	if err := expect("posts liked by bob", 1, len(bob.LikedPosts)); err != nil {
		return err
	}
	if post.Likes[0].UserID != bob.ID {
		return fmt.Errorf("like: got user %d, want %d", post.Likes[0].UserID, bob.ID)
	}
	ok("Post %d has %d like, %s liked %d post", post.ID, len(post.Likes), bob.Username, len(bob.LikedPosts))

	fmt.Fprintln(w)
	summary(w, g)
	return nil
}

func expect(what string, want, got int) error {
	if got != want {
		return fmt.Errorf("%s: got %d, want %d", what, got, want)
	}
	return nil
}

// summary renders one row per user with the size of each owned collection.
func summary(w io.Writer, g *graph.Graph) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Username", "Chats", "Messages", "Posts", "Comments", "Liked"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, u := range g.Users() {
		table.Append([]string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			strconv.Itoa(len(u.Chats)),
			strconv.Itoa(len(u.MessageIDs)),
			strconv.Itoa(len(u.PostIDs)),
			strconv.Itoa(len(u.CommentIDs)),
			strconv.Itoa(len(u.LikedPosts)),
		})
	}
	table.Render()
}
