package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tiancizhuang/apiserver/internal/store"
	"github.com/tiancizhuang/apiserver/types"
)

// EmptyFeedMessage is shown when there are no posts yet.
const EmptyFeedMessage = "no posts yet"

const (
	EventPostCreated = "post.created"
	EventPostUpdated = "post.updated"
	EventPostDeleted = "post.deleted"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context) ([]types.Post, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// EventPublisher delivers post lifecycle events to a broker channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// PostEvent is the payload published after a post write commits.
type PostEvent struct {
	Type     string    `json:"type"`
	PostID   int       `json:"post_id"`
	AuthorID int       `json:"author_id"`
	At       time.Time `json:"at"`
}

// PostService encapsulates post use-cases and their ownership rules.
type PostService struct {
	repo    PostRepository
	events  EventPublisher
	channel string
	now     func() time.Time
}

// PostOption customizes a PostService.
type PostOption func(*PostService)

// WithEvents publishes lifecycle events on channel after every write.
func WithEvents(publisher EventPublisher, channel string) PostOption {
	return func(s *PostService) {
		s.events = publisher
		s.channel = channel
	}
}

// WithClock overrides the time source used for created/edited stamps.
func WithClock(now func() time.Time) PostOption {
	return func(s *PostService) {
		s.now = now
	}
}

func NewPostService(repo PostRepository, opts ...PostOption) *PostService {
	s := &PostService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every post, most recently edited first.
func (s *PostService) List(ctx context.Context) (types.PostFeed, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return types.PostFeed{}, err
	}
	feed := types.PostFeed{Posts: posts}
	if len(posts) == 0 {
		feed.Message = EmptyFeedMessage
	}
	return feed, nil
}

// Get fetches a post. It fails with ErrNotFound when the post is absent and,
// if checkAuthor is set, with ErrForbidden when requester is not its author.
func (s *PostService) Get(ctx context.Context, id int, requester types.User, checkAuthor bool) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, fmt.Errorf("post id %d: %w", id, ErrNotFound)
		}
		return types.Post{}, err
	}
	if checkAuthor {
		if err := RequireOwner(post, requester); err != nil {
			return types.Post{}, err
		}
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, input types.PostInput, author types.User) (types.Post, error) {
	input, err := validatePost(input)
	if err != nil {
		return types.Post{}, err
	}

	now := s.stamp()
	post, err := s.repo.Create(ctx, types.Post{
		Title:          input.Title,
		Body:           input.Body,
		Money:          input.Money,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Created:        now,
		Edited:         now,
	})
	if err != nil {
		return types.Post{}, err
	}

	slog.Info("Post created", "post_id", post.ID, "author_id", post.AuthorID)
	s.publish(ctx, EventPostCreated, post)
	return post, nil
}

func (s *PostService) Update(ctx context.Context, id int, input types.PostInput, requester types.User) (types.Post, error) {
	post, err := s.Get(ctx, id, requester, true)
	if err != nil {
		return types.Post{}, err
	}

	input, err = validatePost(input)
	if err != nil {
		return types.Post{}, err
	}

	post.Title = input.Title
	post.Body = input.Body
	post.Money = input.Money
	post.Edited = s.stamp()

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, fmt.Errorf("post id %d: %w", id, ErrNotFound)
		}
		return types.Post{}, err
	}

	slog.Info("Post updated", "post_id", updated.ID, "author_id", updated.AuthorID)
	s.publish(ctx, EventPostUpdated, updated)
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, id int, requester types.User) error {
	post, err := s.Get(ctx, id, requester, true)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("post id %d: %w", id, ErrNotFound)
		}
		return err
	}

	slog.Info("Post deleted", "post_id", id, "author_id", post.AuthorID)
	s.publish(ctx, EventPostDeleted, post)
	return nil
}

// RequireOwner fails with ErrForbidden unless requester authored post.
func RequireOwner(post types.Post, requester types.User) error {
	if requester.ID == 0 || post.AuthorID != requester.ID {
		return fmt.Errorf("post id %d: %w", post.ID, ErrForbidden)
	}
	return nil
}

func validatePost(input types.PostInput) (types.PostInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Money = strings.TrimSpace(input.Money)

	if input.Title == "" {
		return input, required("title", "title is required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return input, required("body", "body is required")
	}
	if input.Money == "" {
		return input, required("money", "money is required")
	}
	return input, nil
}

// stamp truncates to microseconds, the precision postgres keeps.
func (s *PostService) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// publish is best effort: the write has already committed.
func (s *PostService) publish(ctx context.Context, eventType string, post types.Post) {
	if s.events == nil {
		return
	}

	data, err := json.Marshal(PostEvent{
		Type:     eventType,
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		At:       s.stamp(),
	})
	if err != nil {
		slog.Warn("Failed to encode post event", "type", eventType, "error", err)
		return
	}

	if _, err := s.events.Publish(ctx, s.channel, data, map[string]string{"type": eventType}); err != nil {
		slog.Warn("Failed to publish post event",
			"type", eventType,
			"post_id", post.ID,
			"channel", s.channel,
			"error", err,
		)
	}
}
