package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tiancizhuang/apiserver/internal/services"
	"github.com/tiancizhuang/apiserver/types"
)

const (
	formFieldTitle = "title"
	formFieldBody  = "body"
	formFieldMoney = "money"
)

var errInvalidPostID = errors.New("invalid post id")

// PostHandler provides HTTP handlers for help posts.
type PostHandler struct {
	postService *services.PostService
}

// NewPostHandler constructs a handler with the provided service.
func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRouter registers post routes on the given router. Every write route
// is wrapped in authMiddleware.
func PostRouter(r chi.Router, postService *services.PostService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewPostHandler(postService)

	r.Get("/", handler.ListPosts)
	r.With(authMiddleware).Get("/new", handler.NewPostForm)
	r.With(authMiddleware).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(authMiddleware).Get("/update", handler.EditPostForm)
		r.With(authMiddleware).Post("/update", handler.UpdatePost)
		r.With(authMiddleware).Post("/delete", handler.DeletePost)
	})
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	feed, err := h.postService.List(r.Context())
	if err != nil {
		slog.Error("Failed to list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (h *PostHandler) NewPostForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FormResponse{Fields: []string{formFieldTitle, formFieldBody, formFieldMoney}})
}

// GetPost returns a single post to anyone.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	user, _ := CurrentUser(r.Context())
	post, err := h.postService.Get(r.Context(), id, user, false)
	if err != nil {
		writePostError(w, id, err, "failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// EditPostForm returns the post being edited, but only to its author.
func (h *PostHandler) EditPostForm(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	user, _ := CurrentUser(r.Context())
	post, err := h.postService.Get(r.Context(), id, user, true)
	if err != nil {
		writePostError(w, id, err, "failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	input, err := parsePostForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, _ := CurrentUser(r.Context())
	if _, err := h.postService.Create(r.Context(), input, user); err != nil {
		writePostError(w, 0, err, "failed to create post")
		return
	}
	redirect(w, r, indexPath)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	input, err := parsePostForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, _ := CurrentUser(r.Context())
	if _, err := h.postService.Update(r.Context(), id, input, user); err != nil {
		writePostError(w, id, err, "failed to update post")
		return
	}
	redirect(w, r, indexPath)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}

	user, _ := CurrentUser(r.Context())
	if err := h.postService.Delete(r.Context(), id, user); err != nil {
		writePostError(w, id, err, "failed to delete post")
		return
	}
	redirect(w, r, indexPath)
}

func writePostError(w http.ResponseWriter, id int, err error, fallback string) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage(id))
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		slog.Error(fallback, "post_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func notFoundMessage(id int) string {
	return fmt.Sprintf("post id %d doesn't exist", id)
}

// postID writes a 404 for ids that cannot name a post.
func postID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return 0, false
	}
	return id, true
}

func parsePostID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "postID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errInvalidPostID
	}
	return id, nil
}

func parsePostForm(r *http.Request) (types.PostInput, error) {
	form, err := formValues(r)
	if err != nil {
		return types.PostInput{}, err
	}
	return types.PostInput{
		Title: form.Get(formFieldTitle),
		Body:  form.Get(formFieldBody),
		Money: form.Get(formFieldMoney),
	}, nil
}
