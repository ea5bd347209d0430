package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/tiancizhuang/apiserver/internal/session"
	"github.com/tiancizhuang/apiserver/types"
)

const maxFormBytes = 1 << 20

type contextKey string

const (
	contextUserKey    contextKey = "user"
	contextSessionKey contextKey = "session"
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FormResponse lists the fields a form submission expects.
type FormResponse struct {
	Fields []string `json:"fields"`
}

// CurrentUser returns the user resolved for this request, if any.
func CurrentUser(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func withCurrentUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func sessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(contextSessionKey).(*session.Session)
	return sess, ok
}

func withSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, contextSessionKey, sess)
}

// formValues reads a submission sent either as a classic form post or as a
// JSON object. Non-string JSON values are kept in their literal form.
func formValues(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("invalid form")
		}
		return r.PostForm, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxFormBytes))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.New("invalid request")
	}

	values := url.Values{}
	for key, value := range raw {
		switch typed := value.(type) {
		case nil:
		case string:
			values.Set(key, typed)
		case json.Number:
			values.Set(key, typed.String())
		default:
			values.Set(key, fmt.Sprint(typed))
		}
	}
	return values, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusFound)
}
