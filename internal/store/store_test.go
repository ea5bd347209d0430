package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tiancizhuang/apiserver/config"
	"github.com/tiancizhuang/apiserver/internal/db"
	"github.com/tiancizhuang/apiserver/types"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.Config{Database: config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.sqlite"),
	}}
	if err := db.MigrateUp(cfg); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	conn, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUserRepository(t *testing.T) {
	conn := newTestDB(t)
	repo := NewUserRepository(conn, DialectSQLite)
	ctx := context.Background()

	created, err := repo.Create(ctx, types.User{Username: "alice", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}

	t.Run("GetByUsername returns the stored user", func(t *testing.T) {
		got, err := repo.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("GetByUsername failed: %v", err)
		}
		if got.ID != created.ID || got.PasswordHash != "hash" {
			t.Errorf("unexpected user: %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("GetByID returns the stored user", func(t *testing.T) {
		got, err := repo.GetByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Username != "alice" {
			t.Errorf("username: expected alice, got %q", got.Username)
		}
	})

	t.Run("missing users yield ErrNotFound", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, created.ID+100); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID: expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByUsername: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate username yields ErrConflict", func(t *testing.T) {
		_, err := repo.Create(ctx, types.User{Username: "alice", PasswordHash: "other"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		got, err := repo.GetByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("GetByUsername failed: %v", err)
		}
		if got.PasswordHash != "hash" {
			t.Error("existing user must be left unchanged")
		}
	})
}

func TestPostRepository(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn, DialectSQLite)
	posts := NewPostRepository(conn, DialectSQLite)
	ctx := context.Background()

	author, err := users.Create(ctx, types.User{Username: "bob", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	newPost := func(title string, at time.Time) types.Post {
		t.Helper()
		post, err := posts.Create(ctx, types.Post{
			Title:    title,
			Body:     "body",
			Money:    "5",
			AuthorID: author.ID,
			Created:  at,
			Edited:   at,
		})
		if err != nil {
			t.Fatalf("Create post failed: %v", err)
		}
		return post
	}

	t.Run("List on empty table", func(t *testing.T) {
		list, err := posts.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected no posts, got %d", len(list))
		}
	})

	older := newPost("older", base)
	newer := newPost("newer", base.Add(time.Minute))

	t.Run("List orders by edited descending", func(t *testing.T) {
		list, err := posts.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 posts, got %d", len(list))
		}
		if list[0].ID != newer.ID || list[1].ID != older.ID {
			t.Errorf("unexpected order: %d, %d", list[0].ID, list[1].ID)
		}
		if list[0].AuthorUsername != "bob" {
			t.Errorf("author: expected bob, got %q", list[0].AuthorUsername)
		}
	})

	t.Run("Update moves the edited post to the front", func(t *testing.T) {
		older.Title = "older, edited"
		older.Edited = base.Add(2 * time.Minute)
		if _, err := posts.Update(ctx, older); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		list, err := posts.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if list[0].ID != older.ID {
			t.Fatalf("expected edited post first, got %d", list[0].ID)
		}
		if list[0].Title != "older, edited" {
			t.Errorf("title: got %q", list[0].Title)
		}
		if !list[0].Created.Equal(base) {
			t.Errorf("created must not change on edit: got %v", list[0].Created)
		}
	})

	t.Run("Get joins the author", func(t *testing.T) {
		got, err := posts.Get(ctx, newer.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.AuthorID != author.ID || got.AuthorUsername != "bob" || got.Money != "5" {
			t.Errorf("unexpected post: %+v", got)
		}
	})

	t.Run("Delete removes the post", func(t *testing.T) {
		if err := posts.Delete(ctx, newer.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := posts.Get(ctx, newer.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := posts.Delete(ctx, newer.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update of a missing post yields ErrNotFound", func(t *testing.T) {
		_, err := posts.Update(ctx, types.Post{ID: 9999, Title: "x", Body: "y", Money: "1", Edited: base})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown author is rejected", func(t *testing.T) {
		_, err := posts.Create(ctx, types.Post{
			Title: "t", Body: "b", Money: "1", AuthorID: author.ID + 100, Created: base, Edited: base,
		})
		if err == nil {
			t.Fatal("expected foreign key violation")
		}
	})
}
