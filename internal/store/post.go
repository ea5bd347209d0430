package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tiancizhuang/apiserver/types"
)

const postColumns = `p.id, p.title, p.body, p.money, p.author_id, u.username, p.created, p.edited`

// PostRepository handles persistence for posts.
// Reads join the author's username.
type PostRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPostRepository(db *sql.DB, dialect Dialect) *PostRepository {
	return &PostRepository{db: db, dialect: dialect}
}

// List returns every post, most recently edited first.
func (r *PostRepository) List(ctx context.Context) ([]types.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON p.author_id = u.id
		ORDER BY p.edited DESC, p.id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]types.Post, 0)
	for rows.Next() {
		var post types.Post
		if err := scanPost(rows, &post); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.id = ?`
	var post types.Post
	err := scanPost(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id), &post)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// Create inserts the post as given, including its timestamps, and fills in the id.
func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	const query = `
		INSERT INTO posts (author_id, title, body, money, created, edited)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		r.dialect.Rebind(query),
		post.AuthorID,
		post.Title,
		post.Body,
		post.Money,
		post.Created,
		post.Edited,
	).Scan(&post.ID); err != nil {
		return types.Post{}, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// Update persists the editable fields and the edited timestamp.
func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	const query = `
		UPDATE posts
		SET title = ?,
			body = ?,
			money = ?,
			edited = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(
		ctx,
		r.dialect.Rebind(query),
		post.Title,
		post.Body,
		post.Money,
		post.Edited,
		post.ID,
	)
	if err != nil {
		return types.Post{}, fmt.Errorf("failed to update post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner, post *types.Post) error {
	return s.Scan(
		&post.ID,
		&post.Title,
		&post.Body,
		&post.Money,
		&post.AuthorID,
		&post.AuthorUsername,
		&post.Created,
		&post.Edited,
	)
}
