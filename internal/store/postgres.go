package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore holds the typed queries that sit outside the generic row
// client: users and admin membership, blog, FAQ, and inquiries.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, role, created_at, updated_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Email, user.DisplayName, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// IsAdminMember reports whether the user holds an admin membership row.
// Admin membership is separate from base authentication: a signed-in user
// without a membership row can read but never mutate.
func (s *PostgresStore) IsAdminMember(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM admin_memberships WHERE user_id = $1)
	`, userID).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("check admin membership: %w", err)
	}
	return isAdmin, nil
}

func (s *PostgresStore) ListPublishedPosts(ctx context.Context) ([]BlogPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, title, excerpt, body, published, published_at, updated_at
		FROM blog_posts
		WHERE published
		ORDER BY published_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		var post BlogPost
		if err := rows.Scan(&post.ID, &post.Slug, &post.Title, &post.Excerpt, &post.Body, &post.Published, &post.PublishedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *PostgresStore) GetPostBySlug(ctx context.Context, slug string) (BlogPost, error) {
	var post BlogPost
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, excerpt, body, published, published_at, updated_at
		FROM blog_posts WHERE slug = $1 AND published
	`, slug).Scan(&post.ID, &post.Slug, &post.Title, &post.Excerpt, &post.Body, &post.Published, &post.PublishedAt, &post.UpdatedAt)
	if err != nil {
		return BlogPost{}, err
	}
	return post, nil
}

func (s *PostgresStore) ListFAQ(ctx context.Context) ([]FAQEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer, position FROM faq_entries ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("list faq: %w", err)
	}
	defer rows.Close()

	var entries []FAQEntry
	for rows.Next() {
		var entry FAQEntry
		if err := rows.Scan(&entry.ID, &entry.Question, &entry.Answer, &entry.Position); err != nil {
			return nil, fmt.Errorf("scan faq entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) InsertInquiry(ctx context.Context, inquiry Inquiry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inquiries (id, name, email, message) VALUES ($1, $2, $3, $4)
	`, inquiry.ID, inquiry.Name, inquiry.Email, inquiry.Message)
	if err != nil {
		return fmt.Errorf("insert inquiry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInquiries(ctx context.Context, limit int) ([]Inquiry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, message, created_at
		FROM inquiries ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []Inquiry
	for rows.Next() {
		var inquiry Inquiry
		if err := rows.Scan(&inquiry.ID, &inquiry.Name, &inquiry.Email, &inquiry.Message, &inquiry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		inquiries = append(inquiries, inquiry)
	}
	return inquiries, rows.Err()
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
