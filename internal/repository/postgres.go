package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadcast/threadcast/internal/domain"
)

// Compile-time interface assertions.
var (
	_ AccountRepository = (*PostgresAccountRepo)(nil)
	_ PostRepository    = (*PostgresPostRepo)(nil)
)

// PostgresAccountRepo implements AccountRepository on pgx.
type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

func (r *PostgresAccountRepo) Upsert(ctx context.Context, account domain.SocialAccount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO social_accounts (
			user_id, platform, account_id, account_handle, profile_picture_url,
			access_token, token_expires_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		ON CONFLICT (user_id, platform) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			account_handle = EXCLUDED.account_handle,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = TRUE,
			updated_at = NOW()`,
		account.UserID, account.Platform, account.AccountID, account.AccountHandle,
		account.ProfilePictureURL, account.AccessToken, account.TokenExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert social account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) GetActive(ctx context.Context, userID int64, platform string) (*domain.SocialAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, platform, account_id, account_handle,
		       COALESCE(profile_picture_url, ''), access_token, token_expires_at,
		       is_active, created_at, updated_at
		FROM social_accounts
		WHERE user_id = $1 AND platform = $2 AND is_active = TRUE`,
		userID, platform,
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get social account: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepo) ListActive(ctx context.Context, platform string) ([]domain.SocialAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, platform, account_id, account_handle,
		       COALESCE(profile_picture_url, ''), access_token, token_expires_at,
		       is_active, created_at, updated_at
		FROM social_accounts
		WHERE platform = $1 AND is_active = TRUE
		ORDER BY id`,
		platform,
	)
	if err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.SocialAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan social account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list social accounts: %w", err)
	}
	return accounts, nil
}

func (r *PostgresAccountRepo) UpdateTokenIfCurrent(ctx context.Context, id int64, currentToken, newToken string, expiresAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE social_accounts
		SET access_token = $1, token_expires_at = $2, updated_at = NOW()
		WHERE id = $3 AND access_token = $4`,
		newToken, expiresAt, id, currentToken,
	)
	if err != nil {
		return false, fmt.Errorf("update token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresAccountRepo) Deactivate(ctx context.Context, userID int64, platform string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE social_accounts
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND platform = $2`,
		userID, platform,
	)
	if err != nil {
		return fmt.Errorf("deactivate social account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.SocialAccount, error) {
	var account domain.SocialAccount
	if err := row.Scan(
		&account.ID, &account.UserID, &account.Platform, &account.AccountID,
		&account.AccountHandle, &account.ProfilePictureURL, &account.AccessToken,
		&account.TokenExpiresAt, &account.IsActive, &account.CreatedAt, &account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

// PostgresPostRepo implements PostRepository on pgx.
type PostgresPostRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPostRepo(pool *pgxpool.Pool) *PostgresPostRepo {
	return &PostgresPostRepo{pool: pool}
}

func (r *PostgresPostRepo) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, user_id, content, image_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at`,
		post.ID, post.UserID, post.Content, post.ImageURL, post.Status,
	)
	if err := row.Scan(&post.CreatedAt, &post.UpdatedAt); err != nil {
		return domain.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (r *PostgresPostRepo) Get(ctx context.Context, userID, postID int64) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, content, COALESCE(image_url, ''), status,
		       COALESCE(platform, ''), COALESCE(platform_post_id, ''),
		       published_at, likes, comments, shares, impressions,
		       last_analytics_sync, created_at, updated_at
		FROM posts
		WHERE id = $1 AND user_id = $2`,
		postID, userID,
	)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

func (r *PostgresPostRepo) ListPublished(ctx context.Context, userID int64, platform string) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, content, COALESCE(image_url, ''), status,
		       COALESCE(platform, ''), COALESCE(platform_post_id, ''),
		       published_at, likes, comments, shares, impressions,
		       last_analytics_sync, created_at, updated_at
		FROM posts
		WHERE user_id = $1 AND status = $2 AND platform = $3
		  AND platform_post_id IS NOT NULL
		ORDER BY published_at DESC`,
		userID, domain.PostStatusPublished, platform,
	)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

func (r *PostgresPostRepo) MarkPublished(ctx context.Context, postID int64, platform, platformPostID string, publishedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $1, platform = $2, platform_post_id = $3,
		    published_at = $4, updated_at = NOW()
		WHERE id = $5`,
		domain.PostStatusPublished, platform, platformPostID, publishedAt, postID,
	)
	if err != nil {
		return fmt.Errorf("mark post published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPostRepo) UpdateEngagement(ctx context.Context, postID int64, likes, comments, shares, impressions int, syncedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET likes = $1, comments = $2, shares = $3, impressions = $4,
		    last_analytics_sync = $5, updated_at = NOW()
		WHERE id = $6`,
		likes, comments, shares, impressions, syncedAt, postID,
	)
	if err != nil {
		return fmt.Errorf("update engagement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID, &post.UserID, &post.Content, &post.ImageURL, &post.Status,
		&post.Platform, &post.PlatformPostID, &post.PublishedAt,
		&post.Likes, &post.Comments, &post.Shares, &post.Impressions,
		&post.LastAnalyticsSync, &post.CreatedAt, &post.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &post, nil
}
