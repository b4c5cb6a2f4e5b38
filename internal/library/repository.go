package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id string) (*Asset, error)
	GetAssetByURL(ctx context.Context, url string) (*Asset, error)
	ListAssets(ctx context.Context) ([]*Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	UpdateAssetLocalPath(ctx context.Context, id, localPath string, size int64) error
	CountAssets(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *Asset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, type, url, local_path, name, prompt, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Type, a.URL, a.LocalPath, a.Name, a.Prompt, a.Size, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, url, local_path, name, prompt, size, created_at
		FROM assets WHERE id = ?
	`, id)
	return r.scanAsset(row)
}

func (r *SQLiteRepository) GetAssetByURL(ctx context.Context, url string) (*Asset, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, url, local_path, name, prompt, size, created_at
		FROM assets WHERE url = ?
	`, url)
	return r.scanAsset(row)
}

func (r *SQLiteRepository) scanAsset(row *sql.Row) (*Asset, error) {
	var a Asset
	var createdAt string

	err := row.Scan(&a.ID, &a.Type, &a.URL, &a.LocalPath, &a.Name, &a.Prompt, &a.Size, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, url, local_path, name, prompt, size, created_at
		FROM assets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		var a Asset
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Type, &a.URL, &a.LocalPath, &a.Name, &a.Prompt, &a.Size, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRepository) DeleteAsset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateAssetLocalPath(ctx context.Context, id, localPath string, size int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE assets SET local_path = ?, size = ? WHERE id = ?", localPath, size, id)
	return err
}

func (r *SQLiteRepository) CountAssets(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
