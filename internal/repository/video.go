// Package repository is the Postgres implementation of storage.VideoStore.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/VideoGate/internal/model"
	"github.com/dharsanguruparan/VideoGate/internal/storage"
)

// VideoRepository wraps all SQL against the videos table.
type VideoRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ storage.VideoStore = (*VideoRepository)(nil)

// NewVideoRepository constructs a repository.
func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

const selectColumns = `id_video, titulo, autor, status, file_path, data_criacao, data_upload,
	COALESCE(owner_id,''), COALESCE(owner_username,''), COALESCE(owner_email,''),
	COALESCE(zip_path,''), COALESCE(s3_key_zip,'')`

// Put upserts the full row.
func (r *VideoRepository) Put(ctx context.Context, video *model.Video) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO videos (id_video, titulo, autor, status, file_path, data_criacao, data_upload,
			owner_id, owner_username, owner_email, zip_path, s3_key_zip)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),NULLIF($12,''))
		ON CONFLICT (id_video) DO UPDATE SET
			titulo = EXCLUDED.titulo,
			autor = EXCLUDED.autor,
			status = EXCLUDED.status,
			file_path = EXCLUDED.file_path,
			data_criacao = EXCLUDED.data_criacao,
			data_upload = EXCLUDED.data_upload,
			owner_id = EXCLUDED.owner_id,
			owner_username = EXCLUDED.owner_username,
			owner_email = EXCLUDED.owner_email,
			zip_path = EXCLUDED.zip_path,
			s3_key_zip = EXCLUDED.s3_key_zip
	`, video.ID, video.Title, video.Author, string(video.Status), video.FilePath,
		video.CreatedAt, video.UpdatedAt, video.OwnerID, video.OwnerUsername,
		video.OwnerEmail, video.ZipPath, video.ZipKey)
	if err != nil {
		return fmt.Errorf("upsert video: %w", err)
	}
	return nil
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		v      model.Video
		status string
	)
	err := row.Scan(&v.ID, &v.Title, &v.Author, &status, &v.FilePath, &v.CreatedAt, &v.UpdatedAt,
		&v.OwnerID, &v.OwnerUsername, &v.OwnerEmail, &v.ZipPath, &v.ZipKey)
	if err != nil {
		return nil, err
	}
	v.Status = model.Status(status)
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

// Get returns a video by id, or nil when no row matches.
func (r *VideoRepository) Get(ctx context.Context, id string) (*model.Video, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM videos WHERE id_video=$1`, id)
	v, err := scanVideo(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

// UpdateStatus sets status and data_upload in one statement.
func (r *VideoRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE videos SET status=$1, data_upload=$2 WHERE id_video=$3
	`, string(status), r.now(), id)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByOwner returns every row owned by ownerID, newest first.
func (r *VideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Video, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM videos WHERE owner_id=$1 ORDER BY data_criacao DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select videos: %w", err)
	}
	defer rows.Close()
	videos := make([]model.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
