package database

import (
	"database/sql"
	"fmt"
	"time"
)

type storedFileRepository struct {
	db *DB
}

func NewStoredFileRepository(db *DB) StoredFileRepository {
	return &storedFileRepository{db: db}
}

const storedFileColumns = `
	id, storage_bucket, storage_path, file_type, size_bytes, sha256,
	source_url, source_type, download_date, parse_status, parse_date,
	COALESCE(parse_error, ''), expires_at, blob_deleted, created_at`

func (r *storedFileRepository) GetByID(id string) (*StoredFile, error) {
	row := r.db.QueryRow(`
		SELECT `+storedFileColumns+`
		FROM stored_files
		WHERE id = $1
	`, id)

	return scanStoredFile(row.Scan)
}

func (r *storedFileRepository) GetBySHA256(sha256 string) (*StoredFile, error) {
	row := r.db.QueryRow(`
		SELECT `+storedFileColumns+`
		FROM stored_files
		WHERE sha256 = $1
	`, sha256)

	return scanStoredFile(row.Scan)
}

func (r *storedFileRepository) GetBySourceURL(sourceURL string) (*StoredFile, error) {
	row := r.db.QueryRow(`
		SELECT `+storedFileColumns+`
		FROM stored_files
		WHERE source_url = $1
		ORDER BY download_date DESC
		LIMIT 1
	`, sourceURL)

	return scanStoredFile(row.Scan)
}

// Insert records an archived artifact. Archiving is idempotent on content:
// re-inserting the same sha256 returns the existing row's id.
func (r *storedFileRepository) Insert(f *StoredFile) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO stored_files (
			storage_bucket, storage_path, file_type, size_bytes, sha256,
			source_url, source_type, download_date, parse_status, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sha256) DO UPDATE SET
			download_date = EXCLUDED.download_date
		RETURNING id
	`, f.StorageBucket, f.StoragePath, f.FileType, f.SizeBytes, f.SHA256,
		f.SourceURL, f.SourceType, f.DownloadDate, f.ParseStatus, f.ExpiresAt).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert stored file: %w", err)
	}

	return id, nil
}

func (r *storedFileRepository) UpdateParseStatus(id, parseStatus, parseError string) error {
	_, err := r.db.Exec(`
		UPDATE stored_files
		SET parse_status = $2, parse_error = $3, parse_date = NOW()
		WHERE id = $1
	`, id, parseStatus, parseError)

	if err != nil {
		return fmt.Errorf("failed to update parse status: %w", err)
	}

	return nil
}

func (r *storedFileRepository) ListExpired(now time.Time, limit int) ([]StoredFile, error) {
	rows, err := r.db.Query(`
		SELECT `+storedFileColumns+`
		FROM stored_files
		WHERE expires_at IS NOT NULL
		  AND expires_at <= $1
		  AND NOT blob_deleted
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired stored files: %w", err)
	}
	defer rows.Close()

	var files []StoredFile
	for rows.Next() {
		f, err := scanStoredFile(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stored file row: %w", err)
		}
		files = append(files, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stored file rows: %w", err)
	}

	return files, nil
}

// MarkBlobDeleted records that the blob was removed at expiry. The metadata
// row is kept.
func (r *storedFileRepository) MarkBlobDeleted(id string) error {
	_, err := r.db.Exec(`
		UPDATE stored_files
		SET blob_deleted = TRUE
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to mark blob deleted: %w", err)
	}

	return nil
}

func (r *storedFileRepository) GetCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM stored_files").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get stored file count: %w", err)
	}
	return count, nil
}

func scanStoredFile(scan func(dest ...interface{}) error) (*StoredFile, error) {
	var f StoredFile
	err := scan(&f.ID, &f.StorageBucket, &f.StoragePath, &f.FileType,
		&f.SizeBytes, &f.SHA256, &f.SourceURL, &f.SourceType,
		&f.DownloadDate, &f.ParseStatus, &f.ParseDate, &f.ParseError,
		&f.ExpiresAt, &f.BlobDeleted, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan stored file: %w", err)
	}
	return &f, nil
}
