package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/politrack/disclosures/app/database"
)

// DefaultRetention is how long archived blobs are kept before the expiry
// task removes them. Metadata rows are kept forever.
const DefaultRetention = 365 * 24 * time.Hour

// ArchiveInput describes one raw artifact to archive.
type ArchiveInput struct {
	Source     string
	SourceType string
	SourceURL  string
	Bucket     string
	FileType   string // pdf, json, html, zip
	Identifier string // optional; defaults to the content hash
	Data       []byte
}

// Manager is the content-addressed archive of raw artifacts. Every payload
// the pipeline fetches goes through here before parsing, so a failed parse
// never loses the artifact and reprocessing never re-fetches.
type Manager struct {
	store     BlobStore
	files     database.StoredFileRepository
	retention time.Duration
}

func NewManager(store BlobStore, files database.StoredFileRepository) *Manager {
	return &Manager{
		store:     store,
		files:     files,
		retention: DefaultRetention,
	}
}

// Archive stores one artifact and records its metadata row. Filing
// documents enter the parse lifecycle as pending; artifacts in the other
// buckets are never parse candidates and are recorded as skipped.
// Idempotent on content: archiving identical bytes twice writes one blob
// and returns the same metadata row.
func (m *Manager) Archive(ctx context.Context, in ArchiveInput) (*database.StoredFile, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("refusing to archive empty payload from %s", in.SourceURL)
	}

	hash := sha256.Sum256(in.Data)
	hexHash := hex.EncodeToString(hash[:])

	if existing, err := m.files.GetBySHA256(hexHash); err != nil {
		return nil, fmt.Errorf("failed to check for existing artifact: %w", err)
	} else if existing != nil && !existing.BlobDeleted {
		slog.Debug("Artifact already archived", "source", in.Source, "sha256", hexHash[:12])
		return existing, nil
	}

	identifier := in.Identifier
	if identifier == "" {
		identifier = hexHash[:16]
	}

	now := time.Now().UTC()
	path := BuildPath(in.Source, now, identifier, in.FileType)

	if err := m.store.Put(ctx, in.Bucket, path, in.Data); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	parseStatus := database.ParseStatusSkipped
	if in.Bucket == BucketRawPDFs {
		parseStatus = database.ParseStatusPending
	}

	expiresAt := now.Add(m.retention)
	file := &database.StoredFile{
		StorageBucket: in.Bucket,
		StoragePath:   path,
		FileType:      in.FileType,
		SizeBytes:     int64(len(in.Data)),
		SHA256:        hexHash,
		SourceURL:     in.SourceURL,
		SourceType:    in.SourceType,
		DownloadDate:  now,
		ParseStatus:   parseStatus,
		ExpiresAt:     &expiresAt,
	}

	id, err := m.files.Insert(file)
	if err != nil {
		return nil, fmt.Errorf("failed to record stored file: %w", err)
	}
	file.ID = id

	slog.Debug("Artifact archived",
		"source", in.Source, "bucket", in.Bucket, "path", path,
		"size", file.SizeBytes, "sha256", hexHash[:12])

	return file, nil
}

// FetchBySourceURL retrieves the most recent archived artifact for a URL,
// verifying content integrity against the recorded hash. Returns nil, nil
// when nothing is archived for the URL.
func (m *Manager) FetchBySourceURL(ctx context.Context, sourceURL string) ([]byte, *database.StoredFile, error) {
	file, err := m.files.GetBySourceURL(sourceURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up stored file: %w", err)
	}
	if file == nil || file.BlobDeleted {
		return nil, nil, nil
	}

	data, err := m.store.Get(ctx, file.StorageBucket, file.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch blob %s/%s: %w", file.StorageBucket, file.StoragePath, err)
	}

	hash := sha256.Sum256(data)
	if hex.EncodeToString(hash[:]) != file.SHA256 {
		return nil, nil, fmt.Errorf("content hash mismatch for %s/%s", file.StorageBucket, file.StoragePath)
	}

	return data, file, nil
}

// SetParseStatus transitions an artifact's parse status, recorded by
// whichever stage consumed it.
func (m *Manager) SetParseStatus(id, status, parseError string) error {
	return m.files.UpdateParseStatus(id, status, parseError)
}

// ExpireBlobs deletes blobs past their expiry. Only the blob is removed;
// the metadata row is marked and kept.
func (m *Manager) ExpireBlobs(ctx context.Context, now time.Time, limit int) (int, error) {
	expired, err := m.files.ListExpired(now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired files: %w", err)
	}

	deleted := 0
	for _, file := range expired {
		if err := m.store.Delete(ctx, file.StorageBucket, file.StoragePath); err != nil {
			slog.Warn("Failed to delete expired blob",
				"bucket", file.StorageBucket, "path", file.StoragePath, "error", err)
			continue
		}
		if err := m.files.MarkBlobDeleted(file.ID); err != nil {
			return deleted, fmt.Errorf("failed to mark blob deleted: %w", err)
		}
		deleted++
	}

	return deleted, nil
}

// BuildPath returns the deterministic object path
// {source}/{year}/{month}/{identifier}.{ext}.
func BuildPath(source string, t time.Time, identifier, ext string) string {
	return fmt.Sprintf("%s/%04d/%02d/%s.%s", source, t.Year(), int(t.Month()), identifier, ext)
}
