// Package reliability backs up the journal database to S3-compatible storage
// and keeps the local databases healthy.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/journal/internal/events"
	"github.com/rs/zerolog"
)

const (
	archivePrefix    = "journal-backup-"
	archiveSuffix    = ".tar.gz"
	archiveTimestamp = "2006-01-02-150405"
	metadataFile     = "backup-metadata.json"
	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// Database is the view of a database.DB needed to take a consistent copy
type Database interface {
	Conn() *sql.DB
	Name() string
	WALCheckpoint(mode string) error
}

// BackupMetadata is stored next to the databases in every archive
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database file in an archive
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes an archive stored in the bucket
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupResult summarizes one backup run
type BackupResult struct {
	Key       string         `json:"key"`
	SizeBytes int64          `json:"size_bytes"`
	Pruned    int            `json:"pruned"`
	Duration  time.Duration  `json:"duration"`
	Metadata  BackupMetadata `json:"metadata"`
}

// BackupService archives databases and uploads them
type BackupService struct {
	store         ObjectStore
	databases     []Database
	stagingDir    string
	prefix        string
	retentionDays int
	eventMgr      *events.Manager
	now           func() time.Time
	log           zerolog.Logger
}

// NewBackupService creates a backup service. eventMgr may be nil.
func NewBackupService(
	store ObjectStore,
	databases []Database,
	stagingDir string,
	prefix string,
	retentionDays int,
	eventMgr *events.Manager,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		store:         store,
		databases:     databases,
		stagingDir:    stagingDir,
		prefix:        prefix,
		retentionDays: retentionDays,
		eventMgr:      eventMgr,
		now:           time.Now,
		log:           log.With().Str("service", "backup").Logger(),
	}
}

// Backup checkpoints and copies every database, uploads a tar.gz archive
// and rotates old archives
func (s *BackupService) Backup(ctx context.Context) (*BackupResult, error) {
	start := s.now()
	s.log.Info().Msg("Starting backup")

	staging, err := os.MkdirTemp(s.stagingDir, "backup-staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	metadata := BackupMetadata{
		Timestamp: start.UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}
	files := make([]string, 0, len(s.databases)+1)

	for _, db := range s.databases {
		filename := db.Name() + ".db"
		path := filepath.Join(staging, filename)

		if err := copyDatabase(db, path); err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", db.Name(), err)
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s backup: %w", db.Name(), err)
		}
		checksum, err := calculateChecksum(path)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate checksum for %s: %w", db.Name(), err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, filename)
	}

	if err := writeMetadata(filepath.Join(staging, metadataFile), metadata); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	files = append(files, metadataFile)

	archiveName := archivePrefix + start.UTC().Format(archiveTimestamp) + archiveSuffix
	archivePath := filepath.Join(staging, archiveName)
	if err := createArchive(archivePath, staging, files); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	key := s.prefix + archiveName
	if err := s.store.Upload(ctx, key, archive); err != nil {
		return nil, err
	}

	pruned, err := s.Rotate(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	result := &BackupResult{
		Key:       key,
		SizeBytes: archiveInfo.Size(),
		Pruned:    pruned,
		Duration:  s.now().Sub(start),
		Metadata:  metadata,
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", result.SizeBytes).
		Int("pruned", pruned).
		Dur("duration_ms", result.Duration).
		Msg("Backup completed")

	s.eventMgr.EmitTyped("reliability", &events.BackupCompletedData{
		Key:       key,
		SizeBytes: result.SizeBytes,
		Pruned:    pruned,
	})

	return result, nil
}

// ListBackups returns archives under the prefix, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		name := strings.TrimPrefix(*obj.Key, s.prefix)
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		timestamp, err := time.Parse(archiveTimestamp, stamp)
		if err != nil {
			s.log.Warn().Str("key", *obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}

		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}
		backups = append(backups, BackupInfo{
			Key:       *obj.Key,
			Timestamp: timestamp,
			SizeBytes: size,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Rotate deletes archives older than the retention period, always keeping
// the newest few. A retention of 0 keeps everything.
func (s *BackupService) Rotate(ctx context.Context) (int, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", b.Key).Time("timestamp", b.Timestamp).Msg("Deleted old backup")
		deleted++
	}
	return deleted, nil
}

// copyDatabase checkpoints the WAL and writes a consistent copy with VACUUM INTO
func copyDatabase(db Database, dest string) error {
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}
	quoted := strings.ReplaceAll(dest, "'", "''")
	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}
	return nil
}

// calculateChecksum calculates SHA256 checksum of a file
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func createArchive(archivePath, sourceDir string, names []string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, name := range names {
		if err := addFileToArchive(tw, filepath.Join(sourceDir, name), name); err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addFileToArchive(tw *tar.Writer, path, name string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, file)
	return err
}
