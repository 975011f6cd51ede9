package backup

import (
	"context"
	"time"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

// Config controls periodic backups of the study database.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	LocalDir  string
	KeepLast  int
	BucketURL string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool
}

// Source is what a backup is taken from. duckdb.Store implements it.
type Source interface {
	DBPath() string
	SnapshotTo(dstPath string) error
	LoadTable() (model.FolderTable, bool, error)
}

// Uploader ships one backup file off the machine.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
