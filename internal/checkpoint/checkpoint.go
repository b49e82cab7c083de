// Package checkpoint persists the reader's resume position.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Record is the durable resume position, one small JSON document per
// configured database. Sequence carries the oldest still-relevant log
// generation, not necessarily the reader's current cursor.
type Record struct {
	Database  string `json:"database"`
	Sequence  uint32 `json:"sequence"`
	Scn       uint64 `json:"scn"`
	Resetlogs uint32 `json:"resetlogs"`
}

// ErrDatabaseMismatch means the record on disk belongs to a different
// configured database; the record is discarded rather than trusted.
var ErrDatabaseMismatch = errors.New("checkpoint belongs to a different database")

// File manages the on-disk record at <dir>/<database>.json.
type File struct {
	dir      string
	database string
	interval time.Duration
	last     time.Time
	log      *logrus.Entry
}

func New(dir, database string, interval time.Duration) *File {
	return &File{
		dir:      dir,
		database: database,
		interval: interval,
		last:     time.Now(),
		log:      logrus.WithField("component", "checkpoint"),
	}
}

func (f *File) Path() string {
	return filepath.Join(f.dir, f.database+".json")
}

// Load reads the record from disk. A missing file is a cold start and
// returns (nil, nil); a malformed file or a database-name mismatch
// returns an error and the caller continues from zero.
func (f *File) Load() (*Record, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", f.Path(), err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path(), err)
	}
	if rec.Database != f.database {
		return nil, fmt.Errorf("%s: %w (found %q, configured %q)",
			f.Path(), ErrDatabaseMismatch, rec.Database, f.database)
	}
	return &rec, nil
}

// Save rewrites the record in full. The layout is fixed: two-space
// indent, no trailing newline.
func (f *File) Save(rec Record) error {
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path(), data, 0644); err != nil {
		return fmt.Errorf("writing checkpoint data for %s: %w", f.database, err)
	}
	f.log.Debugf("saved %s", f.Path())
	f.last = time.Now()
	return nil
}

// Due reports whether the checkpoint interval has elapsed since the
// last successful save.
func (f *File) Due(now time.Time) bool {
	return now.Sub(f.last) > f.interval
}

// SinceLast returns the age of the last save, for trace output.
func (f *File) SinceLast(now time.Time) time.Duration {
	return now.Sub(f.last)
}
