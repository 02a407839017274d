package serviceImp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"umbra/pkg/ingest/service"
)

// ProgressFile persists batch progress so an interrupted run resumes where it
// stopped. Writes replace the file atomically.
type ProgressFile struct {
	path string
	now  func() time.Time
}

func NewProgressFile(path string) *ProgressFile {
	return &ProgressFile{path: path, now: time.Now}
}

func (f *ProgressFile) Load() (service.Progress, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return service.Progress{LastProcessedRow: -1, FailedPapers: []service.FailedPaper{}}, nil
	}
	if err != nil {
		return service.Progress{}, fmt.Errorf("read progress: %w", err)
	}
	p := service.Progress{LastProcessedRow: -1}
	if err := json.Unmarshal(b, &p); err != nil {
		return service.Progress{}, fmt.Errorf("parse progress %s: %w", f.path, err)
	}
	if p.FailedPapers == nil {
		p.FailedPapers = []service.FailedPaper{}
	}
	return p, nil
}

// Advance records row as the last one handled.
func (f *ProgressFile) Advance(row int, title string, total int) error {
	p, err := f.Load()
	if err != nil {
		return err
	}
	p.LastProcessedRow = row
	p.LastProcessedTitle = title
	p.TotalRows = total
	p.Timestamp = f.now().Format(time.RFC3339)
	return f.save(p)
}

func (f *ProgressFile) AddFailure(row int, title string, cause error) error {
	p, err := f.Load()
	if err != nil {
		return err
	}
	p.FailedPapers = append(p.FailedPapers, service.FailedPaper{
		Row:       row,
		Title:     title,
		Error:     cause.Error(),
		Timestamp: f.now().Format(time.RFC3339),
	})
	return f.save(p)
}

func (f *ProgressFile) save(p service.Progress) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}
