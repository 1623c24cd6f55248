// Package backup keeps periodic copies of the persisted job list as json files
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
)

// Backup writes snapshots into location as prefix-ts-seq.json files
type Backup struct {
	location string
	keep     time.Duration
	prefix   string
	seq      uint64
}

// File is a single backup file
type File struct {
	Name    string
	ModTime time.Time
	Size    int64
}

// New makes Backup for location, files older than keep are removed on cleanup. Zero keep disables cleanup.
func New(location string, keep time.Duration) (*Backup, error) {
	if err := os.MkdirAll(location, 0o700); err != nil {
		return nil, fmt.Errorf("can't make backup location %s: %w", location, err)
	}
	return &Backup{location: location, keep: keep, prefix: "jobs"}, nil
}

// Snapshot writes value to a new backup file and returns its name
func (b *Backup) Snapshot(value string) (string, error) {
	seq := atomic.AddUint64(&b.seq, 1)
	fname := filepath.Join(b.location, fmt.Sprintf("%s-%d-%d.json", b.prefix, time.Now().UnixNano(), seq))
	if err := os.WriteFile(fname, []byte(value), 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup %s: %w", fname, err)
	}
	log.Printf("[DEBUG] backup %s created", fname)
	return fname, nil
}

// List returns backup files, newest first
func (b *Backup) List() ([]File, error) {
	entries, err := os.ReadDir(b.location)
	if err != nil {
		return nil, fmt.Errorf("can't read backup location %s: %w", b.location, err)
	}

	res := []File{}
	for _, entry := range entries {
		if entry.IsDir() || !b.isBackup(entry.Name()) {
			continue
		}
		finfo, err := entry.Info()
		if err != nil {
			log.Printf("[WARN] can't get backup info for %s, %s", entry.Name(), err)
			continue
		}
		res = append(res, File{Name: filepath.Join(b.location, finfo.Name()), ModTime: finfo.ModTime(), Size: finfo.Size()})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ModTime.Equal(res[j].ModTime) {
			return res[i].Name > res[j].Name
		}
		return res[i].ModTime.After(res[j].ModTime)
	})
	return res, nil
}

// Cleanup removes backups older than keep duration, returns number of removed files
func (b *Backup) Cleanup() (int, error) {
	if b.keep <= 0 {
		return 0, nil
	}
	files, err := b.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if f.ModTime.Add(b.keep).After(time.Now()) {
			continue
		}
		log.Printf("[DEBUG] backup file %s too old", f.Name)
		if err := os.Remove(f.Name); err != nil {
			log.Printf("[WARN] can't delete %s, %s", f.Name, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (b *Backup) isBackup(name string) bool {
	return strings.HasPrefix(name, b.prefix+"-") && strings.HasSuffix(name, ".json")
}

func (b *Backup) String() string {
	return fmt.Sprintf("location:%s, keep:%v", b.location, b.keep)
}

// Scheduler runs backups on a cron schedule
type Scheduler struct {
	Backup *Backup
	Source func() (string, error) // returns value to back up
	cron   *cron.Cron
}

// Start schedules backups with cron spec (5 fields or @descriptor)
func (s *Scheduler) Start(spec string) error {
	if s.Backup == nil || s.Source == nil {
		return fmt.Errorf("backup and source required")
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, s.Run); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("[INFO] backups scheduled %q, %s", spec, s.Backup)
	return nil
}

// Run makes a single backup and removes old ones
func (s *Scheduler) Run() {
	value, err := s.Source()
	if err != nil {
		log.Printf("[WARN] can't get data for backup, %v", err)
		return
	}
	if _, err := s.Backup.Snapshot(value); err != nil {
		log.Printf("[WARN] %v", err)
		return
	}
	if n, err := s.Backup.Cleanup(); err != nil {
		log.Printf("[WARN] backup cleanup failed, %v", err)
	} else if n > 0 {
		log.Printf("[INFO] removed %d old backups", n)
	}
}

// Stop stops the schedule and waits for a running backup to complete
func (s *Scheduler) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
