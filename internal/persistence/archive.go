package persistence

import (
	"os"
	"path/filepath"
	"pixeld/internal/models"
	"pixeld/internal/persistence/interfaces"
	"pixeld/internal/providers"
	"pixeld/internal/structures"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// ArchiveEntry is a single evicted session in an archive file.
type ArchiveEntry struct {
	Data      *models.SessionData `json:"data"`
	EvictedAt time.Time           `json:"evicted_at"`
}

// ArchiveFile is the on-disk format for one day's evictions.
type ArchiveFile struct {
	Entries map[string]*ArchiveEntry `json:"entries"`
}

const archiveExt = ".bin"

// Archive moves idle sessions out of memory onto disk. A device that comes
// back after the idle window gets its durable identifier and fired flag
// restored instead of being treated as brand new. Entries older than the
// archive TTL are dropped for good.
type Archive struct {
	mu         sync.RWMutex
	dir        string
	ttl        time.Duration
	index      map[string]string        // session ID → file name
	pending    map[string]*ArchiveEntry // buffered evictions, not yet flushed
	loaded     map[string]*ArchiveFile  // file name → cached contents
	dirty      map[string]bool          // files with restored entries removed, pending rewrite
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewArchiveProvider(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) interfaces.ArchiveInterface {
	return NewArchive(conf.Persistence.ArchiveDir, conf.Persistence.ArchiveTTL, compressor, logger)
}

func NewArchive(dir string, ttl time.Duration, compressor interfaces.CompressorInterface, logger providers.Logger) *Archive {
	return &Archive{
		dir:        dir,
		ttl:        ttl,
		index:      make(map[string]string),
		pending:    make(map[string]*ArchiveEntry),
		loaded:     make(map[string]*ArchiveFile),
		dirty:      make(map[string]bool),
		compressor: compressor,
		logger:     logger,
	}
}

// Evict buffers the session for the next flush. No disk I/O happens here.
func (a *Archive) Evict(id string, data *models.SessionData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[id] = &ArchiveEntry{Data: data, EvictedAt: time.Now()}
}

// Restore looks the session up in the pending buffer, then in the indexed
// archive files. Entries past the archive TTL stay buried.
func (a *Archive) Restore(id string) (*models.SessionData, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.pending[id]; ok {
		delete(a.pending, id)
		return e.Data, true
	}

	name, ok := a.index[id]
	if !ok {
		return nil, false
	}

	af, err := a.loadFile(name)
	if err != nil {
		a.logger.Errorf(providers.TypeApp, "Archive file %s unreadable: %s", name, err)
		return nil, false
	}
	e, ok := af.Entries[id]
	if !ok || time.Since(e.EvictedAt) > a.ttl {
		return nil, false
	}
	// Remove the entry from the day file too, not just the index, so a
	// restart's index rebuild cannot resurface the stale copy. The rewrite
	// happens on the next flush.
	delete(af.Entries, id)
	a.dirty[name] = true
	delete(a.index, id)
	return e.Data, true
}

// Flush writes the pending buffer into today's archive file and prunes
// files whose whole day lies past the TTL.
func (a *Archive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dir == "" {
		return nil
	}

	if len(a.pending) > 0 {
		name := time.Now().UTC().Format("2006-01-02") + archiveExt

		af, err := a.loadFile(name)
		if err != nil {
			af = &ArchiveFile{Entries: make(map[string]*ArchiveEntry)}
		}
		for id, e := range a.pending {
			af.Entries[id] = e
			a.index[id] = name
		}
		a.pending = make(map[string]*ArchiveEntry)

		if err := a.writeFile(name, af); err != nil {
			return err
		}
		a.loaded[name] = af
		delete(a.dirty, name)
	}

	for name := range a.dirty {
		af, ok := a.loaded[name]
		if !ok {
			delete(a.dirty, name)
			continue
		}
		if err := a.writeFile(name, af); err != nil {
			return err
		}
		delete(a.dirty, name)
	}

	a.prune()
	return nil
}

// RestoreIndex scans the archive directory and rebuilds the session index.
// Called once on startup.
func (a *Archive) RestoreIndex() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dir == "" {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}

	files, err := os.ReadDir(a.dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), archiveExt) {
			continue
		}
		af, err := a.loadFile(f.Name())
		if err != nil {
			a.logger.Warnf(providers.TypeApp, "Skipping unreadable archive file %s: %s", f.Name(), err)
			continue
		}
		for id := range af.Entries {
			a.index[id] = f.Name()
		}
	}
	return nil
}

func (a *Archive) Close() {
	if err := a.Flush(); err != nil {
		a.logger.Errorf(providers.TypeApp, "Archive flush on close failed: %s", err)
	}
}

func (a *Archive) loadFile(name string) (*ArchiveFile, error) {
	if af, ok := a.loaded[name]; ok {
		return af, nil
	}
	raw, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return nil, err
	}
	data, err := a.compressor.Decompress(raw)
	if err != nil {
		return nil, err
	}
	var af ArchiveFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, err
	}
	if af.Entries == nil {
		af.Entries = make(map[string]*ArchiveEntry)
	}
	a.loaded[name] = &af
	return &af, nil
}

func (a *Archive) writeFile(name string, af *ArchiveFile) error {
	jsonData, err := json.Marshal(af)
	if err != nil {
		return err
	}
	data, err := a.compressor.Compress(jsonData)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(a.dir, name), data, 0o644)
}

func (a *Archive) prune() {
	cutoff := time.Now().UTC().Add(-a.ttl).Format("2006-01-02")
	for name := range a.loaded {
		day := strings.TrimSuffix(name, archiveExt)
		if day < cutoff {
			delete(a.loaded, name)
		}
	}
	files, err := os.ReadDir(a.dir)
	if err != nil {
		return
	}
	for _, f := range files {
		day := strings.TrimSuffix(f.Name(), archiveExt)
		if strings.HasSuffix(f.Name(), archiveExt) && day < cutoff {
			if err := os.Remove(filepath.Join(a.dir, f.Name())); err != nil {
				a.logger.Warnf(providers.TypeApp, "Failed to prune archive file %s: %s", f.Name(), err)
			}
			for id, fn := range a.index {
				if fn == f.Name() {
					delete(a.index, id)
				}
			}
		}
	}
}
