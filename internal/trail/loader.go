package trail

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/gw2overlay/linkbridge/internal/util"
)

// Loader reads track files relative to an asset directory and keeps recently
// used tracks in memory.
type Loader struct {
	dir    string
	cache  *expirable.LRU[string, Track]
	logger *slog.Logger
}

// NewLoader creates a loader over dir caching up to size tracks. A ttl of 0
// keeps entries until they are evicted by size.
func NewLoader(dir string, size int, ttl time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 1
	}
	return &Loader{
		dir:    dir,
		cache:  expirable.NewLRU[string, Track](size, nil, ttl),
		logger: logger,
	}
}

// Load returns the track at the pack-relative path rel. Missing, unreadable
// or short files are logged and yield an empty track; a map without trails is
// not an error. Failures are not cached.
func (l *Loader) Load(rel string) Track {
	key := util.NormalizePath(rel)
	if tr, ok := l.cache.Get(key); ok {
		return tr
	}

	path, err := util.ResolveAsset(l.dir, key)
	if err != nil {
		l.logger.Warn("Rejected track path", "path", rel, "error", err)
		return Track{}
	}
	tr, err := ReadFile(path)
	if err != nil {
		l.logger.Warn("Failed to load track", "path", path, "error", err)
		return Track{}
	}

	l.logger.Debug("Loaded track", "path", path, "map_id", tr.MapID, "points", len(tr.Points))
	l.cache.Add(key, tr)
	return tr
}

// Cached reports how many tracks are held in memory.
func (l *Loader) Cached() int { return l.cache.Len() }

// Purge drops every cached track.
func (l *Loader) Purge() { l.cache.Purge() }
