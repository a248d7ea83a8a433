package engine

import (
	"time"

	"midiosc/tracks"
)

// TrackCache is the part of the track resolver TrackLookup reads.
type TrackCache interface {
	Tracks() []tracks.Info
	Age() time.Duration
	IsExpired() bool
	Fetch() ([]tracks.Info, error)
}

// TrackLookup serves the track table, preferring the cache while it is
// fresh.
type TrackLookup struct {
	cache TrackCache
}

func NewTrackLookup(cache TrackCache) *TrackLookup {
	return &TrackLookup{cache: cache}
}

// Tracks returns the cached table and its age unless force is set or the
// cache has expired, in which case it asks Live for the names. With one-way
// OSC that request always fails.
func (l *TrackLookup) Tracks(force bool) ([]tracks.Info, time.Duration, error) {
	if !force && !l.cache.IsExpired() {
		return l.cache.Tracks(), l.cache.Age(), nil
	}
	infos, err := l.cache.Fetch()
	if err != nil {
		return nil, 0, err
	}
	return infos, 0, nil
}
