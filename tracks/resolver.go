// Package tracks keeps the table of Live track names used to turn a track
// name into the index OSC commands expect.
package tracks

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"midiosc/debug"
	"midiosc/mapping"
)

// DefaultTTL is how long a populated cache counts as fresh.
const DefaultTTL = 5 * time.Minute

// NeverSet is the age reported by an empty or cleared cache.
const NeverSet = time.Duration(math.MaxInt64)

// TrackNamesAddress asks Live for its track names.
const TrackNamesAddress = "/live/song/get/track_names"

// ErrTwoWayRequired is returned by Fetch: the bridge only sends OSC, so the
// reply carrying the names can never arrive.
var ErrTwoWayRequired = errors.New("track name fetching requires two-way OSC communication, configure tracks manually")

// Info is one track: its index in the Live set and its name.
type Info struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// NewInfo trims name and rejects negative indices and blank names.
func NewInfo(index int, name string) (Info, error) {
	if index < 0 {
		return Info{}, fmt.Errorf("%w: invalid track index %d, must be >= 0", mapping.ErrValidation, index)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Info{}, fmt.Errorf("%w: track name cannot be empty", mapping.ErrValidation)
	}
	return Info{Index: index, Name: name}, nil
}

func (i Info) String() string {
	return fmt.Sprintf("Track %d: %s", i.Index, i.Name)
}

// Sender is the part of the OSC output Fetch needs.
type Sender interface {
	IsConnected() bool
	Send(cmd mapping.Command) error
}

// Resolver maps track names to indices. Tracks are kept sorted by index
// with at most one entry per index.
type Resolver struct {
	mu        sync.RWMutex
	tracks    []Info
	updatedAt time.Time
	ttl       time.Duration
	sender    Sender
	listeners []func([]Info)

	now func() time.Time
}

// NewResolver returns an empty resolver. sender may be nil, in which case
// Fetch always fails.
func NewResolver(sender Sender) *Resolver {
	return &Resolver{
		ttl:    DefaultTTL,
		sender: sender,
		now:    time.Now,
	}
}

// SetTTL changes the freshness window used by IsExpired.
func (r *Resolver) SetTTL(ttl time.Duration) {
	r.mu.Lock()
	r.ttl = ttl
	r.mu.Unlock()
}

// OnChange registers fn to receive a snapshot after every mutation.
// Listeners run in registration order.
func (r *Resolver) OnChange(fn func([]Info)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Add inserts info, replacing any track already at the same index.
func (r *Resolver) Add(info Info) error {
	info, err := NewInfo(info.Index, info.Name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	i := r.find(info.Index)
	if i >= 0 {
		r.tracks[i] = info
	} else {
		r.tracks = append(r.tracks, info)
		sort.Slice(r.tracks, func(a, b int) bool { return r.tracks[a].Index < r.tracks[b].Index })
	}
	r.touch()
	r.mu.Unlock()

	r.notify()
	return nil
}

// Update renames the track at index.
func (r *Resolver) Update(index int, name string) error {
	info, err := NewInfo(index, name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	i := r.find(index)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: track with index %d", mapping.ErrNotFound, index)
	}
	r.tracks[i] = info
	r.touch()
	r.mu.Unlock()

	r.notify()
	return nil
}

// Remove deletes the track at index.
func (r *Resolver) Remove(index int) error {
	r.mu.Lock()
	i := r.find(index)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: track with index %d", mapping.ErrNotFound, index)
	}
	r.tracks = append(r.tracks[:i], r.tracks[i+1:]...)
	r.touch()
	r.mu.Unlock()

	r.notify()
	return nil
}

// Set replaces the whole table. Later entries win on duplicate indices.
func (r *Resolver) Set(infos []Info) error {
	byIndex := make(map[int]Info, len(infos))
	for _, in := range infos {
		info, err := NewInfo(in.Index, in.Name)
		if err != nil {
			return err
		}
		byIndex[info.Index] = info
	}
	tracks := make([]Info, 0, len(byIndex))
	for _, info := range byIndex {
		tracks = append(tracks, info)
	}
	sort.Slice(tracks, func(a, b int) bool { return tracks[a].Index < tracks[b].Index })

	r.mu.Lock()
	r.tracks = tracks
	r.touch()
	r.mu.Unlock()

	r.notify()
	return nil
}

// Clear empties the table and resets its age to NeverSet.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.tracks = nil
	r.updatedAt = time.Time{}
	r.mu.Unlock()

	r.notify()
}

// ResolveName returns the index of the first track named name.
func (r *Resolver) ResolveName(name string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tracks {
		if t.Name == name {
			return t.Index, nil
		}
	}
	return 0, fmt.Errorf("%w: track %q", mapping.ErrNotFound, name)
}

// ResolveIndex returns the name of the track at index.
func (r *Resolver) ResolveIndex(index int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.find(index); i >= 0 {
		return r.tracks[i].Name, nil
	}
	return "", fmt.Errorf("%w: track index %d", mapping.ErrNotFound, index)
}

// Tracks returns a copy of the table.
func (r *Resolver) Tracks() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Info(nil), r.tracks...)
}

func (r *Resolver) HasCached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks) > 0
}

// Age is the time since the last mutation, NeverSet when the cache is
// empty.
func (r *Resolver) Age() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.age()
}

func (r *Resolver) age() time.Duration {
	if len(r.tracks) == 0 || r.updatedAt.IsZero() {
		return NeverSet
	}
	return r.now().Sub(r.updatedAt)
}

// Expired reports whether the cache is older than ttl.
func (r *Resolver) Expired(ttl time.Duration) bool {
	return r.Age() > ttl
}

// IsExpired is Expired with the configured TTL.
func (r *Resolver) IsExpired() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.age() > r.ttl
}

// Fetch asks Live for its track names. The request is sent when the
// output is connected, but the answer cannot be received, so Fetch always
// returns an error.
func (r *Resolver) Fetch() ([]Info, error) {
	if r.sender == nil || !r.sender.IsConnected() {
		return nil, fmt.Errorf("%w: OSC output not connected", mapping.ErrTransport)
	}
	cmd, err := mapping.NewCommand(TrackNamesAddress)
	if err != nil {
		return nil, err
	}
	if err := r.sender.Send(cmd); err != nil {
		return nil, fmt.Errorf("fetch tracks: %w", err)
	}
	debug.Log("tracks", "sent %s, reply cannot be received", TrackNamesAddress)
	return nil, ErrTwoWayRequired
}

func (r *Resolver) find(index int) int {
	for i, t := range r.tracks {
		if t.Index == index {
			return i
		}
	}
	return -1
}

func (r *Resolver) touch() {
	r.updatedAt = r.now()
}

func (r *Resolver) notify() {
	r.mu.RLock()
	snapshot := append([]Info(nil), r.tracks...)
	listeners := slices.Clone(r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}
