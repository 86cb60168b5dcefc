package settings

import (
	"sync"

	"github.com/rs/zerolog"
)

// Store holds the current settings and notifies subscribers on change.
// Readers get copies; no caller ever shares the store's value.
type Store struct {
	mu     sync.RWMutex
	cur    Settings
	path   string
	subs   map[int]chan Settings
	nextID int
	log    zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPath makes Set write through to a TOML file.
func WithPath(path string) StoreOption {
	return func(s *Store) { s.path = path }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore creates a store holding initial.
func NewStore(initial Settings, opts ...StoreOption) *Store {
	s := &Store{
		cur:  initial.Clone(),
		subs: make(map[int]chan Settings),
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open loads path (falling back to defaults) and returns a store that
// persists to it.
func Open(path string, opts ...StoreOption) (*Store, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStore(cfg, append([]StoreOption{WithPath(path)}, opts...)...), nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Set validates and stores next. Invalid settings are rejected and nothing
// changes. Subscribers receive the new value.
func (s *Store) Set(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	next = next.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		if err := Save(s.path, next); err != nil {
			return err
		}
	}
	s.cur = next
	for _, ch := range s.subs {
		notify(ch, next.Clone())
	}
	s.log.Debug().Int("subscribers", len(s.subs)).Msg("settings updated")
	return nil
}

// Update applies fn to a copy of the current settings and stores the result.
func (s *Store) Update(fn func(*Settings)) error {
	next := s.Get()
	fn(&next)
	return s.Set(next)
}

// Subscribe returns a channel that receives the settings after every change.
// A slow subscriber only ever sees the latest value.
func (s *Store) Subscribe() (<-chan Settings, func()) {
	ch := make(chan Settings, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// notify replaces any undelivered value with v. Callers hold s.mu, so
// there is a single sender per channel at a time.
func notify(ch chan Settings, v Settings) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
