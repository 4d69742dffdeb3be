package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
	"github.com/rs/zerolog/log"
)

var (
	// ErrPlatformNotFound is returned for an unknown platform name
	ErrPlatformNotFound = errors.New("platform not found")
	// ErrPlatformExists is returned when creating a platform twice
	ErrPlatformExists = errors.New("platform already exists")
)

// Factory builds the session for a platform
type Factory func(cfg session.Config) *session.Session

// Registry maps platform names to their live sessions. Each session's command
// worker runs until the registry is closed or the platform removed.
type Registry struct {
	factory Factory

	mu       sync.RWMutex
	sessions map[string]*entry
	wg       sync.WaitGroup
}

type entry struct {
	session *session.Session
	cancel  context.CancelFunc
}

// New creates an empty registry.
func New(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*entry),
	}
}

// Create builds and starts the session for cfg.Platform.
func (r *Registry) Create(ctx context.Context, cfg session.Config) (*session.Session, error) {
	if cfg.Platform == "" {
		return nil, fmt.Errorf("platform name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[cfg.Platform]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPlatformExists, cfg.Platform)
	}

	s := r.factory(cfg)
	workerCtx, cancel := context.WithCancel(ctx)
	r.sessions[cfg.Platform] = &entry{session: s, cancel: cancel}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		s.Run(workerCtx)
	}()

	log.Info().
		Str("platform", cfg.Platform).
		Bool("master", cfg.Master).
		Int("panel_size", cfg.PanelSize).
		Msg("platform registered")

	return s, nil
}

// Get returns the session of a platform.
func (r *Registry) Get(platform string) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlatformNotFound, platform)
	}
	return e.session, nil
}

// List returns the platform names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove stops and forgets a platform.
func (r *Registry) Remove(platform string) error {
	r.mu.Lock()
	e, ok := r.sessions[platform]
	delete(r.sessions, platform)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPlatformNotFound, platform)
	}
	e.cancel()
	e.session.Close()

	log.Info().Str("platform", platform).Msg("platform removed")
	return nil
}

// Close stops every platform and waits for their workers.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for name, e := range entries {
		e.cancel()
		e.session.Close()
		log.Debug().Str("platform", name).Msg("platform stopped")
	}
	r.wg.Wait()
	log.Info().Int("platforms", len(entries)).Msg("registry closed")
}
