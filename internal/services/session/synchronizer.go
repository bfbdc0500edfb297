// Package session bridges authentication state to live profile data.
// The Synchronizer owns the per-connection stream; the Service handles
// account mutations that flow through the session layer.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

const viewBuffer = 16

// Synchronizer turns identity transitions into an ordered stream of
// SessionView snapshots. It holds at most one active profile watch: every
// transition tears the previous watch down completely before opening the
// next one.
type Synchronizer struct {
	storage interfaces.StorageManager
	logger  *common.Logger

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
	closed      bool

	views chan models.SessionView
}

// NewSynchronizer creates a synchronizer in the unauthenticated state.
func NewSynchronizer(storage interfaces.StorageManager, logger *common.Logger) *Synchronizer {
	return &Synchronizer{
		storage: storage,
		logger:  logger,
		views:   make(chan models.SessionView, viewBuffer),
	}
}

// Views returns the snapshot stream. The channel closes when the
// synchronizer is closed.
func (s *Synchronizer) Views() <-chan models.SessionView {
	return s.views
}

// SetIdentity transitions to a new identity. The previous watch is fully
// torn down first, then a loading tick is emitted while the profile
// resolves. ctx bounds the new watch; cancelling it ends the subscription.
func (s *Synchronizer) SetIdentity(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.teardownLocked()
	s.emit(models.SessionView{Loading: true})

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.watchCancel = cancel
	s.watchDone = done

	go s.observe(wctx, id, done)
}

// ClearIdentity tears down the active watch and reports logged out.
func (s *Synchronizer) ClearIdentity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.teardownLocked()
	s.emit(models.SessionView{Profile: nil, Loading: false})
}

// Close ends the stream. Safe to call more than once.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.teardownLocked()
	s.closed = true
	close(s.views)
}

// teardownLocked cancels the active watch and waits for its goroutine to
// finish, so no snapshot from a previous identity can land after a
// transition.
func (s *Synchronizer) teardownLocked() {
	if s.watchCancel == nil {
		return
	}
	s.watchCancel()
	<-s.watchDone
	s.watchCancel = nil
	s.watchDone = nil
}

// observe resolves one identity and forwards profile snapshots until its
// context ends. Runs as a goroutine; exactly one observe is live at a time.
func (s *Synchronizer) observe(ctx context.Context, id string, done chan struct{}) {
	defer close(done)

	ident, err := s.storage.IdentityStore().Get(ctx, id)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Error().Err(err).Str("identity", id).Msg("Failed to load identity")
		}
		s.emit(models.SessionView{Profile: nil, Loading: false})
		return
	}

	// Unverified identities are invisible to the application until the
	// email is confirmed.
	if !ident.EmailVerified {
		s.logger.Debug().Str("identity", id).Msg("Identity not verified, session stays unauthenticated")
		s.emit(models.SessionView{Profile: nil, Loading: false})
		return
	}

	// Subscribe before the initial read so a write landing between the
	// two is never missed.
	updates, err := s.storage.ProfileStore().Watch(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("identity", id).Msg("Failed to open profile watch")
		s.emit(models.SessionView{Profile: nil, Loading: false})
		return
	}

	profile, err := s.storage.ProfileStore().Get(ctx, id)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		// Authenticated but no document: indistinguishable from logged
		// out to the client, but worth a trace server-side.
		s.logger.Warn().Str("identity", id).Msg("Identity has no profile document")
		s.emit(models.SessionView{Profile: nil, Loading: false})
	case err != nil:
		s.logger.Error().Err(err).Str("identity", id).Msg("Failed to load profile")
		s.emit(models.SessionView{Profile: nil, Loading: false})
		return
	default:
		s.emit(models.SessionView{Profile: profile.Normalized(), Loading: false})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			s.emit(models.SessionView{Profile: p.Normalized(), Loading: false})
		}
	}
}

// emit delivers a snapshot without blocking. When the buffer is full the
// oldest tick is dropped: intermediate views are disposable, the latest
// one is not.
func (s *Synchronizer) emit(view models.SessionView) {
	select {
	case s.views <- view:
		return
	default:
	}
	select {
	case <-s.views:
	default:
	}
	select {
	case s.views <- view:
	default:
	}
}
