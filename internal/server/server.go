// Package server hosts wizard sessions behind an HTTP API and pushes
// snapshot updates to WebSocket subscribers.
package server

import (
	"context"
	"errors"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"token-deploy-wizard/internal/deploy"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/fees"
	"token-deploy-wizard/internal/observability"
	"token-deploy-wizard/internal/preview"
	"token-deploy-wizard/internal/storage"
	"token-deploy-wizard/internal/validation"
	"token-deploy-wizard/internal/wizard"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Options for creating Server.
type Options struct {
	// Required
	Engine     *validation.Engine
	Calculator *fees.Calculator
	Deployer   deploy.Deployer
	Network    string

	// Optional
	FileReader      preview.FileReader
	DeploymentStore storage.DeploymentStore
	EventStore      storage.WizardEventStore
	WS              *WSConfig
	Logger          *log.Logger
	Verbose         bool
}

// Server owns the live wizard sessions.
type Server struct {
	opts    Options
	ws      WSConfig
	logger  *log.Logger
	started time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	wizard  *wizard.Wizard
	hub     *hub
	created time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[server] ", log.LstdFlags)
	}
	ws := DefaultWSConfig()
	if opts.WS != nil {
		ws = *opts.WS
	}
	return &Server{
		opts:     opts,
		ws:       ws,
		logger:   logger,
		started:  time.Now(),
		sessions: make(map[string]*session),
	}
}

// CreateSession starts a new wizard session.
func (s *Server) CreateSession() *wizard.Wizard {
	h := newHub(s.ws, s.logger)
	w := wizard.New(wizard.Options{
		Engine:          s.opts.Engine,
		Calculator:      s.opts.Calculator,
		Deployer:        s.opts.Deployer,
		Network:         s.opts.Network,
		FileReader:      s.opts.FileReader,
		DeploymentStore: s.opts.DeploymentStore,
		EventStore:      s.opts.EventStore,
		OnChange:        h.broadcast,
		Logger:          s.logger,
		Verbose:         s.opts.Verbose,
	})

	s.mu.Lock()
	s.sessions[w.SessionID()] = &session{wizard: w, hub: h, created: time.Now()}
	n := len(s.sessions)
	s.mu.Unlock()

	observability.SetActiveSessions(n)
	s.logger.Printf("session %s started", w.SessionID())
	return w
}

// Session returns the wizard of a live session.
func (s *Server) Session(id string) (*wizard.Wizard, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return sess.wizard, nil
}

// CloseSession drops a session. A session with a deploy in flight is kept
// and deploy.ErrInFlight is returned.
func (s *Server) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if sess.wizard.Deployment().State == domain.DeploymentInFlight {
		s.mu.Unlock()
		return deploy.ErrInFlight
	}
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	sess.hub.closeAll()
	observability.SetActiveSessions(n)
	s.logger.Printf("session %s closed", id)
	return nil
}

// SessionIDs returns the live session IDs in sorted order.
func (s *Server) SessionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown waits for outstanding deploys, then disconnects all subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	var firstErr error
	for _, sess := range sessions {
		if _, err := sess.wizard.WaitDeploy(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		sess.hub.closeAll()
	}
	return firstErr
}

func (s *Server) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
