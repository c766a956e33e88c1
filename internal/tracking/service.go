package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/paulmach/orb"
)

var ErrSessionNotFound = errors.New("tracking session not found")

// Broadcaster fans snapshots out to live viewers.
type Broadcaster interface {
	Broadcast(sessionID string, payload []byte)
	Forget(sessionID string)
}

// Service keeps one pipeline per live session.
type Service struct {
	cfg     Config
	persist Persistence
	hub     Broadcaster
	opts    []Option

	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

func NewService(cfg Config, persist Persistence, hub Broadcaster, opts ...Option) *Service {
	return &Service{
		cfg:       cfg,
		persist:   persist,
		hub:       hub,
		opts:      opts,
		pipelines: map[string]*Pipeline{},
	}
}

func (s *Service) StartSession(ctx context.Context, userID, workoutType string) (Snapshot, error) {
	p := NewPipeline(s.cfg, s.persist, s.opts...)
	snaps, _ := p.Subscribe()
	go s.forward(snaps)

	snap, err := p.Start(ctx, userID, workoutType)
	if err != nil {
		p.Close()
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.pipelines[snap.SessionID] = p
	s.mu.Unlock()
	return snap, nil
}

// forward relays snapshots until the pipeline closes, then drops the
// session from the hub cache.
func (s *Service) forward(snaps <-chan Snapshot) {
	var sessionID string
	for snap := range snaps {
		if s.hub == nil {
			continue
		}
		sessionID = snap.SessionID
		payload, err := json.Marshal(snap)
		if err != nil {
			log.Printf("[%s] snapshot encode error: %v", snap.SessionID, err)
			continue
		}
		s.hub.Broadcast(snap.SessionID, payload)
	}
	if s.hub != nil && sessionID != "" {
		s.hub.Forget(sessionID)
	}
}

func (s *Service) pipeline(sessionID string) (*Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pipelines[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return p, nil
}

func (s *Service) AddFixes(ctx context.Context, sessionID string, fixes []RawFix) error {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return err
	}
	for _, fix := range fixes {
		if err := p.Submit(ctx, fix); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Pause(ctx context.Context, sessionID string) (Snapshot, error) {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return p.Pause(ctx)
}

func (s *Service) Resume(ctx context.Context, sessionID string) (Snapshot, error) {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return p.Resume(ctx)
}

// Stop finalizes the session and retires its pipeline. The export keeps
// running in the background.
func (s *Service) Stop(ctx context.Context, sessionID string) (Workout, error) {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return Workout{}, err
	}
	w, _, err := p.Stop(ctx)
	if err != nil {
		return Workout{}, err
	}

	s.mu.Lock()
	delete(s.pipelines, sessionID)
	s.mu.Unlock()
	go p.Close()
	return w, nil
}

func (s *Service) Snapshot(ctx context.Context, sessionID string) (Snapshot, error) {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return p.Snapshot(ctx)
}

func (s *Service) Route(ctx context.Context, sessionID string) ([]orb.Point, error) {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return nil, err
	}
	return p.Route(ctx)
}

func (s *Service) ReportStatus(ctx context.Context, sessionID, status string) error {
	p, err := s.pipeline(sessionID)
	if err != nil {
		return err
	}
	return p.ReportStatus(ctx, status)
}

// TrimMemory delivers the memory-pressure signal to every live pipeline and
// returns how many received it.
func (s *Service) TrimMemory(ctx context.Context) int {
	s.mu.RLock()
	pipelines := make([]*Pipeline, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		pipelines = append(pipelines, p)
	}
	s.mu.RUnlock()

	n := 0
	for _, p := range pipelines {
		if err := p.TrimMemory(ctx); err == nil {
			n++
		}
	}
	return n
}

// Close stops every live session, so recorded routes are still exported,
// and waits for the exports to finish.
func (s *Service) Close() {
	s.mu.Lock()
	pipelines := s.pipelines
	s.pipelines = map[string]*Pipeline{}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()
	for id, p := range pipelines {
		if _, stopped, err := p.Stop(ctx); err == nil && stopped {
			log.Printf("[%s] stopped on shutdown", id)
		}
		p.Close()
	}
}
