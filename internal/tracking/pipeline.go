package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"backend-qingheplan/internal/shared/geo"
)

var (
	ErrPipelineClosed = errors.New("tracking pipeline closed")
	ErrNoSession      = errors.New("no tracking session started")
)

// Persistence receives finished workouts. Calls are made off the ingestion
// goroutine and their errors never reach the session.
type Persistence interface {
	SaveWorkout(ctx context.Context, w Workout) error
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithTransformer(t geo.Transformer) Option {
	return func(p *Pipeline) { p.transformer = t }
}

func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

type event struct {
	fix *RawFix
	cmd func()
}

// Pipeline owns one tracking session at a time and serializes every
// mutation of it on a single goroutine fed by a FIFO event queue: fixes,
// lifecycle commands and memory-pressure trims all travel the same queue.
type Pipeline struct {
	cfg         Config
	persist     Persistence
	transformer geo.Transformer
	now         func() time.Time
	newID       func() string

	events    chan event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	exports   sync.WaitGroup

	session *Session // loop goroutine only

	mu      sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewPipeline(cfg Config, persist Persistence, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		persist:     persist,
		transformer: geo.Identity{},
		now:         time.Now,
		newID:       uuid.NewString,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		subs:        map[int]chan Snapshot{},
	}
	for _, opt := range opts {
		opt(p)
	}
	queue := cfg.EventQueue
	if queue <= 0 {
		queue = 1
	}
	p.events = make(chan event, queue)

	go p.run()
	return p
}

func (p *Pipeline) run() {
	defer close(p.stopped)
	for {
		select {
		case ev := <-p.events:
			p.handle(ev)
		case <-p.done:
			return
		}
	}
}

func (p *Pipeline) handle(ev event) {
	if ev.cmd != nil {
		ev.cmd()
		return
	}
	if p.session == nil {
		return
	}
	if p.session.Ingest(*ev.fix) {
		p.publish(p.session.Snapshot())
	}
}

func (p *Pipeline) enqueue(ctx context.Context, ev event) error {
	select {
	case <-p.done:
		return ErrPipelineClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	case <-p.done:
		return ErrPipelineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the pipeline goroutine and waits for it to finish.
func (p *Pipeline) call(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	if err := p.enqueue(ctx, event{cmd: func() {
		fn()
		close(reply)
	}}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-p.done:
		return ErrPipelineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues a raw fix for ingestion. It blocks only while the queue is
// full.
func (p *Pipeline) Submit(ctx context.Context, fix RawFix) error {
	return p.enqueue(ctx, event{fix: &fix})
}

// Start discards any current session and begins a new one.
func (p *Pipeline) Start(ctx context.Context, userID, workoutType string) (Snapshot, error) {
	var snap Snapshot
	err := p.call(ctx, func() {
		if p.session != nil && (p.session.State() == StateTracking || p.session.State() == StatePaused) {
			log.Printf("[%s] discarded by restart", p.session.ID)
		}
		p.session = newSession(p.newID(), userID, workoutType, p.cfg, p.transformer, p.now)
		log.Printf("[%s] tracking started (%s, datum %s)", p.session.ID, workoutType, p.transformer.Name())
		snap = p.session.Snapshot()
		p.publish(snap)
	})
	return snap, err
}

func (p *Pipeline) Pause(ctx context.Context) (Snapshot, error) {
	return p.transition(ctx, (*Session).Pause)
}

func (p *Pipeline) Resume(ctx context.Context) (Snapshot, error) {
	return p.transition(ctx, (*Session).Resume)
}

func (p *Pipeline) transition(ctx context.Context, fn func(*Session) bool) (Snapshot, error) {
	var snap Snapshot
	var errState error
	err := p.call(ctx, func() {
		if p.session == nil {
			errState = ErrNoSession
			return
		}
		if fn(p.session) {
			p.publish(p.session.Snapshot())
		}
		snap = p.session.Snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, errState
}

// Stop finalizes the session and hands its route to persistence without
// waiting for the result. The bool is false when the session was already
// stopped.
func (p *Pipeline) Stop(ctx context.Context) (Workout, bool, error) {
	var (
		w        Workout
		stopped  bool
		errState error
	)
	err := p.call(ctx, func() {
		if p.session == nil {
			errState = ErrNoSession
			return
		}
		w, stopped = p.session.Stop()
		if !stopped {
			return
		}
		log.Printf("[%s] tracking stopped: %.2f km, %d points", w.ID, w.DistanceKm, len(w.Points))
		p.publish(p.session.Snapshot())
		if len(w.Points) > 0 {
			p.export(w)
		}
	})
	if err != nil {
		return Workout{}, false, err
	}
	return w, stopped, errState
}

func (p *Pipeline) export(w Workout) {
	if p.persist == nil {
		return
	}
	p.exports.Add(1)
	go func() {
		defer p.exports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PersistTimeout)
		defer cancel()
		if err := p.persist.SaveWorkout(ctx, w); err != nil {
			log.Printf("[%s] workout export failed: %v", w.ID, err)
		}
	}()
}

// TrimMemory queues an emergency trim behind any fixes already queued.
func (p *Pipeline) TrimMemory(ctx context.Context) error {
	return p.enqueue(ctx, event{cmd: func() {
		if p.session == nil {
			return
		}
		if p.session.EmergencyTrim() {
			log.Printf("[%s] emergency trim: %d points, %d samples kept", p.session.ID, p.session.buffer.Len(), p.session.buffer.SpeedLen())
		}
	}})
}

// ReportStatus records a degraded condition reported by the positioning
// source, such as a revoked permission.
func (p *Pipeline) ReportStatus(ctx context.Context, status string) error {
	return p.enqueue(ctx, event{cmd: func() {
		if p.session == nil {
			return
		}
		p.session.SetStatus(status)
		p.publish(p.session.Snapshot())
	}})
}

func (p *Pipeline) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := idleSnapshot()
	err := p.call(ctx, func() {
		if p.session != nil {
			snap = p.session.Snapshot()
		}
	})
	return snap, err
}

func (p *Pipeline) Route(ctx context.Context) ([]orb.Point, error) {
	var route []orb.Point
	err := p.call(ctx, func() {
		if p.session != nil {
			route = p.session.Route()
		}
	})
	return route, err
}

// Subscribe returns a channel of snapshots published after every accepted
// fix and lifecycle change. Slow subscribers miss snapshots rather than
// stall ingestion.
func (p *Pipeline) Subscribe() (<-chan Snapshot, func()) {
	size := p.cfg.SnapshotBuffer
	if size <= 0 {
		size = 1
	}
	ch := make(chan Snapshot, size)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(ch)
			}
		})
	}
}

func (p *Pipeline) publish(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Close stops the pipeline goroutine, closes subscriber channels and waits
// for in-flight exports.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		<-p.stopped
		p.mu.Lock()
		for id, ch := range p.subs {
			delete(p.subs, id)
			close(ch)
		}
		p.mu.Unlock()
		p.exports.Wait()
	})
}

// Done is closed once the pipeline has been closed.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}
