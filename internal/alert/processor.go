package alert

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/profile"
	"github.com/stepfree/stepfree/pkg/geo"
)

// Speaker delivers one utterance to the speech output channel. Speak
// blocks until the utterance finishes or the context is canceled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// ProcessorConfig holds configuration for the alert processor.
type ProcessorConfig struct {
	// Speaker is the speech output channel. Required.
	Speaker Speaker

	// Logger for processor operations.
	Logger zerolog.Logger

	// Profile filters observations for relevance.
	Profile profile.Profile

	// AnnounceAll disables relevance filtering: every known obstacle
	// type is announced and the traveller judges it themselves.
	AnnounceAll bool

	// Staleness discards queued items older than this without speaking
	// them (default: 30s).
	Staleness time.Duration

	// CriticalDistanceMeters is the distance under which a new alert
	// interrupts a non-urgent in-flight utterance (default: 5).
	CriticalDistanceMeters float64

	// PauseBetween is the delay between consecutive utterances so the
	// traveller is not rushed (default: 500ms).
	PauseBetween time.Duration

	// Memory configures announcement memory. Zero values use defaults.
	Memory MemoryConfig

	// MovementThresholdMeters is how far the user must move before
	// announcement memory is pruned by location (default: 50).
	MovementThresholdMeters float64
}

// Processor owns the alert queue, announcement memory, and the single
// in-flight utterance. Enqueues are non-blocking; the Run loop drains.
type Processor struct {
	speaker  Speaker
	logger   zerolog.Logger
	prof     profile.Profile
	announce bool

	staleness    time.Duration
	critical     float64
	pauseBetween time.Duration
	movement     float64

	mu            sync.Mutex
	queue         alertHeap
	memory        *Memory
	busy          bool
	cancelCurrent context.CancelFunc
	currentUrgent bool
	lastLocation  *orb.Point

	wake chan struct{}
}

// NewProcessor creates an alert processor. Call Run to start draining.
func NewProcessor(cfg ProcessorConfig) *Processor {
	staleness := cfg.Staleness
	if staleness == 0 {
		staleness = 30 * time.Second
	}
	critical := cfg.CriticalDistanceMeters
	if critical == 0 {
		critical = immediateDistance
	}
	pause := cfg.PauseBetween
	if pause == 0 {
		pause = 500 * time.Millisecond
	}
	movement := cfg.MovementThresholdMeters
	if movement == 0 {
		movement = 50
	}

	return &Processor{
		speaker:      cfg.Speaker,
		logger:       cfg.Logger,
		prof:         cfg.Profile,
		announce:     cfg.AnnounceAll,
		staleness:    staleness,
		critical:     critical,
		pauseBetween: pause,
		movement:     movement,
		memory:       NewMemory(cfg.Memory),
		wake:         make(chan struct{}, 1),
	}
}

// Observe feeds one distance observation into the queue. It never
// blocks: irrelevant and recently-announced obstacles are dropped, a
// queued entry for the same obstacle is superseded in place, and an
// urgent observation interrupts a non-urgent in-flight utterance.
func (p *Processor) Observe(o *obstacle.Obstacle, distanceMeters float64) {
	if o == nil {
		return
	}
	if !p.announce && !p.prof.RelevantObstacle(o.Type) {
		return
	}

	now := time.Now()

	p.mu.Lock()
	if !p.memory.ShouldAnnounce(o.ID, distanceMeters, now) {
		p.mu.Unlock()
		return
	}

	priority := priorityFor(distanceMeters, o.Severity)

	if existing := p.findQueued(o.ID); existing != nil {
		// Supersede: keep the closer observation.
		if distanceMeters < existing.distance {
			existing.distance = distanceMeters
			existing.priority = priority
			existing.enqueuedAt = now
			heap.Fix(&p.queue, existing.index)
		}
	} else {
		heap.Push(&p.queue, &item{
			obstacle:   o,
			distance:   distanceMeters,
			priority:   priority,
			enqueuedAt: now,
		})
	}

	// A queued obstacle closing to critical range must interrupt just
	// like a fresh one.
	interrupt := distanceMeters <= p.critical && p.busy && !p.currentUrgent
	cancel := p.cancelCurrent
	p.mu.Unlock()

	if interrupt && cancel != nil {
		p.logger.Debug().
			Str("obstacle_id", o.ID).
			Float64("distance_m", distanceMeters).
			Msg("interrupting current announcement for urgent alert")
		cancel()
	}
	p.signal()
}

// UpdateLocation records the traveller's position and prunes
// announcement memory once they have moved past the threshold.
func (p *Processor) UpdateLocation(location orb.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastLocation != nil && geo.Distance(*p.lastLocation, location) < p.movement {
		return
	}
	loc := location
	p.lastLocation = &loc
	p.memory.PruneByMovement(location)
}

// Run drains the queue until the context is canceled. One utterance is
// in flight at a time; stale items are discarded unspoken; a speak
// failure is logged and the loop continues.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		}
		p.drain(ctx)
	}
}

func (p *Processor) drain(ctx context.Context) {
	for ctx.Err() == nil {
		it, ok := p.next()
		if !ok {
			return
		}

		utterCtx, cancel := context.WithCancel(ctx)

		p.mu.Lock()
		p.busy = true
		p.cancelCurrent = cancel
		p.currentUrgent = it.distance <= p.critical
		p.mu.Unlock()

		err := p.speaker.Speak(utterCtx, utteranceText(it.obstacle, it.distance))
		cancel()

		p.mu.Lock()
		p.busy = false
		p.cancelCurrent = nil
		p.currentUrgent = false
		if err == nil || errors.Is(err, context.Canceled) {
			// Even a cut-off utterance was heard; remember it so the
			// same obstacle is not immediately repeated.
			p.memory.Record(it.obstacle.ID, it.distance, it.obstacle.Location, time.Now())
		}
		p.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn().Err(err).
				Str("obstacle_id", it.obstacle.ID).
				Msg("speech output failed, continuing")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.pauseBetween):
		}
	}
}

// next pops the most urgent announcement-worthy item, discarding stale
// and already-announced entries along the way.
func (p *Processor) next() (*item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for p.queue.Len() > 0 {
		it := heap.Pop(&p.queue).(*item)

		if now.Sub(it.enqueuedAt) > p.staleness {
			p.logger.Debug().
				Str("obstacle_id", it.obstacle.ID).
				Msg("discarding stale alert")
			continue
		}
		if !p.memory.ShouldAnnounce(it.obstacle.ID, it.distance, now) {
			continue
		}
		return it, true
	}
	return nil, false
}

// Stop cancels the active utterance and resets in-flight state so the
// next enqueue proceeds immediately.
func (p *Processor) Stop() {
	p.mu.Lock()
	cancel := p.cancelCurrent
	p.cancelCurrent = nil
	p.busy = false
	p.currentUrgent = false
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Clear empties the queue and announcement memory, cancelling any
// active utterance. Used on profile change or session end; suppression
// state must not leak into the next session.
func (p *Processor) Clear() {
	p.mu.Lock()
	cancel := p.cancelCurrent
	p.cancelCurrent = nil
	p.busy = false
	p.currentUrgent = false
	p.queue = nil
	p.memory.Clear()
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// QueueLen returns the number of pending alerts.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// MemoryLen returns the number of remembered announcements.
func (p *Processor) MemoryLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memory.Len()
}

func (p *Processor) findQueued(obstacleID string) *item {
	for _, it := range p.queue {
		if it.obstacle.ID == obstacleID {
			return it
		}
	}
	return nil
}

func (p *Processor) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// utteranceText renders one observation for speech output.
func utteranceText(o *obstacle.Obstacle, distanceMeters float64) string {
	name := strings.ReplaceAll(string(o.Type), "_", " ")

	var text string
	if distanceMeters < 3 {
		text = fmt.Sprintf("%s directly ahead", name)
	} else {
		text = fmt.Sprintf("%s in %d meters", name, int(distanceMeters+0.5))
	}

	switch o.Severity {
	case obstacle.SeverityBlocking:
		return "Caution: " + text + ", not passable"
	case obstacle.SeverityHigh:
		return "Caution: " + text
	default:
		return strings.ToUpper(text[:1]) + text[1:]
	}
}
