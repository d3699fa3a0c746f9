package work

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/events"
)

// ErrAlreadyRunning is returned by ExecuteNow when the same work item is
// currently executing.
var ErrAlreadyRunning = errors.New("work item already running")

// Processor is the main work processor that executes work items.
// It processes one work item at a time, respecting dependencies and timing.
type Processor struct {
	registry   *Registry
	completion *CompletionTracker
	timing     *TimingChecker
	emitter    Emitter
	timeout    time.Duration
	log        zerolog.Logger

	trigger    chan struct{}
	done       chan struct{}
	stop       chan struct{}
	stopped    chan struct{}
	retryQueue []*WorkItem
	inFlight   map[string]bool // Track currently executing work
	mu         sync.Mutex
}

// NewProcessor creates a new work processor. The emitter may be nil, which
// disables lifecycle events.
func NewProcessor(registry *Registry, completion *CompletionTracker, timing *TimingChecker, emitter Emitter, log zerolog.Logger) *Processor {
	return NewProcessorWithTimeout(registry, completion, timing, emitter, log, WorkTimeout)
}

// NewProcessorWithTimeout creates a new work processor with a custom timeout.
// This is primarily used for testing.
func NewProcessorWithTimeout(registry *Registry, completion *CompletionTracker, timing *TimingChecker, emitter Emitter, log zerolog.Logger, timeout time.Duration) *Processor {
	return &Processor{
		registry:   registry,
		completion: completion,
		timing:     timing,
		emitter:    emitter,
		timeout:    timeout,
		log:        log.With().Str("component", "work").Logger(),
		trigger:    make(chan struct{}, 1),
		done:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		retryQueue: make([]*WorkItem, 0),
		inFlight:   make(map[string]bool),
	}
}

// Run starts the processor loop. This blocks until Stop() is called.
func (p *Processor) Run() {
	defer close(p.stopped)

	for {
		select {
		case <-p.stop:
			return
		case <-p.trigger:
			p.processOne()
		case <-p.done:
			p.processOne()
		}
	}
}

// Stop stops the processor.
func (p *Processor) Stop() {
	close(p.stop)
	<-p.stopped
}

// Trigger wakes up the processor to check for work.
// This is non-blocking and can be called from any goroutine.
func (p *Processor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
		// Trigger already pending
	}
}

// ExecuteNow immediately executes a specific work type, bypassing timing checks.
// This is used for manual triggers via the API.
func (p *Processor) ExecuteNow(workTypeID string, subject string) error {
	wt := p.registry.Get(workTypeID)
	if wt == nil {
		return fmt.Errorf("unknown work type: %s", workTypeID)
	}

	item := NewWorkItem(wt, subject)

	p.mu.Lock()
	if p.inFlight[item.ID] {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.inFlight[item.ID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.inFlight, item.ID)
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.execute(ctx, item, wt)
}

// Status is a snapshot of the processor state for the API.
type Status struct {
	InFlight    []string `json:"in_flight"`
	RetryQueued int      `json:"retry_queued"`
	WorkTypes   []string `json:"work_types"`
}

// GetStatus reports what the processor is doing right now.
func (p *Processor) GetStatus() Status {
	p.mu.Lock()
	inFlight := make([]string, 0, len(p.inFlight))
	for id := range p.inFlight {
		inFlight = append(inFlight, id)
	}
	retries := len(p.retryQueue)
	p.mu.Unlock()

	return Status{
		InFlight:    inFlight,
		RetryQueued: retries,
		WorkTypes:   p.registry.IDs(),
	}
}

// Busy reports whether any work item is currently executing.
func (p *Processor) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight) > 0
}

// processOne finds and executes the next eligible work item.
func (p *Processor) processOne() {
	p.mu.Lock()
	// Check if we're already executing something
	if len(p.inFlight) > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	// Try regular work first
	item, wt := p.findNextWork()
	if item == nil {
		// Try retry queue
		item, wt = p.popRetryQueue()
	}
	if item == nil {
		return
	}

	// Mark as in-flight
	p.mu.Lock()
	p.inFlight[item.ID] = true
	p.mu.Unlock()

	// Execute asynchronously
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.inFlight, item.ID)
			p.mu.Unlock()

			// Signal done to trigger next work
			select {
			case p.done <- struct{}{}:
			default:
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		err := p.execute(ctx, item, wt)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				p.log.Error().Str("work", item.ID).Msg("work timed out")
			} else {
				p.log.Error().Err(err).Str("work", item.ID).Msg("work failed")
			}

			item.Retries++
			if item.Retries < MaxRetries {
				p.pushRetryQueue(item)
			} else {
				p.log.Warn().Str("work", item.ID).Int("retries", item.Retries).Msg("max retries reached, skipping")
			}
		}
	}()
}

// findNextWork finds the next work item to execute.
func (p *Processor) findNextWork() (*WorkItem, *WorkType) {
	workTypes := p.registry.ByPriority()

	for _, wt := range workTypes {
		if wt.FindSubjects == nil {
			continue
		}
		subjects := wt.FindSubjects()
		if subjects == nil {
			continue
		}

		for _, subject := range subjects {
			// Check timing
			if p.timing != nil && !p.timing.CanExecute(wt.Timing) {
				continue
			}

			// Check interval staleness
			if wt.Interval > 0 && !p.completion.IsStale(wt.ID, subject, wt.Interval) {
				continue
			}

			// Check dependencies
			if !p.dependenciesMet(wt, subject) {
				continue
			}

			return NewWorkItem(wt, subject), wt
		}
	}

	return nil, nil
}

// dependenciesMet checks if all dependencies for a work type have been
// completed. For per-experiment work, dependencies are scoped to the same
// subject.
func (p *Processor) dependenciesMet(wt *WorkType, subject string) bool {
	if len(wt.DependsOn) == 0 {
		return true
	}

	for _, depID := range wt.DependsOn {
		_, exists := p.completion.GetCompletion(depID, subject)
		if !exists {
			return false
		}
	}

	return true
}

// execute runs a work item, emitting lifecycle events and recording the
// completion on success.
func (p *Processor) execute(ctx context.Context, item *WorkItem, wt *WorkType) error {
	start := time.Now()
	p.emitStatus(item, "started", nil, 0)

	err := wt.Execute(ctx, item.Subject)
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		p.emitStatus(item, "failed", err, elapsed)
		return err
	}

	p.completion.MarkCompleted(item)
	p.emitStatus(item, "completed", nil, elapsed)
	return nil
}

func (p *Processor) emitStatus(item *WorkItem, status string, cause error, durationMS float64) {
	if p.emitter == nil {
		return
	}
	data := &events.JobStatusData{
		JobID:      item.ID,
		JobType:    item.TypeID,
		Status:     status,
		DurationMS: durationMS,
		Timestamp:  time.Now(),
	}
	if cause != nil {
		data.Error = cause.Error()
	}
	p.emitter.Publish("work", data)
}

// pushRetryQueue adds an item to the retry queue.
func (p *Processor) pushRetryQueue(item *WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.retryQueue = append(p.retryQueue, item)
}

// popRetryQueue removes and returns the first item from the retry queue.
func (p *Processor) popRetryQueue() (*WorkItem, *WorkType) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.retryQueue) == 0 {
		return nil, nil
	}

	item := p.retryQueue[0]
	p.retryQueue = p.retryQueue[1:]

	wt := p.registry.Get(item.TypeID)
	if wt == nil {
		return nil, nil
	}

	return item, wt
}
