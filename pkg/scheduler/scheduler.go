// Package scheduler provides a bounded FIFO admission queue for
// profile-keyed asynchronous jobs. A fixed concurrency cap and a minimum
// spacing between admissions keep the fleet from overrunning the remote
// provider, while completion order is left entirely to the jobs themselves.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/flock/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("scheduler")
	if err != nil {
		debugLog.Warnf("Failed to initialize scheduler logger, using stderr fallback: %v", err)
	}
}

// Work is the unit of scheduled work. It receives a background context:
// admitted jobs are never cancelled mid-flight, they run to completion or
// failure.
type Work func(ctx context.Context) (interface{}, error)

// Config holds scheduler tuning.
type Config struct {
	// ConcurrencyCap is the maximum number of simultaneously admitted jobs.
	// Values below 1 are treated as 1.
	ConcurrencyCap int

	// MinAdmissionSpacing is the minimum interval between two admissions.
	MinAdmissionSpacing time.Duration
}

// Snapshot describes the scheduler state at one instant.
type Snapshot struct {
	AdmittedKeys   []string
	AdmittedCount  int
	PendingCount   int
	ConcurrencyCap int
}

type job struct {
	key    string
	work   Work
	future *Future
}

// Scheduler admits submitted jobs in arrival order, never exceeding the
// concurrency cap. Keys are retained for observability only and need not be
// unique.
type Scheduler struct {
	mu            sync.Mutex
	cfg           Config
	pending       []*job
	admitted      map[string]int
	admittedCount int
	lastAdmission time.Time
	looping       bool
	generation    uint64 // bumped by Clear so a sleeping admission drops stale work

	// Clock hooks, overridden in tests.
	now   func() time.Time
	sleep func(d time.Duration)
}

// New creates a Scheduler with the given config.
func New(cfg Config) *Scheduler {
	if cfg.ConcurrencyCap < 1 {
		cfg.ConcurrencyCap = 1
	}
	return &Scheduler{
		cfg:      cfg,
		admitted: make(map[string]int),
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Submit enqueues work under the given key and returns a Future that
// resolves with the work's result or error. Admission is FIFO among jobs
// pending together; a failed job resolves only its own Future.
func (s *Scheduler) Submit(key string, work Work) *Future {
	f := newFuture()

	s.mu.Lock()
	s.pending = append(s.pending, &job{key: key, work: work, future: f})
	pendingLen := len(s.pending)
	s.mu.Unlock()

	debugLog.Debugf("submitted job key=%s pending=%d", key, pendingLen)
	s.kick()
	return f
}

// Status returns a snapshot of in-flight keys and queue depth.
func (s *Scheduler) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.admitted))
	for key, n := range s.admitted {
		for i := 0; i < n; i++ {
			keys = append(keys, key)
		}
	}

	return Snapshot{
		AdmittedKeys:   keys,
		AdmittedCount:  s.admittedCount,
		PendingCount:   len(s.pending),
		ConcurrencyCap: s.cfg.ConcurrencyCap,
	}
}

// Clear discards all pending jobs and forgets admitted keys. Discarded
// futures never resolve, so Clear is only suitable as a hard reset during
// shutdown. In-flight work is not interrupted.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	dropped := len(s.pending)
	s.pending = nil
	s.admitted = make(map[string]int)
	s.admittedCount = 0
	s.generation++
	s.mu.Unlock()

	debugLog.Infof("cleared scheduler, dropped %d pending jobs", dropped)
}

// kick starts the admission loop unless one is already running. The loop is
// idempotent: re-invoking it while it runs is a no-op.
func (s *Scheduler) kick() {
	s.mu.Lock()
	if s.looping {
		s.mu.Unlock()
		return
	}
	s.looping = true
	s.mu.Unlock()

	go s.admitLoop()
}

func (s *Scheduler) admitLoop() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.admittedCount >= s.cfg.ConcurrencyCap {
			s.looping = false
			s.mu.Unlock()
			return
		}

		// Peek, don't pop: if the spacing wait below loses a race with
		// Clear, the job must be discarded with the rest of the queue.
		next := s.pending[0]
		wait := s.cfg.MinAdmissionSpacing - s.now().Sub(s.lastAdmission)
		gen := s.generation
		s.mu.Unlock()

		if wait > 0 {
			s.sleep(wait)
		}

		s.mu.Lock()
		if s.generation != gen || len(s.pending) == 0 || s.pending[0] != next {
			s.mu.Unlock()
			continue
		}
		s.pending = s.pending[1:]
		s.lastAdmission = s.now()
		s.admitted[next.key]++
		s.admittedCount++
		s.mu.Unlock()

		debugLog.Debugf("admitted job key=%s", next.key)
		go s.run(next)
	}
}

func (s *Scheduler) run(j *job) {
	defer func() {
		if r := recover(); r != nil {
			j.future.reject(fmt.Errorf("job %s panicked: %v", j.key, r))
		}

		s.mu.Lock()
		if n, ok := s.admitted[j.key]; ok {
			if n <= 1 {
				delete(s.admitted, j.key)
			} else {
				s.admitted[j.key] = n - 1
			}
			if s.admittedCount > 0 {
				s.admittedCount--
			}
		}
		s.mu.Unlock()

		// A freed slot is reused immediately.
		s.kick()
	}()

	value, err := j.work(context.Background())
	if err != nil {
		debugLog.Debugf("job key=%s failed: %v", j.key, err)
		j.future.reject(err)
		return
	}
	j.future.resolve(value)
}
