package security

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler runs the periodic sweep: expired sessions and tokens via the
// policy engine, then log retention via the logger.  Each sweep is
// idempotent, so overlapping or back-to-back runs are harmless.
type Scheduler struct {
	interval time.Duration
	policy   *Policy
	logger   *Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

func NewScheduler(interval time.Duration, policy *Policy, logger *Logger) *Scheduler {
	return &Scheduler{interval: interval, policy: policy, logger: logger}
}

// Start launches the ticker loop.  A second Start while running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	log.Printf("cleanup: scheduler started, interval=%s", s.interval)
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one cleanup pass.  Exported so main can run an initial sweep
// at boot without waiting a full interval.
func (s *Scheduler) Sweep(ctx context.Context) {
	if err := s.policy.CleanupExpired(ctx); err != nil {
		log.Printf("cleanup: expired sessions/tokens sweep failed: %v", err)
	}
	if err := s.logger.CleanupOldLogs(ctx); err != nil {
		log.Printf("cleanup: log retention sweep failed: %v", err)
	}
}
