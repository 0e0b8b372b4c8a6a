// Package team runs a group of bot sessions as one unit: staggered
// startup, failure isolation, and coordinated shutdown.
package team

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/chorus-irc/chorus/internal/bot"
)

// defaultStagger spaces out session startups so a team does not hit
// the server with simultaneous registrations.
const defaultStagger = 500 * time.Millisecond

// Runner is one supervised bot session.
type Runner interface {
	Run(ctx context.Context) error
	Status() bot.Status
}

// Supervisor owns one goroutine per session. A session that exhausts
// its reconnect budget stops alone; its siblings keep running.
type Supervisor struct {
	runners []Runner
	stagger time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	errs []error
}

// New creates a supervisor over the given sessions.
func New(runners []Runner, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		runners: runners,
		stagger: defaultStagger,
		logger:  logger,
	}
}

// Run starts every session and blocks until all of them have stopped.
// Cancelling ctx initiates shutdown; Run returns once every session
// goroutine has exited. Permanent per-session failures are joined into
// the returned error.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, runner := range s.runners {
		if i > 0 {
			select {
			case <-ctx.Done():
				wg.Wait()
				return s.joinedErrors()
			case <-time.After(s.stagger):
			}
		}

		st := runner.Status()
		s.logger.Info("starting bot", "bot", st.Nick, "channel", st.Channel)

		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				st := r.Status()
				s.logger.Error("bot stopped permanently", "bot", st.Nick, "error", err)
				s.mu.Lock()
				s.errs = append(s.errs, err)
				s.mu.Unlock()
			}
		}(runner)
	}

	wg.Wait()
	return s.joinedErrors()
}

func (s *Supervisor) joinedErrors() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// Status reports a point-in-time view of every session, in startup
// order.
func (s *Supervisor) Status() []bot.Status {
	statuses := make([]bot.Status, len(s.runners))
	for i, runner := range s.runners {
		statuses[i] = runner.Status()
	}
	return statuses
}
