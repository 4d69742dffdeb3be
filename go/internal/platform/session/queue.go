package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Command is an operation run by the session worker.
type Command func(s *Session) error

type command struct {
	name   string
	run    Command
	result chan error
}

// Submit queues cmd for sequential execution and returns immediately. The
// returned channel receives the command's error (nil on success) once it ran.
func (s *Session) Submit(name string, cmd Command) (<-chan error, error) {
	result := make(chan error, 1)

	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	select {
	case s.cmdCh <- command{name: name, run: cmd, result: result}:
		return result, nil
	default:
		log.Warn().
			Str("platform", s.cfg.Platform).
			Str("command", name).
			Msg("command queue full, dropping command")
		return nil, ErrQueueFull
	}
}

// Do submits cmd and waits for its result or for ctx to end.
func (s *Session) Do(ctx context.Context, name string, cmd Command) error {
	result, err := s.Submit(name, cmd)
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued commands one at a time until ctx is cancelled or the
// session is closed.
func (s *Session) Run(ctx context.Context) {
	log.Info().Str("platform", s.cfg.Platform).Msg("session worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("platform", s.cfg.Platform).Msg("session worker shutting down")
			return
		case <-s.closed:
			log.Info().Str("platform", s.cfg.Platform).Msg("session closed, worker shutting down")
			return
		case cmd := <-s.cmdCh:
			err := s.execute(cmd)
			if err != nil {
				log.Error().
					Err(err).
					Str("platform", s.cfg.Platform).
					Str("command", cmd.name).
					Msg("command failed")
			}
			cmd.result <- err
		}
	}
}

func (s *Session) execute(cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.name, r)
		}
	}()
	return cmd.run(s)
}

// Close stops the clock and the worker, delivers queued events, then waits
// for pending saves.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		s.clock.Close()
		s.mu.Unlock()

		s.dispatch.stop(s.cfg.SaveTimeout)
		s.saves.Wait()
		log.Info().Str("platform", s.cfg.Platform).Msg("session closed")
	})
}
