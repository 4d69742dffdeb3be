package gateway

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
)

// Websocket command names
const (
	CommandDecision       = "decision"
	CommandResetDecisions = "reset_decisions"
	CommandStartClock     = "start_clock"
	CommandStopClock      = "stop_clock"
	CommandSetClock       = "set_clock"
	CommandForceTime      = "force_time"
	CommandCallLifter     = "call_lifter"
	CommandLiftDone       = "lift_done"
	CommandDeclare        = "declare"
	CommandChangeWeight   = "change_weight"
	CommandWithdraw       = "withdraw"
	CommandForceAsCurrent = "force_as_current"
)

// commandFor maps a console message to a session command.
func commandFor(cc ClientCommand) (session.Command, error) {
	switch cc.Command {
	case CommandDecision:
		return func(s *session.Session) error { return s.RecordDecision(cc.Referee, cc.Accepted) }, nil
	case CommandResetDecisions:
		return func(s *session.Session) error { return s.ResetDecisions() }, nil
	case CommandStartClock:
		return func(s *session.Session) error { return s.StartClock() }, nil
	case CommandStopClock:
		return func(s *session.Session) error { return s.StopClock() }, nil
	case CommandSetClock:
		d := time.Duration(cc.Remaining) * time.Millisecond
		return func(s *session.Session) error { return s.SetClockTime(d) }, nil
	case CommandForceTime:
		d := time.Duration(cc.Remaining) * time.Millisecond
		return func(s *session.Session) error { return s.ForceTime(d) }, nil
	case CommandCallLifter:
		return func(s *session.Session) error {
			_, err := s.CallLifter()
			return err
		}, nil
	}

	// the remaining commands address a lifter
	id, err := uuid.Parse(cc.LifterID)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid lifter_id %q: %w", cc.Command, cc.LifterID, err)
	}

	switch cc.Command {
	case CommandLiftDone:
		return func(s *session.Session) error { return s.LiftDone(id, cc.Success) }, nil
	case CommandDeclare:
		return func(s *session.Session) error { return s.Declare(id, cc.Weight) }, nil
	case CommandChangeWeight:
		return func(s *session.Session) error { return s.ChangeWeight(id, cc.Weight) }, nil
	case CommandWithdraw:
		return func(s *session.Session) error { return s.Withdraw(id) }, nil
	case CommandForceAsCurrent:
		return func(s *session.Session) error { return s.ForceAsCurrent(id) }, nil
	}

	return nil, fmt.Errorf("unknown command %q", cc.Command)
}
