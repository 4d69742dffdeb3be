package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/liftcontrol/go/internal/models"
	"github.com/mcdev12/liftcontrol/go/internal/platform/decision"
	"github.com/mcdev12/liftcontrol/go/internal/platform/registry"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
)

// ConsoleServiceName is the fully-qualified name of the console service
const ConsoleServiceName = "liftcontrol.v1.ConsoleService"

// Console procedure paths
const (
	ConsoleRecordDecisionProcedure = "/" + ConsoleServiceName + "/RecordDecision"
	ConsoleResetDecisionsProcedure = "/" + ConsoleServiceName + "/ResetDecisions"
	ConsoleStartClockProcedure     = "/" + ConsoleServiceName + "/StartClock"
	ConsoleStopClockProcedure      = "/" + ConsoleServiceName + "/StopClock"
	ConsoleSetClockTimeProcedure   = "/" + ConsoleServiceName + "/SetClockTime"
	ConsoleForceTimeProcedure      = "/" + ConsoleServiceName + "/ForceTime"
	ConsoleCallLifterProcedure     = "/" + ConsoleServiceName + "/CallLifter"
	ConsoleLiftDoneProcedure       = "/" + ConsoleServiceName + "/LiftDone"
	ConsoleDeclareProcedure        = "/" + ConsoleServiceName + "/Declare"
	ConsoleChangeWeightProcedure   = "/" + ConsoleServiceName + "/ChangeWeight"
	ConsoleWithdrawProcedure       = "/" + ConsoleServiceName + "/Withdraw"
	ConsoleForceAsCurrentProcedure = "/" + ConsoleServiceName + "/ForceAsCurrent"
	ConsoleDrawLotsProcedure       = "/" + ConsoleServiceName + "/DrawLots"
	ConsoleGetStateProcedure       = "/" + ConsoleServiceName + "/GetState"
)

// PlatformRequest addresses a platform
type PlatformRequest struct {
	Platform string `json:"platform"`
}

// DecisionRequest is a referee button press
type DecisionRequest struct {
	Platform string `json:"platform"`
	Referee  int    `json:"referee"`
	Accepted bool   `json:"accepted"`
}

// ClockTimeRequest sets the attempt clock
type ClockTimeRequest struct {
	Platform    string `json:"platform"`
	RemainingMs int64  `json:"remaining_ms"`
}

// LifterRequest addresses a lifter on a platform
type LifterRequest struct {
	Platform string `json:"platform"`
	LifterID string `json:"lifter_id"`
}

// LiftDoneRequest records the outcome of the current attempt
type LiftDoneRequest struct {
	Platform string `json:"platform"`
	LifterID string `json:"lifter_id"`
	Success  bool   `json:"success"`
}

// WeightRequest declares or changes the requested weight
type WeightRequest struct {
	Platform string `json:"platform"`
	LifterID string `json:"lifter_id"`
	Weight   int    `json:"weight"`
}

// StateResponse carries the platform state after the command ran
type StateResponse struct {
	State session.Snapshot `json:"state"`
}

// ConsoleService serves the referee, timekeeper and announcer consoles.
// Every command runs through the platform's command queue.
type ConsoleService struct {
	platforms Platforms
	shuffler  session.Shuffler
	timeout   time.Duration
}

// NewConsoleService creates the console service
func NewConsoleService(platforms Platforms, shuffler session.Shuffler) *ConsoleService {
	return &ConsoleService{
		platforms: platforms,
		shuffler:  shuffler,
		timeout:   5 * time.Second,
	}
}

// NewConsoleServiceHandler builds an HTTP handler serving every console procedure
func NewConsoleServiceHandler(svc *ConsoleService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ConsoleRecordDecisionProcedure, connect.NewUnaryHandler(ConsoleRecordDecisionProcedure, svc.RecordDecision, opts...))
	mux.Handle(ConsoleResetDecisionsProcedure, connect.NewUnaryHandler(ConsoleResetDecisionsProcedure, svc.ResetDecisions, opts...))
	mux.Handle(ConsoleStartClockProcedure, connect.NewUnaryHandler(ConsoleStartClockProcedure, svc.StartClock, opts...))
	mux.Handle(ConsoleStopClockProcedure, connect.NewUnaryHandler(ConsoleStopClockProcedure, svc.StopClock, opts...))
	mux.Handle(ConsoleSetClockTimeProcedure, connect.NewUnaryHandler(ConsoleSetClockTimeProcedure, svc.SetClockTime, opts...))
	mux.Handle(ConsoleForceTimeProcedure, connect.NewUnaryHandler(ConsoleForceTimeProcedure, svc.ForceTime, opts...))
	mux.Handle(ConsoleCallLifterProcedure, connect.NewUnaryHandler(ConsoleCallLifterProcedure, svc.CallLifter, opts...))
	mux.Handle(ConsoleLiftDoneProcedure, connect.NewUnaryHandler(ConsoleLiftDoneProcedure, svc.LiftDone, opts...))
	mux.Handle(ConsoleDeclareProcedure, connect.NewUnaryHandler(ConsoleDeclareProcedure, svc.Declare, opts...))
	mux.Handle(ConsoleChangeWeightProcedure, connect.NewUnaryHandler(ConsoleChangeWeightProcedure, svc.ChangeWeight, opts...))
	mux.Handle(ConsoleWithdrawProcedure, connect.NewUnaryHandler(ConsoleWithdrawProcedure, svc.Withdraw, opts...))
	mux.Handle(ConsoleForceAsCurrentProcedure, connect.NewUnaryHandler(ConsoleForceAsCurrentProcedure, svc.ForceAsCurrent, opts...))
	mux.Handle(ConsoleDrawLotsProcedure, connect.NewUnaryHandler(ConsoleDrawLotsProcedure, svc.DrawLots, opts...))
	mux.Handle(ConsoleGetStateProcedure, connect.NewUnaryHandler(ConsoleGetStateProcedure, svc.GetState, opts...))

	return "/" + ConsoleServiceName + "/", mux
}

// RecordDecision records a referee decision
func (s *ConsoleService) RecordDecision(ctx context.Context, req *connect.Request[DecisionRequest]) (*connect.Response[StateResponse], error) {
	return s.run(ctx, req.Msg.Platform, "record_decision", func(ss *session.Session) error {
		return ss.RecordDecision(req.Msg.Referee, req.Msg.Accepted)
	})
}

// ResetDecisions clears every referee decision
func (s *ConsoleService) ResetDecisions(ctx context.Context, req *connect.Request[PlatformRequest]) (*connect.Response[StateResponse], error) {
	return s.run(ctx, req.Msg.Platform, "reset_decisions", func(ss *session.Session) error {
		return ss.ResetDecisions()
	})
}

// StartClock starts the attempt clock
func (s *ConsoleService) StartClock(ctx context.Context, req *connect.Request[PlatformRequest]) (*connect.Response[StateResponse], error) {
	return s.run(ctx, req.Msg.Platform, "start_clock", func(ss *session.Session) error {
		return ss.StartClock()
	})
}

// StopClock pauses the attempt clock
func (s *ConsoleService) StopClock(ctx context.Context, req *connect.Request[PlatformRequest]) (*connect.Response[StateResponse], error) {
	return s.run(ctx, req.Msg.Platform, "stop_clock", func(ss *session.Session) error {
		return ss.StopClock()
	})
}

// SetClockTime changes the remaining time
func (s *ConsoleService) SetClockTime(ctx context.Context, req *connect.Request[ClockTimeRequest]) (*connect.Response[StateResponse], error) {
	d := time.Duration(req.Msg.RemainingMs) * time.Millisecond
	return s.run(ctx, req.Msg.Platform, "set_clock_time", func(ss *session.Session) error {
		return ss.SetClockTime(d)
	})
}

// ForceTime sets a timekeeper override kept by the next call
func (s *ConsoleService) ForceTime(ctx context.Context, req *connect.Request[ClockTimeRequest]) (*connect.Response[StateResponse], error) {
	d := time.Duration(req.Msg.RemainingMs) * time.Millisecond
	return s.run(ctx, req.Msg.Platform, "force_time", func(ss *session.Session) error {
		return ss.ForceTime(d)
	})
}

// CallLifter calls the current lifter to the platform
func (s *ConsoleService) CallLifter(ctx context.Context, req *connect.Request[PlatformRequest]) (*connect.Response[StateResponse], error) {
	return s.run(ctx, req.Msg.Platform, "call_lifter", func(ss *session.Session) error {
		_, err := ss.CallLifter()
		return err
	})
}

// LiftDone records the outcome of the current attempt
func (s *ConsoleService) LiftDone(ctx context.Context, req *connect.Request[LiftDoneRequest]) (*connect.Response[StateResponse], error) {
	id, err := uuid.Parse(req.Msg.LifterID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.run(ctx, req.Msg.Platform, "lift_done", func(ss *session.Session) error {
		return ss.LiftDone(id, req.Msg.Success)
	})
}

// Declare records the declared weight of a lifter's next attempt
func (s *ConsoleService) Declare(ctx context.Context, req *connect.Request[WeightRequest]) (*connect.Response[StateResponse], error) {
	id, err := uuid.Parse(req.Msg.LifterID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.run(ctx, req.Msg.Platform, "declare", func(ss *session.Session) error {
		return ss.Declare(id, req.Msg.Weight)
	})
}

// ChangeWeight changes the requested weight of a lifter's next attempt
func (s *ConsoleService) ChangeWeight(ctx context.Context, req *connect.Request[WeightRequest]) (*connect.Response[StateResponse], error) {
	id, err := uuid.Parse(req.Msg.LifterID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.run(ctx, req.Msg.Platform, "change_weight", func(ss *session.Session) error {
		return ss.ChangeWeight(id, req.Msg.Weight)
	})
}

// Withdraw removes a lifter from the lifting order
func (s *ConsoleService) Withdraw(ctx context.Context, req *connect.Request[LifterRequest]) (*connect.Response[StateResponse], error) {
	id, err := uuid.Parse(req.Msg.LifterID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.run(ctx, req.Msg.Platform, "withdraw", func(ss *session.Session) error {
		return ss.Withdraw(id)
	})
}

// ForceAsCurrent puts a lifter at the head of the lifting order
func (s *ConsoleService) ForceAsCurrent(ctx context.Context, req *connect.Request[LifterRequest]) (*connect.Response[StateResponse], error) {
	id, err := uuid.Parse(req.Msg.LifterID)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return s.run(ctx, req.Msg.Platform, "force_as_current", func(ss *session.Session) error {
		return ss.ForceAsCurrent(id)
	})
}

// DrawLots assigns lot numbers to the group
func (s *ConsoleService) DrawLots(ctx context.Context, req *connect.Request[PlatformRequest]) (*connect.Response[StateResponse], error) {
	return s.run(ctx, req.Msg.Platform, "draw_lots", func(ss *session.Session) error {
		return ss.DrawLots(s.shuffler)
	})
}

// GetState returns the platform state without changing it
func (s *ConsoleService) GetState(ctx context.Context, req *connect.Request[PlatformRequest]) (*connect.Response[StateResponse], error) {
	ss, err := s.platforms.Get(req.Msg.Platform)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&StateResponse{State: ss.Snapshot()}), nil
}

// run queues cmd on the platform session and answers with the state it left.
func (s *ConsoleService) run(ctx context.Context, platform, name string, cmd session.Command) (*connect.Response[StateResponse], error) {
	ss, err := s.platforms.Get(platform)
	if err != nil {
		return nil, toConnectError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var snap session.Snapshot
	err = ss.Do(ctx, name, func(ss *session.Session) error {
		if err := cmd(ss); err != nil {
			return err
		}
		snap = ss.Snapshot()
		return nil
	})
	if err != nil {
		return nil, toConnectError(fmt.Errorf("%s: %w", name, err))
	}

	return connect.NewResponse(&StateResponse{State: snap}), nil
}

// toConnectError maps domain errors onto connect codes
func toConnectError(err error) error {
	var outOfRange *decision.OutOfRangeError
	switch {
	case errors.As(err, &outOfRange),
		errors.Is(err, session.ErrInvalidDuration),
		errors.Is(err, models.ErrInvalidWeight),
		errors.Is(err, models.ErrAlreadyDeclared),
		errors.Is(err, models.ErrTooManyChanges),
		errors.Is(err, models.ErrNoAttemptLeft),
		errors.Is(err, models.ErrWithdrawn):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrUnknownLifter), errors.Is(err, registry.ErrPlatformNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, session.ErrQueueFull):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, session.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
