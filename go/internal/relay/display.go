package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
)

// MessagePublisher is satisfied by *nats.Conn
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Display drives the remote attempt boards of a platform over core NATS.
// Only the instance that is master for a platform writes to it.
type Display struct {
	nc     MessagePublisher
	prefix string
}

var _ session.RemoteDisplay = (*Display)(nil)

// NewDisplay creates a display writer publishing under prefix, e.g. "display".
func NewDisplay(nc MessagePublisher, prefix string) *Display {
	if prefix == "" {
		prefix = "display"
	}
	return &Display{nc: nc, prefix: prefix}
}

// LifterSubject is where lifter info for a platform is written
func (d *Display) LifterSubject(platform string) string {
	return fmt.Sprintf("%s.%s.lifter", d.prefix, platform)
}

// StringsSubject is where the board lines for a platform are written
func (d *Display) StringsSubject(platform string) string {
	return fmt.Sprintf("%s.%s.strings", d.prefix, platform)
}

// WriteLifterInfo publishes the current, next and previous lifters.
func (d *Display) WriteLifterInfo(ctx context.Context, platform string, p events.OrderChangedPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal lifter info: %w", err)
	}
	if err := d.nc.Publish(d.LifterSubject(platform), data); err != nil {
		return fmt.Errorf("publish lifter info: %w", err)
	}
	return nil
}

// WriteStrings publishes the text lines of the attempt board.
func (d *Display) WriteStrings(ctx context.Context, platform string, lines []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal board lines: %w", err)
	}
	if err := d.nc.Publish(d.StringsSubject(platform), data); err != nil {
		return fmt.Errorf("publish board lines: %w", err)
	}
	return nil
}
