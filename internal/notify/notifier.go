package notify

import (
	"context"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/util"
)

// Notifier renders an agenda and hands it to a Sender
type Notifier struct {
	renderer    *Renderer
	sender      Sender
	sendOnEmpty bool
	runID       string
	logger      util.Logger
}

// NewNotifier creates a notifier. With sendOnEmpty false an empty agenda sends nothing.
func NewNotifier(renderer *Renderer, sender Sender, sendOnEmpty bool, runID string, logger util.Logger) *Notifier {
	return &Notifier{
		renderer:    renderer,
		sender:      sender,
		sendOnEmpty: sendOnEmpty,
		runID:       runID,
		logger:      logger,
	}
}

// Notify sends at most one email for the agenda and reports whether one was sent
func (n *Notifier) Notify(ctx context.Context, agenda models.Agenda) (bool, error) {
	if agenda.Empty() && !n.sendOnEmpty {
		n.logger.Info("No classes, skipping email", "outcome", agenda.Outcome)
		return false, nil
	}

	msg, err := n.renderer.Render(agenda)
	if err != nil {
		return false, &DeliveryError{Op: "compose", Err: err}
	}
	msg.RunID = n.runID

	n.logger.Info("Sending agenda", "subject", msg.Subject, "classes", len(agenda.Entries))
	if err := n.sender.Send(ctx, msg); err != nil {
		return false, err
	}

	n.logger.Info("Email sent")
	return true, nil
}
