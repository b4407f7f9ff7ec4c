package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amariwan/class-digest/internal/models"
	"github.com/amariwan/class-digest/internal/util"
)

type recordingSender struct {
	sent []*Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg *Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestNotifier(t *testing.T, sender Sender, sendOnEmpty bool) *Notifier {
	t.Helper()
	r, err := NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	return NewNotifier(r, sender, sendOnEmpty, "run-42", util.NewLogger("error"))
}

func TestNotifyAgenda(t *testing.T) {
	sender := &recordingSender{}
	n := newTestNotifier(t, sender, false)

	sent, err := n.Notify(context.Background(), models.Agenda{
		Date:    monday,
		Entries: []models.ClassEntry{class("09:00-10:00", "Math", "", "")},
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if !sent || len(sender.sent) != 1 {
		t.Fatalf("expected exactly one email, got %d", len(sender.sent))
	}
	if sender.sent[0].RunID != "run-42" {
		t.Errorf("RunID = %q", sender.sent[0].RunID)
	}
}

func TestNotifyEmptyAgenda(t *testing.T) {
	christmas := models.Agenda{Date: time.Date(2024, 12, 25, 6, 0, 0, 0, time.UTC), Outcome: models.OutcomeDayOff}

	t.Run("send on empty", func(t *testing.T) {
		sender := &recordingSender{}
		sent, err := newTestNotifier(t, sender, true).Notify(context.Background(), christmas)
		if err != nil {
			t.Fatal(err)
		}
		if !sent || len(sender.sent) != 1 {
			t.Fatalf("expected exactly one email, got %d", len(sender.sent))
		}
		if sender.sent[0].Subject != "Uni Schedule for 2024-12-25: free day" {
			t.Errorf("Subject = %q", sender.sent[0].Subject)
		}
	})

	t.Run("skip on empty", func(t *testing.T) {
		sender := &recordingSender{}
		sent, err := newTestNotifier(t, sender, false).Notify(context.Background(), christmas)
		if err != nil {
			t.Fatal(err)
		}
		if sent || len(sender.sent) != 0 {
			t.Fatalf("expected no email, got %d", len(sender.sent))
		}
	})
}

func TestNotifyDeliveryFailure(t *testing.T) {
	failure := &DeliveryError{Op: "send", Err: errors.New("connection refused")}
	sender := &recordingSender{err: failure}

	sent, err := newTestNotifier(t, sender, true).Notify(context.Background(), models.Agenda{Date: monday})
	if sent {
		t.Error("failed delivery must not report sent")
	}

	var de *DeliveryError
	if !errors.As(err, &de) || de.Op != "send" {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
}
