package notification

import (
	"context"
	"time"

	"github.com/autobrr/autobrr/pkg/errors"

	"github.com/autobrr/freeleech/pkg/tracker"
)

var ErrHandshake = errors.New("notification handshake failed")

type Sender interface {
	CanSend() bool
	// Handshake verifies the endpoint before any item is processed.
	Handshake(ctx context.Context) error
	Send(ctx context.Context, event Event) error
	Name() string
}

// Event announces one new freeleech item.
type Event struct {
	Item     tracker.Item
	Detected time.Time
}
