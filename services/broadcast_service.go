package services

import (
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go/v7"

	"github.com/TrongtrongJ/eventeer/models"
)

// Broadcaster pushes seat availability to listening clients. Publishes are
// fire-and-forget; a lost update is corrected by the next one.
type Broadcaster interface {
	PublishSeatChange(change models.SeatChange)
}

type PubNubBroadcaster struct {
	pubnub *pubnub.PubNub
}

func NewPubNubBroadcaster(pn *pubnub.PubNub) *PubNubBroadcaster {
	return &PubNubBroadcaster{pubnub: pn}
}

func (b *PubNubBroadcaster) PublishSeatChange(change models.SeatChange) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}

	channel := "event-" + change.EventID
	_, pnStatus, err := b.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":            "seat_update",
			"event_id":        change.EventID,
			"available_seats": change.AvailableSeats,
			"capacity":        change.Capacity,
			"timestamp":       change.Timestamp.Format(time.RFC3339),
		}).
		Execute()
	if err != nil || pnStatus.Error != nil {
		slog.Warn("Failed to publish seat change",
			"event_id", change.EventID,
			"error", err,
		)
	}
}
