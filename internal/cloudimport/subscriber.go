package cloudimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

const eventRecordingCompleted = "recording.completed"

// RecordingEvent is the push notification sent when a recording is ready.
type RecordingEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Object apiMeeting `json:"object"`
	} `json:"payload"`
}

// Subscriber ingests recordings announced on a Pub/Sub subscription.
type Subscriber struct {
	client       *pubsub.Client
	subscription string
	importer     *Importer
	logger       *slog.Logger
}

// NewSubscriber connects to Pub/Sub. credentialsFile may be empty to use
// application default credentials.
func NewSubscriber(ctx context.Context, projectID, subscription, credentialsFile string, importer *Importer, logger *slog.Logger) (*Subscriber, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		client:       client,
		subscription: subscription,
		importer:     importer,
		logger:       logger.With("component", "cloudimport_subscriber", "subscription", subscription),
	}, nil
}

// Start receives messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	sub := s.client.Subscription(s.subscription)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}
	if !exists {
		return fmt.Errorf("subscription %s does not exist", s.subscription)
	}

	s.logger.Info("listening for recording events")
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.HandleMessage(ctx, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive recording events: %w", err)
	}
	return nil
}

// Close releases the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

// HandleMessage processes one event and reports whether it should be acked.
// Malformed and irrelevant events are acked; only retryable failures are not.
func (s *Subscriber) HandleMessage(ctx context.Context, data []byte) bool {
	var event RecordingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn("dropping malformed recording event", "error", err)
		return true
	}
	if event.Event != eventRecordingCompleted {
		s.logger.Debug("ignoring event", "event", event.Event)
		return true
	}
	rec, ok := event.Payload.Object.toRecording()
	if !ok {
		s.logger.Info("recording has no transcript yet", "meeting_id", event.Payload.Object.UUID)
		return true
	}

	if _, err := s.importer.Import(ctx, rec); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			s.logger.Warn("recording rejected", "meeting_id", rec.MeetingID, "error", err)
			return true
		}
		s.logger.Error("recording import failed, will retry", "meeting_id", rec.MeetingID, "error", err)
		return false
	}
	return true
}
