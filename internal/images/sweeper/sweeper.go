// Package sweeper reconciles image rows with GCS object deletion
// notifications. Objects removed out of band, or left behind when a
// best-effort deletion from the API failed, eventually converge here.
package sweeper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/motoyard/motoyard-backend/pkg/db/models"
	"github.com/motoyard/motoyard-backend/pkg/logger"
)

const (
	objectDeleteEvent    = "OBJECT_DELETE"
	payloadFormatJSONAPI = "JSON_API_V1"
)

type imageRepository interface {
	FindByObjectName(ctx context.Context, objectName string) (*models.Image, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ClearListingThumbnail(ctx context.Context, motorcycleID, thumbURL string) (bool, error)
}

type objectRemover interface {
	RemoveObject(ctx context.Context, objectName string) error
}

// Sweeper watches Pub/Sub for GCS OBJECT_DELETE notifications and removes
// the matching image row plus its companion storage object.
type Sweeper struct {
	repo         imageRepository
	store        objectRemover
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// New wires the dependencies required for storage reconciliation.
func New(repo imageRepository, store objectRemover, subscription *pubsub.Subscriber, logg *logger.Logger) (*Sweeper, error) {
	if repo == nil {
		return nil, errors.New("image repository is required")
	}
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if subscription == nil {
		return nil, errors.New("storage events subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Sweeper{
		repo:         repo,
		store:        store,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes deletion notifications until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := s.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (s *Sweeper) process(ctx context.Context, msg *pubsub.Message) processResult {
	attrs := parseAttributes(msg.Attributes)
	fields := buildLogFields(msg.ID, attrs, nil)
	logCtx := s.logg.WithFields(ctx, fields)

	if attrs.EventType != objectDeleteEvent {
		s.logg.Info(logCtx, "skipping non-delete event")
		return processResult{ack: true}
	}
	if attrs.PayloadFormat != payloadFormatJSONAPI {
		s.logg.Warn(logCtx, "unsupported payload format")
		return processResult{ack: true}
	}

	payload, err := decodePayload(msg.Data)
	if err != nil {
		s.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	var gcs gcsPayload
	if err := json.Unmarshal(payload, &gcs); err != nil {
		fields = buildLogFields(msg.ID, attrs, nil)
		fields["payload_preview"] = previewBytes(payload, 800)
		fields["payload_len"] = len(payload)
		logCtx = s.logg.WithFields(ctx, fields)
		s.logg.Error(logCtx, "failed to unmarshal payload", err)
		return processResult{ack: true}
	}

	if strings.TrimSpace(gcs.Name) == "" {
		fields = buildLogFields(msg.ID, attrs, &gcs)
		logCtx = s.logg.WithFields(ctx, fields)
		s.logg.Error(logCtx, "payload missing gcs object name", fmt.Errorf("empty name"))
		return processResult{ack: true}
	}

	fields = buildLogFields(msg.ID, attrs, &gcs)
	logCtx = s.logg.WithFields(ctx, fields)

	return s.reconcile(logCtx, gcs.Name)
}

// reconcile removes the image row owning the deleted object and the
// companion object that is still in the bucket. The companion deletion
// re-enters here as its own notification and finds no row, which is the
// terminal state.
func (s *Sweeper) reconcile(ctx context.Context, objectName string) processResult {
	image, err := s.repo.FindByObjectName(ctx, objectName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(ctx, "no image row for deleted object")
			return processResult{ack: true}
		}
		return s.handleDBError(ctx, err)
	}

	ctx = s.logg.WithField(ctx, "image_id", image.ID.String())

	if image.MotorcycleID != nil {
		cleared, err := s.repo.ClearListingThumbnail(ctx, *image.MotorcycleID, image.ThumbURL)
		if err != nil {
			return s.handleDBError(ctx, err)
		}
		if cleared {
			s.logg.Info(s.logg.WithField(ctx, "motorcycle_id", *image.MotorcycleID), "cleared dangling listing thumbnail")
		}
	}

	if err := s.repo.Delete(ctx, image.ID); err != nil {
		return s.handleDBError(ctx, err)
	}

	companion := image.ThumbObjectName
	if objectName == image.ThumbObjectName {
		companion = image.ObjectName
	}
	if companion != "" && companion != objectName {
		if err := s.store.RemoveObject(ctx, companion); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_name", companion), "failed to remove companion object")
		}
	}

	s.logg.Info(ctx, "reconciled deleted storage object")
	return processResult{ack: true}
}

func (s *Sweeper) handleDBError(ctx context.Context, err error) processResult {
	s.logg.Error(ctx, "image reconciliation db error", err)
	if isTransientDBError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func buildLogFields(messageID string, attrs gcsAttributes, payload *gcsPayload) map[string]any {
	fields := map[string]any{
		"message_id": messageID,
		"event_type": attrs.EventType,
		"bucket":     firstNonEmpty(attrs.BucketID, gcsBucket(payload)),
	}
	if payload != nil {
		fields["gcs_key"] = payload.Name
	}
	return fields
}

func gcsBucket(p *gcsPayload) string {
	if p == nil {
		return ""
	}
	return p.Bucket
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseAttributes(attrs map[string]string) gcsAttributes {
	return gcsAttributes{
		EventType:     attrs["eventType"],
		BucketID:      attrs["bucketId"],
		ObjectID:      attrs["objectId"],
		PayloadFormat: attrs["payloadFormat"],
	}
}

type gcsAttributes struct {
	EventType     string
	BucketID      string
	ObjectID      string
	PayloadFormat string
}

type gcsPayload struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func decodePayload(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("payload empty")
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		return decoded, nil
	}
	return data, nil
}

func isTransientDBError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
