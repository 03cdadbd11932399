package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/common/mq"
	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// MQSubmissionEventPublisher publishes recorded submissions to a message queue.
type MQSubmissionEventPublisher struct {
	producer mq.Producer
	topic    string
	now      func() time.Time
}

// NewMQSubmissionEventPublisher creates a new MQ submission event publisher.
func NewMQSubmissionEventPublisher(producer mq.Producer, topic string) *MQSubmissionEventPublisher {
	return &MQSubmissionEventPublisher{producer: producer, topic: topic, now: time.Now}
}

// PublishRecorded publishes a submission.recorded event keyed by submission id.
func (p *MQSubmissionEventPublisher) PublishRecorded(ctx context.Context, id string, sub model.NewSubmission) error {
	if p == nil || p.producer == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("submission publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("submission topic is required")
	}
	if id == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	event := model.SubmissionEvent{
		Type:         model.SubmissionEventRecorded,
		SubmissionID: id,
		ProblemSlug:  sub.ProblemSlug,
		Language:     sub.Language,
		Status:       sub.Status,
		TestResults:  sub.TestResults,
		ErrorMessage: sub.ErrorMessage,
		CreatedAt:    p.now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal submission event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = id
	message.SetHeader("event", model.SubmissionEventRecorded)
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.EventPublishFailed, "publish submission event failed")
	}
	return nil
}

// Close closes the underlying producer.
func (p *MQSubmissionEventPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
