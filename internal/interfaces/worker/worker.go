// Package worker serves batch requests from Kafka.  Every request produces
// exactly one result message; failures are reported in the result and never
// retried since a build is a pure function of its input.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/MolGraph/internal/application/batching"
	"github.com/turtacn/MolGraph/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/intelligence/molgraph"
	"github.com/turtacn/MolGraph/pkg/errors"
)

// Result statuses, also used as the status header and metric label.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusInvalid = "invalid"

	contentTypeJSON = "application/json"
)

// BatchRequest is the request message body.
type BatchRequest struct {
	RequestID string `json:"request_id"`
	Indices   []int  `json:"indices"`
}

// ResultError describes a failed request.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// BatchResult is the result message body.  Exactly one of Batch and Error
// is set.
type BatchResult struct {
	RequestID string               `json:"request_id"`
	Batch     *molgraph.IndexBatch `json:"batch,omitempty"`
	Error     *ResultError         `json:"error,omitempty"`
}

// Publisher sends result messages.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// Subscriber delivers request messages.
type Subscriber interface {
	Subscribe(topic string, handler kafka.MessageHandler)
	Start(ctx context.Context) error
	Done() <-chan struct{}
}

// MessageMetrics records handled messages.
type MessageMetrics interface {
	RecordMessage(topic, status string, duration time.Duration)
}

// Config names the topics and bounds a single build.
type Config struct {
	RequestTopic string
	ResultTopic  string
	// BuildTimeout bounds one request; 0 leaves it unbounded.
	BuildTimeout time.Duration
}

// Worker turns batch requests into batch results.
type Worker struct {
	service   batching.Service
	publisher Publisher
	config    Config
	logger    logging.Logger
	metrics   MessageMetrics
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMetrics sets the message metrics sink.
func WithMetrics(m MessageMetrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// New creates a Worker.
func New(service batching.Service, publisher Publisher, cfg Config, opts ...Option) *Worker {
	w := &Worker{
		service:   service,
		publisher: publisher,
		config:    cfg,
		logger:    logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run subscribes to the request topic and blocks until ctx is cancelled or
// the subscriber stops.
func (w *Worker) Run(ctx context.Context, sub Subscriber) error {
	sub.Subscribe(w.config.RequestTopic, w.Handle)
	if err := sub.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("batch worker started",
		logging.String("request_topic", w.config.RequestTopic),
		logging.String("result_topic", w.config.ResultTopic))

	select {
	case <-ctx.Done():
	case <-sub.Done():
	}
	w.logger.Info("batch worker stopped")
	return nil
}

// Handle processes one request message.  Only a failure to publish the
// result is returned.
func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()

	result, status := w.process(ctx, msg)
	if w.metrics != nil {
		w.metrics.RecordMessage(msg.Topic, status, time.Since(start))
	}

	body, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode batch result")
	}
	err = w.publisher.Publish(ctx, &kafka.ProducerMessage{
		Topic: w.config.ResultTopic,
		Key:   []byte(result.RequestID),
		Value: body,
		Headers: map[string]string{
			kafka.HeaderRequestID:   result.RequestID,
			kafka.HeaderContentType: contentTypeJSON,
			kafka.HeaderStatus:      status,
		},
	})
	if err != nil {
		w.logger.Error("failed to publish batch result",
			logging.String("request_id", result.RequestID),
			logging.Err(err))
		return err
	}
	return nil
}

func (w *Worker) process(ctx context.Context, msg *kafka.Message) (*BatchResult, string) {
	var req BatchRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		id := requestID("", msg)
		w.logger.Warn("undecodable batch request",
			logging.String("request_id", id),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return errorResult(id, errors.Wrap(err, errors.ErrCodeMessageDecode, "invalid batch request")), StatusInvalid
	}
	id := requestID(req.RequestID, msg)

	buildCtx := ctx
	if w.config.BuildTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, w.config.BuildTimeout)
		defer cancel()
	}

	batch, err := w.service.BuildBatch(buildCtx, req.Indices)
	if err != nil {
		w.logger.Warn("batch request failed",
			logging.String("request_id", id),
			logging.Int("molecules", len(req.Indices)),
			logging.Err(err))
		return errorResult(id, err), StatusError
	}

	w.logger.Debug("batch request served",
		logging.String("request_id", id),
		logging.Int("molecules", batch.Molecules()),
		logging.Int("edges", batch.Edges()),
		logging.Int("triplets", batch.Triplets()))
	return &BatchResult{RequestID: id, Batch: batch}, StatusOK
}

// requestID prefers the body, then the header, then a fresh uuid.
func requestID(fromBody string, msg *kafka.Message) string {
	if fromBody != "" {
		return fromBody
	}
	if id := msg.Headers[kafka.HeaderRequestID]; id != "" {
		return id
	}
	return uuid.NewString()
}

func errorResult(id string, err error) *BatchResult {
	re := &ResultError{Code: string(errors.ErrCodeInternal), Message: err.Error()}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		re.Code = string(ae.Code)
		re.Message = ae.Message
		re.Detail = ae.Detail
	}
	return &BatchResult{RequestID: id, Error: re}
}
