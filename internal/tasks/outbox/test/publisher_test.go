package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/repositories"
	"github.com/bionicotaku/cast-services-portal/internal/tasks/outbox"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	pending   []repositories.PendingEvent
	published []int64
	failed    []int64
	fetchErr  error
}

func (s *stubSource) FetchPending(_ context.Context, limit, _ int32) ([]repositories.PendingEvent, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if int32(len(s.pending)) > limit {
		return s.pending[:limit], nil
	}
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *stubSource) MarkPublished(_ context.Context, ids []int64) error {
	s.published = append(s.published, ids...)
	return nil
}

func (s *stubSource) MarkFailed(_ context.Context, id int64, _ time.Duration) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubPublisher struct {
	messages []publishedMessage
	errOn    map[int]error
	calls    int
}

type publishedMessage struct {
	Data       []byte
	Attributes map[string]string
}

func (p *stubPublisher) Publish(_ context.Context, data []byte, attributes map[string]string) (string, error) {
	p.calls++
	if err, ok := p.errOn[p.calls]; ok {
		return "", err
	}
	p.messages = append(p.messages, publishedMessage{Data: data, Attributes: attributes})
	return "msg-1", nil
}

func pendingEvent(id int64, eventType string) repositories.PendingEvent {
	headers, _ := json.Marshal(map[string]string{
		"event_type":     eventType,
		"aggregate_type": "video",
		"schema_version": "v1",
	})
	return repositories.PendingEvent{
		ID:        id,
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{"k":"v"}`),
		Headers:   headers,
	}
}

func runTask(t *testing.T, task *outbox.Task, wait time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- task.Start(ctx) }()
	time.Sleep(wait)
	cancel()
	require.NoError(t, <-done)
}

func TestPublisherMarksPublished(t *testing.T) {
	source := &stubSource{pending: []repositories.PendingEvent{
		pendingEvent(1, "video.published"),
		pendingEvent(2, "video.deleted"),
	}}
	pub := &stubPublisher{}
	task := outbox.NewTask(source, pub, outbox.Options{TickInterval: 10 * time.Millisecond}, log.NewStdLogger(io.Discard))

	runTask(t, task, 100*time.Millisecond)

	require.Len(t, pub.messages, 2)
	require.ElementsMatch(t, []int64{1, 2}, source.published)
	require.Empty(t, source.failed)
	require.Equal(t, "video.published", pub.messages[0].Attributes["event_type"])
	require.NotEmpty(t, pub.messages[0].Attributes["event_id"])
}

func TestPublisherMarksFailedOnPublishError(t *testing.T) {
	source := &stubSource{pending: []repositories.PendingEvent{
		pendingEvent(1, "video.published"),
		pendingEvent(2, "video.published"),
	}}
	pub := &stubPublisher{errOn: map[int]error{1: errors.New("broker down")}}
	task := outbox.NewTask(source, pub, outbox.Options{TickInterval: 10 * time.Millisecond}, log.NewStdLogger(io.Discard))

	runTask(t, task, 100*time.Millisecond)

	require.Equal(t, []int64{1}, source.failed)
	require.Equal(t, []int64{2}, source.published)
}

func TestPublisherStopsOnContextCancel(t *testing.T) {
	source := &stubSource{}
	pub := &stubPublisher{}
	task := outbox.NewTask(source, pub, outbox.Options{TickInterval: 10 * time.Millisecond}, log.NewStdLogger(io.Discard))

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- task.Start(ctx) }()
	time.Sleep(30 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, task.Stop(stopCtx))
	require.NoError(t, <-done)
}
