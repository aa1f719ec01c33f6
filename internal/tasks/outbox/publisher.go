// Package outbox 实现 Outbox 事件的轮询发布任务：周期性取出未发布事件，
// 推送到 Pub/Sub 并回写发布状态。投递语义为 at-least-once。
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultBatchSize      = 50
	defaultTickInterval   = 2 * time.Second
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 10 * time.Second
	baseRetryDelay        = 30 * time.Second
)

// Publisher 抽象消息发布端，便于测试注入。
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
}

// Source 抽象待发布事件的存取。
type Source interface {
	FetchPending(ctx context.Context, limit, maxAttempts int32) ([]repositories.PendingEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, retryAfter time.Duration) error
}

// Options 聚合任务运行参数。
type Options struct {
	BatchSize      int32
	TickInterval   time.Duration
	MaxAttempts    int32
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.TickInterval <= 0 {
		o.TickInterval = defaultTickInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = defaultPublishTimeout
	}
	return o
}

// Task 是 Outbox 轮询发布任务，实现 kratos transport.Server 的生命周期。
type Task struct {
	source  Source
	pub     Publisher
	opts    Options
	metrics *publishMetrics
	log     *log.Helper
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTask 构造发布任务。
func NewTask(source Source, pub Publisher, opts Options, logger log.Logger) *Task {
	helper := log.NewHelper(logger)
	meter := otel.GetMeterProvider().Meter("cast-portal.outbox")
	return &Task{
		source:  source,
		pub:     pub,
		opts:    opts.withDefaults(),
		metrics: newPublishMetrics(meter, helper),
		log:     helper,
	}
}

// Start 启动轮询循环，阻塞直至 Stop 或上下文取消。
func (t *Task) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	defer close(t.done)

	ticker := time.NewTicker(t.opts.TickInterval)
	defer ticker.Stop()

	t.log.Infof("outbox publisher started: tick=%s batch=%d", t.opts.TickInterval, t.opts.BatchSize)
	for {
		select {
		case <-runCtx.Done():
			t.log.Info("outbox publisher stopped")
			return nil
		case <-ticker.C:
			t.drain(runCtx)
		}
	}
}

// Stop 终止轮询循环。
func (t *Task) Stop(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.done != nil {
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// drain 持续发布直到当前无就绪事件。
func (t *Task) drain(ctx context.Context) {
	for {
		published, err := t.publishBatch(ctx)
		if err != nil || published < int(t.opts.BatchSize) {
			return
		}
	}
}

func (t *Task) publishBatch(ctx context.Context) (int, error) {
	events, err := t.source.FetchPending(ctx, t.opts.BatchSize, t.opts.MaxAttempts)
	if err != nil {
		t.log.WithContext(ctx).Errorf("fetch pending outbox events failed: err=%v", err)
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	var publishedIDs []int64
	for _, ev := range events {
		if err := t.publishOne(ctx, ev); err != nil {
			t.metrics.recordFailure(ctx, ev.EventType)
			retryAfter := time.Duration(ev.Attempts+1) * baseRetryDelay
			t.log.WithContext(ctx).Warnf("publish outbox event failed: event_id=%s attempts=%d err=%v", ev.EventID, ev.Attempts, err)
			if markErr := t.source.MarkFailed(ctx, ev.ID, retryAfter); markErr != nil {
				t.log.WithContext(ctx).Errorf("mark outbox event failed: event_id=%s err=%v", ev.EventID, markErr)
			}
			continue
		}
		t.metrics.recordSuccess(ctx, ev.EventType)
		publishedIDs = append(publishedIDs, ev.ID)
	}

	if len(publishedIDs) > 0 {
		if err := t.source.MarkPublished(ctx, publishedIDs); err != nil {
			// 标记失败会导致事件重复投递，由消费方按 event_id 去重
			t.log.WithContext(ctx).Errorf("mark outbox events published failed: err=%v", err)
			return len(publishedIDs), err
		}
	}
	return len(events), nil
}

func (t *Task) publishOne(ctx context.Context, ev repositories.PendingEvent) error {
	attributes := map[string]string{}
	if len(ev.Headers) > 0 {
		if err := json.Unmarshal(ev.Headers, &attributes); err != nil {
			t.log.WithContext(ctx).Warnf("decode outbox headers failed: event_id=%s err=%v", ev.EventID, err)
			attributes = map[string]string{}
		}
	}
	attributes["event_id"] = ev.EventID.String()
	if attributes["event_type"] == "" {
		attributes["event_type"] = ev.EventType
	}

	publishCtx, cancel := context.WithTimeout(ctx, t.opts.PublishTimeout)
	defer cancel()

	_, err := t.pub.Publish(publishCtx, ev.Payload, attributes)
	return err
}

type publishMetrics struct {
	success metric.Int64Counter
	failure metric.Int64Counter
	enabled bool
}

const (
	metricNamePublishSuccess = "outbox_publish_success_total"
	metricNamePublishFailure = "outbox_publish_failure_total"
)

func newPublishMetrics(meter metric.Meter, helper *log.Helper) *publishMetrics {
	m := &publishMetrics{}
	if meter == nil {
		return m
	}
	var err error
	if m.success, err = meter.Int64Counter(metricNamePublishSuccess,
		metric.WithDescription("Number of outbox events published successfully")); err != nil {
		helper.Warnf("outbox metrics: register success counter: %v", err)
		return m
	}
	if m.failure, err = meter.Int64Counter(metricNamePublishFailure,
		metric.WithDescription("Number of outbox events failed to publish")); err != nil {
		helper.Warnf("outbox metrics: register failure counter: %v", err)
		return m
	}
	m.enabled = true
	return m
}

func (m *publishMetrics) recordSuccess(ctx context.Context, eventType string) {
	if m == nil || !m.enabled {
		return
	}
	m.success.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *publishMetrics) recordFailure(ctx context.Context, eventType string) {
	if m == nil || !m.enabled {
		return
	}
	m.failure.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
