package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxMessage 描述需要写入 outbox_events 的事件数据。
type OutboxMessage struct {
	EventID       uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	Headers       []byte
	AvailableAt   time.Time
}

// PendingEvent 是发布任务取出的待发布事件。
type PendingEvent struct {
	ID        int64
	EventID   uuid.UUID
	EventType string
	Payload   []byte
	Headers   []byte
	Attempts  int32
}

// OutboxRepository 提供写入与轮询 Outbox 表的能力，写入路径与 TxManager Session 协作。
type OutboxRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewOutboxRepository 构造 Repository。
func NewOutboxRepository(db *pgxpool.Pool, logger log.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// Enqueue 在指定事务内插入 Outbox 事件。
func (r *OutboxRepository) Enqueue(ctx context.Context, sess txmanager.Session, msg OutboxMessage) error {
	q := querier(r.db)
	if sess != nil {
		q = sess.Tx()
	}

	availableAt := msg.AvailableAt.UTC()
	if availableAt.IsZero() {
		availableAt = time.Now().UTC()
	}

	if _, err := q.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, headers, available_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.EventID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, msg.Headers, availableAt,
	); err != nil {
		r.log.WithContext(ctx).Errorf("insert outbox event failed: event_id=%s err=%v", msg.EventID, err)
		return fmt.Errorf("insert outbox event: %w", err)
	}

	r.log.WithContext(ctx).Debugf("outbox event enqueued: aggregate=%s id=%s", msg.AggregateType, msg.AggregateID)
	return nil
}

// FetchPending 取出到期且未发布的事件，按入库顺序返回，并跳过超过重试上限的记录。
// 投递语义为 at-least-once，消费方依赖 event_id 去重。
func (r *OutboxRepository) FetchPending(ctx context.Context, limit, maxAttempts int32) ([]PendingEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_id, event_type, payload, headers, attempts
		FROM outbox_events
		WHERE published_at IS NULL
		  AND available_at <= now()
		  AND attempts < $2
		ORDER BY id
		LIMIT $1`,
		limit, maxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []PendingEvent
	for rows.Next() {
		var ev PendingEvent
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.EventType, &ev.Payload, &ev.Headers, &ev.Attempts); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}
	return events, nil
}

// MarkPublished 将事件标记为已发布。
func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)`,
		ids,
	); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}

// MarkFailed 累加失败次数并推迟下一次可用时间。
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, retryAfter time.Duration) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, available_at = now() + $2
		WHERE id = $1`,
		id, retryAfter,
	); err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}
