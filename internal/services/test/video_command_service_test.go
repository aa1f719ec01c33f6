package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/models/po"
	"github.com/bionicotaku/cast-services-portal/internal/repositories"
	"github.com/bionicotaku/cast-services-portal/internal/services"
	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func TestSaveDetailsEnqueuesPublishedEvent(t *testing.T) {
	userID := uuid.New()
	videoID := uuid.New()
	repo := &videoRepoStub{}
	outbox := &outboxRepoStub{}
	logger := log.NewStdLogger(io.Discard)
	svc := services.NewVideoCommandService(repo, outbox, noopTxManager{}, logger)

	saved, err := svc.SaveDetails(context.Background(), services.SaveVideoDetailsInput{
		UserID:          userID,
		VideoID:         videoID,
		Title:           "T",
		Description:     "D",
		Visibility:      "public",
		ThumbnailURL:    "https://cdn/x.jpg",
		DurationSeconds: 42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil || saved.VideoID != videoID {
		t.Fatalf("expected saved result for %s, got %+v", videoID, saved)
	}
	if len(outbox.messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(outbox.messages))
	}
	msg := outbox.messages[0]
	if msg.EventType != "video.published" {
		t.Fatalf("unexpected event type: %s", msg.EventType)
	}

	var envelope struct {
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if envelope.Payload["videoId"] != videoID.String() {
		t.Fatalf("unexpected payload video id: %v", envelope.Payload["videoId"])
	}
	if envelope.Payload["title"] != "T" {
		t.Fatalf("unexpected payload title: %v", envelope.Payload["title"])
	}
}

func TestSaveDetailsValidation(t *testing.T) {
	repo := &videoRepoStub{}
	outbox := &outboxRepoStub{}
	svc := services.NewVideoCommandService(repo, outbox, noopTxManager{}, log.NewStdLogger(io.Discard))

	cases := []struct {
		name  string
		input services.SaveVideoDetailsInput
	}{
		{"missing title", services.SaveVideoDetailsInput{UserID: uuid.New(), VideoID: uuid.New(), Description: "D"}},
		{"missing description", services.SaveVideoDetailsInput{UserID: uuid.New(), VideoID: uuid.New(), Title: "T"}},
		{"blank title", services.SaveVideoDetailsInput{UserID: uuid.New(), VideoID: uuid.New(), Title: "   ", Description: "D"}},
		{"missing video id", services.SaveVideoDetailsInput{UserID: uuid.New(), Title: "T", Description: "D"}},
		{"negative duration", services.SaveVideoDetailsInput{UserID: uuid.New(), VideoID: uuid.New(), Title: "T", Description: "D", DurationSeconds: -1}},
		{"bad visibility", services.SaveVideoDetailsInput{UserID: uuid.New(), VideoID: uuid.New(), Title: "T", Description: "D", Visibility: "friends"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SaveDetails(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if se := kerrors.FromError(err); se.Code != 400 && se.Code != 401 {
				t.Fatalf("expected 400/401, got %d", se.Code)
			}
		})
	}
	if len(outbox.messages) != 0 {
		t.Fatal("outbox should not be touched on validation failure")
	}
}

func TestSaveDetailsZeroDurationAllowed(t *testing.T) {
	repo := &videoRepoStub{}
	svc := services.NewVideoCommandService(repo, &outboxRepoStub{}, noopTxManager{}, log.NewStdLogger(io.Discard))

	_, err := svc.SaveDetails(context.Background(), services.SaveVideoDetailsInput{
		UserID:      uuid.New(),
		VideoID:     uuid.New(),
		Title:       "T",
		Description: "D",
	})
	if err != nil {
		t.Fatalf("zero duration should persist: %v", err)
	}
	if repo.inserted == nil || repo.inserted.DurationSeconds != 0 {
		t.Fatalf("expected inserted duration 0, got %+v", repo.inserted)
	}
	if repo.inserted.Visibility != po.VisibilityPublic {
		t.Fatalf("expected visibility fallback to public, got %s", repo.inserted.Visibility)
	}
}

func TestSaveDetailsRepoError(t *testing.T) {
	repo := &videoRepoStub{insertErr: errors.New("db down")}
	outbox := &outboxRepoStub{}
	svc := services.NewVideoCommandService(repo, outbox, noopTxManager{}, log.NewStdLogger(io.Discard))

	_, err := svc.SaveDetails(context.Background(), services.SaveVideoDetailsInput{
		UserID: uuid.New(), VideoID: uuid.New(), Title: "T", Description: "D",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(outbox.messages) != 0 {
		t.Fatal("outbox should not be called on repo error")
	}
}

func TestChangeVisibilityOwnerOnly(t *testing.T) {
	owner := uuid.New()
	videoID := uuid.New()
	repo := &videoRepoStub{existing: &po.Video{VideoID: videoID, UserID: owner, Visibility: po.VisibilityPublic}}
	svc := services.NewVideoCommandService(repo, &outboxRepoStub{}, noopTxManager{}, log.NewStdLogger(io.Discard))

	_, err := svc.ChangeVisibility(context.Background(), services.ChangeVisibilityInput{
		UserID: uuid.New(), VideoID: videoID, Visibility: "private",
	})
	if !errors.Is(err, services.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestChangeVisibilityEnqueuesEvent(t *testing.T) {
	owner := uuid.New()
	videoID := uuid.New()
	repo := &videoRepoStub{existing: &po.Video{VideoID: videoID, UserID: owner, Visibility: po.VisibilityPublic}}
	outbox := &outboxRepoStub{}
	svc := services.NewVideoCommandService(repo, outbox, noopTxManager{}, log.NewStdLogger(io.Discard))

	detail, err := svc.ChangeVisibility(context.Background(), services.ChangeVisibilityInput{
		UserID: owner, VideoID: videoID, Visibility: "private",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Visibility != po.VisibilityPrivate {
		t.Fatalf("expected private, got %s", detail.Visibility)
	}
	if len(outbox.messages) != 1 || outbox.messages[0].EventType != "video.visibility_changed" {
		t.Fatalf("unexpected outbox state: %+v", outbox.messages)
	}
}

func TestDeleteVideoNotFound(t *testing.T) {
	repo := &videoRepoStub{}
	svc := services.NewVideoCommandService(repo, &outboxRepoStub{}, noopTxManager{}, log.NewStdLogger(io.Discard))

	err := svc.DeleteVideo(context.Background(), services.DeleteVideoInput{UserID: uuid.New(), VideoID: uuid.New()})
	if !errors.Is(err, services.ErrVideoNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteVideoEnqueuesEvent(t *testing.T) {
	owner := uuid.New()
	videoID := uuid.New()
	repo := &videoRepoStub{existing: &po.Video{VideoID: videoID, UserID: owner}}
	outbox := &outboxRepoStub{}
	svc := services.NewVideoCommandService(repo, outbox, noopTxManager{}, log.NewStdLogger(io.Discard))

	if err := svc.DeleteVideo(context.Background(), services.DeleteVideoInput{UserID: owner, VideoID: videoID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outbox.messages) != 1 || outbox.messages[0].EventType != "video.deleted" {
		t.Fatalf("unexpected outbox state: %+v", outbox.messages)
	}
}

type videoRepoStub struct {
	existing  *po.Video
	inserted  *po.Video
	insertErr error
}

func (s *videoRepoStub) Insert(_ context.Context, _ txmanager.Session, video *po.Video) (*po.Video, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	saved := *video
	saved.CreatedAt = time.Now().UTC()
	saved.UpdatedAt = saved.CreatedAt
	s.inserted = &saved
	return &saved, nil
}

func (s *videoRepoStub) FindByID(_ context.Context, _ txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	if s.existing == nil || s.existing.VideoID != videoID {
		return nil, repositories.ErrVideoNotFound
	}
	copied := *s.existing
	return &copied, nil
}

func (s *videoRepoStub) UpdateVisibility(_ context.Context, _ txmanager.Session, videoID uuid.UUID, visibility po.Visibility) (*po.Video, error) {
	if s.existing == nil || s.existing.VideoID != videoID {
		return nil, repositories.ErrVideoNotFound
	}
	s.existing.Visibility = visibility
	copied := *s.existing
	return &copied, nil
}

func (s *videoRepoStub) Delete(_ context.Context, _ txmanager.Session, videoID uuid.UUID) error {
	if s.existing == nil || s.existing.VideoID != videoID {
		return repositories.ErrVideoNotFound
	}
	s.existing = nil
	return nil
}

type outboxRepoStub struct {
	messages []repositories.OutboxMessage
	err      error
}

func (s *outboxRepoStub) Enqueue(_ context.Context, _ txmanager.Session, msg repositories.OutboxMessage) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

type noopTxManager struct{}

type noopSession struct{}

func (noopSession) Tx() pgx.Tx               { return nil }
func (noopSession) Context() context.Context { return context.Background() }

func (noopTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}

func (noopTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, noopSession{})
}
