package services_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/services"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

type stubIssuer struct {
	videoID uuid.UUID
	err     error
}

func (s *stubIssuer) IssueVideo(_ context.Context, _ uuid.UUID, _ string) (uuid.UUID, string, string, error) {
	if s.err != nil {
		return uuid.Nil, "", "", s.err
	}
	return s.videoID, "https://upload.example/videos/" + s.videoID.String(), "stream-key", nil
}

func (s *stubIssuer) IssueThumbnail(_ context.Context, _ uuid.UUID, videoID uuid.UUID, fileName string) (string, string, string, error) {
	if s.err != nil {
		return "", "", "", s.err
	}
	if fileName == "" {
		fileName = "thumbnail.jpg"
	}
	base := videoID.String() + "/" + fileName
	return "https://storage.example/zone/thumbnails/" + base, "storage-key", "https://cdn.example/thumbnails/" + base, nil
}

func TestIssueVideoCredential(t *testing.T) {
	videoID := uuid.New()
	svc, err := services.NewUploadService(&stubIssuer{videoID: videoID}, 10*time.Minute, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}

	cred, err := svc.IssueVideoCredential(context.Background(), uuid.New(), "My clip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.VideoID != videoID.String() {
		t.Fatalf("unexpected video id %s", cred.VideoID)
	}
	if cred.AccessKey != "stream-key" {
		t.Fatalf("unexpected access key %s", cred.AccessKey)
	}
	if !cred.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", cred.ExpiresAt)
	}
}

func TestIssueVideoCredentialRequiresUser(t *testing.T) {
	svc, err := services.NewUploadService(&stubIssuer{videoID: uuid.New()}, time.Minute, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}

	_, err = svc.IssueVideoCredential(context.Background(), uuid.Nil, "clip")
	if err == nil {
		t.Fatal("expected error for missing user")
	}
	if se := kerrors.FromError(err); se.Code != 401 {
		t.Fatalf("expected 401, got %d", se.Code)
	}
}

func TestIssueThumbnailCredential(t *testing.T) {
	svc, err := services.NewUploadService(&stubIssuer{videoID: uuid.New()}, time.Minute, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}

	videoID := uuid.New()
	cred, err := svc.IssueThumbnailCredential(context.Background(), uuid.New(), videoID, "cover.jpg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.CDNURL == "" || cred.UploadURL == "" {
		t.Fatalf("expected urls, got %+v", cred)
	}

	if _, err := svc.IssueThumbnailCredential(context.Background(), uuid.New(), uuid.Nil, ""); err == nil {
		t.Fatal("expected error for missing video id")
	}
}

func TestIssueCredentialBackendfailure(t *testing.T) {
	svc, err := services.NewUploadService(&stubIssuer{err: errors.New("backend down")}, time.Minute, log.NewStdLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}

	_, err = svc.IssueVideoCredential(context.Background(), uuid.New(), "clip")
	if err == nil {
		t.Fatal("expected error")
	}
	if se := kerrors.FromError(err); se.Code != 500 {
		t.Fatalf("expected 500, got %d", se.Code)
	}
}
