package controllers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bionicotaku/cast-services-portal/internal/controllers"
	"github.com/bionicotaku/cast-services-portal/internal/identity"
	"github.com/bionicotaku/cast-services-portal/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type issuerStub struct {
	videoID uuid.UUID
}

func (s *issuerStub) IssueVideo(_ context.Context, _ uuid.UUID, _ string) (uuid.UUID, string, string, error) {
	return s.videoID, "https://upload.example/videos/" + s.videoID.String(), "stream-key", nil
}

func (s *issuerStub) IssueThumbnail(_ context.Context, _ uuid.UUID, videoID uuid.UUID, fileName string) (string, string, string, error) {
	return "https://storage.example/thumbnails/" + videoID.String() + "/" + fileName,
		"storage-key",
		"https://cdn.example/thumbnails/" + videoID.String() + "/" + fileName,
		nil
}

func newUploadTestServer(t *testing.T, userID uuid.UUID, issuer services.CredentialIssuer) *httptest.Server {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	sessions := &sessionStub{session: &identity.Session{UserID: userID.String()}}
	base := controllers.NewBaseHandler(controllers.HandlerTimeouts{}, sessions, logger)

	svc, err := services.NewUploadService(issuer, 10*time.Minute, logger)
	require.NoError(t, err)

	handler := controllers.NewUploadHandler(base, svc)
	router := chi.NewRouter()
	handler.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestIssueVideoCredentialEndpoint(t *testing.T) {
	videoID := uuid.New()
	srv := newUploadTestServer(t, uuid.New(), &issuerStub{videoID: videoID})

	resp, err := http.Post(srv.URL+"/api/videos/upload-credentials", "application/json",
		strings.NewReader(`{"title":"My clip"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cred struct {
		VideoID   string `json:"videoId"`
		UploadURL string `json:"uploadUrl"`
		AccessKey string `json:"accessKey"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cred))
	require.Equal(t, videoID.String(), cred.VideoID)
	require.Equal(t, "stream-key", cred.AccessKey)
	require.NotEmpty(t, cred.UploadURL)
}

func TestIssueThumbnailCredentialEndpoint(t *testing.T) {
	videoID := uuid.New()
	srv := newUploadTestServer(t, uuid.New(), &issuerStub{videoID: videoID})

	resp, err := http.Post(srv.URL+"/api/videos/"+videoID.String()+"/thumbnail-credentials",
		"application/json", strings.NewReader(`{"fileName":"cover.jpg"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cred struct {
		UploadURL string `json:"uploadUrl"`
		CDNURL    string `json:"cdnUrl"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cred))
	require.Contains(t, cred.CDNURL, videoID.String())
	require.Contains(t, cred.UploadURL, "cover.jpg")
}

func TestIssueCredentialRejectsInvalidVideoID(t *testing.T) {
	srv := newUploadTestServer(t, uuid.New(), &issuerStub{videoID: uuid.New()})

	resp, err := http.Post(srv.URL+"/api/videos/not-a-uuid/thumbnail-credentials",
		"application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
