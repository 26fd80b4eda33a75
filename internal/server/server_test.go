package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"nanobanana/internal/credential"
	"nanobanana/internal/generation"
	"nanobanana/internal/session"
)

type scriptedClient struct {
	result *generation.Result
	err    error
}

func (s *scriptedClient) Generate(context.Context, generation.Request) (*generation.Result, error) {
	return s.result, s.err
}

func (s *scriptedClient) SubmitVideo(context.Context, generation.Request) (*generation.JobHandle, error) {
	return nil, errors.New("not scripted")
}

func (s *scriptedClient) PollVideo(_ context.Context, h *generation.JobHandle) (*generation.JobHandle, error) {
	return h, nil
}

func (s *scriptedClient) FetchArtifact(context.Context, string) (*generation.Media, error) {
	return nil, errors.New("not scripted")
}

func newTestServer(t *testing.T, client generation.Client) (*Server, *session.Orchestrator, *session.MediaCache, *credential.PromptGate) {
	t.Helper()

	history := session.NewHistory("Tester")
	media, err := session.NewMediaCache(16)
	require.NoError(t, err)

	hub := NewHub(nil)
	gate := credential.NewPromptGate(hub, nil)
	metrics := session.MustNewMetrics(prometheus.NewRegistry())
	orch := session.NewOrchestrator(context.Background(), client, nil, history, media, hub, metrics, nil)

	srv := New(Config{Host: "127.0.0.1", Port: 0}, Deps{
		Orchestrator: orch,
		History:      history,
		Media:        media,
		Gate:         gate,
		Hub:          hub,
		Gatherer:     prometheus.NewRegistry(),
	})
	return srv, orch, media, gate
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGenerateReturnsPlaceholderID(t *testing.T) {
	srv, orch, _, _ := newTestServer(t, &scriptedClient{result: &generation.Result{Text: "hi"}})

	rec := postJSON(t, srv.Handler(), "/api/generate", map[string]any{
		"mode":   "chat",
		"prompt": "hello",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		MessageID string `json:"message_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.MessageID)

	require.NoError(t, orch.Drain(context.Background()))
}

func TestGenerateRejectsValidationFailure(t *testing.T) {
	srv, _, _, _ := newTestServer(t, &scriptedClient{})

	rec := postJSON(t, srv.Handler(), "/api/generate", map[string]any{
		"mode": "faceswap",
		"face": map[string]string{"data": "AQ==", "mimeType": "image/png"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "target")
}

func TestGenerateRejectsUnknownMode(t *testing.T) {
	srv, _, _, _ := newTestServer(t, &scriptedClient{})

	rec := postJSON(t, srv.Handler(), "/api/generate", map[string]any{
		"mode":   "karaoke",
		"prompt": "sing",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryServesGreetingSeed(t *testing.T) {
	srv, _, _, _ := newTestServer(t, &scriptedClient{})

	req := httptest.NewRequest(http.MethodGet, "/api/history/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Hello Tester!")
}

func TestMediaEndpoint(t *testing.T) {
	srv, _, media, _ := newTestServer(t, &scriptedClient{})

	id := media.Put(&generation.Media{MIMEType: "image/png", Data: []byte("png-bytes")})

	req := httptest.NewRequest(http.MethodGet, "/api/media/"+id, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "png-bytes", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/media/unknown", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentialSelectedResolvesSuspendedPrompt(t *testing.T) {
	srv, _, _, gate := newTestServer(t, &scriptedClient{})

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- gate.RequestCredential(ctx)
	}()

	// Let the prompt suspend before acknowledging it.
	require.Eventually(t, func() bool {
		rec := postJSON(t, srv.Handler(), "/api/credential/selected", nil)
		return rec.Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, <-done)
	require.True(t, gate.HasCredential(context.Background()))
}

func TestWebSocketReceivesSettleEvents(t *testing.T) {
	srv, _, _, _ := newTestServer(t, &scriptedClient{result: &generation.Result{Text: "pushed reply"}})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	rec := postJSON(t, srv.Handler(), "/api/generate", map[string]any{
		"mode":   "chat",
		"prompt": "hello",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var settled *Event
	for settled == nil {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		var event Event
		require.NoError(t, json.Unmarshal(payload, &event))
		if event.Type == EventMessageSettled {
			settled = &event
		}
	}
	require.Equal(t, session.ModeChat, settled.Mode)
	require.Equal(t, "pushed reply", settled.Message.Content)
}

func TestHealthz(t *testing.T) {
	srv, _, _, _ := newTestServer(t, &scriptedClient{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}
