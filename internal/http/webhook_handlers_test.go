package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "shoplink-backend/internal/common/errors"
	"shoplink-backend/internal/common/logger"
	"shoplink-backend/internal/config"
	dm "shoplink-backend/internal/domain/messenger"
	userdomain "shoplink-backend/internal/domain/user"
	"shoplink-backend/internal/observability"
	"shoplink-backend/internal/repository/memory"
	"shoplink-backend/internal/service/conversation"
	"shoplink-backend/internal/service/identity"
	"shoplink-backend/internal/service/webhook"
	"shoplink-backend/internal/storage"
	"shoplink-backend/internal/workers"
)

const verifyToken = "my_secret_password_123"

type outbound struct {
	to  string
	msg dm.OutboundResponse
}

type captureSender struct {
	mu    sync.Mutex
	out   []outbound
	block chan struct{}
}

func (s *captureSender) Send(_ context.Context, to string, msg dm.OutboundResponse) (*dm.SendResult, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, outbound{to: to, msg: msg})
	return &dm.SendResult{RecipientID: to}, nil
}

func (s *captureSender) sent() []outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbound(nil), s.out...)
}

type harness struct {
	router *gin.Engine
	runner *workers.Runner
	users  *memory.UserRepository
	sender *captureSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	users := memory.NewUserRepository()
	h := newHarnessWithRepo(t, users)
	h.users = users
	return h
}

func newHarnessWithRepo(t *testing.T, repo userdomain.Repository) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sender := &captureSender{}
	runner := workers.NewRunner()
	metrics := observability.NewMetrics()
	idSvc := identity.NewService(repo, nil, metrics)
	processor := webhook.NewProcessor(idSvc, sender, metrics)
	handlers := NewWebhookHandlers(webhook.NewVerifier(verifyToken), processor, runner, metrics)

	router := NewRouter(RouterDeps{Webhook: handlers, Storage: idSvc, Metrics: metrics, Debug: true})
	return &harness{router: router, runner: runner, sender: sender}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (h *harness) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestVerifyHandshake(t *testing.T) {
	h := newHarness(t)

	t.Run("valid token echoes challenge", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token="+verifyToken+"&hub.challenge=1158201444", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1158201444", rec.Body.String())
	})

	t.Run("challenge is returned verbatim", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token="+verifyToken+"&hub.challenge=%25d%20x", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%d x", rec.Body.String())
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=abc", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("missing token is a bad request", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.challenge=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReceiveRejectsNonPageObject(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/webhook", `{"object":"user","entry":[{"id":"1","messaging":[{"sender":{"id":"u1"},"message":{"text":"hi"}}]}]}`)
	h.runner.Wait()

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, h.users.Count())
	assert.Empty(t, h.sender.sent())
	assert.Equal(t, uint64(0), h.runner.Stats().Submitted)
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/webhook", `{not json`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceiveDispatchesFirstEventOnly(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/webhook", `{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"time": 1700000000,
			"messaging": [
				{"sender": {"id": "u1"}, "recipient": {"id": "page-1"}, "postback": {"title": "Buy", "payload": "BUY_HOODIE"}},
				{"sender": {"id": "u2"}, "recipient": {"id": "page-1"}, "message": {"mid": "m2", "text": "hello"}}
			]
		}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AckBody, rec.Body.String())

	h.runner.Wait()
	sent := h.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1", sent[0].to)
	assert.Equal(t, conversation.TextHoodieInCart, sent[0].msg.Text)
	assert.Equal(t, 1, h.users.Count())
}

func TestReceiveProcessesEachEntry(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/webhook", `{
		"object": "page",
		"entry": [
			{"id": "e1", "messaging": [{"sender": {"id": "u1"}, "message": {"text": "Hello there"}}]},
			{"id": "e2", "messaging": [{"sender": {"id": "u2"}, "message": {"text": "track my order"}}]},
			{"id": "e3", "messaging": [{"sender": {"id": "u3"}, "delivery": {"watermark": 1}}]}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	h.runner.Wait()

	byRecipient := map[string][]dm.OutboundResponse{}
	for _, o := range h.sender.sent() {
		byRecipient[o.to] = append(byRecipient[o.to], o.msg)
	}
	require.Len(t, byRecipient["u1"], 1)
	assert.Equal(t, []string{conversation.PayloadViewProducts, conversation.PayloadContactSupport}, byRecipient["u1"][0].Payloads())
	require.Len(t, byRecipient["u2"], 1)
	assert.Contains(t, byRecipient["u2"][0].Text, "track my order")
	assert.Empty(t, byRecipient["u3"], "inert event sends nothing")
	assert.Equal(t, 3, h.users.Count(), "inert event still records the sender")
}

func TestReceiveRedeliveryKeepsOneUser(t *testing.T) {
	h := newHarness(t)
	body := `{"object":"page","entry":[{"id":"e1","messaging":[{"sender":{"id":"u1"},"postback":{"payload":"UNKNOWN_X"}}]}]}`

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/webhook", body).Code)
	}
	h.runner.Wait()

	assert.Equal(t, 1, h.users.Count())
	assert.Empty(t, h.sender.sent())
}

func TestReceiveAcksBeforeProcessingCompletes(t *testing.T) {
	h := newHarness(t)
	h.sender.block = make(chan struct{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- h.do(http.MethodPost, "/webhook", `{"object":"page","entry":[{"id":"e1","messaging":[{"sender":{"id":"u1"},"message":{"text":"menu"}}]}]}`)
	}()

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, AckBody, rec.Body.String())
	case <-time.After(2 * time.Second):
		t.Fatal("webhook response waited on outbound send")
	}
	assert.Empty(t, h.sender.sent())

	close(h.sender.block)
	h.runner.Wait()
	assert.Len(t, h.sender.sent(), 1)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/live", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/ready", "").Code)

	h.do(http.MethodPost, "/webhook", `{"object":"page","entry":[]}`)
	rec := h.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shoplink_webhook_deliveries_total{result="ok"} 1`)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return assert.AnError }

func TestReadyReportsStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterDeps{
		Webhook: NewWebhookHandlers(webhook.NewVerifier(verifyToken), nil, workers.NewRunner(), nil),
		Storage: downPinger{},
		Debug:   true,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics route is absent when disabled")
}

func TestReceiveTreatsMalformedEventAsInert(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/webhook", `{
		"object": "page",
		"entry": [{"id": "e1", "messaging": [{"sender": {"id": "u1"}, "message": {"text": {"nested": true}}}]}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AckBody, rec.Body.String())
	h.runner.Wait()

	assert.Equal(t, 1, h.users.Count())
	assert.Empty(t, h.sender.sent())
}

func TestReceiveRejectionIsLoggedAsValidation(t *testing.T) {
	var out lockedBuffer
	logger.InitWithWriter(&out, "http-test", false)
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/webhook", `{"object":"instagram"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, out.String(), string(apperrors.ErrCodeValidation))
}

func TestReceiveRepliesWhileStorageIsDown(t *testing.T) {
	var out lockedBuffer
	logger.InitWithWriter(&out, "http-test", false)

	cfg := &config.Config{}
	cfg.Storage.Driver = config.DriverMongo
	cfg.Storage.MongoURI = "mongodb://127.0.0.1:1/shoplink_test?serverSelectionTimeoutMS=300&connectTimeoutMS=300"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := storage.Open(ctx, cfg)
	require.NoError(t, err, "an unreachable store must not stop startup")
	defer store.Close()

	h := newHarnessWithRepo(t, store)

	rec := h.do(http.MethodPost, "/webhook", `{"object":"page","entry":[{"id":"e1","messaging":[{"sender":{"id":"u1"},"message":{"text":"hi"}}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AckBody, rec.Body.String())
	h.runner.Wait()

	sent := h.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1", sent[0].to)
	assert.True(t, sent[0].msg.IsTemplate())

	logs := out.String()
	assert.Contains(t, logs, string(apperrors.ErrCodeConnectionFailed))
	assert.Contains(t, logs, string(apperrors.ErrCodeDatabaseError))

	ready := h.do(http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
}
