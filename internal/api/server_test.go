package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wordgate/wordgate/internal/api"
	"github.com/wordgate/wordgate/internal/config"
	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/logging"
	"github.com/wordgate/wordgate/internal/questions"
	mock_questions "github.com/wordgate/wordgate/internal/questions/mocks"
	"github.com/wordgate/wordgate/internal/scheduler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSettings struct {
	applied []config.BlockingConfig
}

func (f *fakeSettings) UpdateBlocking(cfg config.BlockingConfig) error {
	f.applied = append(f.applied, cfg)
	return nil
}

type testHarness struct {
	router   *gin.Engine
	provider *mock_questions.MockProvider
	settings *fakeSettings
	svc      *scheduler.Service
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	ctrl := gomock.NewController(t)

	ctx := logging.WithContext(context.Background(), logging.NewFromConfigValues("debug", "console"))
	cfg := config.BlockingConfig{
		PeriodicInterval: time.Hour,
		PenaltyDuration:  30 * time.Second,
		Mode:             "blacklist",
		FirstSight:       config.FirstSightWait,
	}

	outbox := api.NewOutbox()
	store := scheduler.NewStore(nil)
	timers := scheduler.NewTimerSet(scheduler.SystemClock(), nil, nil)
	svc := scheduler.NewService(ctx, cfg, store, timers, outbox, scheduler.SystemClock())

	provider := mock_questions.NewMockProvider(ctrl)
	settings := &fakeSettings{}
	server := api.NewServer(ctx, "127.0.0.1:0", svc, provider, settings, outbox)

	return &testHarness{
		router:   server.Router(),
		provider: provider,
		settings: settings,
		svc:      svc,
	}
}

func (h *testHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *testHarness) seeTab(t *testing.T, tabID int, url string) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/v1/tabs/events", gin.H{"type": "updated", "tab_id": tabID, "url": url})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	w := h.do(t, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBlockStateLifecycle(t *testing.T) {
	h := newHarness(t)
	h.seeTab(t, 1, "https://news.example/")

	w := h.do(t, http.MethodGet, "/v1/tabs/1/block-state?url=https%3A%2F%2Fnews.example%2F", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var decision entity.BlockDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.False(t, decision.ShouldBlock)

	// Excluded URLs report unblocked no matter what.
	w = h.do(t, http.MethodGet, "/v1/tabs/1/block-state?url=http%3A%2F%2Flocalhost%3A3000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.False(t, decision.ShouldBlock)

	w = h.do(t, http.MethodGet, "/v1/tabs/not-a-number/block-state?url=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManualTriggerAndMessageDrain(t *testing.T) {
	h := newHarness(t)
	h.seeTab(t, 1, "https://news.example/")

	w := h.do(t, http.MethodPost, "/v1/block/trigger", gin.H{"tab_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/v1/tabs/1/block-state?url=https%3A%2F%2Fnews.example%2F", nil)
	var decision entity.BlockDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.True(t, decision.ShouldBlock)
	assert.Equal(t, entity.BlockReasonManual, decision.Reason)

	w = h.do(t, http.MethodGet, "/v1/tabs/1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var drained struct {
		Commands []api.DisplayCommand `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drained))
	require.Len(t, drained.Commands, 1)
	assert.Equal(t, "show_question", drained.Commands[0].Op)

	// Drain empties the queue.
	w = h.do(t, http.MethodGet, "/v1/tabs/1/messages", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drained))
	assert.Empty(t, drained.Commands)

	// Untracked tab: 404.
	w = h.do(t, http.MethodPost, "/v1/block/trigger", gin.H{"tab_id": 77})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnswerSubmission(t *testing.T) {
	h := newHarness(t)
	h.seeTab(t, 1, "https://news.example/")

	h.provider.EXPECT().
		ValidateAnswer(gomock.Any(), "static:1", "wrong guess").
		Return(&entity.AnswerResult{IsCorrect: false, CorrectAnswer: "fond of company; sociable"}, nil)

	w := h.do(t, http.MethodPost, "/v1/answer", gin.H{
		"tab_id": 1, "question_id": "static:1", "answer": "wrong guess", "time_taken_ms": 4200,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IsCorrect bool                 `json:"is_correct"`
		Decision  entity.BlockDecision `json:"decision"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IsCorrect)
	assert.True(t, resp.Decision.ShouldBlock)
	assert.Equal(t, entity.BlockReasonPenalty, resp.Decision.Reason)

	h.provider.EXPECT().
		ValidateAnswer(gomock.Any(), "static:1", "fond of company; sociable").
		Return(&entity.AnswerResult{IsCorrect: true, CorrectAnswer: "fond of company; sociable"}, nil)

	w = h.do(t, http.MethodPost, "/v1/answer", gin.H{
		"tab_id": 1, "question_id": "static:1", "answer": "fond of company; sociable",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsCorrect)
	assert.False(t, resp.Decision.ShouldBlock)
}

func TestAnswerValidationFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.seeTab(t, 1, "https://news.example/")

	h.provider.EXPECT().
		ValidateAnswer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, entity.ErrQuestionUnavailable)

	w := h.do(t, http.MethodPost, "/v1/answer", gin.H{
		"tab_id": 1, "question_id": "static:1", "answer": "anything",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// No penalty was applied.
	w = h.do(t, http.MethodGet, "/v1/tabs/1/block-state?url=https%3A%2F%2Fnews.example%2F", nil)
	var decision entity.BlockDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.False(t, decision.ShouldBlock)
}

func TestAnswerForUnknownTab(t *testing.T) {
	h := newHarness(t)

	h.provider.EXPECT().
		ValidateAnswer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&entity.AnswerResult{IsCorrect: true}, nil)

	w := h.do(t, http.MethodPost, "/v1/answer", gin.H{
		"tab_id": 12, "question_id": "static:1", "answer": "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuestionEndpoint(t *testing.T) {
	h := newHarness(t)

	h.provider.EXPECT().
		NextQuestion(gomock.Any(), questions.FilterCriteria{}).
		Return(&entity.Question{ID: "static:3", Prompt: "What does \"obdurate\" mean?"}, nil)

	w := h.do(t, http.MethodGet, "/v1/question", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var q entity.Question
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, "static:3", q.ID)

	h.provider.EXPECT().
		NextQuestion(gomock.Any(), gomock.Any()).
		Return(nil, entity.ErrQuestionUnavailable)

	w = h.do(t, http.MethodGet, "/v1/question", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSettingsUpdate(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPut, "/v1/settings", gin.H{
		"periodic_interval_ms": 1800000,
		"penalty_duration_ms":  30000,
		"mode":                 "whitelist",
		"site_list":            []string{"news.example"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, h.settings.applied, 1)
	applied := h.settings.applied[0]
	assert.Equal(t, 30*time.Minute, applied.PeriodicInterval)
	assert.Equal(t, 30*time.Second, applied.PenaltyDuration)
	assert.Equal(t, "whitelist", applied.Mode)
	assert.Equal(t, []string{"news.example"}, applied.SiteList)

	w = h.do(t, http.MethodPut, "/v1/settings", gin.H{"mode": "whitelist"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTabRemovedEventDropsOutbox(t *testing.T) {
	h := newHarness(t)
	h.seeTab(t, 1, "https://news.example/")

	w := h.do(t, http.MethodPost, "/v1/block/trigger", gin.H{"tab_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/v1/tabs/events", gin.H{"type": "removed", "tab_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/v1/tabs/1/messages", nil)
	var drained struct {
		Commands []api.DisplayCommand `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drained))
	assert.Empty(t, drained.Commands)

	w = h.do(t, http.MethodPost, "/v1/tabs/events", gin.H{"type": "bogus", "tab_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
