package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wordgate/wordgate/internal/config"
	"github.com/wordgate/wordgate/internal/domain/entity"
	"github.com/wordgate/wordgate/internal/logging"
	"github.com/wordgate/wordgate/internal/questions"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func tabIDParam(c *gin.Context) (entity.TabID, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tab id"})
		return 0, false
	}
	return entity.TabID(id), true
}

func (s *Server) handleBlockState(c *gin.Context) {
	tabID, ok := tabIDParam(c)
	if !ok {
		return
	}
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter required"})
		return
	}
	c.JSON(http.StatusOK, s.svc.Evaluate(tabID, url))
}

func (s *Server) handleMessages(c *gin.Context) {
	tabID, ok := tabIDParam(c)
	if !ok {
		return
	}
	commands := s.outbox.Drain(tabID)
	if commands == nil {
		commands = []DisplayCommand{}
	}
	c.JSON(http.StatusOK, gin.H{"commands": commands})
}

type tabEventRequest struct {
	Type  string `json:"type" binding:"required"`
	TabID int    `json:"tab_id"`
	URL   string `json:"url"`
}

func (s *Server) handleTabEvent(c *gin.Context) {
	var req tabEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tabID := entity.TabID(req.TabID)

	switch req.Type {
	case "activated", "updated":
		s.svc.OnTabSeen(c.Request.Context(), tabID, req.URL)
	case "removed":
		s.svc.OnTabRemoved(c.Request.Context(), tabID)
		s.outbox.Drop(tabID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleQuestion(c *gin.Context) {
	q, err := s.provider.NextQuestion(c.Request.Context(), questions.FilterCriteria{
		Category:   c.Query("category"),
		Difficulty: c.Query("difficulty"),
	})
	if err != nil {
		// The tab stays in its current blocked state; the overlay shows a
		// retry affordance.
		logging.FromContext(s.ctx).Warn().Err(err).Msg("question fetch failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no question available"})
		return
	}
	c.JSON(http.StatusOK, q)
}

type answerRequest struct {
	TabID       int    `json:"tab_id"`
	QuestionID  string `json:"question_id" binding:"required"`
	Answer      string `json:"answer"`
	TimeTakenMs int64  `json:"time_taken_ms"`
}

type answerResponse struct {
	IsCorrect     bool                 `json:"is_correct"`
	CorrectAnswer string               `json:"correct_answer"`
	Explanation   string               `json:"explanation,omitempty"`
	Decision      entity.BlockDecision `json:"decision"`
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log := logging.FromContext(s.ctx)

	result, err := s.provider.ValidateAnswer(c.Request.Context(), req.QuestionID, req.Answer)
	if err != nil {
		// Collaborator failure: tab state is left unchanged so the user
		// can retry.
		log.Warn().Err(err).Str("question_id", req.QuestionID).Msg("answer validation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "answer validation unavailable"})
		return
	}

	decision, err := s.svc.ResolveAnswer(c.Request.Context(), entity.TabID(req.TabID), result.IsCorrect)
	if err != nil {
		if errors.Is(err, entity.ErrUnknownTab) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tab not tracked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Debug().
		Int("tab_id", req.TabID).
		Bool("is_correct", result.IsCorrect).
		Int64("time_taken_ms", req.TimeTakenMs).
		Msg("answer resolved")

	c.JSON(http.StatusOK, answerResponse{
		IsCorrect:     result.IsCorrect,
		CorrectAnswer: result.CorrectAnswer,
		Explanation:   result.Explanation,
		Decision:      decision,
	})
}

type settingsRequest struct {
	PeriodicIntervalMs int64    `json:"periodic_interval_ms" binding:"required"`
	PenaltyDurationMs  int64    `json:"penalty_duration_ms" binding:"required"`
	Mode               string   `json:"mode" binding:"required"`
	SiteList           []string `json:"site_list"`
	FirstSight         string   `json:"first_sight"`
}

func (s *Server) handleSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocking := config.BlockingConfig{
		PeriodicInterval: time.Duration(req.PeriodicIntervalMs) * time.Millisecond,
		PenaltyDuration:  time.Duration(req.PenaltyDurationMs) * time.Millisecond,
		Mode:             req.Mode,
		SiteList:         req.SiteList,
		FirstSight:       config.FirstSightPolicy(req.FirstSight),
	}
	if err := s.settings.UpdateBlocking(blocking); err != nil {
		// The in-memory update still propagated; only the file write failed.
		logging.FromContext(s.ctx).Warn().Err(err).Msg("settings file write failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type triggerRequest struct {
	TabID int `json:"tab_id"`
}

func (s *Server) handleTrigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.svc.TriggerManual(c.Request.Context(), entity.TabID(req.TabID)); err != nil {
		if errors.Is(err, entity.ErrUnknownTab) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tab not tracked"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
