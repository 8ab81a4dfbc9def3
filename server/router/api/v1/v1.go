// Package v1 exposes the JSON HTTP API consumed by the web client.
package v1

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/narrinai/companion/ai/analysis"
	"github.com/narrinai/companion/ai/llm"
	"github.com/narrinai/companion/internal/metrics"
	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/memory"
	"github.com/narrinai/companion/plugin/referral"
	"github.com/narrinai/companion/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Metrics *metrics.Metrics

	MemoryService   *memory.Service
	ReferralService *referral.Service

	// LLM and Analyzer are nil when AI is not configured; the chat
	// endpoint then returns 503 while memory endpoints keep working.
	LLM      llm.Service
	Analyzer *analysis.Analyzer
}

func NewAPIV1Service(profile *profile.Profile, st *store.Store, m *metrics.Metrics) *APIV1Service {
	service := &APIV1Service{
		Profile:         profile,
		Store:           st,
		Metrics:         m,
		MemoryService:   memory.NewService(st, m),
		ReferralService: referral.NewService(st),
	}

	if profile.IsAIEnabled() {
		llmService, err := llm.NewService(&llm.Config{
			Provider: profile.LLMProvider,
			Model:    profile.LLMModel,
			APIKey:   profile.LLMAPIKey,
			BaseURL:  profile.LLMBaseURL,
			Timeout:  profile.LLMTimeout,
		})
		if err != nil {
			slog.Error("failed to create llm service, chat disabled", "error", err)
		} else {
			service.LLM = llmService
			service.Analyzer = analysis.NewAnalyzer(llmService, m)
		}
	}
	return service
}

// RegisterRoutes mounts all v1 endpoints.
func (s *APIV1Service) RegisterRoutes(g *echo.Group) {
	g.GET("/memories", s.GetMemories)
	g.GET("/memories/imported", s.GetImportedMemories)
	g.POST("/chat/turn", s.ChatTurn)
	g.POST("/referrals", s.IssueReferral)
	g.POST("/referrals/redeem", s.RedeemReferral)
}

// RequestIDMiddleware attaches a request id to every call for log
// correlation.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)
		c.Set("request_id", requestID)
		return next(c)
	}
}
