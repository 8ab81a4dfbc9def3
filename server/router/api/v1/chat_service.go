package v1

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/ai/llm"
	"github.com/narrinai/companion/memory"
	"github.com/narrinai/companion/store"
)

type chatTurnRequest struct {
	UID       string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Character string `json:"character"`
	Message   string `json:"message"`
}

type chatTurnResponse struct {
	Reply        string           `json:"reply"`
	MemoriesUsed []memoryResponse `json:"memories_used"`
	Relationship *relationshipDTO `json:"relationship,omitempty"`
}

type relationshipDTO struct {
	Phase        string `json:"phase"`
	MessageCount int    `json:"message_count"`
}

// ChatTurn runs one full turn: gather relevant memories, generate the
// character reply, then analyze and persist the turn. Memory retrieval and
// persistence are both best-effort; only reply generation can fail the call.
func (s *APIV1Service) ChatTurn(c echo.Context) error {
	if s.LLM == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat is not configured")
	}

	var req chatTurnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UID == "" || req.Character == "" || strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uid, character and message are required")
	}

	ctx := c.Request().Context()

	// Memory lookup failure degrades to an empty context.
	memories, err := s.MemoryService.GetMemories(ctx, memory.GetMemoriesRequest{
		UID:       req.UID,
		Email:     req.Email,
		Character: req.Character,
	})
	if err != nil && !errors.Is(err, memory.ErrNotFound) {
		c.Logger().Warnf("memory lookup failed, continuing without context: %v", err)
	}

	start := time.Now()
	reply, _, err := s.LLM.Chat(ctx, buildChatPrompt(req.Character, req.Message, memories))
	if err != nil {
		s.Metrics.ObserveLLMCall("chat", "error", time.Since(start))
		return echo.NewHTTPError(http.StatusBadGateway, "reply generation failed")
	}
	s.Metrics.ObserveLLMCall("chat", "ok", time.Since(start))

	response := chatTurnResponse{
		Reply:        reply,
		MemoriesUsed: toMemoryResponses(memories),
	}

	// Persist the analyzed turn; a failure here never loses the reply.
	if s.Analyzer != nil {
		if analyzed, err := s.Analyzer.Analyze(ctx, req.Message); err == nil {
			if _, err := s.MemoryService.RecordTurn(ctx, memory.RecordTurnRequest{
				UID:            req.UID,
				Email:          req.Email,
				Character:      req.Character,
				Role:           store.RoleUser,
				Message:        req.Message,
				Summary:        analyzed.Summary,
				Importance:     analyzed.Importance,
				EmotionalState: analyzed.EmotionalState,
				Tags:           analyzed.Tags,
			}); err != nil {
				c.Logger().Warnf("failed to persist turn: %v", err)
			}
			if rel := s.lookupRelationship(c, req); rel != nil {
				response.Relationship = rel
			}
		} else {
			c.Logger().Warnf("turn analysis failed: %v", err)
		}
	}

	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) lookupRelationship(c echo.Context, req chatTurnRequest) *relationshipDTO {
	ctx := c.Request().Context()
	ids, err := s.MemoryService.ResolveIdentity(ctx, req.UID, req.Email)
	if err != nil || len(ids.Refs) == 0 {
		return nil
	}
	summary, err := s.Store.GetRelationshipSummary(ctx, &store.FindRelationshipSummary{
		OwnerRef:      &ids.Refs[0],
		CharacterSlug: &req.Character,
	})
	if err != nil || summary == nil {
		return nil
	}
	return &relationshipDTO{
		Phase:        string(summary.Phase),
		MessageCount: summary.MessageCount,
	}
}

// buildChatPrompt assembles the character system prompt with the user's
// memories as background facts.
func buildChatPrompt(character string, message string, memories []*store.MemoryRecord) []llm.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a companion the user chats with regularly. Stay in character.\n", character)

	if len(memories) > 0 {
		sb.WriteString("\nWhat you remember about the user:\n")
		for _, m := range memories {
			fact := m.Summary
			if fact == "" {
				fact = m.Message
			}
			if memory.ClassifyImported(m) {
				fact = memory.ToFirstPerson(fact)
			}
			fmt.Fprintf(&sb, "- %s\n", fact)
		}
	}

	return []llm.Message{
		llm.SystemPrompt(sb.String()),
		llm.UserPrompt(message),
	}
}
