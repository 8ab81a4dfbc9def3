package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/memory"
	"github.com/narrinai/companion/store"
)

// memoryResponse is the wire shape of one memory.
type memoryResponse struct {
	ID             string   `json:"id"`
	Character      string   `json:"character,omitempty"`
	Message        string   `json:"message"`
	Summary        string   `json:"summary,omitempty"`
	Importance     int      `json:"importance"`
	EmotionalState string   `json:"emotional_state"`
	Tags           []string `json:"tags,omitempty"`
	Imported       bool     `json:"imported"`
	CreatedTs      int64    `json:"created_ts"`
}

func toMemoryResponse(r *store.MemoryRecord) memoryResponse {
	return memoryResponse{
		ID:             r.ID,
		Character:      r.CharacterSlug,
		Message:        r.Message,
		Summary:        r.Summary,
		Importance:     store.ClampImportance(r.Importance),
		EmotionalState: string(r.EmotionalState),
		Tags:           r.Tags,
		Imported:       memory.ClassifyImported(r),
		CreatedTs:      r.CreatedTs,
	}
}

func toMemoryResponses(records []*store.MemoryRecord) []memoryResponse {
	out := make([]memoryResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toMemoryResponse(r))
	}
	return out
}

// memoryRequestFromQuery reads the shared lookup parameters.
func memoryRequestFromQuery(c echo.Context) memory.GetMemoriesRequest {
	req := memory.GetMemoriesRequest{
		UID:       c.QueryParam("uid"),
		Email:     c.QueryParam("email"),
		Character: c.QueryParam("character"),
	}
	if v, err := strconv.Atoi(c.QueryParam("min_importance")); err == nil {
		req.MinImportance = v
	}
	if v, err := strconv.Atoi(c.QueryParam("max_results")); err == nil {
		req.MaxResults = v
	}
	if c.QueryParam("include_assistant") == "true" {
		req.Role = memory.RoleFilterAny
	}
	return req
}

// GetMemories returns the ranked memories for (user, character).
// An unresolvable identity is an empty success, never an error: memory
// lookup must never block the chat.
func (s *APIV1Service) GetMemories(c echo.Context) error {
	req := memoryRequestFromQuery(c)
	if req.UID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uid is required")
	}

	records, err := s.MemoryService.GetMemories(c.Request().Context(), req)
	if err != nil {
		return mapMemoryError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"memories": toMemoryResponses(records)})
}

// GetImportedMemories returns the user's imported background memories with
// text rewritten to first person.
func (s *APIV1Service) GetImportedMemories(c echo.Context) error {
	req := memoryRequestFromQuery(c)
	if req.UID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "uid is required")
	}

	records, err := s.MemoryService.GetImportedMemories(c.Request().Context(), req)
	if err != nil {
		return mapMemoryError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"memories": toMemoryResponses(records)})
}

// mapMemoryError converts core errors to API responses: unknown identity is
// an empty success, upstream failure is retryable.
func mapMemoryError(c echo.Context, err error) error {
	if errors.Is(err, memory.ErrNotFound) {
		return c.JSON(http.StatusOK, map[string]any{"memories": []memoryResponse{}})
	}
	if errors.Is(err, store.ErrUpstreamUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "record store unavailable, retry later")
	}
	return err
}
