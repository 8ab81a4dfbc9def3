package memory

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/internal/metrics"
	"github.com/narrinai/companion/store"
)

// defaultFetchLimit bounds the bulk record fetch that feeds the filter.
// The store returns records newest-first, so the window covers the most
// recent activity.
const defaultFetchLimit = 500

// Service composes identity resolution, record filtering and ranking over
// the record store. Handlers call it once per chat turn.
type Service struct {
	store      *store.Store
	metrics    *metrics.Metrics
	fetchLimit int
}

// NewService creates a memory Service. metrics may be nil.
func NewService(st *store.Store, m *metrics.Metrics) *Service {
	return &Service{
		store:      st,
		metrics:    m,
		fetchLimit: defaultFetchLimit,
	}
}

// GetMemoriesRequest selects memories for one chat turn.
type GetMemoriesRequest struct {
	UID           string
	Email         string
	Character     string
	MinImportance int
	MaxResults    int
	// Role defaults to RoleFilterUser: assistant turns are not memories on
	// the primary path. Callers that want assistant-authored check-in or
	// onboarding records pass RoleFilterAny explicitly.
	Role RoleFilter
}

// GetMemories returns the ranked memories relevant to (user, character).
// Returns ErrNotFound when the identity cannot be resolved; handlers map
// that to an empty successful response so a missing profile never blocks
// the chat.
func (s *Service) GetMemories(ctx context.Context, req GetMemoriesRequest) ([]*store.MemoryRecord, error) {
	start := time.Now()
	role := req.Role
	if role == "" {
		role = RoleFilterUser
	}

	ids, err := s.ResolveIdentity(ctx, req.UID, req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.ObserveMemoryLookup("not_found", 0, time.Since(start))
			return nil, ErrNotFound
		}
		s.metrics.ObserveMemoryLookup("error", 0, time.Since(start))
		return nil, err
	}

	records, err := s.store.ListMemoryRecords(ctx, &store.FindMemoryRecord{Limit: s.fetchLimit})
	if err != nil {
		s.metrics.ObserveMemoryLookup("error", 0, time.Since(start))
		return nil, errors.Wrap(err, "failed to list memory records")
	}

	matched := FilterMemories(ids, req.Character, records, role)
	ranked := RankAndTruncate(matched, req.MinImportance, req.MaxResults)

	s.metrics.ObserveMemoryLookup("ok", len(ranked), time.Since(start))
	slog.Debug("resolved memories",
		"uid", req.UID,
		"character", req.Character,
		"fetched", len(records),
		"matched", len(matched),
		"returned", len(ranked))
	return ranked, nil
}

// GetImportedMemories returns the user's imported (background) memories,
// ranked, with their text rewritten to first person for prompt inclusion.
// The rewrite happens on copies; stored records are never mutated.
func (s *Service) GetImportedMemories(ctx context.Context, req GetMemoriesRequest) ([]*store.MemoryRecord, error) {
	ids, err := s.ResolveIdentity(ctx, req.UID, req.Email)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListMemoryRecords(ctx, &store.FindMemoryRecord{Limit: s.fetchLimit})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory records")
	}

	role := req.Role
	if role == "" {
		role = RoleFilterUser
	}
	owned := FilterMemories(ids, "", records, role)
	imported := make([]*store.MemoryRecord, 0, len(owned))
	for _, r := range owned {
		if !ClassifyImported(r) {
			continue
		}
		cp := *r
		cp.Message = ToFirstPerson(cp.Message)
		cp.Summary = ToFirstPerson(cp.Summary)
		imported = append(imported, &cp)
	}

	return RankAndTruncate(imported, req.MinImportance, req.MaxResults), nil
}

// RecordTurnRequest captures one analyzed chat turn.
type RecordTurnRequest struct {
	UID            string
	Email          string
	Character      string
	Role           store.Role
	Message        string
	Summary        string
	Importance     int
	EmotionalState store.EmotionalState
	Tags           []string
}

// RecordTurn persists the turn as a memory record and updates the
// relationship summary for (user, character). The relationship update is
// best-effort: its failure is logged but never fails the turn.
func (s *Service) RecordTurn(ctx context.Context, req RecordTurnRequest) (*store.MemoryRecord, error) {
	ids, err := s.ResolveIdentity(ctx, req.UID, req.Email)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = store.RoleUser
	}
	created, err := s.store.CreateMemoryRecord(ctx, &store.MemoryRecord{
		OwnerRefs:      ids.Refs,
		OwnerUID:       ids.UID,
		CharacterSlug:  req.Character,
		Role:           role,
		Message:        req.Message,
		Summary:        req.Summary,
		Importance:     req.Importance,
		EmotionalState: req.EmotionalState,
		Tags:           req.Tags,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create memory record")
	}

	if _, err := s.UpdateRelationshipSummary(ctx, ids, req.Character, SignalForState(req.EmotionalState)); err != nil {
		slog.Warn("relationship summary update failed",
			"uid", req.UID,
			"character", req.Character,
			"error", err)
	}
	return created, nil
}

// UpdateRelationshipSummary advances the (identity, character) relationship
// summary by one turn. The driver applies the increment atomically per key,
// so concurrent turns for the same pair cannot lose an update.
func (s *Service) UpdateRelationshipSummary(ctx context.Context, ids *IdentityRefSet, character string, signal EmotionalSignal) (*store.RelationshipSummary, error) {
	if ids == nil || len(ids.Refs) == 0 {
		return nil, errors.New("identity is required")
	}

	updated, err := s.store.AdvanceRelationshipSummary(ctx, ids.Refs[0], character, SignalScore(signal))
	if err != nil {
		return nil, errors.Wrap(err, "failed to advance relationship summary")
	}
	s.metrics.ObserveRelationshipUpdate()
	return updated, nil
}
