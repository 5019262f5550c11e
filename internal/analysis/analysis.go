// Package analysis asks a language model for possible food triggers and
// general advice based on the diary.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/quota"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Kind selects the prompt.
type Kind string

const (
	TriggerAnalysis Kind = "trigger_analysis"
	MealSuggestion  Kind = "meal_suggestion"
	SymptomAdvice   Kind = "symptom_advice"
	GeneralChat     Kind = "general_chat"
)

var (
	ErrDisabled = errors.New("analysis is not configured")
	ErrBusy     = errors.New("too many concurrent analysis requests, try again in a moment")
	ErrNoData   = errors.New("not enough diary data to analyze")
	ErrNoJSON   = errors.New("model reply contains no JSON object")
)

// DefaultMaxConcurrent bounds in-flight model requests.
const DefaultMaxConcurrent = 3

// Quota consumes analysis units. Analyses share the export quota.
type Quota interface {
	Increment(ctx context.Context, typ quota.Type) bool
}

// Request is one analysis call.
type Request struct {
	Kind      Kind
	ProfileID string // restricts the logs to one profile when set
	Message   string // user message for chat
	Context   string // optional extra context
}

// Service runs analyses.
type Service struct {
	kv    *store.Adapter
	llm   Completer
	quota Quota
	sem   *semaphore.Weighted
	clock clockwork.Clock
	loc   *time.Location
	log   *slog.Logger
}

// New creates an analysis Service. llm may be nil, in which case every
// analysis fails with ErrDisabled.
func New(kv *store.Adapter, llm Completer, q Quota, maxConcurrent int, loc *time.Location, log *slog.Logger) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		kv:    kv,
		llm:   llm,
		quota: q,
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		clock: kv.Clock(),
		loc:   loc,
		log:   log.With("component", "analysis"),
	}
}

// Enabled reports whether a model is configured.
func (s *Service) Enabled() bool {
	return s.llm != nil
}

// FormatLogs renders the food and symptom entries as prompt text, one entry
// per line. Empty strings mean no entries.
func (s *Service) FormatLogs(ctx context.Context, profileID string) (foodLog, symptomLog string) {
	profiles := store.Read(ctx, s.kv, store.KeyUserProfiles, []model.Profile{})
	foods := store.Read(ctx, s.kv, store.KeyFoodEntries, []model.FoodEntry{})
	symptoms := store.Read(ctx, s.kv, store.KeySymptomEntries, []model.SymptomEntry{})

	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.ID] = p.Name
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "Unknown"
	}
	stamp := func(t time.Time) string {
		return t.In(s.loc).Format("2006-01-02 15:04")
	}

	var fb strings.Builder
	for _, f := range foods {
		if profileID != "" && !f.HasProfile(profileID) {
			continue
		}
		owners := make([]string, len(f.ProfileIDs))
		for i, id := range f.ProfileIDs {
			owners[i] = nameOf(id)
		}
		fmt.Fprintf(&fb, "%s - %s (Profiles: %s)\n", stamp(f.Timestamp), f.FoodItems, strings.Join(owners, ", "))
	}

	var sb strings.Builder
	for _, e := range symptoms {
		if profileID != "" && e.ProfileID != profileID {
			continue
		}
		fmt.Fprintf(&sb, "%s - %s (%s, level %d, category: %s", stamp(e.LoggedAt), e.Symptom, e.Severity, e.Severity.Level(), e.Category)
		if e.StartTime != "" {
			fmt.Fprintf(&sb, ", started: %s", e.StartTime)
		}
		if e.Duration != "" {
			fmt.Fprintf(&sb, ", duration: %s", e.Duration)
		}
		fmt.Fprintf(&sb, ") - Profile: %s\n", nameOf(e.ProfileID))
	}

	return strings.TrimSuffix(fb.String(), "\n"), strings.TrimSuffix(sb.String(), "\n")
}

// Analyze runs one request. It returns (nil, nil) when the daily quota is
// used up.
func (s *Service) Analyze(ctx context.Context, req Request) (*model.AiSuggestion, error) {
	if s.llm == nil {
		return nil, ErrDisabled
	}
	if !s.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.sem.Release(1)

	foodLog, symptomLog := s.FormatLogs(ctx, req.ProfileID)
	if req.Kind == TriggerAnalysis && (foodLog == "" || symptomLog == "") {
		return nil, ErrNoData
	}

	prompt, err := buildPrompt(req, foodLog, symptomLog)
	if err != nil {
		return nil, err
	}

	if !s.quota.Increment(ctx, quota.Exports) {
		s.log.Info("analysis rejected by daily limit", "kind", req.Kind)
		return nil, nil
	}

	start := s.clock.Now()
	reply, err := s.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.llm.Name(), err)
	}
	s.log.Debug("model replied", "kind", req.Kind, "model", s.llm.Name(), "elapsed", s.clock.Since(start))

	raw, ok := extractJSON(reply)
	if !ok {
		return nil, ErrNoJSON
	}
	var out model.AiSuggestion
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	if out.PossibleTriggers == nil {
		out.PossibleTriggers = []string{}
	}
	out.CreatedAt = s.clock.Now().UTC()
	return &out, nil
}

// SuggestTriggers analyzes the logs for possible food triggers and keeps the
// result as the latest suggestion.
func (s *Service) SuggestTriggers(ctx context.Context, profileID, extra string) (*model.AiSuggestion, error) {
	out, err := s.Analyze(ctx, Request{Kind: TriggerAnalysis, ProfileID: profileID, Context: extra})
	if err != nil || out == nil {
		return out, err
	}
	s.kv.Write(ctx, store.KeyAISuggestions, out)
	return out, nil
}

// Chat answers a free-form question. The answer is in Response.
func (s *Service) Chat(ctx context.Context, message string) (*model.AiSuggestion, error) {
	if strings.TrimSpace(message) == "" {
		return nil, model.NewValidationError("message", "required")
	}
	return s.Analyze(ctx, Request{Kind: GeneralChat, Message: message})
}

// Latest returns the last stored trigger analysis, or nil.
func (s *Service) Latest(ctx context.Context) *model.AiSuggestion {
	return store.Read[*model.AiSuggestion](ctx, s.kv, store.KeyAISuggestions, nil)
}

// Clear forgets the stored trigger analysis.
func (s *Service) Clear(ctx context.Context) {
	s.kv.Remove(ctx, store.KeyAISuggestions)
}

// extractJSON returns the outermost {...} block of s.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
