// Package quota tracks the free tier's daily usage caps.
//
// Counters live under a single day marker. Whenever the marker differs from
// the current local date every counter starts again at zero. Premium accounts
// pass every check but are still counted.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// Type names a daily quota.
type Type string

const (
	FoodEntries    Type = "foodEntries"
	SymptomEntries Type = "symptomEntries"
	Exports        Type = "exports"
)

const dateLayout = "2006-01-02"

// PremiumChecker reports whether premium privileges currently apply.
type PremiumChecker interface {
	IsActive(ctx context.Context) bool
}

// DefaultLimits returns the free-tier caps.
func DefaultLimits(today string) model.UsageLimits {
	return model.UsageLimits{
		DailyFoodEntries:    1,
		DailySymptomEntries: 1,
		DailyExports:        1,
		MaxProfiles:         1,
		LastResetDate:       today,
	}
}

// Tracker enforces the daily caps.
type Tracker struct {
	kv      *store.Adapter
	premium PremiumChecker
	clock   clockwork.Clock
	loc     *time.Location
	log     *slog.Logger

	mu sync.Mutex
}

// NewTracker creates a Tracker. loc decides where the local day starts; nil
// means time.Local.
func NewTracker(kv *store.Adapter, premium PremiumChecker, clock clockwork.Clock, loc *time.Location, log *slog.Logger) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		kv:      kv,
		premium: premium,
		clock:   clock,
		loc:     loc,
		log:     log.With("component", "quota"),
	}
}

// Today returns the current local date marker.
func (t *Tracker) Today() string {
	return t.clock.Now().In(t.loc).Format(dateLayout)
}

// state loads limits and usage for today. On a day change the counters are
// reset; persist controls whether the reset is written back.
func (t *Tracker) state(ctx context.Context, persist bool) (model.UsageLimits, model.DailyUsage) {
	today := t.Today()
	limits := store.Read(ctx, t.kv, store.KeyUsageLimits, DefaultLimits(today))
	usage := store.Read(ctx, t.kv, store.KeyDailyUsage, model.DailyUsage{Date: today})

	if limits.LastResetDate == today && usage.Date == today {
		return limits, usage
	}

	limits.LastResetDate = today
	usage = model.DailyUsage{Date: today}
	if persist {
		err := t.kv.WriteMany(ctx, map[string]any{
			store.KeyUsageLimits: limits,
			store.KeyDailyUsage:  usage,
		})
		if err != nil && !errors.Is(err, store.ErrUnavailable) {
			t.log.Error("persist daily reset", "error", err)
		} else {
			t.log.Debug("daily usage reset", "date", today)
		}
	}
	return limits, usage
}

func capFor(l model.UsageLimits, typ Type) int {
	switch typ {
	case FoodEntries:
		return l.DailyFoodEntries
	case SymptomEntries:
		return l.DailySymptomEntries
	default:
		return l.DailyExports
	}
}

func countPtr(u *model.DailyUsage, typ Type) *int {
	switch typ {
	case FoodEntries:
		return &u.FoodEntries
	case SymptomEntries:
		return &u.SymptomEntries
	default:
		return &u.Exports
	}
}

// CanIncrement reports whether Increment would succeed. It writes nothing.
func (t *Tracker) CanIncrement(ctx context.Context, typ Type) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.premium.IsActive(ctx) {
		return true
	}
	limits, usage := t.state(ctx, false)
	return *countPtr(&usage, typ) < capFor(limits, typ)
}

// Increment consumes one unit of typ. It returns false, and changes nothing,
// when the cap is reached.
func (t *Tracker) Increment(ctx context.Context, typ Type) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	limits, usage := t.state(ctx, true)
	count := countPtr(&usage, typ)

	if !t.premium.IsActive(ctx) && *count >= capFor(limits, typ) {
		t.log.Info("daily limit reached", "type", typ, "limit", capFor(limits, typ))
		return false
	}

	*count++
	err := t.kv.WriteMany(ctx, map[string]any{store.KeyDailyUsage: usage})
	if err != nil && !errors.Is(err, store.ErrUnavailable) {
		t.log.Error("persist usage", "type", typ, "error", err)
		return false
	}
	return true
}

// CanCreateProfile reports whether another profile may be added given the
// current profile count.
func (t *Tracker) CanCreateProfile(ctx context.Context, current int) bool {
	if t.premium.IsActive(ctx) {
		return true
	}
	t.mu.Lock()
	limits, _ := t.state(ctx, false)
	t.mu.Unlock()
	return current < limits.MaxProfiles
}

// Usage returns today's counters.
func (t *Tracker) Usage(ctx context.Context) model.DailyUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, usage := t.state(ctx, true)
	return usage
}

// Limits returns the configured caps.
func (t *Tracker) Limits(ctx context.Context) model.UsageLimits {
	t.mu.Lock()
	defer t.mu.Unlock()
	limits, _ := t.state(ctx, true)
	return limits
}

// SetLimits replaces the caps. The day marker is kept.
func (t *Tracker) SetLimits(ctx context.Context, l model.UsageLimits) error {
	if l.DailyFoodEntries < 0 || l.DailySymptomEntries < 0 || l.DailyExports < 0 || l.MaxProfiles < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	current, _ := t.state(ctx, true)
	l.LastResetDate = current.LastResetDate
	t.kv.Write(ctx, store.KeyUsageLimits, l)
	return nil
}

// Count is either a number or unlimited. It encodes to JSON as a number or
// the string "unlimited".
type Count struct {
	Unlimited bool
	N         int
}

func (c Count) MarshalJSON() ([]byte, error) {
	if c.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(c.N)
}

func (c *Count) UnmarshalJSON(b []byte) error {
	if string(b) == `"unlimited"` {
		*c = Count{Unlimited: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("remaining count: %w", err)
	}
	*c = Count{N: n}
	return nil
}

func (c Count) String() string {
	if c.Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(c.N)
}

// Remaining is what is left of today's quotas.
type Remaining struct {
	FoodEntries    Count `json:"foodEntries"`
	SymptomEntries Count `json:"symptomEntries"`
	Exports        Count `json:"exports"`
	Profiles       Count `json:"profiles"`
}

// Remaining reports cap minus usage, floored at zero, for each quota. profiles
// is the current number of profiles.
func (t *Tracker) Remaining(ctx context.Context, profiles int) Remaining {
	if t.premium.IsActive(ctx) {
		u := Count{Unlimited: true}
		return Remaining{FoodEntries: u, SymptomEntries: u, Exports: u, Profiles: u}
	}

	t.mu.Lock()
	limits, usage := t.state(ctx, true)
	t.mu.Unlock()

	left := func(limit, used int) Count {
		return Count{N: max(0, limit-used)}
	}
	return Remaining{
		FoodEntries:    left(limits.DailyFoodEntries, usage.FoodEntries),
		SymptomEntries: left(limits.DailySymptomEntries, usage.SymptomEntries),
		Exports:        left(limits.DailyExports, usage.Exports),
		Profiles:       left(limits.MaxProfiles, profiles),
	}
}
