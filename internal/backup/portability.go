package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/store"
)

// FormatVersion tags exported documents. Documents without a version are
// read as the legacy flat layout.
const FormatVersion = "2.0"

// Metadata summarizes an exported document.
type Metadata struct {
	TotalFoodEntries    int             `json:"totalFoodEntries"`
	TotalSymptomEntries int             `json:"totalSymptomEntries"`
	TotalProfiles       int             `json:"totalProfiles"`
	DataIntegrity       IntegrityReport `json:"dataIntegrity"`
}

// Data is the payload of an exported document.
type Data struct {
	FoodEntries    []model.FoodEntry    `json:"foodEntries"`
	SymptomEntries []model.SymptomEntry `json:"symptomEntries"`
	UserProfiles   []model.Profile      `json:"userProfiles"`
	AppSettings    model.AppSettings    `json:"appSettings"`
	PremiumStatus  model.PremiumStatus  `json:"premiumStatus"`
	UsageLimits    model.UsageLimits    `json:"usageLimits"`
	BackupSettings model.BackupSettings `json:"backupSettings"`
}

// Document is the versioned export envelope.
type Document struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  Metadata  `json:"metadata"`
	Data      Data      `json:"data"`
}

// Export writes the whole diary as an indented JSON document.
func (e *Engine) Export(ctx context.Context, w io.Writer) (*Document, error) {
	snap := e.snapshot(ctx)
	doc := &Document{
		Version:   FormatVersion,
		Timestamp: e.clock.Now().UTC(),
		Metadata: Metadata{
			TotalFoodEntries:    len(snap.FoodEntries),
			TotalSymptomEntries: len(snap.SymptomEntries),
			TotalProfiles:       len(snap.UserProfiles),
			DataIntegrity:       CheckIntegrity(snap.FoodEntries, snap.SymptomEntries, snap.UserProfiles),
		},
		Data: Data{
			FoodEntries:    snap.FoodEntries,
			SymptomEntries: snap.SymptomEntries,
			UserProfiles:   snap.UserProfiles,
			AppSettings:    snap.AppSettings,
			PremiumStatus:  store.Read(ctx, e.kv, store.KeyPremiumStatus, model.PremiumStatus{}),
			UsageLimits:    store.Read(ctx, e.kv, store.KeyUsageLimits, model.UsageLimits{}),
			BackupSettings: e.Settings(ctx),
		},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	return doc, nil
}

// ImportResult describes an applied import.
type ImportResult struct {
	Version        string `json:"version"`
	FoodEntries    int    `json:"foodEntries"`
	SymptomEntries int    `json:"symptomEntries"`
	Profiles       int    `json:"profiles"`
	AppSettings    bool   `json:"appSettings"`
}

type record = map[string]any

// Symptom enums as written by the German web app.
var (
	legacyCategories = map[string]model.SymptomCategory{
		"Hautreaktionen":   model.CategorySkin,
		"Magen-Darm":       model.CategoryGastro,
		"Atmung":           model.CategoryRespiratory,
		"Allgemeinzustand": model.CategoryGeneral,
	}
	legacySeverities = map[string]model.Severity{
		"Leicht": model.SeverityMild,
		"Mittel": model.SeverityModerate,
		"Schwer": model.SeveritySevere,
	}
)

// checkSymptomEnums rewrites legacy category and severity names in rec to
// the closed English values and reports anything else outside the sets.
func checkSymptomEnums(verr *model.ValidationError, prefix string, rec record) {
	if v, ok := rec["category"].(string); ok && v != "" {
		if c, legacy := legacyCategories[v]; legacy {
			rec["category"] = string(c)
		} else if !model.ValidCategories[model.SymptomCategory(v)] {
			verr.Add(prefix+".category", fmt.Sprintf("invalid value %q", v))
		}
	}
	if v, ok := rec["severity"].(string); ok && v != "" {
		if sv, legacy := legacySeverities[v]; legacy {
			rec["severity"] = string(sv)
		} else if !model.ValidSeverities[model.Severity(v)] {
			verr.Add(prefix+".severity", fmt.Sprintf("invalid value %q", v))
		}
	}
}

func requireValues(verr *model.ValidationError, prefix string, rec record, fields ...string) {
	for _, f := range fields {
		v, ok := rec[f]
		if !ok || v == nil {
			verr.Add(prefix+"."+f, "required")
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			verr.Add(prefix+"."+f, "required")
		}
	}
}

// requireStrings checks that fields are present as strings; empty is allowed.
func requireStrings(verr *model.ValidationError, prefix string, rec record, fields ...string) {
	for _, f := range fields {
		if _, ok := rec[f].(string); !ok {
			verr.Add(prefix+"."+f, "required")
		}
	}
}

func decodeCollection[T any](verr *model.ValidationError, name string, raw json.RawMessage, check func(prefix string, rec record)) []T {
	if len(raw) == 0 || string(raw) == "null" {
		verr.Add(name, "missing")
		return nil
	}
	var recs []record
	if err := json.Unmarshal(raw, &recs); err != nil {
		verr.Add(name, "must be an array of objects")
		return nil
	}
	before := len(verr.Errors)
	for i, rec := range recs {
		check(fmt.Sprintf("%s[%d]", name, i), rec)
	}
	if len(verr.Errors) > before {
		return nil
	}
	normalized, err := json.Marshal(recs)
	if err != nil {
		verr.Add(name, err.Error())
		return nil
	}
	out := []T{}
	if err := json.Unmarshal(normalized, &out); err != nil {
		verr.Add(name, err.Error())
		return nil
	}
	return out
}

// Import replaces profiles, food entries and symptom entries with the
// content of a document produced by Export or by the legacy flat layout.
// App settings are replaced when the document carries them. Premium status
// and usage limits in the document are ignored. Every record is validated
// first; nothing is written unless all of them pass.
func (e *Engine) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var top map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&top); err != nil {
		return ImportResult{}, model.NewValidationError("document", "not a JSON object: "+err.Error())
	}

	res := ImportResult{Version: "legacy"}
	payload := top
	if raw, ok := top["version"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil || v != FormatVersion {
			return ImportResult{}, model.NewValidationError("version", fmt.Sprintf("unsupported version %s", string(raw)))
		}
		var data map[string]json.RawMessage
		if err := json.Unmarshal(top["data"], &data); err != nil || data == nil {
			return ImportResult{}, model.NewValidationError("data", "missing")
		}
		payload = data
		res.Version = v
	}

	verr := &model.ValidationError{}
	foods := decodeCollection[model.FoodEntry](verr, "foodEntries", payload["foodEntries"], func(p string, rec record) {
		requireValues(verr, p, rec, "id", "timestamp", "foodItems")
		if _, ok := rec["profileIds"].([]any); !ok {
			verr.Add(p+".profileIds", "must be an array")
		}
	})
	symptoms := decodeCollection[model.SymptomEntry](verr, "symptomEntries", payload["symptomEntries"], func(p string, rec record) {
		requireValues(verr, p, rec, "id", "loggedAt", "symptom", "category", "severity", "profileId")
		requireStrings(verr, p, rec, "startTime", "duration")
		checkSymptomEnums(verr, p, rec)
	})
	profiles := decodeCollection[model.Profile](verr, "userProfiles", payload["userProfiles"], func(p string, rec record) {
		requireValues(verr, p, rec, "id", "name")
	})

	var settings *model.AppSettings
	if raw, ok := payload["appSettings"]; ok && string(raw) != "null" {
		settings = &model.AppSettings{}
		if err := json.Unmarshal(raw, settings); err != nil {
			verr.Add("appSettings", "must be an object")
		}
	}

	if err := verr.OrNil(); err != nil {
		e.log.Warn("import rejected", "errors", len(verr.Errors))
		return ImportResult{}, err
	}

	values := map[string]any{
		store.KeyFoodEntries:    foods,
		store.KeySymptomEntries: symptoms,
		store.KeyUserProfiles:   profiles,
	}
	if settings != nil {
		values[store.KeyAppSettings] = *settings
		res.AppSettings = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.kv.WriteMany(ctx, values); err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	res.FoodEntries = len(foods)
	res.SymptomEntries = len(symptoms)
	res.Profiles = len(profiles)
	e.log.Info("import applied", "version", res.Version,
		"foods", res.FoodEntries, "symptoms", res.SymptomEntries, "profiles", res.Profiles)
	return res, nil
}
