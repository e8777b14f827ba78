package evaluator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/OrlandoBitencourt/flagsnap/internal/telemetry"
)

// Evaluation outcomes reported to telemetry.
const (
	OutcomeDefault    = "default"
	OutcomeTargeting  = "targeting"
	OutcomePercentage = "percentage"
	OutcomeBase       = "base"
)

// Evaluator computes setting values from a snapshot. It performs no I/O and
// never fails: every problem is reported on the result.
type Evaluator struct {
	telemetry telemetry.Provider

	// parsed memoizes the most recently decoded document
	mu     sync.Mutex
	parsed *parsedDocument
}

type parsedDocument struct {
	document string
	settings domain.Settings
	err      error
}

// New creates a new evaluator
func New(tel telemetry.Provider) *Evaluator {
	if tel == nil {
		tel = telemetry.NewNoOp()
	}
	return &Evaluator{telemetry: tel}
}

// Evaluate returns the value of key for user. defaultValue is returned, with
// Err set, when the snapshot is empty, the document cannot be parsed or the
// key is absent. Targeting rules are tried first, in document order, then
// percentage rules, then the setting's own value.
func (e *Evaluator) Evaluate(ctx context.Context, key string, snapshot domain.Snapshot, user *domain.User, defaultValue interface{}) *domain.EvaluationResult {
	start := time.Now()
	result := e.evaluate(key, snapshot, user, defaultValue)

	outcome := OutcomeBase
	switch {
	case result.IsDefaultValue:
		outcome = OutcomeDefault
	case result.MatchedTargetingRule != nil:
		outcome = OutcomeTargeting
	case result.MatchedPercentageRule != nil:
		outcome = OutcomePercentage
	}
	e.telemetry.RecordEvaluation(ctx, key, outcome, time.Since(start))

	return result
}

func (e *Evaluator) evaluate(key string, snapshot domain.Snapshot, user *domain.User, defaultValue interface{}) *domain.EvaluationResult {
	result := &domain.EvaluationResult{
		Key:       key,
		FetchTime: snapshot.FetchedAt(),
	}

	fail := func(err error) *domain.EvaluationResult {
		result.Value = defaultValue
		result.IsDefaultValue = true
		result.Err = err
		result.VariationID = ""
		result.MatchedTargetingRule = nil
		result.MatchedPercentageRule = nil
		return result
	}

	settings, err := e.Settings(snapshot)
	if err != nil {
		return fail(err)
	}

	setting, ok := settings[key]
	if !ok {
		return fail(domain.NewSettingNotFoundError(key, sortedKeys(settings)))
	}

	value := setting.Value
	result.VariationID = setting.VariationID

	hasRules := len(setting.RolloutRules) > 0 || len(setting.RolloutPercentageItems) > 0

	switch {
	case user == nil && hasRules:
		result.Warning = domain.NewUserContextMissingError(key)
		if rule := matchPercentage(key, "", setting.RolloutPercentageItems); rule != nil {
			value = rule.Value
			result.VariationID = rule.VariationID
			result.MatchedPercentageRule = rule
		}

	case user != nil:
		if rule := matchTargeting(setting.RolloutRules, user); rule != nil {
			value = rule.Value
			result.VariationID = rule.VariationID
			result.MatchedTargetingRule = rule
		} else if rule := matchPercentage(key, user.Identifier, setting.RolloutPercentageItems); rule != nil {
			value = rule.Value
			result.VariationID = rule.VariationID
			result.MatchedPercentageRule = rule
		}
	}

	decoded, err := setting.SettingType.Decode(value)
	if err != nil {
		return fail(domain.NewParseError(key, err))
	}

	result.Value = decoded
	return result
}

func matchTargeting(rules []domain.TargetingRule, user *domain.User) *domain.TargetingRule {
	for i := range rules {
		rule := &rules[i]
		attr, ok := user.Attribute(rule.ComparisonAttribute)
		if !ok {
			continue
		}
		if matches(rule.Comparator, attr, rule.ComparisonValue) {
			return rule
		}
	}
	return nil
}

func matchPercentage(key, identifier string, rules []domain.PercentageRule) *domain.PercentageRule {
	if len(rules) == 0 {
		return nil
	}

	b := bucket(key, identifier)
	cumulative := 0
	for i := range rules {
		cumulative += rules[i].Percentage
		if b < cumulative {
			return &rules[i]
		}
	}
	return nil
}

// Settings decodes the snapshot document. An empty snapshot yields
// domain.ErrConfigNotAvailable.
func (e *Evaluator) Settings(snapshot domain.Snapshot) (domain.Settings, error) {
	if snapshot.IsEmpty() {
		return nil, domain.ErrConfigNotAvailable
	}

	doc := snapshot.Document()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.parsed != nil && e.parsed.document == doc {
		return e.parsed.settings, e.parsed.err
	}

	var settings domain.Settings
	err := json.Unmarshal([]byte(doc), &settings)
	if err != nil {
		err = domain.NewParseError("", err)
		settings = nil
	}

	e.parsed = &parsedDocument{document: doc, settings: settings, err: err}
	return settings, err
}

// Keys returns the sorted setting keys of the snapshot.
func (e *Evaluator) Keys(snapshot domain.Snapshot) ([]string, error) {
	settings, err := e.Settings(snapshot)
	if err != nil {
		return nil, err
	}
	return sortedKeys(settings), nil
}

func sortedKeys(settings domain.Settings) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
