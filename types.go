package flagsnap

import (
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// User is the evaluation context for targeting and percentage rules.
// Identifier seeds percentage bucketing; Email, Country and Custom
// attributes are matched by targeting rules.
type User = domain.User

// Snapshot is an immutable downloaded configuration document.
type Snapshot = domain.Snapshot

// TargetingRule and PercentageRule are the rule types reported on
// EvaluationDetails.
type (
	TargetingRule  = domain.TargetingRule
	PercentageRule = domain.PercentageRule
)

// NewUser creates a user with the given identifier.
//
// Example:
//
//	user := flagsnap.NewUser("user-123")
//	user.Email = "jane@example.com"
//	user.Custom = map[string]string{"plan": "pro"}
func NewUser(identifier string) *User {
	return domain.NewUser(identifier)
}

// EvaluationDetails describes how a value was chosen.
type EvaluationDetails struct {
	Key   string
	Value interface{}

	// VariationID identifies the served variation, if the document sets one.
	VariationID string

	// IsDefaultValue is true when the caller's default was returned.
	IsDefaultValue bool

	// FetchTime is when the evaluated document was downloaded.
	FetchTime time.Time

	// At most one of these is set.
	MatchedTargetingRule  *TargetingRule
	MatchedPercentageRule *PercentageRule

	// Error explains why the default value was returned.
	Error error

	// Warning is a non-fatal condition, e.g. a missing user.
	Warning error
}

func toDetails(r *domain.EvaluationResult) EvaluationDetails {
	return EvaluationDetails{
		Key:                   r.Key,
		Value:                 r.Value,
		VariationID:           r.VariationID,
		IsDefaultValue:        r.IsDefaultValue,
		FetchTime:             r.FetchTime,
		MatchedTargetingRule:  r.MatchedTargetingRule,
		MatchedPercentageRule: r.MatchedPercentageRule,
		Error:                 r.Err,
		Warning:               r.Warning,
	}
}

// Metrics represents cache store counters.
type Metrics struct {
	CacheHits      uint64
	CacheMisses    uint64
	CacheSets      uint64
	CacheSetErrors uint64

	// LastFetch is when this client last downloaded a new document. Zero if
	// it never has.
	LastFetch time.Time
}
