package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Settings is the parsed configuration document, keyed by setting key.
type Settings map[string]Setting

// Setting represents a single feature flag or configuration value with its
// evaluation rules.
type Setting struct {
	Value                  json.RawMessage  `json:"value"`
	SettingType            SettingType      `json:"settingType"`
	VariationID            string           `json:"variationId"`
	RolloutRules           []TargetingRule  `json:"rolloutRules"`
	RolloutPercentageItems []PercentageRule `json:"rolloutPercentageItems"`
}

// TargetingRule overrides the setting value when the comparator matches the
// named user attribute.
type TargetingRule struct {
	ComparisonAttribute string          `json:"comparisonAttribute"`
	Comparator          Comparator      `json:"comparator"`
	ComparisonValue     string          `json:"comparisonValue"`
	Value               json.RawMessage `json:"value"`
	VariationID         string          `json:"variationId"`
}

// PercentageRule assigns a value to a slice of the 0-100 bucket range.
type PercentageRule struct {
	Percentage  int             `json:"percentage"`
	Value       json.RawMessage `json:"value"`
	VariationID string          `json:"variationId"`
}

// SettingType is the declared type of a setting value.
type SettingType int

const (
	SettingTypeBool SettingType = iota
	SettingTypeString
	SettingTypeInt
	SettingTypeDouble
)

func (t SettingType) String() string {
	switch t {
	case SettingTypeBool:
		return "boolean"
	case SettingTypeString:
		return "string"
	case SettingTypeInt:
		return "int"
	case SettingTypeDouble:
		return "double"
	default:
		return fmt.Sprintf("SettingType(%d)", int(t))
	}
}

// Decode converts a raw JSON value into the Go type for this setting type:
// bool, string, int or float64.
func (t SettingType) Decode(raw json.RawMessage) (interface{}, error) {
	switch t {
	case SettingTypeBool:
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	case SettingTypeString:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case SettingTypeInt:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		return int(f), nil
	case SettingTypeDouble:
		var v float64
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown setting type %d", int(t))
	}
}

// Comparator identifies how a targeting rule compares a user attribute with
// its comparison value. Values follow the config_v5 document format.
type Comparator int

const (
	ComparatorIsOneOf Comparator = iota
	ComparatorIsNotOneOf
	ComparatorContains
	ComparatorDoesNotContain
	ComparatorSemVerIsOneOf
	ComparatorSemVerIsNotOneOf
	ComparatorSemVerLess
	ComparatorSemVerLessOrEquals
	ComparatorSemVerGreater
	ComparatorSemVerGreaterOrEquals
	ComparatorNumberEquals
	ComparatorNumberNotEquals
	ComparatorNumberLess
	ComparatorNumberLessOrEquals
	ComparatorNumberGreater
	ComparatorNumberGreaterOrEquals
	ComparatorSensitiveIsOneOf
	ComparatorSensitiveIsNotOneOf
)

var comparatorNames = map[Comparator]string{
	ComparatorIsOneOf:               "IS ONE OF",
	ComparatorIsNotOneOf:            "IS NOT ONE OF",
	ComparatorContains:              "CONTAINS",
	ComparatorDoesNotContain:        "DOES NOT CONTAIN",
	ComparatorSemVerIsOneOf:         "IS ONE OF (SemVer)",
	ComparatorSemVerIsNotOneOf:      "IS NOT ONE OF (SemVer)",
	ComparatorSemVerLess:            "< (SemVer)",
	ComparatorSemVerLessOrEquals:    "<= (SemVer)",
	ComparatorSemVerGreater:         "> (SemVer)",
	ComparatorSemVerGreaterOrEquals: ">= (SemVer)",
	ComparatorNumberEquals:          "= (Number)",
	ComparatorNumberNotEquals:       "<> (Number)",
	ComparatorNumberLess:            "< (Number)",
	ComparatorNumberLessOrEquals:    "<= (Number)",
	ComparatorNumberGreater:         "> (Number)",
	ComparatorNumberGreaterOrEquals: ">= (Number)",
	ComparatorSensitiveIsOneOf:      "IS ONE OF (Sensitive)",
	ComparatorSensitiveIsNotOneOf:   "IS NOT ONE OF (Sensitive)",
}

func (c Comparator) String() string {
	if name, ok := comparatorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Comparator(%d)", int(c))
}

// EvaluationResult is the outcome of evaluating one setting.
type EvaluationResult struct {
	Key            string
	Value          interface{}
	VariationID    string
	IsDefaultValue bool
	FetchTime      time.Time

	MatchedTargetingRule  *TargetingRule
	MatchedPercentageRule *PercentageRule

	// Err is set when the default value was returned because evaluation
	// could not produce one.
	Err error

	// Warning is a non-fatal condition observed during evaluation.
	Warning error
}
