package evaluator

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
)

// matches reports whether the user attribute satisfies the comparator.
// Unknown comparators never match.
func matches(c domain.Comparator, attr, comparisonValue string) bool {
	switch c {
	case domain.ComparatorIsOneOf:
		return containsItem(splitList(comparisonValue), attr)

	case domain.ComparatorIsNotOneOf:
		return !containsItem(splitList(comparisonValue), attr)

	case domain.ComparatorContains:
		return strings.Contains(attr, comparisonValue)

	case domain.ComparatorDoesNotContain:
		return !strings.Contains(attr, comparisonValue)

	case domain.ComparatorSemVerIsOneOf, domain.ComparatorSemVerIsNotOneOf:
		return semverOneOf(attr, comparisonValue, c == domain.ComparatorSemVerIsOneOf)

	case domain.ComparatorSemVerLess, domain.ComparatorSemVerLessOrEquals,
		domain.ComparatorSemVerGreater, domain.ComparatorSemVerGreaterOrEquals:
		return semverCompare(c, attr, comparisonValue)

	case domain.ComparatorNumberEquals, domain.ComparatorNumberNotEquals,
		domain.ComparatorNumberLess, domain.ComparatorNumberLessOrEquals,
		domain.ComparatorNumberGreater, domain.ComparatorNumberGreaterOrEquals:
		return numberCompare(c, attr, comparisonValue)

	case domain.ComparatorSensitiveIsOneOf:
		return containsItem(splitList(comparisonValue), sha1Hex(attr))

	case domain.ComparatorSensitiveIsNotOneOf:
		return !containsItem(splitList(comparisonValue), sha1Hex(attr))

	default:
		return false
	}
}

// splitList splits a comma separated comparison value, trimming entries and
// dropping empty ones.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func containsItem(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}

// semverOneOf requires a valid user version and valid list entries; any
// invalid version makes the rule not match.
func semverOneOf(attr, comparisonValue string, want bool) bool {
	v, err := semver.StrictNewVersion(strings.TrimSpace(attr))
	if err != nil {
		return false
	}

	found := false
	for _, item := range splitList(comparisonValue) {
		other, err := semver.StrictNewVersion(item)
		if err != nil {
			return false
		}
		if v.Equal(other) {
			found = true
		}
	}
	return found == want
}

func semverCompare(c domain.Comparator, attr, comparisonValue string) bool {
	v, err := semver.StrictNewVersion(strings.TrimSpace(attr))
	if err != nil {
		return false
	}
	other, err := semver.StrictNewVersion(strings.TrimSpace(comparisonValue))
	if err != nil {
		return false
	}

	cmp := v.Compare(other)
	switch c {
	case domain.ComparatorSemVerLess:
		return cmp < 0
	case domain.ComparatorSemVerLessOrEquals:
		return cmp <= 0
	case domain.ComparatorSemVerGreater:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// numberCompare parses both sides as decimals, accepting a comma as the
// decimal separator. If either side is not a number the comparison is done
// on the raw strings instead.
func numberCompare(c domain.Comparator, attr, comparisonValue string) bool {
	var cmp int

	a, errA := parseNumber(attr)
	b, errB := parseNumber(comparisonValue)
	if errA == nil && errB == nil {
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(strings.TrimSpace(attr), strings.TrimSpace(comparisonValue))
	}

	switch c {
	case domain.ComparatorNumberEquals:
		return cmp == 0
	case domain.ComparatorNumberNotEquals:
		return cmp != 0
	case domain.ComparatorNumberLess:
		return cmp < 0
	case domain.ComparatorNumberLessOrEquals:
		return cmp <= 0
	case domain.ComparatorNumberGreater:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strconv.ParseFloat(s, 64)
}
