package evaluator

import (
	"context"
	"testing"
	"time"

	"github.com/OrlandoBitencourt/flagsnap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `{
  "debug": {"value": true, "settingType": 0, "rolloutRules": [], "rolloutPercentageItems": []},
  "rollout": {
    "value": "base", "settingType": 1, "variationId": "v-base",
    "rolloutRules": [],
    "rolloutPercentageItems": [
      {"percentage": 20, "value": "A", "variationId": "v-a"},
      {"percentage": 30, "value": "B", "variationId": "v-b"},
      {"percentage": 50, "value": "C", "variationId": "v-c"}
    ]
  },
  "targeted": {
    "value": 1, "settingType": 2,
    "rolloutRules": [
      {"comparisonAttribute": "Email", "comparator": 2, "comparisonValue": "@example.com", "value": 2, "variationId": "v-email"},
      {"comparisonAttribute": "Country", "comparator": 0, "comparisonValue": "Hungary, Austria", "value": 3}
    ],
    "rolloutPercentageItems": [
      {"percentage": 100, "value": 4}
    ]
  },
  "price": {"value": 9.99, "settingType": 3},
  "broken": {"value": "not a bool", "settingType": 0}
}`

func newSnapshot(doc string) domain.Snapshot {
	return domain.NewSnapshot("etag", doc, time.UnixMilli(1700000000000))
}

func evaluate(t *testing.T, key string, user *domain.User, def interface{}) *domain.EvaluationResult {
	t.Helper()
	return New(nil).Evaluate(context.Background(), key, newSnapshot(testDocument), user, def)
}

func TestEvaluate_DebugScenario(t *testing.T) {
	doc := `{"debug":{"value":true,"settingType":0,"rolloutRules":[],"rolloutPercentageItems":[]}}`

	res := New(nil).Evaluate(context.Background(), "debug", newSnapshot(doc), nil, false)

	assert.Equal(t, true, res.Value)
	assert.False(t, res.IsDefaultValue)
	assert.NoError(t, res.Err)
	assert.NoError(t, res.Warning)
}

func TestEvaluate_EmptySnapshot(t *testing.T) {
	res := New(nil).Evaluate(context.Background(), "debug", domain.EmptySnapshot, nil, "fallback")

	assert.Equal(t, "fallback", res.Value)
	assert.True(t, res.IsDefaultValue)
	assert.ErrorIs(t, res.Err, domain.ErrConfigNotAvailable)
}

func TestEvaluate_MalformedDocument(t *testing.T) {
	res := New(nil).Evaluate(context.Background(), "debug", newSnapshot(`{"debug":`), nil, false)

	assert.Equal(t, false, res.Value)
	assert.True(t, domain.IsParseError(res.Err))
}

func TestEvaluate_MissingKeyReturnsDefault(t *testing.T) {
	res := evaluate(t, "nonexistent", domain.NewUser("u"), 42)

	assert.Equal(t, 42, res.Value)
	assert.True(t, res.IsDefaultValue)
	require.True(t, domain.IsSettingNotFound(res.Err))

	var nf *domain.SettingNotFoundError
	require.ErrorAs(t, res.Err, &nf)
	assert.Equal(t, []string{"broken", "debug", "price", "rollout", "targeted"}, nf.AvailableKeys)
}

func TestEvaluate_ValueTypeMismatch(t *testing.T) {
	res := evaluate(t, "broken", nil, true)

	assert.Equal(t, true, res.Value)
	assert.True(t, domain.IsParseError(res.Err))
}

func TestEvaluate_DecodesSettingTypes(t *testing.T) {
	assert.Equal(t, 9.99, evaluate(t, "price", nil, 0.0).Value)
	assert.Equal(t, 4, evaluate(t, "targeted", domain.NewUser("x"), 0).Value)
}

func TestEvaluate_TargetingPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		user      *domain.User
		want      int
		variation string
	}{
		{
			name:      "first matching rule wins",
			user:      &domain.User{Identifier: "u1", Email: "joe@example.com", Country: "Hungary"},
			want:      2,
			variation: "v-email",
		},
		{
			name: "second rule when first attribute missing",
			user: &domain.User{Identifier: "u1", Country: "Austria"},
			want: 3,
		},
		{
			name: "percentage when no rule matches",
			user: &domain.User{Identifier: "u1", Email: "joe@other.org", Country: "Spain"},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(t, "targeted", tt.user, 0)
			require.NoError(t, res.Err)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.variation, res.VariationID)
		})
	}
}

func TestEvaluate_MatchedRuleIsReported(t *testing.T) {
	res := evaluate(t, "targeted", &domain.User{Identifier: "u", Email: "a@example.com"}, 0)
	require.NotNil(t, res.MatchedTargetingRule)
	assert.Equal(t, "Email", res.MatchedTargetingRule.ComparisonAttribute)
	assert.Nil(t, res.MatchedPercentageRule)

	res = evaluate(t, "targeted", &domain.User{Identifier: "u"}, 0)
	assert.Nil(t, res.MatchedTargetingRule)
	require.NotNil(t, res.MatchedPercentageRule)
	assert.Equal(t, 100, res.MatchedPercentageRule.Percentage)
}

func TestEvaluate_MissingUserSkipsTargeting(t *testing.T) {
	res := evaluate(t, "targeted", nil, 0)

	assert.Equal(t, 4, res.Value)
	assert.NoError(t, res.Err)
	assert.True(t, domain.IsUserContextMissing(res.Warning))
	assert.Nil(t, res.MatchedTargetingRule)
}

func TestEvaluate_PercentageBuckets(t *testing.T) {
	// buckets for key "rollout": user-13=0, user-2=14, user-1=19, user-6=46,
	// user-3=57, user-4=94; the empty identifier lands in 21
	tests := []struct {
		identifier string
		want       string
		variation  string
	}{
		{"user-13", "A", "v-a"},
		{"user-2", "A", "v-a"},
		{"user-1", "A", "v-a"},
		{"user-6", "B", "v-b"},
		{"user-3", "C", "v-c"},
		{"user-4", "C", "v-c"},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			res := evaluate(t, "rollout", domain.NewUser(tt.identifier), "default")
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.variation, res.VariationID)
		})
	}

	res := evaluate(t, "rollout", nil, "default")
	assert.Equal(t, "B", res.Value)
	assert.True(t, domain.IsUserContextMissing(res.Warning))
}

func TestEvaluate_PercentageIsDeterministic(t *testing.T) {
	user := domain.NewUser("sticky-user")
	first := evaluate(t, "rollout", user, "default").Value

	for i := 0; i < 50; i++ {
		assert.Equal(t, first, New(nil).Evaluate(context.Background(), "rollout", newSnapshot(testDocument), user, "default").Value)
	}
}

func TestEvaluate_PercentageShortfallFallsBackToBase(t *testing.T) {
	doc := `{"partial":{"value":"base","settingType":1,"rolloutPercentageItems":[{"percentage":10,"value":"low"}]}}`

	// bucket("partial", "user-x") is outside the first 10
	for _, id := range []string{"user-1", "user-2", "user-3"} {
		b := bucket("partial", id)
		res := New(nil).Evaluate(context.Background(), "partial", newSnapshot(doc), domain.NewUser(id), "default")
		if b < 10 {
			assert.Equal(t, "low", res.Value)
		} else {
			assert.Equal(t, "base", res.Value)
		}
	}
}

func TestEvaluate_FetchTimeIsReported(t *testing.T) {
	res := evaluate(t, "debug", nil, false)
	assert.True(t, res.FetchTime.Equal(time.UnixMilli(1700000000000)))
}

func TestKeys(t *testing.T) {
	e := New(nil)

	keys, err := e.Keys(newSnapshot(testDocument))
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "debug", "price", "rollout", "targeted"}, keys)

	_, err = e.Keys(domain.EmptySnapshot)
	assert.ErrorIs(t, err, domain.ErrConfigNotAvailable)
}

func TestSettings_MemoizesLastDocument(t *testing.T) {
	e := New(nil)
	s := newSnapshot(testDocument)

	first, err := e.Settings(s)
	require.NoError(t, err)
	second, err := e.Settings(s)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := e.Settings(newSnapshot(`{"only":{"value":1,"settingType":2}}`))
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestBucket(t *testing.T) {
	assert.Equal(t, 19, bucket("rollout", "user-1"))
	assert.Equal(t, 94, bucket("rollout", "user-4"))
	assert.Equal(t, 21, bucket("rollout", ""))
	assert.Equal(t, 9, bucket("string25Cat25Dog25Falcon25Horse", "a@configcat.com"))

	for i := 0; i < 100; i++ {
		b := bucket("k", string(rune('a'+i%26))+string(rune('0'+i%10)))
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 100)
	}
}
