package statement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akumol/guardian/internal/models"
)

const sampleStatement = `
ACME BANK STATEMENT

01/02 Netflix.com 15.99
01/02 Coffee Corner 4.50
01/05 Spotify AB 11.99
01/09 Grocery Mart 84.12
02/02 Netflix.com 15.99
02/05 Spotify AB 11.99
02/11 Grocery Mart 132.45
02/15 One Off Electronics 499.00
Closing Balance 1,203.45
`

func TestDetectRecurringFindsRepeatedCharges(t *testing.T) {
	subs := DetectRecurring(sampleStatement)

	names := make(map[string]models.TrackedSubscription)
	for _, s := range subs {
		names[s.Name] = s
	}

	require.Contains(t, names, "Netflix.com")
	require.Contains(t, names, "Spotify AB")
	assert.InDelta(t, 15.99, names["Netflix.com"].MonthlyAmount, 0.01)
	assert.InDelta(t, 11.99, names["Spotify AB"].MonthlyAmount, 0.01)

	for _, s := range subs {
		assert.Equal(t, models.SubscriptionSourceStatement, s.Source)
		assert.NotEmpty(t, s.ID)
	}
}

func TestDetectRecurringIgnoresOneOffsAndVariableSpend(t *testing.T) {
	subs := DetectRecurring(sampleStatement)

	for _, s := range subs {
		assert.NotEqual(t, "One Off Electronics", s.Name, "single charges are not subscriptions")
		assert.NotEqual(t, "Grocery Mart", s.Name, "widely varying amounts are not subscriptions")
		assert.NotContains(t, s.Name, "Balance", "statement noise lines are skipped")
	}
}

func TestDetectRecurringToleratesSmallPriceDrift(t *testing.T) {
	text := `
01/01 Gym Membership 29.99
02/01 Gym Membership 31.50
`
	subs := DetectRecurring(text)
	require.Len(t, subs, 1)
	assert.Equal(t, "Gym Membership", subs[0].Name)
}

func TestDetectRecurringEmptyText(t *testing.T) {
	assert.Empty(t, DetectRecurring(""))
	assert.Empty(t, DetectRecurring("no charges here"))
}

func TestMergeSubscriptionsPreservesManualEntries(t *testing.T) {
	now := time.Now().UTC()
	existing := []models.TrackedSubscription{
		{ID: "sub_gym", Name: "Gym Membership", MonthlyAmount: 25.00, Source: models.SubscriptionSourceManual},
		{ID: "sub_netflix", Name: "Netflix.com", MonthlyAmount: 13.99, Source: models.SubscriptionSourceStatement, LastSeen: now.AddDate(0, -2, 0)},
	}
	detected := []models.TrackedSubscription{
		{ID: "sub_gym_membership", Name: "Gym Membership", MonthlyAmount: 30.00, Source: models.SubscriptionSourceStatement, LastSeen: now},
		{ID: "sub_netflixcom", Name: "Netflix.com", MonthlyAmount: 15.99, Source: models.SubscriptionSourceStatement, LastSeen: now},
		{ID: "sub_spotify_ab", Name: "Spotify AB", MonthlyAmount: 11.99, Source: models.SubscriptionSourceStatement, LastSeen: now},
	}

	merged := mergeSubscriptions(existing, detected)
	require.Len(t, merged, 3)

	byName := make(map[string]models.TrackedSubscription)
	for _, s := range merged {
		byName[s.Name] = s
	}

	assert.InDelta(t, 25.00, byName["Gym Membership"].MonthlyAmount, 0.01, "manual entries win over detection")
	assert.InDelta(t, 15.99, byName["Netflix.com"].MonthlyAmount, 0.01, "statement entries refresh in place")
	assert.Equal(t, now, byName["Netflix.com"].LastSeen)
	assert.Contains(t, byName, "Spotify AB")
}
