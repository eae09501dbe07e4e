package analytics

import (
	"testing"

	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUsers() []model.AdminUser {
	return []model.AdminUser{
		{ID: "1", Name: "Ann", Email: "ann@x.io", Role: "admin", Credits: 10},
		{ID: "2", Name: "Bob", Email: "bob@x.io", Role: "user", Credits: 5},
		{ID: "3", Name: "Cid", Email: "cid@y.io", Role: "user"},
		{ID: "4", Name: "Dee", Email: "dee@y.io", Role: "user", Credits: 1},
		{ID: "5", Name: "Eve", Email: "eve@y.io", Role: "user", Credits: 2},
		{ID: "6", Name: "Fay", Email: "fay@y.io", Role: "user", Credits: 3},
		{ID: "7", Name: "Gus", Email: "gus@y.io", Role: "moderator", Credits: 4},
	}
}

func sampleFeeds() []model.FeedItem {
	return []model.FeedItem{
		{ID: "a", Title: "Go generics", Source: "Hacker News"},
		{ID: "b", Title: "Rust async", Source: "reddit /r/rust"},
		{ID: "c", Title: "Kernel news", Source: "LWN"},
		{ID: "d", Title: "Ask HN", Source: "hacker news"},
	}
}

func TestCompute(t *testing.T) {
	var bounds []int
	a := Compute(sampleUsers(), sampleFeeds(), func(n int) int {
		bounds = append(bounds, n)
		return n - 1
	})
	require.NotNil(t, a)

	assert.Equal(t, UserStats{Total: 7, Admin: 1, Regular: 5}, a.UserStats)
	assert.Equal(t, CreditStats{Total: 25, Average: 4}, a.CreditStats)

	require.Len(t, a.UserFeedRelationship, 5)
	assert.Equal(t, []int{4, 4, 4, 4, 4}, bounds)
	assert.Equal(t, UserFeed{Name: "Ann", FeedsSubscribed: 3, CreditsSpent: 7}, a.UserFeedRelationship[0])
	assert.Equal(t, 4, a.UserFeedRelationship[1].CreditsSpent)
	assert.Equal(t, 0, a.UserFeedRelationship[2].CreditsSpent)

	require.Len(t, a.CreditDistribution, 6)
	assert.Equal(t, NameValue{Name: "Fay", Value: 3}, a.CreditDistribution[5])

	assert.Equal(t, []NameValue{{Name: "Admin", Value: 1}, {Name: "Regular", Value: 5}}, a.RoleDistribution)

	require.Len(t, a.MonthlyTrends, 5)
	assert.Equal(t, MonthTrend{Name: "May", Users: 7, Credits: 25}, a.MonthlyTrends[4])

	assert.Equal(t, []SourceShare{
		{Source: "Hacker News", Count: 2, Percent: 50},
		{Source: "Reddit", Count: 1, Percent: 25},
	}, a.FeedsBySource)

	assert.Equal(t, 4, a.TotalFeeds)
	assert.InDelta(t, 4.0/7.0, a.FeedsPerUser, 1e-9)
	assert.Equal(t, 14, a.AdminPercent)
}

func TestCompute_PlaceholderStaysInRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		a := Compute(sampleUsers(), sampleFeeds(), nil)
		for _, uf := range a.UserFeedRelationship {
			assert.GreaterOrEqual(t, uf.FeedsSubscribed, 0)
			assert.Less(t, uf.FeedsSubscribed, 4)
		}
	}
}

func TestCompute_NeedsBothLists(t *testing.T) {
	assert.Nil(t, Compute(nil, sampleFeeds(), nil))
	assert.Nil(t, Compute(sampleUsers(), nil, nil))
}

func TestCompute_FewUsers(t *testing.T) {
	a := Compute(sampleUsers()[:2], sampleFeeds(), func(int) int { return 0 })
	require.NotNil(t, a)
	assert.Len(t, a.UserFeedRelationship, 2)
	assert.Len(t, a.CreditDistribution, 2)
	assert.Equal(t, 8, a.CreditStats.Average)
}

func TestFilterUsers(t *testing.T) {
	users := sampleUsers()
	assert.Len(t, FilterUsers(users, ""), 7)
	assert.Len(t, FilterUsers(users, "Y.IO"), 5)

	got := FilterUsers(users, "ann")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Empty(t, FilterUsers(users, "zzz"))
}

func TestFilterFeeds(t *testing.T) {
	feeds := sampleFeeds()
	assert.Len(t, FilterFeeds(feeds, "  "), 4)
	assert.Len(t, FilterFeeds(feeds, "HACKER"), 2)
	assert.Len(t, FilterFeeds(feeds, "rust"), 1)
}
