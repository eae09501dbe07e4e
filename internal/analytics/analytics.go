// Package analytics computes the admin console's display-only statistics.
package analytics

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/hpratapsigh/creator-dashboard/internal/model"
)

// Sources broken out in FeedsBySource.
var Sources = []string{"Hacker News", "Reddit"}

// UserStats counts users by role.
type UserStats struct {
	Total   int
	Admin   int
	Regular int
}

// CreditStats sums credits over all users. Average is rounded.
type CreditStats struct {
	Total   int
	Average int
}

// UserFeed pairs a user with placeholder engagement numbers.
type UserFeed struct {
	Name string
	// FeedsSubscribed is random and not derived from real data.
	FeedsSubscribed int
	CreditsSpent    int
}

// NameValue is one labelled chart value.
type NameValue struct {
	Name  string
	Value int
}

// MonthTrend is one month of the trends chart.
type MonthTrend struct {
	Name    string
	Users   int
	Credits int
}

// SourceShare is how many feed items come from one source.
type SourceShare struct {
	Source  string
	Count   int
	Percent float64
}

// Analytics is the full analytics tab.
type Analytics struct {
	UserStats            UserStats
	CreditStats          CreditStats
	UserFeedRelationship []UserFeed
	CreditDistribution   []NameValue
	RoleDistribution     []NameValue
	MonthlyTrends        []MonthTrend
	FeedsBySource        []SourceShare
	TotalFeeds           int
	FeedsPerUser         float64
	// AdminPercent is the admin share of users, rounded, for the role chart.
	AdminPercent int
}

// Compute returns nil unless both lists are non-empty. intn supplies the
// placeholder FeedsSubscribed values; nil uses math/rand.
func Compute(users []model.AdminUser, feeds []model.FeedItem, intn func(n int) int) *Analytics {
	if len(users) == 0 || len(feeds) == 0 {
		return nil
	}
	if intn == nil {
		intn = rand.IntN
	}

	a := &Analytics{TotalFeeds: len(feeds)}

	a.UserStats.Total = len(users)
	for _, u := range users {
		switch u.Role {
		case model.RoleAdmin:
			a.UserStats.Admin++
		case model.RoleUser:
			a.UserStats.Regular++
		}
		a.CreditStats.Total += u.Credits
	}
	a.CreditStats.Average = int(math.Round(float64(a.CreditStats.Total) / float64(a.UserStats.Total)))

	for _, u := range head(users, 5) {
		a.UserFeedRelationship = append(a.UserFeedRelationship, UserFeed{
			Name:            u.Name,
			FeedsSubscribed: intn(len(feeds)),
			CreditsSpent:    int(math.Round(float64(u.Credits) * 0.7)),
		})
	}
	for _, u := range head(users, 6) {
		a.CreditDistribution = append(a.CreditDistribution, NameValue{Name: u.Name, Value: u.Credits})
	}

	a.RoleDistribution = []NameValue{
		{Name: "Admin", Value: a.UserStats.Admin},
		{Name: "Regular", Value: a.UserStats.Regular},
	}

	// Jan-Apr are fixed sample values; May is live.
	a.MonthlyTrends = []MonthTrend{
		{Name: "Jan", Users: 20, Credits: 540},
		{Name: "Feb", Users: 35, Credits: 620},
		{Name: "Mar", Users: 45, Credits: 750},
		{Name: "Apr", Users: 60, Credits: 890},
		{Name: "May", Users: a.UserStats.Total, Credits: a.CreditStats.Total},
	}

	for _, src := range Sources {
		needle := strings.ToLower(src)
		count := 0
		for _, f := range feeds {
			if strings.Contains(strings.ToLower(f.Source), needle) {
				count++
			}
		}
		a.FeedsBySource = append(a.FeedsBySource, SourceShare{
			Source:  src,
			Count:   count,
			Percent: float64(count) / float64(len(feeds)) * 100,
		})
	}

	a.FeedsPerUser = float64(len(feeds)) / float64(a.UserStats.Total)
	a.AdminPercent = int(math.Round(float64(a.UserStats.Admin) / float64(a.UserStats.Total) * 100))
	return a
}

func head(users []model.AdminUser, n int) []model.AdminUser {
	if len(users) < n {
		return users
	}
	return users[:n]
}

// FilterUsers keeps users whose name or email contains q, ignoring case.
func FilterUsers(users []model.AdminUser, q string) []model.AdminUser {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return users
	}
	var out []model.AdminUser
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out
}

// FilterFeeds keeps items whose title or source contains q, ignoring case.
func FilterFeeds(feeds []model.FeedItem, q string) []model.FeedItem {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return feeds
	}
	var out []model.FeedItem
	for _, f := range feeds {
		if strings.Contains(strings.ToLower(f.Title), q) || strings.Contains(strings.ToLower(f.Source), q) {
			out = append(out, f)
		}
	}
	return out
}
