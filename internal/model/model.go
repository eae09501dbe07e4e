// Package model defines shared data structures.
package model

// Role values returned by the backend.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// FeedItem is a single piece of syndicated content, identified by ID.
type FeedItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
	Link   string `json:"link"`
}

// SessionUser is the user object cached alongside the token at login.
type SessionUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the cached role grants the admin console.
func (u SessionUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is the login result returned by POST /api/auth/login.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// Profile is the authenticated user's record from GET /api/users/me.
// It is owned by the backend; the dashboard only reads it.
type Profile struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Credits     int        `json:"credits"`
	SavedFeeds  []FeedItem `json:"savedFeeds"`
	ActivityLog []string   `json:"activityLog"`
}

// RecentActivity returns at most the last n activity entries.
func (p *Profile) RecentActivity(n int) []string {
	if len(p.ActivityLog) <= n {
		return p.ActivityLog
	}
	return p.ActivityLog[len(p.ActivityLog)-n:]
}

// ProfileUpdate is the partial body of PUT /api/users/me/me.
// Nil fields are left out of the request.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Credit   *int    `json:"credit,omitempty"`
}

// AdminUser is one entry of GET /api/admin/users.
type AdminUser struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Credits int    `json:"credits,omitempty"`
}

// Initial returns the first letter of the user's name for avatars.
func (u AdminUser) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return "?"
}

// UserChange is the body of PUT /api/admin/users/change.
type UserChange struct {
	Email  string `json:"email"`
	Credit int    `json:"credit"`
	Role   string `json:"role"`
}

// SavedEntry is one row of the dashboard's merged saved list.
// Removable is true only for entries held in the local cache.
type SavedEntry struct {
	FeedItem
	Removable bool
}
