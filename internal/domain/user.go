package domain

import "time"

type User struct {
	UserID       int64     `json:"userId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Username     string    `json:"username"`
	Blocked      bool      `json:"blocked"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActive   time.Time `json:"lastActive"`
	Interactions int64     `json:"interactions"`
}

// UserProfile carries the fields refreshed on every interaction.
type UserProfile struct {
	UserID    int64
	FirstName string
	LastName  string
	Username  string
}

type UserStats struct {
	Total        int64 `json:"total"`
	Active       int64 `json:"active"`
	Blocked      int64 `json:"blocked"`
	RecentActive int64 `json:"recentActive"`
}
