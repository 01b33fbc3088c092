package storage

import "time"

// User is a tracked member and their progress within the current level
type User struct {
	ID           string
	Name         string // last seen display name, used for rendering only
	Exp          int
	Level        int
	NextEligible time.Time
}

// Clone returns a copy of the user
func (u *User) Clone() *User {
	c := *u
	return &c
}

// Setting keys stored in the settings table
const (
	SettingLeaderboardMessageID = "leaderboard_message_id"
)
