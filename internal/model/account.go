package model

import (
	"time"

	"github.com/google/uuid"
)

type PlayerAccount struct {
	UUID               uuid.UUID `db:"uuid" json:"uuid"`
	Name               string    `db:"name" json:"name"`
	Rank               string    `db:"rank" json:"rank"`
	PlayedTodaySeconds int64     `db:"played_today" json:"playedTodaySeconds"`
	LastResetDate      time.Time `db:"last_reset_date" json:"lastResetDate"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateAccountParams struct {
	UUID uuid.UUID
	Name string
	Rank string
}

// SameDay reports whether two instants fall on the same calendar date in
// the given instants' locations.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOf truncates an instant to midnight of its calendar date, keeping
// the location. Used when stamping last_reset_date and granted_date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
