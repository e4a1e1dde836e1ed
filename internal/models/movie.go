package models

import (
	"time"
)

// Movie is a submitted suggestion. The primary key is the TMDB id, not a
// locally generated one, so submitting the same movie twice violates the
// primary key and surfaces as a duplicate-key error.
type Movie struct {
	ID           uint      `gorm:"primaryKey;autoIncrement:false" json:"id" example:"550"`
	Title        string    `gorm:"not null;index" json:"title" example:"Fight Club"`
	Description  string    `gorm:"type:text" json:"description" example:"A ticking-time-bomb insomniac..."`
	Image        string    `json:"image" example:"/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg"`
	ReleaseDate  string    `json:"releaseDate" example:"1999-10-15"`
	SubmitterID  string    `gorm:"index;not null" json:"submitter"`
	SubmittedBy  *User     `gorm:"foreignKey:SubmitterID" json:"submittedBy,omitempty"`
	Banned       bool      `gorm:"not null;default:false" json:"banned"`
	Watched      bool      `gorm:"not null;default:false" json:"watched"`
	MovieNightID *uint     `gorm:"index" json:"movieNightId"`
	Votes        []Vote    `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE" json:"votes"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Movie) TableName() string {
	return "movies"
}

// VoteCount is a convenience for sorting merged views.
func (m *Movie) VoteCount() int {
	return len(m.Votes)
}

// HasVoteBy reports whether the given user currently has a vote on the movie.
func (m *Movie) HasVoteBy(userID string) bool {
	for _, v := range m.Votes {
		if v.UserID == userID {
			return true
		}
	}
	return false
}

// Vote is a user's single toggleable endorsement of a movie. The composite
// primary key (movie_id, user_id) is the real mutual-exclusion primitive for
// the toggle's check-then-act race: a second concurrent insert for the same
// pair fails at the store instead of double-counting.
type Vote struct {
	MovieID   uint      `gorm:"primaryKey;autoIncrement:false" json:"movieId"`
	UserID    string    `gorm:"primaryKey" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Vote) TableName() string {
	return "votes"
}
