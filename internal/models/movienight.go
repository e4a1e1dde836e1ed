package models

import "time"

// MovieNight is a scheduled viewing with zero or more assigned movies.
// StartingAt carries a unique index: two nights cannot share a start time,
// and creating an overlapping one fails with a duplicate-key error.
type MovieNight struct {
	ID         uint      `gorm:"primaryKey" json:"id" example:"1"`
	Title      string    `gorm:"not null" json:"title" example:"Movie Night 3"`
	StartingAt time.Time `gorm:"uniqueIndex;not null" json:"startingAt"`
	Completed  bool      `gorm:"not null;default:false" json:"completed"`
	Movies     []Movie   `gorm:"foreignKey:MovieNightID" json:"movies"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (MovieNight) TableName() string {
	return "movie_nights"
}

// MovieNightPatch is a partial update for a movie night. Nil fields are
// left untouched.
type MovieNightPatch struct {
	Title      *string    `json:"title"`
	StartingAt *time.Time `json:"startingAt"`
	Completed  *bool      `json:"completed"`
}
