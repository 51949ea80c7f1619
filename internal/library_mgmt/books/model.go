package books

import (
	"database/sql"
	"time"

	"bookio-backend/internal/platform/apperr"
)

type Gender string

// 閉じたジャンル一覧
const (
	GenderFiction        Gender = "Fiction"
	GenderNonFiction     Gender = "NonFiction"
	GenderFantasy        Gender = "Fantasy"
	GenderScienceFiction Gender = "ScienceFiction"
	GenderMystery        Gender = "Mystery"
	GenderRomance        Gender = "Romance"
	GenderThriller       Gender = "Thriller"
	GenderHorror         Gender = "Horror"
	GenderBiography      Gender = "Biography"
	GenderHistory        Gender = "History"
	GenderPoetry         Gender = "Poetry"
	GenderSelfHelp       Gender = "SelfHelp"
)

var genders = map[Gender]struct{}{
	GenderFiction: {}, GenderNonFiction: {}, GenderFantasy: {},
	GenderScienceFiction: {}, GenderMystery: {}, GenderRomance: {},
	GenderThriller: {}, GenderHorror: {}, GenderBiography: {},
	GenderHistory: {}, GenderPoetry: {}, GenderSelfHelp: {},
}

func ParseGender(s string) (Gender, error) {
	g := Gender(s)
	if _, ok := genders[g]; !ok {
		return "", apperr.InvalidArgument("invalid gender: " + s)
	}
	return g, nil
}

// Book は books テーブルの1行を表す
type Book struct {
	ID         string
	LibraryID  string
	Author     string
	Title      string
	ImageURL   sql.NullString
	Gender     Gender
	Year       int
	Available  int
	TotalLoans int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b *Book) Touch(now time.Time) {
	b.UpdatedAt = now
}

// Lend takes one copy. Reports false when no copy is available.
func (b *Book) Lend(now time.Time) bool {
	if b.Available <= 0 {
		return false
	}
	b.Available--
	b.TotalLoans++
	b.Touch(now)
	return true
}

// Return puts one copy back.
func (b *Book) Return(now time.Time) {
	b.Available++
	b.Touch(now)
}

func (b *Book) SetImageURL(url string, now time.Time) {
	b.ImageURL = sql.NullString{String: url, Valid: url != ""}
	b.Touch(now)
}
