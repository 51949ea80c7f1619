package readers

import (
	"database/sql"
	"time"
)

// Reader は図書館に登録された利用者
type Reader struct {
	ID           string
	LibraryID    string
	Name         string
	Email        string
	CPF          string
	PasswordHash string
	PictureURL   sql.NullString
	Active       bool
	Suspense     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *Reader) Touch(now time.Time) {
	r.UpdatedAt = now
}

// IsSuspended: 停止カウンタがしきい値に達したら貸出不可
func (r *Reader) IsSuspended(threshold int) bool {
	return r.Suspense >= threshold
}

func (r *Reader) SetPictureURL(url string, now time.Time) {
	r.PictureURL = sql.NullString{String: url, Valid: url != ""}
	r.Touch(now)
}
