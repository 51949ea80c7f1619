package libraries

import "time"

// Library はサービスを利用する図書館アカウント
type Library struct {
	ID           string
	Name         string
	Email        string
	CNPJ         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (l *Library) Touch(now time.Time) {
	l.UpdatedAt = now
}
