package books

import "time"

// 蔵書登録リクエスト
type CreateBookRequest struct {
	Author    string `json:"author" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Gender    string `json:"gender" binding:"required"`
	Year      int    `json:"year" binding:"required"`
	Available int    `json:"available" binding:"min=0"`
}

// 蔵書更新リクエスト（部分更新）
type UpdateBookRequest struct {
	Author    *string `json:"author,omitempty"`
	Title     *string `json:"title,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Available *int    `json:"available,omitempty"`
}

type BookResponse struct {
	ID         string    `json:"id"`
	LibraryID  string    `json:"library_id"`
	Author     string    `json:"author"`
	Title      string    `json:"title"`
	ImageURL   *string   `json:"image_url,omitempty"`
	Gender     Gender    `json:"gender"`
	Year       int       `json:"year"`
	Available  int       `json:"available"`
	TotalLoans int       `json:"total_loans"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func buildBookResponse(b *Book) BookResponse {
	resp := BookResponse{
		ID:         b.ID,
		LibraryID:  b.LibraryID,
		Author:     b.Author,
		Title:      b.Title,
		Gender:     b.Gender,
		Year:       b.Year,
		Available:  b.Available,
		TotalLoans: b.TotalLoans,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if b.ImageURL.Valid {
		val := b.ImageURL.String
		resp.ImageURL = &val
	}
	return resp
}
