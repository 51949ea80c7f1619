package readers

import "time"

type CreateReaderRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	CPF   string `json:"cpf" binding:"required"`
}

// 部分更新。suspense は停止解除の手動経路として公開している。
type UpdateReaderRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	CPF      *string `json:"cpf,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	Suspense *int    `json:"suspense,omitempty"`
}

type ReaderResponse struct {
	ID         string    `json:"id"`
	LibraryID  string    `json:"library_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CPF        string    `json:"cpf"`
	PictureURL *string   `json:"picture_url,omitempty"`
	Active     bool      `json:"active"`
	Suspense   int       `json:"suspense"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func buildReaderResponse(r *Reader) ReaderResponse {
	resp := ReaderResponse{
		ID:        r.ID,
		LibraryID: r.LibraryID,
		Name:      r.Name,
		Email:     r.Email,
		CPF:       r.CPF,
		Active:    r.Active,
		Suspense:  r.Suspense,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.PictureURL.Valid {
		val := r.PictureURL.String
		resp.PictureURL = &val
	}
	return resp
}

func buildReaderResponses(items []Reader) []ReaderResponse {
	out := make([]ReaderResponse, 0, len(items))
	for i := range items {
		out = append(out, buildReaderResponse(&items[i]))
	}
	return out
}
