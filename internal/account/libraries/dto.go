package libraries

import "time"

type CreateLibraryRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	CNPJ     string `json:"cnpj" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateLibraryRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	Password *string `json:"password,omitempty" binding:"omitempty,min=8"`
}

type LibraryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CNPJ      string    `json:"cnpj"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func buildLibraryResponse(l *Library) LibraryResponse {
	return LibraryResponse{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		CNPJ:      l.CNPJ,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
