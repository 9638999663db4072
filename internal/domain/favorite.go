package domain

import (
	"time"

	"github.com/google/uuid"
)

type Favorite struct {
	UserID    uuid.UUID `json:"user_id"`
	EstateID  uuid.UUID `json:"estate_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FavoriteRequest struct {
	EstateID uuid.UUID `json:"estate_id"`
}

func (r *FavoriteRequest) Validate() error {
	var v Validator
	v.Check(r.EstateID != uuid.Nil, "estate_id is required")
	return v.Err()
}
