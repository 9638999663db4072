package repository

import (
	"fmt"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/database"
)

var uniqueMessages = map[string]string{
	"users_email_key":  "email is already in use",
	"users_handle_key": "username is already taken",
	"users_phone_key":  "phone number is already in use",
	"favorites_pkey":   "estate is already in favorites",
}

// translate maps constraint violations onto domain errors and leaves
// everything else wrapped with op.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	code, constraint := database.PgErrorCode(err)
	switch code {
	case database.UniqueViolation:
		if msg, ok := uniqueMessages[constraint]; ok {
			return domain.ErrDuplicate.WithMessage(msg).Wrap(err)
		}
		return domain.ErrDuplicate.Wrap(err)
	case database.ExclusionViolation:
		return domain.ErrOverlap.Wrap(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
