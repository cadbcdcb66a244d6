package handler

import (
	"errors"

	"testhub/backend/internal/apperr"
	identityservice "testhub/backend/internal/identity/service"
)

func mapUserErr(err error) error {
	if errors.Is(err, identityservice.ErrUserNotFound) {
		return apperr.NotFound("user")
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	return apperr.Internal(err)
}
