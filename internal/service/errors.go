package service

import (
	"errors"

	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

// notFound translates a repository miss into a NOT_FOUND domain error and
// passes every other error through.
func notFound(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

func strPtr(s string) *string {
	return &s
}
