package service

import (
	"errors"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409
)

// mapRepoErr lifts repo sentinels to the service ones handlers branch on.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, repo.ErrQuantityLimit):
		return errors.Join(ErrValidation, err)
	case errors.Is(err, repo.ErrConstraint):
		return errors.Join(ErrConflict, err)
	default:
		return err
	}
}
