package services

import (
	"context"
	"errors"
	"time"

	"github.com/GregMSThompson/finance-ledger/internal/dto"
	"github.com/GregMSThompson/finance-ledger/internal/errs"
	"github.com/GregMSThompson/finance-ledger/internal/models"
	"github.com/GregMSThompson/finance-ledger/pkg/helpers"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

type profileStore interface {
	Get(ctx context.Context, uid string) (models.Profile, error)
	Upsert(ctx context.Context, p models.Profile) (models.Profile, error)
}

type profileService struct {
	store    profileStore
	clockNow func() time.Time
}

func NewProfileService(store profileStore) *profileService {
	return &profileService{
		store:    store,
		clockNow: time.Now,
	}
}

// Get returns the caller's profile, or an empty one before the first save.
func (s *profileService) Get(ctx context.Context, uid string) (models.Profile, error) {
	p, err := s.store.Get(ctx, uid)
	var nf *errs.NotFoundError
	if errors.As(err, &nf) {
		return models.Profile{ID: uid}, nil
	}
	return p, err
}

func (s *profileService) Update(ctx context.Context, uid string, req dto.UpdateProfileRequest) (models.Profile, error) {
	log := logger.FromContext(ctx)

	username := helpers.OptString(req.Username)
	if username != nil && len(*username) < 3 {
		return models.Profile{}, errs.NewValidationError("username", "username must be at least 3 characters")
	}

	p, err := s.store.Upsert(ctx, models.Profile{
		ID:        uid,
		Username:  username,
		FullName:  helpers.OptString(req.FullName),
		AvatarURL: helpers.OptString(req.AvatarURL),
		UpdatedAt: s.clockNow(),
	})
	if err != nil {
		log.Error("failed to save profile", "error", err)
		return models.Profile{}, err
	}

	log.Info("profile updated")
	return p, nil
}
