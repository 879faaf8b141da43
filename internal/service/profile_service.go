package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gift-store/internal/domain"
	"gift-store/internal/repository"
)

// ProfileInput is the settings form. Blank values clear the field.
type ProfileInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

// ProfileService reads and saves contact details
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	Save(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.Profile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

// NewProfileService creates a new instance of ProfileService
func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// Get returns the stored profile, or an empty one when none was saved yet
func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return &domain.Profile{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// Save upserts the profile
func (s *profileService) Save(ctx context.Context, userID uuid.UUID, input ProfileInput) (*domain.Profile, error) {
	profile := &domain.Profile{
		UserID:   userID,
		FullName: trimmedOrNil(input.FullName),
		Phone:    trimmedOrNil(input.Phone),
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
