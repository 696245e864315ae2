package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
)

type RepairerProfileInput struct {
	DisplayName string
	Bio         string
	PhoneNumber string
	Skills      []string
	Categories  []string
	ServiceArea float64
	Location    *model.GeoPoint
}

type RepairerService interface {
	Get(ctx context.Context, id string) (*model.RepairerProfile, error)
	// Upsert creates or edits the caller's own profile. Rating and counters are
	// left as stored.
	Upsert(ctx context.Context, actor Actor, in RepairerProfileInput) (*model.RepairerProfile, error)
}

type repairerService struct {
	repo repository.RepairerRepository
}

func NewRepairerService(repo repository.RepairerRepository) RepairerService {
	return &repairerService{repo: repo}
}

func (s *repairerService) Get(ctx context.Context, id string) (*model.RepairerProfile, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	return p, nil
}

func (s *repairerService) Upsert(ctx context.Context, actor Actor, in RepairerProfileInput) (*model.RepairerProfile, error) {
	if actor.UID == "" {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, invalid("displayName", "is required")
	}
	if in.ServiceArea < 0 {
		return nil, invalid("serviceArea", "must be positive")
	}
	for _, c := range in.Categories {
		if !model.IsRepairerCategory(c) {
			return nil, invalid("categories", "unknown category "+c)
		}
	}
	if in.Location != nil && !in.Location.Valid() {
		return nil, invalid("location", "latitude/longitude out of range")
	}

	p, err := s.repo.FindByID(ctx, actor.UID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		p = &model.RepairerProfile{ID: actor.UID}
	}
	p.DisplayName = name
	p.Bio = strings.TrimSpace(in.Bio)
	p.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	p.Skills = in.Skills
	p.Categories = in.Categories
	p.ServiceArea = in.ServiceArea
	if p.ServiceArea == 0 {
		p.ServiceArea = model.DefaultServiceAreaKm
	}
	if in.Location != nil {
		p.Location = in.Location
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
