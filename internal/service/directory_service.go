package service

import (
	"context"
	"sort"

	"github.com/shinyyama/quickfix-backend/internal/geo"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
)

const (
	DefaultSearchRadiusKm = 50.0
	// distances below this count as the same spot regardless of radius
	nearbyEpsilonKm = 0.0001
)

type NearbyRepairer struct {
	Profile    model.RepairerProfile
	DistanceKm float64
}

type NearbyRequest struct {
	Request    model.RepairRequest
	DistanceKm float64
}

type DirectoryService interface {
	FindNearby(ctx context.Context, origin model.GeoPoint, radiusKm float64, category string) ([]NearbyRepairer, error)
	AvailableRequests(ctx context.Context, repairerID string) ([]NearbyRequest, error)
}

type directoryService struct {
	repairers     repository.RepairerRepository
	requests      repository.RequestRepository
	defaultRadius float64
}

func NewDirectoryService(repairers repository.RepairerRepository, requests repository.RequestRepository, defaultRadiusKm float64) DirectoryService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultSearchRadiusKm
	}
	return &directoryService{repairers: repairers, requests: requests, defaultRadius: defaultRadiusKm}
}

func (s *directoryService) FindNearby(ctx context.Context, origin model.GeoPoint, radiusKm float64, category string) ([]NearbyRepairer, error) {
	if !origin.Valid() {
		return nil, invalid("location", "latitude/longitude out of range")
	}
	if category != "" && !model.IsRepairerCategory(category) {
		return nil, invalid("category", "unknown category")
	}
	if radiusKm <= 0 {
		radiusKm = s.defaultRadius
	}
	profiles, err := s.repairers.List(ctx)
	if err != nil {
		return nil, err
	}
	return MatchRepairers(origin, radiusKm, category, profiles), nil
}

// MatchRepairers keeps profiles whose location is within both the search
// radius and their own service area, optionally filtered by category, nearest
// first. Profiles without a location are skipped.
func MatchRepairers(origin model.GeoPoint, radiusKm float64, category string, profiles []model.RepairerProfile) []NearbyRepairer {
	out := make([]NearbyRepairer, 0)
	for _, p := range profiles {
		if p.Location == nil {
			continue
		}
		d := geo.DistanceKm(origin.Latitude, origin.Longitude, p.Location.Latitude, p.Location.Longitude)
		if !within(d, radiusKm) || !within(d, p.ServiceAreaKm()) {
			continue
		}
		if category != "" && !p.Handles(category) {
			continue
		}
		out = append(out, NearbyRepairer{Profile: p, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

func within(d, limitKm float64) bool {
	return d <= limitKm || d < nearbyEpsilonKm
}

func (s *directoryService) AvailableRequests(ctx context.Context, repairerID string) ([]NearbyRequest, error) {
	profile, err := s.repairers.FindByID(ctx, repairerID)
	if err != nil {
		return nil, readErr(err)
	}
	if profile.Location == nil {
		return nil, invalid("location", "set your workshop location to see nearby jobs")
	}
	list, err := s.requests.ListByStatus(ctx, model.OpenPoolStatuses)
	if err != nil {
		return nil, err
	}
	return MatchRequests(*profile, list), nil
}

// MatchRequests filters open requests down to the ones a repairer can take:
// unassigned or preassigned to them, inside their service area, and in one of
// their categories (a profile without categories takes everything).
func MatchRequests(profile model.RepairerProfile, requests []model.RepairRequest) []NearbyRequest {
	out := make([]NearbyRequest, 0)
	if profile.Location == nil {
		return out
	}
	for _, req := range requests {
		if req.RepairerID != "" && req.RepairerID != profile.ID {
			continue
		}
		if req.RequesterID == profile.ID {
			continue
		}
		d := geo.DistanceKm(profile.Location.Latitude, profile.Location.Longitude, req.Location.Latitude, req.Location.Longitude)
		if !within(d, profile.ServiceAreaKm()) {
			continue
		}
		if len(profile.Categories) > 0 && !profile.Handles(req.Category) {
			continue
		}
		out = append(out, NearbyRequest{Request: req, DistanceKm: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}
