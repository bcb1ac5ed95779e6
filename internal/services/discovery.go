package services

import (
	"fmt"
	"sort"
	"time"

	"campusoul/internal/models"
	"campusoul/internal/utils"

	"gorm.io/gorm"
)

// DiscoveryService runs the candidate query: age window, geographic
// proximity and exclusion of users the requester already interacted
// with.
type DiscoveryService struct {
	db       *gorm.DB
	pageSize int
}

func NewDiscoveryService(db *gorm.DB, pageSize int) *DiscoveryService {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &DiscoveryService{db: db, pageSize: pageSize}
}

type DiscoveryParams struct {
	RequesterID   uint
	MinAge        int
	MaxAge        int
	Origin        *models.User // requester profile, carries the origin point
	MaxDistanceKm float64
	ExcludeIDs    []uint
	Page          int // 1-based
}

// Candidate is a discovered user with the computed distance from the
// requester's point.
type Candidate struct {
	models.User
	DistanceKm float64 `json:"distance_km"`
}

// FindCandidates translates the age range into a birthdate window,
// fetches everyone in it except the requester and the excluded ids in a
// single query, then filters and orders by haversine distance and
// paginates. An empty page is an empty slice, not an error.
func (s *DiscoveryService) FindCandidates(params DiscoveryParams) ([]Candidate, error) {
	if params.Page < 1 {
		params.Page = 1
	}

	now := time.Now()
	// Born at most (maxAge+1) years ago, at least minAge years ago.
	earliest := now.AddDate(-params.MaxAge-1, 0, 0)
	latest := now.AddDate(-params.MinAge, 0, 0)

	query := s.db.Model(&models.User{}).
		Where("id != ?", params.RequesterID).
		Where("birthdate > ? AND birthdate <= ?", earliest, latest)

	if len(params.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", params.ExcludeIDs)
	}

	var users []models.User
	if err := query.Preload("Interests").Preload("Images").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	candidates := make([]Candidate, 0, len(users))
	withOrigin := params.Origin != nil && params.Origin.HasCoordinates()
	for _, user := range users {
		distance := 0.0
		if withOrigin {
			if !user.HasCoordinates() {
				continue
			}
			distance = utils.HaversineKm(
				*params.Origin.Latitude, *params.Origin.Longitude,
				*user.Latitude, *user.Longitude,
			)
			if params.MaxDistanceKm > 0 && distance > params.MaxDistanceKm {
				continue
			}
		}
		candidates = append(candidates, Candidate{User: user, DistanceKm: distance})
	}

	if withOrigin {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		})
	}

	start := (params.Page - 1) * s.pageSize
	if start >= len(candidates) {
		return []Candidate{}, nil
	}
	end := start + s.pageSize
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start:end], nil
}

// PageSize is the fixed discovery page size.
func (s *DiscoveryService) PageSize() int {
	return s.pageSize
}
