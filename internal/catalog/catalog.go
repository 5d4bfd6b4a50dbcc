// Package catalog defines the star records read from the catalog store and the
// read-only accessor the rest of the module consumes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/starrynight/startracker/internal/frame"
)

// ErrInvalidStar is returned for a record without an identifier or with a
// distance that cannot be used to normalize its position.
var ErrInvalidStar = errors.New("invalid star record")

// Star is one catalog record. ID is the HR number.
type Star struct {
	ID     int     `json:"hr"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Dist   float64 `json:"dist"`
	Mag    float64 `json:"mag"`
	Proper string  `json:"proper,omitempty"`
}

// Direction returns the unit direction to the star in the catalog frame.
func (s Star) Direction() (frame.Direction[frame.Equatorial], error) {
	if s.ID <= 0 {
		return frame.Direction[frame.Equatorial]{}, fmt.Errorf("%w: missing identifier", ErrInvalidStar)
	}
	if !(s.Dist > 0) {
		return frame.Direction[frame.Equatorial]{}, fmt.Errorf("%w: HR %d has distance %g", ErrInvalidStar, s.ID, s.Dist)
	}
	v := frame.Vec{s.X / s.Dist, s.Y / s.Dist, s.Z / s.Dist}
	d, err := frame.NewDirection[frame.Equatorial](v)
	if err != nil {
		return frame.Direction[frame.Equatorial]{}, fmt.Errorf("%w: HR %d: %v", ErrInvalidStar, s.ID, err)
	}
	return d, nil
}

// Filter restricts which records FetchStars returns.
type Filter struct {
	// MaxMagnitude keeps stars strictly brighter than this apparent
	// magnitude. Zero disables the limit.
	MaxMagnitude float64
	// RequireID drops records without an HR number.
	RequireID bool
	// RequirePosition drops records whose distance is not positive.
	RequirePosition bool
}

// Match reports whether s passes the filter.
func (f Filter) Match(s Star) bool {
	if f.MaxMagnitude != 0 && !(s.Mag < f.MaxMagnitude) {
		return false
	}
	if f.RequireID && s.ID <= 0 {
		return false
	}
	if f.RequirePosition && !(s.Dist > 0) {
		return false
	}
	return true
}

// Accessor reads stars from a catalog store.
type Accessor interface {
	FetchStars(ctx context.Context, filter Filter) ([]Star, error)
}

// Memory is an in-memory catalog.
type Memory []Star

// FetchStars returns the matching stars ordered by ID.
func (m Memory) FetchStars(ctx context.Context, filter Filter) ([]Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Star, 0, len(m))
	for _, s := range m {
		if filter.Match(s) {
			out = append(out, s)
		}
	}
	SortByID(out)
	return out, nil
}

// SortByID orders stars by ascending HR number.
func SortByID(stars []Star) {
	sort.SliceStable(stars, func(i, j int) bool { return stars[i].ID < stars[j].ID })
}
