// Package v1 contains the v1 JSON format for scene ground truth and the
// ledger export of the memory backend.
package v1

import (
	"time"

	"github.com/starrynight/startracker/internal/scene"
)

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure of a ledger export
type Export struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Catalog    Catalog   `json:"catalog"`
	Index      Index     `json:"index"`
	Scenes     []Scene   `json:"scenes"`
}

// Catalog summarises the loaded catalog
type Catalog struct {
	Stars        int     `json:"stars"`
	BrightestMag float64 `json:"brightestMag"`
	FaintestMag  float64 `json:"faintestMag"`
}

// Index holds the angular-distance index as [star1, star2, angleRad] rows
type Index struct {
	Pairs    int          `json:"pairs"`
	MinAngle float64      `json:"minAngle"`
	MaxAngle float64      `json:"maxAngle"`
	Rows     [][3]float64 `json:"rows"`
}

// Camera is the pinhole model a scene was rendered with
type Camera struct {
	FocalLength float64 `json:"focalLength"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	VerticalFOV float64 `json:"verticalFovDeg"`
}

// Scene is the ground truth of one rendered image. Stars are in scan order.
type Scene struct {
	ID             uint                  `json:"id,omitempty"`
	Variant        string                `json:"variant"`
	Seed           uint64                `json:"seed"`
	RequestedCount int                   `json:"requestedCount"`
	Exact          bool                  `json:"exact"`
	NoiseMaxAngle  float64               `json:"noiseMaxAngleDeg,omitempty"`
	Camera         Camera                `json:"camera"`
	Attitude       [3][3]float64         `json:"attitude"`
	Quaternion     [4]float64            `json:"quaternion"`
	Observer       *[3]float64           `json:"observerEcef,omitempty"`
	Visible        int                   `json:"visible"`
	Drawn          int                   `json:"drawn"`
	Skipped        int                   `json:"skipped"`
	Image          string                `json:"image,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	Stars          []scene.ProjectedStar `json:"stars"`
}
