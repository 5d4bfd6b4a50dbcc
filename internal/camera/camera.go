// Package camera implements the pinhole model used to place catalog stars on
// the synthetic image: intrinsics, the visibility test and the projection.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/starrynight/startracker/internal/frame"
)

var (
	// ErrInvalidIntrinsics is returned for a non-positive or non-finite focal
	// length or image dimension.
	ErrInvalidIntrinsics = errors.New("invalid camera intrinsics")
	// ErrBehindCamera is returned by Project when the forward component is not
	// strictly positive.
	ErrBehindCamera = errors.New("direction is not in front of the camera")
)

// DefaultEdgeTolerance keeps projected stars clear of the image border, in
// normalized image-plane units.
const DefaultEdgeTolerance = 0.02

// Intrinsics maps camera-frame rays to pixels.
type Intrinsics struct {
	FocalLength float64 `json:"focalLength"` // pixels
	PrincipalX  float64 `json:"principalX"`
	PrincipalY  float64 `json:"principalY"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// NewIntrinsics builds intrinsics for a fixed focal length and image size,
// with the principal point at the integer image center.
func NewIntrinsics(focalLength float64, width, height int) (Intrinsics, error) {
	k := Intrinsics{
		FocalLength: focalLength,
		PrincipalX:  float64(width / 2),
		PrincipalY:  float64(height / 2),
		Width:       width,
		Height:      height,
	}
	if err := k.Validate(); err != nil {
		return Intrinsics{}, err
	}
	return k, nil
}

// IntrinsicsFromFOV derives intrinsics from a vertical field of view. The
// focal length is 0.5*height/tan(vfov/2) and the width is height/aspect, both
// rounded to whole pixels.
func IntrinsicsFromFOV(verticalFOV float64, height int, aspect float64) (Intrinsics, error) {
	if !(verticalFOV > 0 && verticalFOV < math.Pi) {
		return Intrinsics{}, fmt.Errorf("%w: vertical field of view %g rad", ErrInvalidIntrinsics, verticalFOV)
	}
	if !(aspect > 0) || math.IsInf(aspect, 0) {
		return Intrinsics{}, fmt.Errorf("%w: aspect ratio %g", ErrInvalidIntrinsics, aspect)
	}
	f := math.Round(0.5 * float64(height) / math.Tan(verticalFOV/2))
	width := int(math.Round(float64(height) / aspect))
	return NewIntrinsics(f, width, height)
}

// Validate reports whether every parameter is finite and strictly positive.
func (k Intrinsics) Validate() error {
	if math.IsNaN(k.FocalLength) || math.IsInf(k.FocalLength, 0) || k.FocalLength <= 0 {
		return fmt.Errorf("%w: focal length %g", ErrInvalidIntrinsics, k.FocalLength)
	}
	if k.Width <= 0 || k.Height <= 0 {
		return fmt.Errorf("%w: image %dx%d", ErrInvalidIntrinsics, k.Width, k.Height)
	}
	return nil
}

// HalfExtent returns the normalized image-plane half width and half height.
func (k Intrinsics) HalfExtent() (x, y float64) {
	return float64(k.Width) / 2 / k.FocalLength, float64(k.Height) / 2 / k.FocalLength
}

// VerticalFOV returns the vertical field of view in radians.
func (k Intrinsics) VerticalFOV() float64 {
	return 2 * math.Atan(float64(k.Height)/2/k.FocalLength)
}

// DiagonalFOV returns the full diagonal field of view in radians, the largest
// angle two stars in one image can subtend.
func (k Intrinsics) DiagonalFOV() float64 {
	hx, hy := k.HalfExtent()
	return 2 * math.Atan(math.Hypot(hx, hy))
}

// normalizedRay rotates d into the device frame and divides by the forward
// component. ok is false when the direction is not strictly in front.
func normalizedRay[F frame.Frame](d frame.Direction[F], r frame.Rotation[F, frame.Device]) (x, y float64, ok bool) {
	c := r.Apply(d).Vec()
	if c[2] <= 0 {
		return 0, 0, false
	}
	return c[0] / c[2], c[1] / c[2], true
}

// IsVisible reports whether d lands strictly inside the image, at least
// edgeTolerance (normalized units) away from every border. Directions behind
// the camera or exactly on the image plane are never visible.
func IsVisible[F frame.Frame](d frame.Direction[F], r frame.Rotation[F, frame.Device], k Intrinsics, edgeTolerance float64) bool {
	x, y, ok := normalizedRay(d, r)
	if !ok {
		return false
	}
	hx, hy := k.HalfExtent()
	return math.Abs(x) < hx-edgeTolerance && math.Abs(y) < hy-edgeTolerance
}

// Project returns the pixel d lands on, rounded to the nearest integer.
func Project[F frame.Frame](d frame.Direction[F], r frame.Rotation[F, frame.Device], k Intrinsics) (u, v int, err error) {
	x, y, ok := normalizedRay(d, r)
	if !ok {
		return 0, 0, ErrBehindCamera
	}
	u, v = ProjectRay(x, y, k)
	return u, v, nil
}

// ProjectRay applies the intrinsics to a normalized image-plane ray.
func ProjectRay(x, y float64, k Intrinsics) (u, v int) {
	return int(math.Round(k.FocalLength*x + k.PrincipalX)), int(math.Round(k.FocalLength*y + k.PrincipalY))
}

// Unproject inverts the intrinsics: the returned device-frame direction is
// the ray through pixel (u, v).
func Unproject(u, v float64, k Intrinsics) frame.Direction[frame.Device] {
	ray := frame.Vec{(u - k.PrincipalX) / k.FocalLength, (v - k.PrincipalY) / k.FocalLength, 1}
	// the forward component is 1, so the vector is never zero
	d, _ := frame.NewDirection[frame.Device](ray)
	return d
}
