// geo/geo.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package geo provides the geographic value types shared by map items,
// overlays, and inbound control commands.
package geo

import (
	"fmt"
	"log/slog"
	gomath "math"

	"github.com/gansidui/geohash"
	golanggeo "github.com/kellydunn/golang-geo"
	"github.com/paulmach/orb"
)

// Point is a WGS84 position. Alt is height above the ellipsoid in meters;
// NaN means that the altitude is unknown.
type Point struct {
	Lat, Lon float64
	Alt      float64
}

func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon, Alt: gomath.NaN()}
}

func NewPointAlt(lat, lon, alt float64) Point {
	return Point{Lat: lat, Lon: lon, Alt: alt}
}

func (p Point) Valid() bool {
	return !gomath.IsNaN(p.Lat) && !gomath.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func (p Point) HasAltitude() bool {
	return !gomath.IsNaN(p.Alt)
}

// DistanceMeters returns the great circle distance between p and q.
func (p Point) DistanceMeters(q Point) float64 {
	a := golanggeo.NewPoint(p.Lat, p.Lon)
	b := golanggeo.NewPoint(q.Lat, q.Lon)
	return 1000 * a.GreatCircleDistance(b)
}

// Geohash returns the geohash of p with the given number of characters.
func (p Point) Geohash(precision int) string {
	h, _ := geohash.Encode(p.Lat, p.Lon, precision)
	return h
}

// GeohashNeighbors returns the geohash of p together with those of the
// eight cells that surround it.
func (p Point) GeohashNeighbors(precision int) []string {
	return geohash.GetNeighbors(p.Lat, p.Lon, precision)
}

// Smallest dimension, in meters, of a geohash cell at each precision.
var geohashCellMeters = [...]float64{5000e3, 625e3, 156e3, 19.5e3, 4.89e3, 610, 153, 19.1, 4.77}

// GeohashPrecision returns the longest geohash precision whose cells are
// at least meters across, so that a circle of that radius around a point
// lies within the point's cell and its neighbors. It returns 0 if even
// the coarsest cells are too small.
func GeohashPrecision(meters float64) int {
	prec := 0
	for i, m := range geohashCellMeters {
		if m >= meters {
			prec = i + 1
		}
	}
	return prec
}

// metersPerDegreeLat is the approximate length of a degree of latitude.
const metersPerDegreeLat = 111_320

// NeighborhoodPrecision returns the geohash precision at which every
// point within meters of p lies in p's cell or one of its neighbors.
// Cells narrow east-west with latitude, so the requirement grows by
// 1/cos(lat). It returns 0, meaning that cells can't be used to bound
// the search, near the poles and the antimeridian where the neighbors
// don't wrap.
func (p Point) NeighborhoodPrecision(meters float64) int {
	cos := gomath.Cos(p.Lat * gomath.Pi / 180)
	if cos < 0.01 {
		return 0
	}
	if gomath.Abs(p.Lat)+meters/metersPerDegreeLat >= 90 {
		return 0
	}
	if gomath.Abs(p.Lon)+meters/(metersPerDegreeLat*cos) >= 180 {
		return 0
	}
	return GeohashPrecision(meters / cos)
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func FromOrb(op orb.Point) Point {
	return NewPoint(op.Lat(), op.Lon())
}

func (p Point) String() string {
	if p.HasAltitude() {
		return fmt.Sprintf("%.6f,%.6f,%.1fm", p.Lat, p.Lon, p.Alt)
	}
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

func (p Point) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Float64("lat", p.Lat), slog.Float64("lon", p.Lon)}
	if p.HasAltitude() {
		attrs = append(attrs, slog.Float64("alt", p.Alt))
	}
	return slog.GroupValue(attrs...)
}

///////////////////////////////////////////////////////////////////////////
// Bounds

// Bounds is a lat-long aligned bounding box.
type Bounds struct {
	orb.Bound
}

// BoundsOf returns the bounds of the given points. ok is false if pts is
// empty.
func BoundsOf(pts []Point) (b Bounds, ok bool) {
	if len(pts) == 0 {
		return Bounds{}, false
	}
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = p.Orb()
	}
	return Bounds{mp.Bound()}, true
}

func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{b.Bound.Union(o.Bound)}
}

func (b Bounds) Center() Point {
	return FromOrb(b.Bound.Center())
}

func (b Bounds) Contains(p Point) bool {
	return b.Bound.Contains(p.Orb())
}

// DiagonalMeters returns the distance between the southwest and northeast
// corners.
func (b Bounds) DiagonalMeters() float64 {
	return FromOrb(b.Min).DistanceMeters(FromOrb(b.Max))
}

///////////////////////////////////////////////////////////////////////////
// Elevation

// ElevationSource is implemented by terrain services that can look up the
// ground elevation at a position.
type ElevationSource interface {
	// Elevation returns the terrain height in meters at the given
	// position; ok is false if no data is available there.
	Elevation(lat, lon float64) (meters float64, ok bool)
}
