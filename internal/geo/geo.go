// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package geo provides the geospatial primitives used by route monitoring:
// great-circle distance, distance from a point to a planned route, and the
// fuzzing helpers used when sharing locations outside the service.
//
// All distances are in meters. All functions are pure and safe for
// concurrent use.
package geo

import (
	"math"
	"math/rand/v2"
	"time"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// metersPerDegreeLat is the approximate length of one degree of latitude.
const metersPerDegreeLat = 111320.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HaversineDistance calculates the great-circle distance between two points
// using the Haversine formula. Returns distance in meters.
func HaversineDistance(a, b Point) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLon := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	// Rounding can push h marginally outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// DistanceToPolyline returns the minimum distance in meters from p to any
// segment of line. Each segment is projected in a local equirectangular
// frame centred on p and the projection is clamped to the segment's
// endpoints; the distance to the projected point is then measured with
// HaversineDistance.
//
// A single-point line yields the distance to that point. An empty line
// yields +Inf.
func DistanceToPolyline(p Point, line []Point) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return HaversineDistance(p, line[0])
	}

	best := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		if d := distanceToSegment(p, line[i], line[i+1]); d < best {
			best = d
		}
	}
	return best
}

// distanceToSegment never returns more than the distance to either endpoint.
func distanceToSegment(p, a, b Point) float64 {
	cosLat := math.Cos(p.Lat * math.Pi / 180)

	// Planar coordinates relative to p, in degrees scaled for longitude.
	ax, ay := (a.Lng-p.Lng)*cosLat, a.Lat-p.Lat
	bx, by := (b.Lng-p.Lng)*cosLat, b.Lat-p.Lat
	dx, dy := bx-ax, by-ay

	best := math.Min(HaversineDistance(p, a), HaversineDistance(p, b))

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return best
	}

	t := -(ax*dx + ay*dy) / lenSq
	if t <= 0 || t >= 1 {
		return best
	}

	q := Point{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
	return math.Min(best, HaversineDistance(p, q))
}

// FuzzyLocation returns a point drawn uniformly from the disc of
// radiusMeters around (lat, lng). The offset never exceeds the radius.
func FuzzyLocation(lat, lng, radiusMeters float64) Point {
	return FuzzyLocationWithRand(rand.Float64, lat, lng, radiusMeters)
}

// FuzzyLocationWithRand is FuzzyLocation with an injectable source of
// uniform [0, 1) values.
func FuzzyLocationWithRand(uniform func() float64, lat, lng, radiusMeters float64) Point {
	if radiusMeters <= 0 {
		return Point{Lat: lat, Lng: lng}
	}

	// sqrt(u) gives a uniform-in-area radius.
	r := radiusMeters * math.Sqrt(uniform())
	theta := 2 * math.Pi * uniform()

	northMeters := r * math.Cos(theta)
	eastMeters := r * math.Sin(theta)

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}

	return Point{
		Lat: lat + northMeters/metersPerDegreeLat,
		Lng: lng + eastMeters/(metersPerDegreeLat*cosLat),
	}
}

// RoundTime rounds t to the nearest multiple of interval. Halfway values
// round up. A non-positive interval returns t unchanged.
func RoundTime(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return t
	}
	return t.Round(interval)
}
