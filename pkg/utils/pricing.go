package utils

import (
	"math"
	"time"

	"github.com/spf13/cast"

	"uturn/internal/domain/entities"
)

const (
	EarthRadiusKm = 6371.0

	RoundTripMultiplier = 1.8
	RentalMultiplier    = 2.5
)

// FareInput is everything the calculator needs besides the rate card.
type FareInput struct {
	DistanceKm   float64
	TripType     entities.TripType
	WaitingMins  int
	ExtraCharges float64
	// Elapsed is the trip duration; only solo rides use it.
	Elapsed time.Duration
}

// BookingFare computes the settled total of a vendor booking. Only round and
// rental trips carry a multiplier; other trip types pass through unchanged.
func BookingFare(rates entities.FareInputs, in FareInput) float64 {
	total := rates.BaseFare + in.DistanceKm*rates.PerKmRate
	switch in.TripType {
	case entities.TripTypeRound:
		total *= RoundTripMultiplier
	case entities.TripTypeRental:
		total *= RentalMultiplier
	}
	total += waitingCharge(rates, in.WaitingMins)
	total += in.ExtraCharges
	return math.Round(total)
}

// SoloFare computes the settled total of a solo ride. Instead of a trip type
// multiplier it adds driver and night allowances per started day.
func SoloFare(rates entities.FareInputs, in FareInput) float64 {
	total := rates.BaseFare + in.DistanceKm*rates.PerKmRate
	days := TripDays(in.Elapsed)
	total += rates.DriverAllowance * float64(days)
	total += rates.NightAllowance * float64(days)
	total += waitingCharge(rates, in.WaitingMins)
	total += in.ExtraCharges
	return math.Round(total)
}

// Fare picks the formula for the job's kind.
func Fare(kind entities.JobKind, rates entities.FareInputs, in FareInput) float64 {
	if kind == entities.JobKindSolo {
		return SoloFare(rates, in)
	}
	return BookingFare(rates, in)
}

// TripDays is the number of started 24h periods, at least one.
func TripDays(elapsed time.Duration) int {
	days := int(math.Ceil(float64(elapsed) / float64(24*time.Hour)))
	if days < 1 {
		return 1
	}
	return days
}

func waitingCharge(rates entities.FareInputs, mins int) float64 {
	if mins <= 0 {
		return 0
	}
	return rates.WaitingChargesPerHour / 60 * float64(mins)
}

// CoerceAmount converts a client-supplied amount that may arrive as a number
// or a numeric string. Anything unparseable counts as 0.
func CoerceAmount(v interface{}) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Quote is the pre-trip estimate for a job over km kilometres, with no
// waiting time or extras.
func Quote(j *entities.Job, km float64) float64 {
	return Fare(j.Kind, j.Fare, FareInput{DistanceKm: km, TripType: j.TripType})
}

// EstimateDistance returns the straight-line distance between pickup and drop,
// or 0 when either side has no coordinates.
func EstimateDistance(pickup, drop entities.Place) float64 {
	if !pickup.HasCoordinates() || !drop.HasCoordinates() {
		return 0
	}
	d := HaversineDistance(pickup.Latitude, pickup.Longitude, drop.Latitude, drop.Longitude)
	return math.Round(d*100) / 100
}

// HaversineDistance calculates the distance between two points in kilometers
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}
