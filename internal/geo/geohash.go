// Package geo implements geohash encoding and the neighbourhood lookups used
// to show drivers the pending bookings picked up near them.
//
// A geohash encodes a latitude/longitude pair into a short string; nearby
// points share a prefix. Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m
//	3 → ~156 km     6 → ~1.2 km
//
// Pickup cells are stored at precision 5 by default, so a 3x3 area around a
// driver covers roughly 15 km x 15 km.
package geo

import (
	"strings"
)

const (
	base32           = "0123456789bcdefghjkmnpqrstuvwxyz"
	DefaultPrecision = 5
	maxPrecision     = 12
)

type parity int

const (
	even parity = iota
	odd
)

// Neighbour and border tables indexed by direction and hash-length parity.
var (
	base32Map = map[byte]int{}
	neighbors = map[string][2]string{
		"n": {"p0r21436x8zb9dcf5h7kjnmqesgutwvy", "bc01fg45238967deuvhjyznpkmstqrwx"},
		"s": {"14365h7k9dcfesgujnmqp0r2twvyx8zb", "238967debc01fg45kmstqrwxuvhjyznp"},
		"e": {"bc01fg45238967deuvhjyznpkmstqrwx", "p0r21436x8zb9dcf5h7kjnmqesgutwvy"},
		"w": {"238967debc01fg45kmstqrwxuvhjyznp", "14365h7k9dcfesgujnmqp0r2twvyx8zb"},
	}
	borders = map[string][2]string{
		"n": {"prxz", "bcfguvyz"},
		"s": {"028b", "0145hjnp"},
		"e": {"bcfguvyz", "prxz"},
		"w": {"0145hjnp", "028b"},
	}
)

func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// Encode converts latitude and longitude to a geohash of the given precision.
// Bits alternate between longitude (first) and latitude; each five bits form
// one base32 character.
func Encode(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	if precision > maxPrecision {
		precision = maxPrecision
	}

	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	isLon := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isLon {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isLon = !isLon
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// Decode returns the centre of the cell a geohash names. Characters outside
// the alphabet are skipped.
func Decode(hash string) (lat, lon float64) {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0
	isLon := true

	for i := 0; i < len(hash); i++ {
		cd, ok := base32Map[hash[i]]
		if !ok {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isLon {
				mid := (minLon + maxLon) / 2
				if bit == 1 {
					minLon = mid
				} else {
					maxLon = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isLon = !isLon
		}
	}

	return (minLat + maxLat) / 2, (minLon + maxLon) / 2
}

// Neighbor returns the adjacent cell in direction "n", "s", "e" or "w",
// recursing into the parent when the last character sits on a border.
func Neighbor(hash string, direction string) string {
	if len(hash) == 0 {
		return ""
	}

	hash = strings.ToLower(hash)
	last := hash[len(hash)-1]
	parent := hash[:len(hash)-1]

	p := odd
	if len(hash)%2 == 0 {
		p = even
	}

	if strings.IndexByte(borders[direction][p], last) >= 0 && len(parent) > 0 {
		parent = Neighbor(parent, direction)
	}

	idx := strings.IndexByte(neighbors[direction][p], last)
	if idx < 0 {
		return hash
	}
	return parent + string(base32[idx])
}

// AllNeighbors returns the centre followed by its 8 surrounding cells.
func AllNeighbors(hash string) []string {
	n, s := Neighbor(hash, "n"), Neighbor(hash, "s")
	return []string{
		hash,
		n,
		s,
		Neighbor(hash, "e"),
		Neighbor(hash, "w"),
		Neighbor(n, "e"),
		Neighbor(n, "w"),
		Neighbor(s, "e"),
		Neighbor(s, "w"),
	}
}

// Area is the 3x3 block of cells around a point at a fixed precision.
type Area struct {
	precision int
	cells     map[string]struct{}
}

// AreaAround builds the Area centred on lat/lon.
func AreaAround(lat, lon float64, precision int) Area {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	a := Area{precision: precision, cells: make(map[string]struct{}, 9)}
	for _, c := range AllNeighbors(Encode(lat, lon, precision)) {
		a.cells[c] = struct{}{}
	}
	return a
}

// Contains reports whether hash falls inside the area. Hashes longer than
// the area precision are truncated; shorter ones never match.
func (a Area) Contains(hash string) bool {
	if len(hash) < a.precision {
		return false
	}
	_, ok := a.cells[strings.ToLower(hash[:a.precision])]
	return ok
}
