package geo

import (
	"math"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lon       float64
		precision int
		want      string
	}{
		{
			name:      "San Francisco",
			lat:       37.7749,
			lon:       -122.4194,
			precision: 6,
			want:      "9q8yyk",
		},
		{
			name:      "Bengaluru",
			lat:       12.9716,
			lon:       77.5946,
			precision: 6,
			want:      "tdr1v9",
		},
		{
			name:      "Default precision",
			lat:       12.9716,
			lon:       77.5946,
			precision: 0,
			want:      "tdr1v",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.lat, tt.lon, tt.precision)
			if got != tt.want {
				t.Errorf("Encode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		lat float64
		lon float64
	}{
		{37.7749, -122.4194},
		{12.9716, 77.5946},
		{-33.8688, 151.2093},
		{35.6762, 139.6503},
	}

	for _, tc := range testCases {
		hash := Encode(tc.lat, tc.lon, 8)
		decodedLat, decodedLon := Decode(hash)

		tolerance := 0.001
		if math.Abs(decodedLat-tc.lat) > tolerance {
			t.Errorf("Round trip failed for lat: original %v, decoded %v", tc.lat, decodedLat)
		}
		if math.Abs(decodedLon-tc.lon) > tolerance {
			t.Errorf("Round trip failed for lon: original %v, decoded %v", tc.lon, decodedLon)
		}
	}
}

func TestNeighbor(t *testing.T) {
	tests := []struct {
		hash, dir, want string
	}{
		{"9q8yyk", "n", "9q8yym"},
		{"9q8yyk", "s", "9q8yy7"},
		{"9q8yyk", "e", "9q8yys"},
		{"9q8yyk", "w", "9q8yyh"},
		{"tdr1v", "n", "tdr4j"},
		{"tdr1v", "s", "tdr1t"},
		{"tdr1v", "e", "tdr1y"},
		{"tdr1v", "w", "tdr1u"},
	}

	for _, tt := range tests {
		if got := Neighbor(tt.hash, tt.dir); got != tt.want {
			t.Errorf("Neighbor(%s, %s) = %s, want %s", tt.hash, tt.dir, got, tt.want)
		}
	}
}

func TestAllNeighbors(t *testing.T) {
	want := []string{"tdr1v", "tdr4j", "tdr1t", "tdr1y", "tdr1u", "tdr4n", "tdr4h", "tdr1w", "tdr1s"}
	got := AllNeighbors("tdr1v")

	if len(got) != len(want) {
		t.Fatalf("Expected %d cells, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestArea_Contains(t *testing.T) {
	area := AreaAround(12.9716, 77.5946, 5)

	if !area.Contains("tdr1v9") {
		t.Error("Expected centre cell (longer hash) to be contained")
	}
	if !area.Contains("tdr1w") {
		t.Error("Expected south-east neighbour to be contained")
	}
	// Chennai is ~290 km away.
	if area.Contains(Encode(13.0827, 80.2707, 5)) {
		t.Error("Expected distant cell not to be contained")
	}
	if area.Contains("tdr") {
		t.Error("Expected a hash shorter than the precision not to match")
	}
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Encode(12.9716, 77.5946, 6)
	}
}
