package catalogue

import "math"

// Azimuth returns the azimuth in degrees from (lon1, lat1) to (lon2, lat2)
// on a sphere, measured clockwise from north. The arctangent solution is
// shifted into the correct quadrant by comparing the colatitudes and
// longitudes of the two points.
func Azimuth(lon1, lat1, lon2, lat2 float64) float64 {
	const degrad = math.Pi / 180

	colat1 := 90 - lat1
	colat2 := 90 - lat2
	a := lon1 * degrad
	b := colat1 * degrad
	x := lon2 * degrad
	y := colat2 * degrad

	azim := math.Atan(math.Sin(x-a) / (math.Sin(b)*math.Cos(y)/math.Sin(y) - math.Cos(b)*math.Cos(x-a)))

	switch {
	case lon2 > lon1 && colat2 < colat1:
		// first quadrant, no adjustment
	case colat2 > colat1:
		azim += math.Pi
	case lon2 < lon1 && colat2 < colat1:
		azim += 2 * math.Pi
	}

	return azim / degrad
}
