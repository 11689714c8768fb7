package kakaomap

import "math"

// WGS84 to WCONGNAMUL (Korea central-meridian TM) conversion. The map
// service addresses everything in WCONGNAMUL, so WGS84 route endpoints
// are projected locally before the request is built.

const (
	grs80A = 6378137.0
	grs80F = 1 / 298.257222101

	// Seven-parameter datum shift between WGS84 and the Korean datum.
	shiftDX = -115.80
	shiftDY = 474.99
	shiftDZ = 674.11
	shiftK  = -6.43e-6
)

var (
	shiftWX = 1.16 * math.Pi / (180 * 3600)
	shiftWY = -2.31 * math.Pi / (180 * 3600)
	shiftWZ = -1.63 * math.Pi / (180 * 3600)
)

// Central-meridian TM projection parameters.
const (
	tmOriginLon    = 127.0
	tmOriginLat    = 38.0
	tmScaleFactor  = 0.9996
	tmFalseEasting = 200000.0
	tmFalseNorth   = 500000.0
)

// WGS84ToWCongnamul projects a WGS84 longitude/latitude pair into
// WCONGNAMUL x/y.
func WGS84ToWCongnamul(longitude, latitude float64) (float64, float64) {
	lon, lat := wgs84ToKoreanDatum(longitude, latitude)
	return geodeticToTM(lon, lat)
}

func wgs84ToKoreanDatum(longitude, latitude float64) (float64, float64) {
	lonRad := longitude * math.Pi / 180
	latRad := latitude * math.Pi / 180

	e2 := 2*grs80F - grs80F*grs80F
	n := grs80A / math.Sqrt(1-e2*math.Sin(latRad)*math.Sin(latRad))

	x := n * math.Cos(latRad) * math.Cos(lonRad)
	y := n * math.Cos(latRad) * math.Sin(lonRad)
	z := n * (1 - e2) * math.Sin(latRad)

	xs := shiftDX + (1+shiftK)*x + shiftWZ*y - shiftWY*z
	ys := shiftDY - shiftWZ*x + (1+shiftK)*y + shiftWX*z
	zs := shiftDZ + shiftWY*x - shiftWX*y + (1+shiftK)*z

	p := math.Sqrt(xs*xs + ys*ys)
	theta := math.Atan(zs * grs80A / (p * grs80A * (1 - grs80F)))

	sin3 := math.Sin(theta) * math.Sin(theta) * math.Sin(theta)
	cos3 := math.Cos(theta) * math.Cos(theta) * math.Cos(theta)
	latNew := math.Atan((zs + e2*grs80A*(1-grs80F)*sin3) / (p - e2*grs80A*cos3))
	lonNew := math.Atan2(ys, xs)

	return lonNew * 180 / math.Pi, latNew * 180 / math.Pi
}

func geodeticToTM(longitude, latitude float64) (float64, float64) {
	e2 := 2*grs80F - grs80F*grs80F
	e4 := e2 * e2
	e6 := e4 * e2

	latRad := latitude * math.Pi / 180
	lonRad := longitude * math.Pi / 180
	lat0 := tmOriginLat * math.Pi / 180
	lon0 := tmOriginLon * math.Pi / 180

	a := grs80A * (1 - e2/4 - 3*e4/64 - 5*e6/256)
	b := grs80A * (3*e2/8 + 3*e4/32 + 45*e6/1024)
	cc := grs80A * (15*e4/256 + 45*e6/1024)
	d := grs80A * (35 * e6 / 3072)

	meridianArc := func(lat float64) float64 {
		return a*lat - b*math.Sin(2*lat) + cc*math.Sin(4*lat) - d*math.Sin(6*lat)
	}
	m := meridianArc(latRad)
	m0 := meridianArc(lat0)

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	nu := grs80A / math.Sqrt(1-e2*sinLat*sinLat)
	rho := grs80A * (1 - e2) / math.Pow(1-e2*sinLat*sinLat, 1.5)
	eta2 := nu/rho - 1

	p := lonRad - lon0
	t := math.Tan(latRad) * math.Tan(latRad)
	c := e2 * cosLat * cosLat / (1 - e2)

	x := tmScaleFactor * nu * (p +
		(1-t+c)*math.Pow(p, 3)/6 +
		(5-18*t+t*t+72*c-58*eta2)*math.Pow(p, 5)/120)
	y := tmScaleFactor * (m - m0 + nu*math.Tan(latRad)*(p*p/2+
		(5-t+9*c+4*c*c)*math.Pow(p, 4)/24+
		(61-58*t+t*t+600*c-330*eta2)*math.Pow(p, 6)/720))

	return x + tmFalseEasting, y + tmFalseNorth
}
