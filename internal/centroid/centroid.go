// package centroid reduces profile-mode spectra to discrete peaks.
package centroid

import "github.com/desertthunder/mzsearch/internal/models"

// LocalMaxima picks every local intensity maximum above NoiseLevel.
//
// A flat top spanning several points yields one peak at its first point.
type LocalMaxima struct {
	NoiseLevel float64
}

// Centroid returns the local maxima of the scan's profile points in m/z order.
func (d LocalMaxima) Centroid(scan *models.Scan) []models.DataPoint {
	if scan == nil {
		return nil
	}

	points := scan.DataPoints
	var peaks []models.DataPoint

	ascending := true
	top := -1
	for i := range points {
		var prev float64
		if i > 0 {
			prev = points[i-1].Intensity
		}

		switch cur := points[i].Intensity; {
		case cur > prev:
			ascending = true
			top = i
		case cur < prev && ascending:
			if top >= 0 && points[top].Intensity > d.NoiseLevel {
				peaks = append(peaks, points[top])
			}
			ascending = false
		}
	}

	// A spectrum may end while still climbing.
	if ascending && top >= 0 && points[top].Intensity > d.NoiseLevel {
		peaks = append(peaks, points[top])
	}

	return peaks
}
