// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"math"

	"periph.io/x/conn/v3/physic"
)

// maxAbsoluteHumidity is the highest value the SGP30 accepts, in mg/m³.
const maxAbsoluteHumidity = 256000

// AbsoluteHumidity converts a temperature and relative humidity to absolute
// humidity in mg/m³ using the Magnus formula, clamped to the range the SGP30
// accepts.
func AbsoluteHumidity(t physic.Temperature, rh physic.RelativeHumidity) uint32 {
	c := t.Celsius()
	r := float64(rh) / float64(physic.PercentRH)
	// Saturation vapour pressure in hPa.
	es := 6.112 * math.Exp(17.62*c/(243.12+c))
	ah := 216.7 * (r / 100 * es) / (273.15 + c) * 1000
	switch {
	case ah <= 0 || math.IsNaN(ah):
		return 0
	case ah > maxAbsoluteHumidity:
		return maxAbsoluteHumidity
	}
	return uint32(math.Round(ah))
}
