package core

// MaxDegrees is the largest accepted servo position.
const MaxDegrees = 180

// Conventional hobby servo pulse range for 0..180 degrees.
const (
	DefaultMinUS = 544
	DefaultMaxUS = 2400
)

// mapRange linearly re-maps x from [inMin, inMax] to [outMin, outMax],
// truncating toward zero.
func mapRange(x, inMin, inMax, outMin, outMax int32) int32 {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// degreesToUS interpolates a position onto the channel's pulse range.
func degreesToUS(degrees uint8, minUS, maxUS uint16) uint32 {
	return uint32(mapRange(int32(degrees), 0, MaxDegrees, int32(minUS), int32(maxUS)))
}

// usToDegrees is the reverse interpolation, rounded to the nearest degree
// and clamped to 0..MaxDegrees.
func usToDegrees(us uint32, minUS, maxUS uint16) uint8 {
	if us <= uint32(minUS) {
		return 0
	}
	span := int32(maxUS) - int32(minUS)
	num := (int32(us) - int32(minUS)) * MaxDegrees
	deg := (num + span/2) / span
	if deg > MaxDegrees {
		return MaxDegrees
	}
	return uint8(deg)
}
