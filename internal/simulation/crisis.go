package simulation

// ForcedCrisis reports whether day must be a crisis given how many crises
// the voyage has had so far. Other days leave danger to chance.
func ForcedCrisis(day, crisisCount int) bool {
	switch {
	case day == 5:
		return true
	case day > 15 && day%10 == 0:
		return true
	case day > 50 && crisisCount < 2:
		return true
	case day > 55 && crisisCount < 3:
		return true
	}
	return false
}
