package kpi

// Level is the qualitative label attached to a composite score.
type Level string

// Level labels, lowest to highest.
const (
	LevelLessGood  Level = "Less Good"
	LevelGood      Level = "Good"
	LevelVeryGood  Level = "Very Good"
	LevelExcellent Level = "Excellent"
)

// Upper bounds (inclusive) for each level.
const (
	lessGoodMax = 500
	goodMax     = 700
	veryGoodMax = 850
)

// Classify maps a composite score to its level.
func Classify(composite int) Level {
	switch {
	case composite <= lessGoodMax:
		return LevelLessGood
	case composite <= goodMax:
		return LevelGood
	case composite <= veryGoodMax:
		return LevelVeryGood
	default:
		return LevelExcellent
	}
}

// String implements fmt.Stringer.
func (l Level) String() string { return string(l) }
