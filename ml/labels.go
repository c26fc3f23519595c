package ml

// PriceRange is a class index produced by the model.
type PriceRange int

const (
	LowCost PriceRange = iota
	MediumCost
	HighCost
	VeryHighCost
)

const UnknownLabel = "Unknown"

// Known reports whether the class is one of the four trained price ranges.
func (p PriceRange) Known() bool {
	return p >= LowCost && p <= VeryHighCost
}

// Label is total over all integers: anything outside the four known
// classes maps to UnknownLabel.
func (p PriceRange) Label() string {
	switch p {
	case LowCost:
		return "Low Cost ($)"
	case MediumCost:
		return "Medium Cost ($$)"
	case HighCost:
		return "High Cost ($$$)"
	case VeryHighCost:
		return "Very High Cost ($$$$)"
	default:
		return UnknownLabel
	}
}

func (p PriceRange) String() string {
	return p.Label()
}
