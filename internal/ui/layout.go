package ui

// Tier maps every width below Below to Columns.
type Tier struct {
	Below   int
	Columns int
}

// Tiers is an ordered breakpoint table; widths past the last tier get Max.
type Tiers struct {
	Steps []Tier
	Max   int
}

var (
	// WideTiers is the grid policy for large screens.
	WideTiers = Tiers{
		Steps: []Tier{{700, 1}, {900, 2}, {1200, 3}, {1600, 4}},
		Max:   5,
	}
	// CompactTiers is the grid policy for narrow screens.
	CompactTiers = Tiers{
		Steps: []Tier{{701, 1}},
		Max:   2,
	}
)

// PointsPerCell converts terminal cells to layout points.
const PointsPerCell = 10

// Columns returns the grid column count for a viewport width in points.
func Columns(width int, t Tiers) int {
	for _, step := range t.Steps {
		if width < step.Below {
			return step.Columns
		}
	}
	return t.Max
}

// TiersFor returns the policy named by the ui.layout setting.
func TiersFor(layout string) Tiers {
	if layout == "compact" {
		return CompactTiers
	}
	return WideTiers
}
