// Package maintenance runs the optimizer steps in their fixed order and
// records what happened.
package maintenance

import "fmt"

// Flags are the switches given on the command line.
type Flags struct {
	Vacuum  bool
	Analyze bool
	Reindex bool
	All     bool
}

// Plan is the set of steps a run will execute. The FTS update is not part of
// it because it always runs.
type Plan struct {
	Reindex bool
	Analyze bool
	Vacuum  bool
}

// ResolvePlan turns flags into a plan. ANALYZE is the default when neither
// --vacuum nor --reindex was asked for.
func ResolvePlan(f Flags) Plan {
	return Plan{
		Reindex: f.Reindex || f.All,
		Analyze: f.Analyze || f.All || (!f.Vacuum && !f.Reindex),
		Vacuum:  f.Vacuum || f.All,
	}
}

func (p Plan) String() string {
	return fmt.Sprintf("reindex=%t analyze=%t vacuum=%t", p.Reindex, p.Analyze, p.Vacuum)
}
