package reconcile

// State is a step of a reconciliation run.
type State int

const (
	Idle State = iota
	SelectingTarget
	Parsing
	Diffing
	Rewriting
	Segmenting
	SectionWalk
	Assembling
	Promoting
	Done
	Failed
)

var stateNames = [...]string{
	Idle:            "Idle",
	SelectingTarget: "SelectingTarget",
	Parsing:         "Parsing",
	Diffing:         "Diffing",
	Rewriting:       "Rewriting",
	Segmenting:      "Segmenting",
	SectionWalk:     "SectionWalk",
	Assembling:      "Assembling",
	Promoting:       "Promoting",
	Done:            "Done",
	Failed:          "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == Done || s == Failed }
