package models

// State is a step of the per-question pipeline
type State int

const (
	Idle State = iota
	Retrieving
	Gating
	ContextGrounded
	Fallback
	Logged
)

var stateNames = map[State]string{
	Idle:            "idle",
	Retrieving:      "retrieving",
	Gating:          "gating",
	ContextGrounded: "context-grounded",
	Fallback:        "fallback",
	Logged:          "logged",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// allowed lists the legal transitions; every path passes through Gating.
var allowed = map[State][]State{
	Idle:            {Retrieving},
	Retrieving:      {Gating},
	Gating:          {ContextGrounded, Fallback},
	ContextGrounded: {Logged},
	Fallback:        {Logged},
	Logged:          {Idle},
}

// CanTransition reports whether the pipeline may move from s to next
func (s State) CanTransition(next State) bool {
	for _, st := range allowed[s] {
		if st == next {
			return true
		}
	}
	return false
}
