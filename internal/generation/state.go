package generation

// State is a step of one generation run.
type State int

const (
	StateIdle State = iota
	StateFetchingSource
	StatePrompting
	StateCallingPrimary
	StateCallingFallback
	StateParsing
	StatePersisting
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateFetchingSource:  "fetching_source",
	StatePrompting:       "prompting",
	StateCallingPrimary:  "calling_primary",
	StateCallingFallback: "calling_fallback",
	StateParsing:         "parsing",
	StatePersisting:      "persisting",
	StateDone:            "done",
	StateAborted:         "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
