package pipeline

type State int

const (
	Idle State = iota
	Listening
	Transcribing
	MatchingIntent
	Responding
	Speaking
	ShuttingDown
)

var stateNames = [...]string{
	Idle:           "idle",
	Listening:      "listening",
	Transcribing:   "transcribing",
	MatchingIntent: "matching_intent",
	Responding:     "responding",
	Speaking:       "speaking",
	ShuttingDown:   "shutting_down",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
