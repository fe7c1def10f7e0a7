package uploadsvc

// State: фаза оркестратора загрузки.
type State int

const (
	StateIdle State = iota
	StateSplitting
	StateInitiating
	StateTransferring
	StateFinalizing
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateSplitting:    "splitting",
	StateInitiating:   "initiating",
	StateTransferring: "transferring",
	StateFinalizing:   "finalizing",
	StateCompleted:    "completed",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal сообщает, что из состояния больше нет переходов.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
