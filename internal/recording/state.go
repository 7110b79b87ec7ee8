package recording

// Kind is the tag of the RecordingState sum type (spec §3).
type Kind int

const (
	Idle Kind = iota
	Preparing
	Recording
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// State is the tagged-sum RecordingState: Idle carries no fields,
// Preparing carries BindingID, Recording carries BindingID and SessionID.
type State struct {
	Kind      Kind
	BindingID string
	SessionID string
}

// Mode is the microphone lifecycle policy (§4.C update_mode).
type Mode int

const (
	OnDemand Mode = iota
	AlwaysOn
)
