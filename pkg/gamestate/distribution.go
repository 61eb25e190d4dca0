package gamestate

// Phase is a step of the pre-game card distribution
type Phase string

// phase constants, in order
const (
	PhaseWaiting     Phase = "waiting"
	PhaseMatchmaking Phase = "matchmaking"
	PhaseStarting    Phase = "starting"
	PhaseShuffling   Phase = "shuffling"
	PhaseDealing     Phase = "dealing"
	PhaseComplete    Phase = "complete"
)

// DistributionState tracks the dealing animation. It is cosmetic and not part of the game state.
type DistributionState struct {
	Phase             Phase  `json:"phase"`
	CurrentCard       int    `json:"currentCard"`
	TotalCards        int    `json:"totalCards"`
	AnimationProgress int    `json:"animationProgress"`
	Message           string `json:"message,omitempty"`
}

// DistributionUpdate is a partial DistributionState. Nil fields are left untouched.
type DistributionUpdate struct {
	Phase             *Phase
	CurrentCard       *int
	TotalCards        *int
	AnimationProgress *int
	Message           *string
}

func (d DistributionState) merge(u DistributionUpdate) DistributionState {
	if u.Phase != nil {
		d.Phase = *u.Phase
	}

	if u.CurrentCard != nil {
		d.CurrentCard = *u.CurrentCard
	}

	if u.TotalCards != nil {
		d.TotalCards = *u.TotalCards
	}

	if u.AnimationProgress != nil {
		d.AnimationProgress = *u.AnimationProgress
	}

	if u.Message != nil {
		d.Message = *u.Message
	}

	return d
}

// PhaseUpdate returns an update that only changes the phase
func PhaseUpdate(phase Phase) DistributionUpdate {
	return DistributionUpdate{Phase: &phase}
}

// Int returns a pointer to i, for building partial updates
func Int(i int) *int {
	return &i
}

// String returns a pointer to s, for building partial updates
func String(s string) *string {
	return &s
}
