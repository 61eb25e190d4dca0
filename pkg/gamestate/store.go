package gamestate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"skemino-client/pkg/board"
	"skemino-client/pkg/deck"
)

// ErrCardNotInHand happens when the acting player tries to play a card they don't have
var ErrCardNotInHand = errors.New("card is not in player's hand")

// ErrNotYourTurn happens when the local player tries to move on the opponent's turn
var ErrNotYourTurn = errors.New("not your turn")

// Store is the client's in-memory view of the match.
// It is only mutated through its methods. Consumers subscribe for change
// notifications and read copies through Snapshot().
type Store struct {
	lock sync.RWMutex

	game *GameState
	// confirmed is the last authoritative snapshot, kept while optimistic moves are pending
	confirmed *GameState
	lastSeq   uint64
	localSeq  uint64

	current  *Player
	opponent *Player
	isMyTurn bool

	selectedCard *deck.Card
	validMoves   []board.Cell
	highlighted  map[board.Cell]bool
	isDragging   bool
	distribution DistributionState
	drawOffer    *DrawOffer

	subscribers map[int]chan struct{}
	nextSubID   int

	now func() time.Time
}

// View is a read-only copy of the store
type View struct {
	Game          *GameState        `json:"game"`
	CurrentPlayer *Player           `json:"currentPlayer"`
	Opponent      *Player           `json:"opponent"`
	IsMyTurn      bool              `json:"isMyTurn"`
	SelectedCard  *deck.Card        `json:"selectedCard"`
	ValidMoves    []board.Cell      `json:"validMoves"`
	Highlighted   []board.Cell      `json:"highlighted"`
	IsDragging    bool              `json:"isDragging"`
	Distribution  DistributionState `json:"distribution"`
	DrawOffer     *DrawOffer        `json:"drawOffer"`
	PendingMoves  int               `json:"pendingMoves"`
}

// NewStore returns a store holding a fresh, waiting game
func NewStore() *Store {
	s := &Store{
		subscribers: make(map[int]chan struct{}),
		now:         time.Now,
	}

	s.resetLocked()
	return s
}

// Subscribe returns a channel that receives a value after every change.
// Notifications are coalesced: a slow reader sees at least one signal, then calls Snapshot().
// The returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.lock.Lock()
			delete(s.subscribers, id)
			s.lock.Unlock()
			close(ch)
		})
	}
}

// NOTE: must be called with the lock held
func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// NOTE: must be called with the lock held
func (s *Store) recomputeTurnLocked() {
	s.isMyTurn = s.current != nil && s.game.CurrentTurn == s.current.Color
}

// SetGameState replaces the whole game snapshot.
// Snapshots older than the last applied one of the same game are discarded.
// A snapshot of another game starts a new sequence. Returns true if applied.
func (s *Store) SetGameState(newState *GameState) bool {
	if newState == nil {
		return false
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if newState.ID != s.game.ID {
		if s.game.ID != "" {
			logrus.WithFields(logrus.Fields{
				"game":     newState.ID,
				"previous": s.game.ID,
			}).Debug("switching to a new game")
		}

		s.lastSeq = 0
		s.confirmed = nil
	}

	if newState.Seq != 0 && newState.Seq < s.lastSeq {
		logrus.WithFields(logrus.Fields{
			"seq":     newState.Seq,
			"lastSeq": s.lastSeq,
		}).Debug("discarding stale game state")
		return false
	}

	s.game = newState.Clone()
	s.confirmed = nil
	if newState.Seq > s.lastSeq {
		s.lastSeq = newState.Seq
	}

	s.recomputeTurnLocked()
	s.notifyLocked()
	return true
}

// SetPlayers assigns the local player and the opponent
func (s *Store) SetPlayers(current, opponent *Player) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.current = clonePlayer(current)
	s.opponent = clonePlayer(opponent)
	s.recomputeTurnLocked()
	s.notifyLocked()
}

// SelectCard sets the tentative selection. A nil card clears the selection and the valid moves.
func (s *Store) SelectCard(card *deck.Card) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if card == nil {
		s.selectedCard = nil
		s.validMoves = nil
	} else {
		c := *card
		s.selectedCard = &c
	}

	s.notifyLocked()
}

// SetValidMoves stores the legal destination cells for the current selection
func (s *Store) SetValidMoves(cells []board.Cell) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.validMoves = append([]board.Cell(nil), cells...)
	s.notifyLocked()
}

// SetDragging sets the drag flag
func (s *Store) SetDragging(dragging bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.isDragging = dragging
	s.notifyLocked()
}

// MakeMove optimistically plays card onto cell for the player whose turn it is.
// Once the local player is known, only their turn can be played.
// Legality is decided by the server. The move is marked pending until the next
// authoritative snapshot replaces it, or RejectPendingMoves reverts it.
func (s *Store) MakeMove(card deck.Card, cell board.Cell) (*Move, error) {
	if !cell.Valid() {
		return nil, fmt.Errorf("%w: %q", board.ErrInvalidCell, string(cell))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	actor := s.game.CurrentTurn
	if s.current != nil && s.current.Color != actor {
		return nil, fmt.Errorf("%w: %s to move", ErrNotYourTurn, actor)
	}

	hand := s.game.Hands[actor]
	if !hand.HasCard(card) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrCardNotInHand, card, actor)
	}

	if s.confirmed == nil {
		s.confirmed = s.game.Clone()
	}

	s.localSeq++
	captured := s.game.Board.Place(cell, card, actor)
	hand.Discard(card)
	s.game.Hands[actor] = hand

	move := Move{
		ID:        uuid.New().String(),
		Player:    actor,
		Card:      card,
		To:        cell,
		Captured:  captured,
		Notation:  Notation(card, cell, captured != nil),
		Timestamp: s.now(),
		Pending:   true,
		LocalSeq:  s.localSeq,
	}

	s.game.MoveHistory = append(s.game.MoveHistory, move)
	s.game.CurrentTurn = actor.Opponent()
	s.selectedCard = nil
	s.validMoves = nil
	s.isMyTurn = false
	s.notifyLocked()

	return &move, nil
}

// RejectPendingMoves reverts every optimistic move to the last confirmed snapshot.
// Returns false if nothing was pending.
func (s *Store) RejectPendingMoves(reason string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.confirmed == nil {
		return false
	}

	logrus.WithField("reason", reason).Warn("reverting pending moves")
	s.game = s.confirmed
	s.confirmed = nil
	s.recomputeTurnLocked()
	s.notifyLocked()
	return true
}

// UpdateBoard merges a partial position into one cell.
// Updates are authoritative, so they also survive a revert of pending moves.
func (s *Store) UpdateBoard(cell board.Cell, update board.PositionUpdate) error {
	if !cell.Valid() {
		return fmt.Errorf("%w: %q", board.ErrInvalidCell, string(cell))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.game.Board.Merge(cell, update)
	if s.confirmed != nil {
		s.confirmed.Board.Merge(cell, update)
	}

	s.notifyLocked()
	return nil
}

// UpdateTime overwrites the remaining seconds of one player's clock
func (s *Store) UpdateTime(color board.Color, seconds int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.game.Clocks[color] = seconds
	if s.confirmed != nil {
		s.confirmed.Clocks[color] = seconds
	}
	s.notifyLocked()
}

// HighlightCells flags the cells as highlighted. Invalid cells are ignored.
func (s *Store) HighlightCells(cells []board.Cell) {
	s.lock.Lock()
	defer s.lock.Unlock()

	t := true
	for _, cell := range cells {
		if !cell.Valid() {
			continue
		}

		s.game.Board.Merge(cell, board.PositionUpdate{Highlighted: &t})
		s.highlighted[cell] = true
	}

	s.notifyLocked()
}

// ClearHighlights unsets only the cells previously highlighted through HighlightCells
func (s *Store) ClearHighlights() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.clearHighlightsLocked()
	s.notifyLocked()
}

func (s *Store) clearHighlightsLocked() {
	f := false
	for cell := range s.highlighted {
		s.game.Board.Merge(cell, board.PositionUpdate{Highlighted: &f})
	}

	s.highlighted = make(map[board.Cell]bool)
}

// SetDistributionState merges into the distribution sub-state
func (s *Store) SetDistributionState(update DistributionUpdate) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.distribution = s.distribution.merge(update)
	s.notifyLocked()
}

// SetDrawOffer records an opponent's draw offer for the UI to prompt on
func (s *Store) SetDrawOffer(from board.Color) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.drawOffer = &DrawOffer{From: from, ReceivedAt: s.now()}
	s.notifyLocked()
}

// ClearDrawOffer removes the pending draw offer
func (s *Store) ClearDrawOffer() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.drawOffer = nil
	s.notifyLocked()
}

// Reset restores a fresh, empty game and clears all local state
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.resetLocked()
	s.notifyLocked()
}

func (s *Store) resetLocked() {
	s.game = NewGameState("")
	s.confirmed = nil
	s.lastSeq = 0
	s.current = nil
	s.opponent = nil
	s.isMyTurn = false
	s.selectedCard = nil
	s.validMoves = nil
	s.highlighted = make(map[board.Cell]bool)
	s.isDragging = false
	s.distribution = DistributionState{Phase: PhaseWaiting}
	s.drawOffer = nil
}

// Snapshot returns a deep copy of the store
func (s *Store) Snapshot() View {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v := View{
		Game:          s.game.Clone(),
		CurrentPlayer: clonePlayer(s.current),
		Opponent:      clonePlayer(s.opponent),
		IsMyTurn:      s.isMyTurn,
		ValidMoves:    append([]board.Cell(nil), s.validMoves...),
		Highlighted:   make([]board.Cell, 0, len(s.highlighted)),
		IsDragging:    s.isDragging,
		Distribution:  s.distribution,
	}

	if s.selectedCard != nil {
		c := *s.selectedCard
		v.SelectedCard = &c
	}

	for _, cell := range board.Cells() {
		if s.highlighted[cell] {
			v.Highlighted = append(v.Highlighted, cell)
		}
	}

	if s.drawOffer != nil {
		offer := *s.drawOffer
		v.DrawOffer = &offer
	}

	for _, move := range s.game.MoveHistory {
		if move.Pending {
			v.PendingMoves++
		}
	}

	return v
}

// Game returns a copy of the current game state
func (s *Store) Game() *GameState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.game.Clone()
}

// IsMyTurn returns true if the local player is to move
func (s *Store) IsMyTurn() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.isMyTurn
}

// CurrentPlayer returns a copy of the local player, or nil
func (s *Store) CurrentPlayer() *Player {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return clonePlayer(s.current)
}

// Distribution returns the distribution sub-state
func (s *Store) Distribution() DistributionState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.distribution
}

func clonePlayer(p *Player) *Player {
	if p == nil {
		return nil
	}

	cp := *p
	return &cp
}
