package demoserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"skemino-client/internal/config"
	"skemino-client/internal/rng"
	"skemino-client/pkg/board"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/gamestate"
	"skemino-client/pkg/protocol"
)

var errNotSeated = errors.New("you are not seated at this game")

// game error codes
const (
	codeGameNotActive = "gameNotActive"
	codeNotYourTurn   = "notYourTurn"
	codeInvalidMove   = "invalidMove"
	codeCardNotInHand = "cardNotInHand"
	codeNoDrawOffer   = "noDrawOffer"
)

// game over reasons
const (
	reasonResign    = "resign"
	reasonAgreement = "agreement"
	reasonTimeout   = "timeout"
	reasonAbandoned = "abandoned"
	reasonComplete  = "complete"
)

// MatchOptions configures the matches started by a lobby
type MatchOptions struct {
	HandSize     int
	ClockSeconds int
	DealDelay    time.Duration
	// TickInterval is the wall time of one clock second
	TickInterval time.Duration
	// Seed shuffles deterministically. Zero draws a random seed.
	Seed int64
}

// MatchOptionsFromConfig maps the demo section of the config
func MatchOptionsFromConfig(cfg config.Config) MatchOptions {
	return MatchOptions{
		HandSize:     cfg.Demo.HandSize,
		ClockSeconds: cfg.Demo.ClockSeconds,
		DealDelay:    time.Duration(cfg.Demo.DealDelayMillis) * time.Millisecond,
		TickInterval: time.Second,
	}
}

func (o MatchOptions) withDefaults() MatchOptions {
	if o.HandSize <= 0 {
		o.HandSize = 5
	}

	if o.HandSize*2 > deck.CardCount {
		o.HandSize = deck.CardCount / 2
	}

	if o.ClockSeconds <= 0 {
		o.ClockSeconds = 600
	}

	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}

	return o
}

// Match runs one game between two players
type Match struct {
	ID      string
	lobby   *Lobby
	opts    MatchOptions
	players map[board.Color]*gamestate.Player

	// NOTE: only accessed from the run loop
	clients   map[board.Color]*Client
	game      *gamestate.GameState
	deck      *deck.Deck
	drawOffer *board.Color

	execInRunLoop chan func()
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMatch seats white and black. Call StartShift to deal and run the game.
func NewMatch(lobby *Lobby, white, black *Client, opts MatchOptions) *Match {
	id := uuid.New().String()

	seat := func(p *gamestate.Player, color board.Color) *gamestate.Player {
		cp := *p
		cp.Color = color
		return &cp
	}

	return &Match{
		ID:    id,
		lobby: lobby,
		opts:  opts.withDefaults(),
		players: map[board.Color]*gamestate.Player{
			board.White: seat(white.player, board.White),
			board.Black: seat(black.player, board.Black),
		},
		clients: map[board.Color]*Client{
			board.White: white,
			board.Black: black,
		},
		game:          gamestate.NewGameState(id),
		deck:          deck.New(),
		execInRunLoop: make(chan func(), 256),
		done:          make(chan struct{}),
	}
}

// StartShift starts the run loop
func (m *Match) StartShift() {
	go m.runLoop()
}

// EndShift stops the run loop
func (m *Match) EndShift() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// Ended returns true once the run loop has been stopped
func (m *Match) Ended() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// IsSeated returns true if the player plays in this match
func (m *Match) IsSeated(playerID string) bool {
	_, ok := m.colorOf(playerID)
	return ok
}

func (m *Match) colorOf(playerID string) (board.Color, bool) {
	for color, p := range m.players {
		if p.ID == playerID {
			return color, true
		}
	}

	return "", false
}

// Attach replaces a seated player's connection, e.g., after a reconnect
func (m *Match) Attach(client *Client) {
	m.exec(func() {
		color, ok := m.colorOf(client.player.ID)
		if !ok {
			return
		}

		m.clients[color] = client
		client.Send(&protocol.Response{Key: protocol.KeyPlayers, Data: m.playersFor(color)})
		client.Send(m.snapshot())
		if m.drawOffer != nil && *m.drawOffer != color {
			client.Send(&protocol.Response{Key: protocol.KeyDrawOffered, Data: protocol.DrawOffered{From: *m.drawOffer}})
		}
	})
}

// Detach removes a connection from its seat. The game keeps running.
func (m *Match) Detach(client *Client) {
	m.exec(func() {
		for color, c := range m.clients {
			if c == client {
				delete(m.clients, color)
			}
		}
	})
}

// ReceivedMessage is called when a seated client sends a game action
func (m *Match) ReceivedMessage(client *Client, msg *protocol.PayloadIn) {
	select {
	case m.execInRunLoop <- func() { m.handle(client, msg) }:
	case <-m.done:
		client.Send(&protocol.Response{
			Key:     protocol.KeyGameError,
			Data:    protocol.GameError{Code: codeGameNotActive, Message: "the game is over"},
			Context: msg.Context,
		})
	}
}

func (m *Match) exec(fn func()) {
	select {
	case m.execInRunLoop <- fn:
	case <-m.done:
	}
}

func (m *Match) runLoop() {
	log := logrus.WithField("match", m.ID)
	log.Debug("creating match run loop")

	if !m.deal() {
		log.Debug("terminating match run loop while dealing")
		return
	}

	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-m.execInRunLoop:
			fn()
		case <-ticker.C:
			m.tick()
		case <-m.done:
			log.Debug("terminating match run loop")
			return
		}
	}
}

// wait pauses the run loop, returning false if the match ended meanwhile
func (m *Match) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-m.done:
			return false
		default:
			return true
		}
	}

	select {
	case <-time.After(d):
		return true
	case <-m.done:
		return false
	}
}

// deal shuffles and deals HandSize cards to each player, alternating from white
// NOTE: must only be called from the run loop
func (m *Match) deal() bool {
	for color := range m.clients {
		m.send(color, &protocol.Response{Key: protocol.KeyMatchFound, Data: m.playersFor(color)})
	}

	total := m.opts.HandSize * 2
	m.broadcast(&protocol.Response{Key: protocol.KeyDistributionStart, Data: protocol.DistributionStart{TotalCards: total}})
	m.broadcast(&protocol.Response{Key: protocol.KeyDistributionPhase, Data: protocol.DistributionPhase{Phase: gamestate.PhaseShuffling, Message: "Shuffling the deck"}})

	seed := m.opts.Seed
	if seed == 0 {
		seed = rng.Seed(rng.Crypto{})
	}

	m.deck.Shuffle(seed)
	logrus.WithField("match", m.ID).WithField("deck", m.deck.HashCode()).Debug("deck shuffled")

	m.broadcast(&protocol.Response{Key: protocol.KeyDistributionPhase, Data: protocol.DistributionPhase{Phase: gamestate.PhaseDealing, Message: "Dealing cards"}})
	for i := 1; i <= total; i++ {
		to := board.White
		if i%2 == 0 {
			to = board.Black
		}

		card, err := m.deck.Draw()
		if err != nil {
			// the hand size is capped so this cannot happen
			logrus.WithError(err).WithField("match", m.ID).Error("could not deal")
			return false
		}

		hand := m.game.Hands[to]
		hand.AddCard(card)
		m.game.Hands[to] = hand

		for color := range m.clients {
			dealt := protocol.CardDealt{CardNumber: i, TotalCards: total, To: to}
			if color == to {
				c := card
				dealt.Card = &c
			}

			m.send(color, &protocol.Response{Key: protocol.KeyCardDealt, Data: dealt})
		}

		if !m.wait(m.opts.DealDelay) {
			return false
		}
	}

	for color, hand := range m.game.Hands {
		sort.Sort(hand)
		m.game.Hands[color] = hand
	}

	m.game.Status = gamestate.StatusActive
	m.game.CurrentTurn = board.White
	m.game.Clocks[board.White] = m.opts.ClockSeconds
	m.game.Clocks[board.Black] = m.opts.ClockSeconds
	m.game.Seq++

	m.broadcast(&protocol.Response{
		Key:  protocol.KeyDistributionComplete,
		Data: protocol.DistributionComplete{Game: m.game.Clone()},
		Seq:  m.game.Seq,
	})

	return true
}

// NOTE: must only be called from the run loop
func (m *Match) handle(c *Client, msg *protocol.PayloadIn) {
	color, ok := m.colorOf(c.player.ID)
	if !ok {
		c.Send(protocol.ErrorResponse(msg.Context, errNotSeated))
		return
	}

	switch msg.Action {
	case protocol.ActionMakeMove:
		m.makeMove(c, color, msg)
	case protocol.ActionResign:
		if !m.requireActive(c, msg) {
			return
		}

		c.Send(protocol.OK(msg.Context))
		winner := color.Opponent()
		m.finish(&winner, reasonResign)
	case protocol.ActionOfferDraw:
		if !m.requireActive(c, msg) {
			return
		}

		m.drawOffer = &color
		c.Send(protocol.OK(msg.Context))
		m.send(color.Opponent(), &protocol.Response{Key: protocol.KeyDrawOffered, Data: protocol.DrawOffered{From: color}})
	case protocol.ActionRespondDraw:
		if !m.requireActive(c, msg) {
			return
		}

		if m.drawOffer == nil || *m.drawOffer == color {
			m.gameError(c, msg, codeNoDrawOffer, "there is no draw offer to respond to")
			return
		}

		m.drawOffer = nil
		c.Send(protocol.OK(msg.Context))
		if accept, _ := msg.AdditionalData.GetBool(protocol.DataAccept); accept {
			m.finish(nil, reasonAgreement)
		}
	case protocol.ActionLeaveRoom:
		if m.clients[color] == c {
			delete(m.clients, color)
		}

		c.setMatch(nil)
		c.Send(protocol.OK(msg.Context))
		if m.game.Status == gamestate.StatusActive {
			winner := color.Opponent()
			m.finish(&winner, reasonAbandoned)
		}
	default:
		c.Send(protocol.ErrorResponse(msg.Context, errUnknownAction))
	}
}

// NOTE: must only be called from the run loop
func (m *Match) makeMove(c *Client, color board.Color, msg *protocol.PayloadIn) {
	if !m.requireActive(c, msg) {
		return
	}

	if color != m.game.CurrentTurn {
		m.gameError(c, msg, codeNotYourTurn, "it is not your turn")
		return
	}

	if len(msg.Cards) != 1 {
		m.gameError(c, msg, codeInvalidMove, "exactly one card must be played")
		return
	}

	card, err := deck.Parse(msg.Cards[0])
	if err != nil {
		m.gameError(c, msg, codeInvalidMove, err.Error())
		return
	}

	cellName, _ := msg.AdditionalData.GetString(protocol.DataCell)
	cell, err := board.ParseCell(cellName)
	if err != nil {
		m.gameError(c, msg, codeInvalidMove, err.Error())
		return
	}

	hand := m.game.Hands[color]
	if !hand.Discard(card) {
		m.gameError(c, msg, codeCardNotInHand, card.Code()+" is not in your hand")
		return
	}

	m.game.Hands[color] = hand
	captured := m.game.Board.Place(cell, card, color)
	move := gamestate.Move{
		ID:        uuid.New().String(),
		Player:    color,
		Card:      card,
		To:        cell,
		Captured:  captured,
		Notation:  gamestate.Notation(card, cell, captured != nil),
		Timestamp: time.Now(),
	}

	m.game.MoveHistory = append(m.game.MoveHistory, move)
	m.game.CurrentTurn = color.Opponent()
	m.drawOffer = nil
	m.game.Seq++

	c.Send(protocol.OK(msg.Context))
	m.broadcast(&protocol.Response{
		Key: protocol.KeyMoveApplied,
		Data: protocol.MoveApplied{
			Player:   color,
			Card:     card,
			To:       cell,
			Captured: captured,
			Notation: move.Notation,
		},
	})
	m.broadcast(m.snapshot())

	if len(m.game.Hands[board.White]) == 0 && len(m.game.Hands[board.Black]) == 0 {
		m.finish(m.leader(), reasonComplete)
	}
}

// leader returns the color owning more cells, nil on a tie
func (m *Match) leader() *board.Color {
	count := m.game.Board.Count()
	switch {
	case count[board.White] > count[board.Black]:
		c := board.White
		return &c
	case count[board.Black] > count[board.White]:
		c := board.Black
		return &c
	}

	return nil
}

// tick runs down the clock of the player to move
// NOTE: must only be called from the run loop
func (m *Match) tick() {
	if m.game.Status != gamestate.StatusActive {
		return
	}

	turn := m.game.CurrentTurn
	if m.game.Clocks[turn] > 0 {
		m.game.Clocks[turn]--
	}

	m.broadcast(&protocol.Response{
		Key: protocol.KeyTimeUpdate,
		Data: protocol.TimeUpdate{
			White: m.game.Clocks[board.White],
			Black: m.game.Clocks[board.Black],
		},
	})

	if m.game.Clocks[turn] == 0 {
		winner := turn.Opponent()
		m.finish(&winner, reasonTimeout)
	}
}

// NOTE: must only be called from the run loop
func (m *Match) finish(winner *board.Color, reason string) {
	if m.game.Status == gamestate.StatusCompleted {
		return
	}

	m.game.Status = gamestate.StatusCompleted
	m.game.Winner = winner
	m.drawOffer = nil
	m.game.Seq++

	m.broadcast(m.snapshot())
	m.broadcast(&protocol.Response{Key: protocol.KeyGameOver, Data: protocol.GameOver{Winner: winner, Reason: reason}})

	log := logrus.WithField("match", m.ID).WithField("reason", reason)
	if winner != nil {
		log = log.WithField("winner", *winner)
	}
	log.Info("game over")

	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}

	if m.lobby != nil {
		m.lobby.MatchEnded(m, clients)
	}
}

// NOTE: must only be called from the run loop
func (m *Match) requireActive(c *Client, msg *protocol.PayloadIn) bool {
	if m.game.Status == gamestate.StatusActive {
		return true
	}

	m.gameError(c, msg, codeGameNotActive, "the game is not active")
	return false
}

func (m *Match) gameError(c *Client, msg *protocol.PayloadIn, code, message string) {
	logrus.WithField("match", m.ID).WithField("client", c.String()).WithField("code", code).Debug("rejected action")
	c.Send(&protocol.Response{
		Key:     protocol.KeyGameError,
		Data:    protocol.GameError{Code: code, Message: message},
		Context: msg.Context,
	})
}

// NOTE: must only be called from the run loop
func (m *Match) snapshot() *protocol.Response {
	return &protocol.Response{
		Key:  protocol.KeyGameState,
		Data: m.game.Clone(),
		Seq:  m.game.Seq,
	}
}

func (m *Match) playersFor(color board.Color) protocol.Players {
	current := *m.players[color]
	opponent := *m.players[color.Opponent()]

	return protocol.Players{
		GameID:   m.ID,
		Current:  &current,
		Opponent: &opponent,
	}
}

// NOTE: must only be called from the run loop
func (m *Match) send(color board.Color, res *protocol.Response) {
	if c, ok := m.clients[color]; ok {
		if !c.Send(res) {
			logrus.WithField("match", m.ID).WithField("client", c.String()).Warn("client send buffer is full")
		}
	}
}

// NOTE: must only be called from the run loop
func (m *Match) broadcast(res *protocol.Response) {
	m.send(board.White, res)
	m.send(board.Black, res)
}
