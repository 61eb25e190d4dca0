package realtime

import (
	"github.com/sirupsen/logrus"
	"skemino-client/pkg/board"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/gamestate"
	"skemino-client/pkg/protocol"
	"skemino-client/pkg/token"
)

// emit queues an intent for the server. Intents are dropped while disconnected.
func (c *Client) emit(payload *protocol.PayloadIn) bool {
	if payload.Context == "" {
		payload.Context = token.MustGenerate(8)
	}

	log := logrus.WithField("action", payload.Action)

	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.status != StatusConnected || c.send == nil {
		log.Debug("not connected, dropping intent")
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		log.Warn("send buffer is full, dropping intent")
		return false
	}
}

// MakeMove asks the server to play card onto cell
func (c *Client) MakeMove(card deck.Card, cell board.Cell) bool {
	return c.emit(&protocol.PayloadIn{
		Action:         protocol.ActionMakeMove,
		Cards:          []string{card.Code()},
		AdditionalData: protocol.AdditionalData{protocol.DataCell: string(cell)},
	})
}

// PlayMove applies the move optimistically to the store and sends it.
// If it cannot be sent, the optimistic move is reverted.
func (c *Client) PlayMove(card deck.Card, cell board.Cell) (*gamestate.Move, error) {
	move, err := c.store.MakeMove(card, cell)
	if err != nil {
		return nil, err
	}

	if !c.MakeMove(card, cell) {
		c.store.RejectPendingMoves(ErrNotConnected.Error())
		return nil, ErrNotConnected
	}

	return move, nil
}

// Resign concedes the current game
func (c *Client) Resign() bool {
	return c.emit(&protocol.PayloadIn{Action: protocol.ActionResign})
}

// OfferDraw offers a draw to the opponent
func (c *Client) OfferDraw() bool {
	return c.emit(&protocol.PayloadIn{Action: protocol.ActionOfferDraw})
}

// RespondToDraw answers a pending draw offer and clears it locally
func (c *Client) RespondToDraw(accept bool) bool {
	c.store.ClearDrawOffer()
	return c.emit(&protocol.PayloadIn{
		Action:         protocol.ActionRespondDraw,
		AdditionalData: protocol.AdditionalData{protocol.DataAccept: accept},
	})
}

// JoinRoom subscribes to a game room
func (c *Client) JoinRoom(roomID string) bool {
	return c.emit(&protocol.PayloadIn{Action: protocol.ActionJoinRoom, Subject: roomID})
}

// LeaveRoom unsubscribes from a game room and resets the local game
func (c *Client) LeaveRoom(roomID string) bool {
	c.store.Reset()
	return c.emit(&protocol.PayloadIn{Action: protocol.ActionLeaveRoom, Subject: roomID})
}

// JoinMatchmaking enters the queue matching the credential in use
func (c *Client) JoinMatchmaking() bool {
	action := protocol.ActionJoinMatchmaking
	if c.IsGuest() {
		action = protocol.ActionJoinGuestMatchmaking
	}

	return c.emit(&protocol.PayloadIn{Action: action})
}

// LeaveMatchmaking leaves the queue and resets the distribution state
func (c *Client) LeaveMatchmaking() bool {
	c.store.SetDistributionState(gamestate.DistributionUpdate{
		Phase:             phase(gamestate.PhaseWaiting),
		CurrentCard:       gamestate.Int(0),
		TotalCards:        gamestate.Int(0),
		AnimationProgress: gamestate.Int(0),
		Message:           gamestate.String(""),
	})

	return c.emit(&protocol.PayloadIn{Action: protocol.ActionLeaveMatchmaking})
}
