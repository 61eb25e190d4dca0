package realtime

import (
	"github.com/sirupsen/logrus"
	"skemino-client/pkg/board"
	"skemino-client/pkg/gamestate"
	"skemino-client/pkg/protocol"
)

// distribution progress milestones, in percent
const (
	progressStarting  = 10
	progressShuffling = 20
	progressDealing   = 30
	progressDealt     = 90
	progressComplete  = 100
)

// dealingProgress maps the nth dealt card onto the dealing range
func dealingProgress(n, total int) int {
	if total <= 0 {
		return progressDealing
	}

	if n > total {
		n = total
	}

	return progressDealing + (progressDealt-progressDealing)*n/total
}

// dispatch applies one server message. Messages are applied in arrival order.
func (c *Client) dispatch(msg *protocol.Message) {
	log := logrus.WithField("key", msg.Key)
	log.Trace("received message")

	decode := func(v interface{}) bool {
		if err := msg.Decode(v); err != nil {
			c.errors.logError("decode", err, "could not decode "+msg.Key)
			return false
		}

		return true
	}

	switch msg.Key {
	case protocol.KeyGameState:
		var game gamestate.GameState
		if !decode(&game) {
			return
		}

		c.applyGameState(&game, msg.Seq)
	case protocol.KeyPlayers:
		var players protocol.Players
		if !decode(&players) {
			return
		}

		c.store.SetPlayers(players.Current, players.Opponent)
	case protocol.KeyMoveApplied:
		var move protocol.MoveApplied
		if !decode(&move) {
			return
		}

		card := move.Card
		owner := move.Player
		if err := c.store.UpdateBoard(move.To, board.PositionUpdate{Card: &card, Owner: &owner}); err != nil {
			log.WithError(err).Warn("could not apply move")
		}

		for _, h := range c.handlerList() {
			if h.OnMoveApplied != nil {
				h.OnMoveApplied(move)
			}
		}
	case protocol.KeyTimeUpdate:
		var clocks protocol.TimeUpdate
		if !decode(&clocks) {
			return
		}

		c.store.UpdateTime(board.White, clocks.White)
		c.store.UpdateTime(board.Black, clocks.Black)
	case protocol.KeyGameOver:
		var over protocol.GameOver
		if !decode(&over) {
			return
		}

		c.store.ClearDrawOffer()
		log.WithField("reason", over.Reason).Info("game over")
		for _, h := range c.handlerList() {
			if h.OnGameOver != nil {
				h.OnGameOver(over)
			}
		}
	case protocol.KeyDrawOffered:
		var offer protocol.DrawOffered
		if !decode(&offer) {
			return
		}

		c.store.SetDrawOffer(offer.From)
		for _, h := range c.handlerList() {
			if h.OnDrawOffered != nil {
				h.OnDrawOffered(offer)
			}
		}
	case protocol.KeyGameError:
		var gameErr protocol.GameError
		if !decode(&gameErr) {
			return
		}

		log.WithError(gameErr).Warn("server rejected an action")
		c.store.RejectPendingMoves(gameErr.Error())
		for _, h := range c.handlerList() {
			if h.OnGameError != nil {
				h.OnGameError(gameErr)
			}
		}
	case protocol.KeyMatchmakingQueued:
		c.store.SetDistributionState(gamestate.DistributionUpdate{
			Phase:             phase(gamestate.PhaseMatchmaking),
			CurrentCard:       gamestate.Int(0),
			TotalCards:        gamestate.Int(0),
			AnimationProgress: gamestate.Int(0),
			Message:           gamestate.String("Searching for an opponent"),
		})
	case protocol.KeyMatchFound:
		var players protocol.Players
		if !decode(&players) {
			return
		}

		if players.Current != nil || players.Opponent != nil {
			c.store.SetPlayers(players.Current, players.Opponent)
		}

		c.store.SetDistributionState(gamestate.DistributionUpdate{
			Message: gamestate.String("Opponent found"),
		})
	case protocol.KeyDistributionStart:
		var start protocol.DistributionStart
		if !decode(&start) {
			return
		}

		c.store.SetDistributionState(gamestate.DistributionUpdate{
			Phase:             phase(gamestate.PhaseStarting),
			CurrentCard:       gamestate.Int(0),
			TotalCards:        gamestate.Int(start.TotalCards),
			AnimationProgress: gamestate.Int(progressStarting),
		})
	case protocol.KeyDistributionPhase:
		var p protocol.DistributionPhase
		if !decode(&p) {
			return
		}

		update := gamestate.DistributionUpdate{Phase: phase(p.Phase)}
		switch p.Phase {
		case gamestate.PhaseShuffling:
			update.AnimationProgress = gamestate.Int(progressShuffling)
		case gamestate.PhaseDealing:
			update.AnimationProgress = gamestate.Int(progressDealing)
		}

		if p.Message != "" {
			update.Message = gamestate.String(p.Message)
		}

		c.store.SetDistributionState(update)
	case protocol.KeyCardDealt:
		var dealt protocol.CardDealt
		if !decode(&dealt) {
			return
		}

		c.store.SetDistributionState(gamestate.DistributionUpdate{
			Phase:             phase(gamestate.PhaseDealing),
			CurrentCard:       gamestate.Int(dealt.CardNumber),
			TotalCards:        gamestate.Int(dealt.TotalCards),
			AnimationProgress: gamestate.Int(dealingProgress(dealt.CardNumber, dealt.TotalCards)),
		})
	case protocol.KeyDistributionComplete:
		var complete protocol.DistributionComplete
		if !decode(&complete) {
			return
		}

		c.store.SetDistributionState(gamestate.DistributionUpdate{
			Phase:             phase(gamestate.PhaseComplete),
			AnimationProgress: gamestate.Int(progressComplete),
		})

		if complete.Game != nil {
			c.applyGameState(complete.Game, msg.Seq)
		}
	case protocol.KeyStatus:
		log.WithField("value", msg.Value).WithField("context", msg.Context).Trace("status")
	case protocol.KeyError:
		log.WithField("context", msg.Context).WithField("value", msg.Value).Warn("server returned an error")
	default:
		log.Debug("ignoring unknown message")
	}
}

// applyGameState applies a snapshot; the envelope sequence is used when the snapshot carries none
func (c *Client) applyGameState(game *gamestate.GameState, seq uint64) {
	if game.Seq == 0 {
		game.Seq = seq
	}

	if !c.store.SetGameState(game) {
		logrus.WithField("seq", game.Seq).Debug("ignored stale game state")
	}
}

func phase(p gamestate.Phase) *gamestate.Phase {
	return &p
}
