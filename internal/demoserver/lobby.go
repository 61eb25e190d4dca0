package demoserver

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"skemino-client/pkg/protocol"
)

var (
	errAlreadyPlaying = errors.New("already in a game")
	errWrongQueue     = errors.New("wrong matchmaking queue for this account")
	errGameNotFound   = errors.New("game not found")
	errNotPlaying     = errors.New("not in a game")
	errUnknownAction  = errors.New("unknown action")
)

// matchActions are handled by the client's match rather than the lobby
var matchActions = map[string]bool{
	protocol.ActionMakeMove:    true,
	protocol.ActionResign:      true,
	protocol.ActionOfferDraw:   true,
	protocol.ActionRespondDraw: true,
	protocol.ActionLeaveRoom:   true,
}

// Lobby is responsible for pairing queued players and dispatching them to matches
type Lobby struct {
	opts MatchOptions

	// NOTE: only accessed from the run loop
	queues        map[string][]*Client
	matches       map[string]*Match
	playerMatches map[string]*Match

	execInRunLoop chan func()
	done          chan struct{}
	closeOnce     sync.Once
}

// NewLobby returns a new lobby. Call StartShift to run it.
func NewLobby(opts MatchOptions) *Lobby {
	return &Lobby{
		opts:          opts.withDefaults(),
		queues:        make(map[string][]*Client),
		matches:       make(map[string]*Match),
		playerMatches: make(map[string]*Match),
		execInRunLoop: make(chan func(), 256),
		done:          make(chan struct{}),
	}
}

// StartShift starts the lobby run loop
func (l *Lobby) StartShift() {
	go l.runLoop()
}

// EndShift stops the lobby and every match it started
func (l *Lobby) EndShift() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

func (l *Lobby) runLoop() {
	logrus.Debug("creating lobby run loop")
	for {
		select {
		case fn := <-l.execInRunLoop:
			fn()
		case <-l.done:
			logrus.Debug("terminating lobby run loop")
			for _, m := range l.matches {
				m.EndShift()
			}

			return
		}
	}
}

// exec queues fn on the run loop. Events are handled in the order they are queued.
func (l *Lobby) exec(fn func()) {
	select {
	case l.execInRunLoop <- fn:
	case <-l.done:
	}
}

// ClientConnected is called when a client connects to the server
// A player seated at a running match is attached back to it.
func (l *Lobby) ClientConnected(client *Client) {
	l.exec(func() {
		logrus.WithField("player", client.String()).Debug("client connected")
		if m, ok := l.playerMatches[client.player.ID]; ok {
			client.setMatch(m)
			m.Attach(client)
		}
	})
}

// ClientDisconnected is called when a client disconnects from the server
func (l *Lobby) ClientDisconnected(client *Client) {
	l.exec(func() {
		logrus.WithField("player", client.String()).Debug("client disconnected")
		l.dequeue(client)
		if m := client.Match(); m != nil {
			m.Detach(client)
		}
	})
}

// ReceivedMessage routes a client message to its match, or to the lobby
func (l *Lobby) ReceivedMessage(client *Client, msg *protocol.PayloadIn) {
	if m := client.Match(); m != nil && !m.Ended() && matchActions[msg.Action] {
		m.ReceivedMessage(client, msg)
		return
	}

	l.exec(func() {
		l.handle(client, msg)
	})
}

// MatchEnded is called by a match once its game is over
func (l *Lobby) MatchEnded(m *Match, clients []*Client) {
	l.exec(func() {
		l.removeMatch(m, clients)
	})
}

// NOTE: must only be called from the run loop
func (l *Lobby) handle(c *Client, msg *protocol.PayloadIn) {
	switch msg.Action {
	case protocol.ActionJoinMatchmaking, protocol.ActionJoinGuestMatchmaking:
		if _, ok := l.playerMatches[c.player.ID]; ok {
			c.Send(protocol.ErrorResponse(msg.Context, errAlreadyPlaying))
			return
		}

		if (msg.Action == protocol.ActionJoinGuestMatchmaking) != c.player.IsGuest {
			c.Send(protocol.ErrorResponse(msg.Context, errWrongQueue))
			return
		}

		queue := l.queues[msg.Action]
		for _, queued := range queue {
			if queued == c {
				c.Send(protocol.OK(msg.Context))
				return
			}
		}

		queue = append(queue, c)
		l.queues[msg.Action] = queue
		c.Send(&protocol.Response{
			Key:     protocol.KeyMatchmakingQueued,
			Data:    protocol.MatchmakingQueued{Position: len(queue)},
			Context: msg.Context,
		})

		l.pair(msg.Action)
	case protocol.ActionLeaveMatchmaking:
		l.dequeue(c)
		c.Send(protocol.OK(msg.Context))
	case protocol.ActionJoinRoom:
		m, ok := l.matches[msg.Subject]
		if !ok || !m.IsSeated(c.player.ID) {
			c.Send(protocol.ErrorResponse(msg.Context, errGameNotFound))
			return
		}

		c.Send(protocol.OK(msg.Context))
		c.setMatch(m)
		m.Attach(c)
	case protocol.ActionLeaveRoom:
		c.Send(protocol.OK(msg.Context))
	default:
		if matchActions[msg.Action] {
			c.Send(protocol.ErrorResponse(msg.Context, errNotPlaying))
			return
		}

		logrus.WithField("action", msg.Action).WithField("client", c.String()).Warn("unknown message")
		c.Send(protocol.ErrorResponse(msg.Context, errUnknownAction))
	}
}

// pair starts matches while the queue holds two different players
// NOTE: must only be called from the run loop
func (l *Lobby) pair(key string) {
	for {
		queue := l.queues[key]
		if len(queue) < 2 {
			return
		}

		white := queue[0]
		blackIndex := -1
		for i := 1; i < len(queue); i++ {
			if queue[i].player.ID != white.player.ID {
				blackIndex = i
				break
			}
		}

		if blackIndex < 0 {
			return
		}

		black := queue[blackIndex]
		rest := make([]*Client, 0, len(queue)-2)
		rest = append(rest, queue[1:blackIndex]...)
		rest = append(rest, queue[blackIndex+1:]...)
		l.queues[key] = rest

		m := NewMatch(l, white, black, l.opts)
		l.matches[m.ID] = m
		l.playerMatches[white.player.ID] = m
		l.playerMatches[black.player.ID] = m
		white.setMatch(m)
		black.setMatch(m)

		logrus.WithFields(logrus.Fields{
			"match": m.ID,
			"white": white.String(),
			"black": black.String(),
		}).Info("match found")

		m.StartShift()
	}
}

// NOTE: must only be called from the run loop
func (l *Lobby) dequeue(c *Client) {
	for key, queue := range l.queues {
		for i, queued := range queue {
			if queued == c {
				l.queues[key] = append(queue[:i:i], queue[i+1:]...)
				break
			}
		}
	}
}

// NOTE: must only be called from the run loop
func (l *Lobby) removeMatch(m *Match, clients []*Client) {
	delete(l.matches, m.ID)
	for id, pm := range l.playerMatches {
		if pm == m {
			delete(l.playerMatches, id)
		}
	}

	for _, client := range clients {
		if client.Match() == m {
			client.setMatch(nil)
		}
	}

	m.EndShift()
	logrus.WithField("match", m.ID).Debug("match removed")
}
