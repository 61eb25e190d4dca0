package demoserver

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"skemino-client/pkg/gamestate"
)

// Client is a player connected to the server via websockets
type Client struct {
	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// send is a channel for sending messages to the client
	send chan interface{}

	player *gamestate.Player

	lock  sync.RWMutex
	match *Match
}

// NewClient returns a new client object
func NewClient(conn *websocket.Conn, player *gamestate.Player) *Client {
	return &Client{
		Conn:   conn,
		send:   make(chan interface{}, 256),
		player: player,
	}
}

// Send send a message to the web client
func (c *Client) Send(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendChan returns a read-only channel
func (c *Client) SendChan() <-chan interface{} {
	return c.send
}

// String returns a traceable identifier for the player
func (c *Client) String() string {
	return fmt.Sprintf("%s:%s", c.player.ID, c.player.Username)
}

// Match returns the match the client is seated at, or nil
func (c *Client) Match() *Match {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.match
}

func (c *Client) setMatch(m *Match) {
	c.lock.Lock()
	c.match = m
	c.lock.Unlock()
}
