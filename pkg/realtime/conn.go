package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"skemino-client/pkg/protocol"
	"skemino-client/pkg/token"
)

const writeWait = time.Second * 10

// serve runs the read and write loops of one connection and returns once it is gone
func (c *Client) serve(conn *websocket.Conn) {
	send := make(chan *protocol.PayloadIn, 256)
	c.lock.Lock()
	c.send = send
	c.lock.Unlock()
	c.setStatus(StatusConnected)

	readDone := make(chan struct{})
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writeLoop(conn, send, readDone)
	}()

	c.readLoop(conn)
	close(readDone)
	<-writeDone
	_ = conn.Close()

	c.lock.Lock()
	c.send = nil
	c.lock.Unlock()

	c.pingLock.Lock()
	c.pings = make(map[string]time.Time)
	c.pingLock.Unlock()

	c.setStatus(StatusDisconnected)
}

func (c *Client) pongWait() time.Duration {
	return c.opts.HeartbeatInterval * 3
}

func (c *Client) writeLoop(conn *websocket.Conn, send <-chan *protocol.PayloadIn, readDone <-chan struct{}) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			nonce := c.startPing()
			if err := conn.WriteControl(websocket.PingMessage, []byte(nonce), time.Now().Add(writeWait)); err != nil {
				c.errors.logError("ping", err, "could not send heartbeat")
				_ = conn.Close()
				return
			}
		case msg := <-send:
			logrus.WithField("action", msg.Action).WithField("context", msg.Context).Trace("sending message to server")

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				c.errors.logError("write", err, "could not write message")
				_ = conn.Close()
				return
			}
		case <-c.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closed"), time.Now().Add(writeWait))

			// wait for the close frame
			select {
			case <-readDone:
			case <-time.After(time.Second):
				_ = conn.Close()
			}
			return
		case <-readDone:
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(c.pongWait()))
	conn.SetPongHandler(func(nonce string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.pongWait()))
		c.receivedPong(nonce)
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case c.ctx.Err() != nil:
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				logrus.WithError(err).Info("server closed the connection")
			default:
				c.errors.logError("read", err, "connection lost")
			}

			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.pongWait()))

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.errors.logError("decode", err, "could not decode message")
			continue
		}

		c.dispatch(&msg)
	}
}

// startPing records the send time of a new heartbeat and returns its nonce
func (c *Client) startPing() string {
	nonce := token.MustGenerate(12)
	now := time.Now()

	c.pingLock.Lock()
	defer c.pingLock.Unlock()

	// unanswered pings are dropped once the connection would have timed out anyway
	for n, sent := range c.pings {
		if now.Sub(sent) > c.pongWait() {
			delete(c.pings, n)
		}
	}

	c.pings[nonce] = now
	return nonce
}

func (c *Client) receivedPong(nonce string) {
	c.pingLock.Lock()
	sent, ok := c.pings[nonce]
	delete(c.pings, nonce)
	c.pingLock.Unlock()

	if !ok {
		logrus.WithField("nonce", nonce).Debug("received unknown pong")
		return
	}

	latency := time.Since(sent) / 2

	c.lock.Lock()
	c.latency = latency
	c.lock.Unlock()

	logrus.WithField("latency", latency).Trace("heartbeat")
}
