package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skemino-client/internal/jwt"
	"skemino-client/pkg/board"
	"skemino-client/pkg/credential"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/gamestate"
	"skemino-client/pkg/protocol"
)

type fakeServer struct {
	*httptest.Server
	upgrader websocket.Upgrader

	lock         sync.Mutex
	conns        []*websocket.Conn
	authHeaders  []string
	rejectStatus int
	accept       func(auth string) bool

	writeLock sync.Mutex
	received  chan protocol.PayloadIn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	s := &fakeServer{received: make(chan protocol.PayloadIn, 64)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(func() {
		s.lock.Lock()
		for _, conn := range s.conns {
			_ = conn.Close()
		}
		s.lock.Unlock()
		s.Close()
	})

	return s
}

func (s *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")

	s.lock.Lock()
	s.authHeaders = append(s.authHeaders, auth)
	reject := s.rejectStatus
	accept := s.accept
	s.lock.Unlock()

	if reject != 0 {
		http.Error(w, "rejected", reject)
		return
	}

	if accept != nil && !accept(auth) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.lock.Lock()
	s.conns = append(s.conns, conn)
	s.lock.Unlock()

	for {
		var payload protocol.PayloadIn
		if err := conn.ReadJSON(&payload); err != nil {
			return
		}

		s.received <- payload
	}
}

func (s *fakeServer) connCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.conns)
}

func (s *fakeServer) attempts() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.authHeaders)
}

func (s *fakeServer) write(t *testing.T, res *protocol.Response) {
	t.Helper()

	s.lock.Lock()
	require.NotEmpty(t, s.conns)
	conn := s.conns[len(s.conns)-1]
	s.lock.Unlock()

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	require.NoError(t, conn.WriteJSON(res))
}

func (s *fakeServer) receive(t *testing.T) protocol.PayloadIn {
	t.Helper()

	select {
	case payload := <-s.received:
		return payload
	case <-time.After(time.Second * 2):
		t.Fatal("timed out waiting for a message")
		return protocol.PayloadIn{}
	}
}

type guestFunc func(ctx context.Context) (string, error)

func (g guestFunc) GuestToken(ctx context.Context) (string, error) {
	return g(ctx)
}

func signToken(t *testing.T, guest bool) string {
	t.Helper()

	tok, err := jwt.NewSigner("secret").Sign("p1", "alice", guest)
	require.NoError(t, err)
	return tok
}

func storedCreds(t *testing.T) *credential.MemoryStore {
	t.Helper()

	creds := &credential.MemoryStore{}
	require.NoError(t, creds.Save(signToken(t, false), true))
	return creds
}

func testOptions(url string) Options {
	return Options{
		URL:               url,
		HeartbeatInterval: time.Hour,
		ReconnectAttempts: 3,
		ReconnectDelay:    time.Millisecond * 10,
		MaxReconnectDelay: time.Millisecond * 20,
		ErrorCoolDown:     time.Second,
	}
}

func newTestClient(t *testing.T, s *fakeServer, creds credential.Store, guest credential.GuestAuthenticator) *Client {
	t.Helper()

	c := New(testOptions(s.URL), gamestate.NewStore(), creds, guest)
	t.Cleanup(c.Close)
	return c
}

func waitStatus(t *testing.T, c *Client, status Status) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	require.NoError(t, c.WaitForStatus(ctx, status), "waiting for %s", status)
}

func activeGame(seq uint64, hand ...string) *gamestate.GameState {
	game := gamestate.NewGameState("g1")
	game.Seq = seq
	game.Status = gamestate.StatusActive
	for _, code := range hand {
		game.Hands[board.White] = append(game.Hands[board.White], deck.MustParse(code))
	}

	return game
}

func TestClient_Connect(t *testing.T) {
	s := newFakeServer(t)
	creds := storedCreds(t)
	tok, _ := creds.Token()

	c := newTestClient(t, s, creds, nil)
	assert.Equal(t, StatusDisconnected, c.Status())

	var lock sync.Mutex
	var statuses []Status
	c.AddHandlers(Handlers{OnStatusChange: func(status Status) {
		lock.Lock()
		statuses = append(statuses, status)
		lock.Unlock()
	}})

	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)
	assert.True(t, c.IsConnected())
	assert.False(t, c.IsGuest())
	assert.Equal(t, "alice", c.Claims().Username)

	// connecting twice is a no-op
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 1, s.connCount())
	s.lock.Lock()
	assert.Equal(t, []string{"Bearer " + tok}, s.authHeaders)
	s.lock.Unlock()

	s.write(t, &protocol.Response{Key: protocol.KeyGameState, Data: activeGame(2, "P7")})
	assert.Eventually(t, func() bool {
		return c.Store().Game().Seq == 2
	}, time.Second*2, time.Millisecond*5)
	assert.Equal(t, gamestate.StatusActive, c.Store().Game().Status)

	lock.Lock()
	assert.Equal(t, []Status{StatusConnecting, StatusConnected}, statuses)
	lock.Unlock()
}

func TestClient_Connect_noCredential(t *testing.T) {
	s := newFakeServer(t)
	c := newTestClient(t, s, &credential.MemoryStore{}, nil)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, credential.ErrNoCredential)
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, 0, s.attempts())
}

func TestClient_Connect_closed(t *testing.T) {
	s := newFakeServer(t)
	c := newTestClient(t, s, storedCreds(t), nil)
	c.Close()

	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

func TestClient_Connect_closedWhileResolving(t *testing.T) {
	t.Run("guest request is canceled", func(t *testing.T) {
		s := newFakeServer(t)
		resolving := make(chan struct{})
		c := newTestClient(t, s, &credential.MemoryStore{}, guestFunc(func(ctx context.Context) (string, error) {
			close(resolving)
			<-ctx.Done()
			return "", ctx.Err()
		}))

		errs := make(chan error, 1)
		go func() {
			errs <- c.Connect(context.Background())
		}()

		<-resolving
		c.Close()

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(time.Second * 2):
			t.Fatal("Connect did not return")
		}

		assert.Equal(t, 0, s.attempts())
		assert.Equal(t, StatusDisconnected, c.Status())
	})

	t.Run("credential arrives after close", func(t *testing.T) {
		s := newFakeServer(t)
		guestTok := signToken(t, true)
		resolving := make(chan struct{})
		release := make(chan struct{})
		c := newTestClient(t, s, &credential.MemoryStore{}, guestFunc(func(context.Context) (string, error) {
			close(resolving)
			<-release
			return guestTok, nil
		}))

		errs := make(chan error, 1)
		go func() {
			errs <- c.Connect(context.Background())
		}()

		<-resolving
		c.Close()
		close(release)

		select {
		case err := <-errs:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(time.Second * 2):
			t.Fatal("Connect did not return")
		}

		time.Sleep(time.Millisecond * 50)
		assert.Equal(t, 0, s.connCount())
		assert.Equal(t, StatusDisconnected, c.Status())
	})
}

func TestClient_guest(t *testing.T) {
	s := newFakeServer(t)
	guestTok := signToken(t, true)
	creds := &credential.MemoryStore{}

	c := newTestClient(t, s, creds, guestFunc(func(context.Context) (string, error) {
		return guestTok, nil
	}))

	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)
	assert.True(t, c.IsGuest())

	stored, ok := creds.Token()
	assert.True(t, ok)
	assert.Equal(t, guestTok, stored)

	assert.True(t, c.JoinMatchmaking())
	assert.Equal(t, protocol.ActionJoinGuestMatchmaking, s.receive(t).Action)
}

func TestClient_intents(t *testing.T) {
	s := newFakeServer(t)
	c := newTestClient(t, s, storedCreds(t), nil)
	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)

	assert.True(t, c.MakeMove(deck.MustParse("P7"), "a1"))
	payload := s.receive(t)
	assert.Equal(t, protocol.ActionMakeMove, payload.Action)
	assert.Equal(t, []string{"P7"}, payload.Cards)
	cell, _ := payload.AdditionalData.GetString(protocol.DataCell)
	assert.Equal(t, "a1", cell)
	assert.NotEmpty(t, payload.Context)

	assert.True(t, c.Resign())
	assert.Equal(t, protocol.ActionResign, s.receive(t).Action)

	assert.True(t, c.OfferDraw())
	assert.Equal(t, protocol.ActionOfferDraw, s.receive(t).Action)

	c.Store().SetDrawOffer(board.Black)
	assert.True(t, c.RespondToDraw(true))
	assert.Nil(t, c.Store().Snapshot().DrawOffer)
	payload = s.receive(t)
	assert.Equal(t, protocol.ActionRespondDraw, payload.Action)
	accept, ok := payload.AdditionalData.GetBool(protocol.DataAccept)
	assert.True(t, ok)
	assert.True(t, accept)

	assert.True(t, c.JoinRoom("room-1"))
	payload = s.receive(t)
	assert.Equal(t, protocol.ActionJoinRoom, payload.Action)
	assert.Equal(t, "room-1", payload.Subject)

	c.Store().SetGameState(activeGame(4, "P7"))
	assert.True(t, c.LeaveRoom("room-1"))
	assert.Equal(t, protocol.ActionLeaveRoom, s.receive(t).Action)
	assert.Equal(t, gamestate.StatusWaiting, c.Store().Game().Status)

	assert.True(t, c.JoinMatchmaking())
	assert.Equal(t, protocol.ActionJoinMatchmaking, s.receive(t).Action)

	c.Store().SetDistributionState(gamestate.PhaseUpdate(gamestate.PhaseMatchmaking))
	assert.True(t, c.LeaveMatchmaking())
	assert.Equal(t, protocol.ActionLeaveMatchmaking, s.receive(t).Action)
	assert.Equal(t, gamestate.DistributionState{Phase: gamestate.PhaseWaiting}, c.Store().Distribution())
}

func TestClient_intentsDroppedWhileDisconnected(t *testing.T) {
	c := New(DefaultOptions(), gamestate.NewStore(), &credential.MemoryStore{}, nil)
	defer c.Close()

	assert.False(t, c.MakeMove(deck.MustParse("P7"), "a1"))
	assert.False(t, c.Resign())
	assert.False(t, c.OfferDraw())
	assert.False(t, c.JoinMatchmaking())

	c.Store().SetGameState(activeGame(1, "P7"))
	move, err := c.PlayMove(deck.MustParse("P7"), "a1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, move)

	view := c.Store().Snapshot()
	assert.Equal(t, 0, view.PendingMoves)
	assert.True(t, view.Game.Hands[board.White].HasCard(deck.MustParse("P7")))
	assert.False(t, view.Game.Board["a1"].Occupied())

	_, err = c.PlayMove(deck.MustParse("C1"), "a1")
	assert.ErrorIs(t, err, gamestate.ErrCardNotInHand)
}

func TestClient_heartbeat(t *testing.T) {
	s := newFakeServer(t)
	opts := testOptions(s.URL)
	opts.HeartbeatInterval = time.Millisecond * 20

	c := New(opts, gamestate.NewStore(), storedCreds(t), nil)
	defer c.Close()

	assert.Equal(t, time.Duration(0), c.Latency())
	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)

	assert.Eventually(t, func() bool {
		return c.Latency() > 0
	}, time.Second*2, time.Millisecond*5)

	c.pingLock.Lock()
	assert.LessOrEqual(t, len(c.pings), 3, "answered pings are forgotten")
	c.pingLock.Unlock()
}

func TestClient_reconnect(t *testing.T) {
	s := newFakeServer(t)
	c := newTestClient(t, s, storedCreds(t), nil)
	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)

	s.lock.Lock()
	_ = s.conns[0].Close()
	s.lock.Unlock()

	assert.Eventually(t, func() bool {
		return s.connCount() == 2 && c.IsConnected()
	}, time.Second*2, time.Millisecond*5)

	assert.True(t, c.Resign())
	assert.Equal(t, protocol.ActionResign, s.receive(t).Action)
}

func TestClient_noReconnectAfterClose(t *testing.T) {
	s := newFakeServer(t)
	c := newTestClient(t, s, storedCreds(t), nil)
	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)

	c.Close()
	assert.Equal(t, StatusDisconnected, c.Status())

	time.Sleep(time.Millisecond * 100)
	assert.Equal(t, 1, s.attempts())
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestClient_givesUp(t *testing.T) {
	s := newFakeServer(t)
	s.rejectStatus = http.StatusInternalServerError

	c := newTestClient(t, s, storedCreds(t), nil)
	require.NoError(t, c.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return s.attempts() == 4
	}, time.Second*2, time.Millisecond*5)

	time.Sleep(time.Millisecond * 100)
	assert.Equal(t, 4, s.attempts())
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestClient_unauthorizedResolvesNewCredential(t *testing.T) {
	s := newFakeServer(t)
	guestTok := signToken(t, true)
	s.accept = func(auth string) bool {
		return auth == "Bearer "+guestTok
	}

	creds := storedCreds(t)
	c := newTestClient(t, s, creds, guestFunc(func(context.Context) (string, error) {
		return guestTok, nil
	}))

	assert.False(t, c.IsGuest())
	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)
	assert.True(t, c.IsGuest())

	stored, _ := creds.Token()
	assert.Equal(t, guestTok, stored)
}

func TestClient_gameErrorRevertsPendingMoves(t *testing.T) {
	s := newFakeServer(t)
	c := newTestClient(t, s, storedCreds(t), nil)

	gameErrors := make(chan protocol.GameError, 1)
	c.AddHandlers(Handlers{OnGameError: func(err protocol.GameError) {
		gameErrors <- err
	}})

	require.NoError(t, c.Connect(context.Background()))
	waitStatus(t, c, StatusConnected)

	s.write(t, &protocol.Response{Key: protocol.KeyGameState, Data: activeGame(1, "P7", "C1")})
	assert.Eventually(t, func() bool {
		return c.Store().Game().Seq == 1
	}, time.Second*2, time.Millisecond*5)

	move, err := c.PlayMove(deck.MustParse("P7"), "a1")
	require.NoError(t, err)
	assert.True(t, move.Pending)
	assert.Equal(t, 1, c.Store().Snapshot().PendingMoves)
	assert.Equal(t, protocol.ActionMakeMove, s.receive(t).Action)

	s.write(t, &protocol.Response{Key: protocol.KeyGameError, Data: protocol.GameError{Code: "illegalMove", Message: "cell is occupied"}})

	select {
	case gameErr := <-gameErrors:
		assert.Equal(t, "illegalMove", gameErr.Code)
	case <-time.After(time.Second * 2):
		t.Fatal("expected a game error")
	}

	view := c.Store().Snapshot()
	assert.Equal(t, 0, view.PendingMoves)
	assert.True(t, view.Game.Hands[board.White].HasCard(deck.MustParse("P7")))
	assert.Equal(t, board.White, view.Game.CurrentTurn)
}

func TestClient_AddHandlers_remove(t *testing.T) {
	c := New(DefaultOptions(), gamestate.NewStore(), &credential.MemoryStore{}, nil)
	defer c.Close()

	calls := 0
	remove := c.AddHandlers(Handlers{OnGameOver: func(protocol.GameOver) {
		calls++
	}})

	c.dispatch(message(t, protocol.KeyGameOver, protocol.GameOver{Reason: "resign"}, 0))
	remove()
	remove()
	c.dispatch(message(t, protocol.KeyGameOver, protocol.GameOver{Reason: "resign"}, 0))

	assert.Equal(t, 1, calls)
}

func TestClient_websocketURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
		err      bool
	}{
		{"http://localhost:5000", "ws://localhost:5000/ws", false},
		{"https://example.com/", "wss://example.com/ws", false},
		{"wss://example.com/api", "wss://example.com/api/ws", false},
		{"ftp://example.com", "", true},
	}

	for _, tt := range tests {
		c := New(Options{URL: tt.url}, gamestate.NewStore(), &credential.MemoryStore{}, nil)
		u, err := c.websocketURL()
		if tt.err {
			assert.Error(t, err, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
			assert.Equal(t, tt.expected, u)
		}
	}
}
