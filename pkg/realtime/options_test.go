package realtime

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestOptionsFromConfig(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "http://localhost:5000", opts.URL)
	assert.Equal(t, "/ws", opts.WebsocketPath)
	assert.Equal(t, time.Second*5, opts.HeartbeatInterval)
	assert.Equal(t, 5, opts.ReconnectAttempts)
	assert.Equal(t, time.Second, opts.ReconnectDelay)
	assert.Equal(t, time.Second*5, opts.MaxReconnectDelay)
	assert.Equal(t, time.Second*10, opts.ErrorCoolDown)
}

func TestOptions_withDefaults(t *testing.T) {
	opts := Options{URL: "http://example.com", ReconnectAttempts: -1}.withDefaults()
	assert.Equal(t, "/ws", opts.WebsocketPath)
	assert.Equal(t, time.Second*5, opts.HeartbeatInterval)
	assert.Equal(t, 0, opts.ReconnectAttempts)
	assert.Equal(t, time.Second, opts.MaxReconnectDelay)
	assert.NotNil(t, opts.Dialer)
}

func TestOptions_newBackOff(t *testing.T) {
	opts := Options{
		ReconnectAttempts: 6,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: time.Second * 5,
	}

	b := opts.newBackOff()
	for _, want := range []time.Duration{time.Second, time.Second * 2, time.Second * 4, time.Second * 5, time.Second * 5, time.Second * 5} {
		assert.Equal(t, want, b.NextBackOff())
	}

	assert.Equal(t, backoff.Stop, b.NextBackOff())

	opts.ReconnectAttempts = 0
	assert.Equal(t, backoff.Stop, opts.newBackOff().NextBackOff())
}

func Test_throttle(t *testing.T) {
	th := newThrottle(time.Millisecond * 200)

	ok, n := th.allow("dial")
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	ok, _ = th.allow("dial")
	assert.False(t, ok)
	ok, _ = th.allow("dial")
	assert.False(t, ok)

	ok, _ = th.allow("read")
	assert.True(t, ok, "keys are throttled independently")

	time.Sleep(time.Millisecond * 250)
	ok, n = th.allow("dial")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	ok, _ = th.allow("dial")
	assert.False(t, ok)
}

func Test_throttle_noCoolDown(t *testing.T) {
	th := newThrottle(0)
	for i := 0; i < 3; i++ {
		ok, n := th.allow("dial")
		assert.True(t, ok)
		assert.Equal(t, 0, n)
	}
}
