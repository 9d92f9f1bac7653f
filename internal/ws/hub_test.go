package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTopicSubscribers(t *testing.T) {
	h := NewHub()
	a := NewClient("u1", Topic{Table: "messages", Scope: "b1"})
	b := NewClient("u2", Topic{Table: "messages", Scope: "b1"})
	other := NewClient("u3", Topic{Table: "messages", Scope: "b2"})
	for _, c := range []*Client{a, b, other} {
		h.Register(c)
	}
	assert.Equal(t, 2, h.TopicCount("messages", "b1"))

	h.Publish("messages", "b1", "insert", map[string]string{"id": "m1"})

	for _, c := range []*Client{a, b} {
		require.Len(t, c.Send, 1)
		var env struct {
			Table  string            `json:"table"`
			Scope  string            `json:"scope"`
			Kind   string            `json:"kind"`
			Record map[string]string `json:"record"`
		}
		require.NoError(t, json.Unmarshal(<-c.Send, &env))
		assert.Equal(t, "messages", env.Table)
		assert.Equal(t, "b1", env.Scope)
		assert.Equal(t, "insert", env.Kind)
		assert.Equal(t, "m1", env.Record["id"])
	}
	assert.Empty(t, other.Send)
}

func TestPublishPreservesOrder(t *testing.T) {
	h := NewHub()
	c := NewClient("u1", Topic{Table: "notifications", Scope: "u1"})
	h.Register(c)

	for _, id := range []string{"1", "2", "3"} {
		h.Publish("notifications", "u1", "insert", map[string]string{"id": id})
	}

	var got []string
	for i := 0; i < 3; i++ {
		var env Envelope
		require.NoError(t, json.Unmarshal(<-c.Send, &env))
		got = append(got, env.Record.(map[string]interface{})["id"].(string))
	}
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestCloseUnregisters(t *testing.T) {
	h := NewHub()
	c := NewClient("u1", Topic{Table: "presence", Scope: "global"})
	h.Register(c)

	c.Close()
	c.Close()

	assert.Zero(t, h.ClientCount())
	assert.Zero(t, h.TopicCount("presence", "global"))
	// publishing after close must not panic on the closed channel
	h.Publish("presence", "global", "update", nil)
}

func TestSlowSubscriberIsDisconnected(t *testing.T) {
	h := NewHub()
	c := &Client{UserID: "u1", Topic: Topic{Table: "presence", Scope: "global"}, Send: make(chan []byte, 1)}
	h.Register(c)

	h.Publish("presence", "global", "update", 1)
	h.Publish("presence", "global", "update", 2)

	assert.Zero(t, h.ClientCount())
	// the buffered change is still drained before the closed channel ends the write pump
	_, ok := <-c.Send
	assert.True(t, ok)
	_, ok = <-c.Send
	assert.False(t, ok)
}
