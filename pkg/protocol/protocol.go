package protocol

import (
	"encoding/json"
)

// Response is what the server sends to a client
// Seq is set on messages that carry an authoritative game snapshot
type Response struct {
	Key     string      `json:"key"`
	Value   string      `json:"value,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Context string      `json:"context,omitempty"`
	Seq     uint64      `json:"seq,omitempty"`
}

// Message is a Response as received by a client, with the data left undecoded
type Message struct {
	Key     string          `json:"key"`
	Value   string          `json:"value"`
	Data    json.RawMessage `json:"data"`
	Context string          `json:"context"`
	Seq     uint64          `json:"seq"`
}

// Decode unmarshals the message data into v
func (m *Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}

	return json.Unmarshal(m.Data, v)
}

// OK returns a generic success response
func OK(ctx ...string) *Response {
	res := &Response{
		Key:   KeyStatus,
		Value: "OK",
	}

	if len(ctx) == 1 {
		res.Context = ctx[0]
	}

	return res
}

// ErrorResponse returns an error reply to an action
func ErrorResponse(ctx string, err error) *Response {
	return &Response{
		Key:     KeyError,
		Value:   err.Error(),
		Context: ctx,
	}
}

// PayloadIn is the format the server expects from a client
type PayloadIn struct {
	Action         string         `json:"action"`
	Subject        string         `json:"subject,omitempty"`
	Cards          []string       `json:"cards,omitempty"`
	AdditionalData AdditionalData `json:"additionalData,omitempty"`
	// Context will be passed back on any reply
	Context string `json:"context,omitempty"`
}

// AdditionalData provides additional data in a payload
type AdditionalData map[string]interface{}

// GetString returns a string for the given key
func (a AdditionalData) GetString(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// GetInt returns an integer value for the given key
func (a AdditionalData) GetInt(key string) (int, bool) {
	switch val := a[key].(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	}

	return 0, false
}

// GetBool returns a boolean value for the given key
func (a AdditionalData) GetBool(key string) (bool, bool) {
	boolVal, ok := a[key].(bool)
	if !ok {
		return false, false
	}

	return boolVal, true
}
