package dazeus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyEvent(t *testing.T) {
	msg, err := classify([]byte(`{"event":"JOIN","params":["oftc","alice","#chan"]}`))
	require.NoError(t, err)
	require.NotNil(t, msg.event)
	assert.Nil(t, msg.response)
	assert.Equal(t, EventJoin, msg.event.Type)
	assert.Equal(t, []string{"oftc", "alice", "#chan"}, msg.event.Params)
}

func TestClassifyEventNameCaseInsensitive(t *testing.T) {
	msg, err := classify([]byte(`{"event":"privmsg","params":["oftc","alice","#chan","hi"]}`))
	require.NoError(t, err)
	assert.Equal(t, EventPrivMsg, msg.event.Type)
}

func TestClassifyCommand(t *testing.T) {
	msg, err := classify([]byte(`{"event":"COMMAND","params":["oftc","alice","#chan","greet","hello there"]}`))
	require.NoError(t, err)
	require.NotNil(t, msg.event)
	assert.Equal(t, CommandEvent("greet"), msg.event.Type)
	assert.Equal(t, "hello there", msg.event.Param(4))
}

func TestClassifySkipsNonStringParams(t *testing.T) {
	msg, err := classify([]byte(`{"event":"NUMERIC","params":["oftc",366,null,"end"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"oftc", "end"}, msg.event.Params)
}

func TestClassifyResponse(t *testing.T) {
	msg, err := classify([]byte(`{"success":true}`))
	require.NoError(t, err)
	assert.Nil(t, msg.event)
	require.NotNil(t, msg.response)
	assert.True(t, msg.response.Success())

	// Anything that is not an event object is a response.
	msg, err = classify([]byte(`[1,2]`))
	require.NoError(t, err)
	require.NotNil(t, msg.response)
	assert.False(t, msg.response.Success())
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", `{nope`, ErrDecode},
		{"unknown event", `{"event":"BOGUS","params":[]}`, ErrInvalidPayload},
		{"event name not a string", `{"event":5,"params":[]}`, ErrInvalidPayload},
		{"missing params", `{"event":"JOIN"}`, ErrInvalidPayload},
		{"short command", `{"event":"COMMAND","params":["oftc","alice","#chan"]}`, ErrInvalidPayload},
		{"command name not a string", `{"event":"COMMAND","params":["oftc","alice","#chan",1]}`, ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classify([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
