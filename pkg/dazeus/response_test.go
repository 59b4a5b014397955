package dazeus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClassifyResponse(t *testing.T, payload string) *Response {
	t.Helper()
	msg, err := classify([]byte(payload))
	require.NoError(t, err)
	require.NotNil(t, msg.response)
	return msg.response
}

func TestResponseAccessors(t *testing.T) {
	resp := mustClassifyResponse(t, `{"success":true,"network":"oftc","channels":["#a",1,"#b"],"count":3,"user":{"name":"alice"}}`)

	assert.True(t, resp.Success())
	assert.True(t, resp.Has("network"))
	assert.False(t, resp.Has("nick"))

	s, ok := resp.GetString("network")
	assert.True(t, ok)
	assert.Equal(t, "oftc", s)

	_, ok = resp.GetString("count")
	assert.False(t, ok)
	assert.Equal(t, "none", resp.GetStringOr("nick", "none"))
	assert.Equal(t, []string{"#a", "#b"}, resp.Strings("channels"))
	assert.Nil(t, resp.Strings("network"))

	assert.Equal(t, "alice", resp.Lookup("user.name").String())
	assert.Equal(t, int64(3), resp.Lookup("count").Int())
	assert.Equal(t, "#b", resp.Lookup("channels.2").String())

	var decoded struct {
		Channels []any `json:"channels"`
	}
	require.NoError(t, resp.Decode(&decoded))
	assert.Len(t, decoded.Channels, 3)
}

func TestSyntheticResponses(t *testing.T) {
	ok := ResponseForSuccess()
	assert.True(t, ok.Success())
	assert.JSONEq(t, `{"success":true}`, ok.String())

	fail := ResponseForFailure("no such thing")
	assert.False(t, fail.Success())
	assert.Equal(t, "no such thing", fail.Reason())
	assert.JSONEq(t, `{"success":false,"reason":"no such thing"}`, string(fail.Raw()))
}

func TestResponseRawIsCopy(t *testing.T) {
	resp := mustClassifyResponse(t, `{"success":true}`)
	raw := resp.Raw()
	raw[0] = 'x'
	assert.Equal(t, `{"success":true}`, resp.String())
}

func TestSuccessRequiresBoolean(t *testing.T) {
	assert.False(t, mustClassifyResponse(t, `{"success":"true"}`).Success())
	assert.False(t, mustClassifyResponse(t, `{}`).Success())
}
