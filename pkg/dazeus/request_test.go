package dazeus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestJSON(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"networks", Networks(), `{"get":"networks"}`},
		{"channels", Channels("oftc"), `{"get":"channels","params":["oftc"]}`},
		{"nick", Nick("oftc"), `{"get":"nick","params":["oftc"]}`},
		{"join", Join("net", "#chan"), `{"do":"join","params":["net","#chan"]}`},
		{"part", Part("net", "#chan"), `{"do":"part","params":["net","#chan"]}`},
		{"message", Message("net", "#chan", "hi"), `{"do":"message","params":["net","#chan","hi"]}`},
		{"notice", Notice("net", "bob", "hi"), `{"do":"notice","params":["net","bob","hi"]}`},
		{"ctcp", Ctcp("net", "bob", "VERSION"), `{"do":"ctcp","params":["net","bob","VERSION"]}`},
		{"ctcp reply", CtcpReply("net", "bob", "VERSION 1"), `{"do":"ctcp_rep","params":["net","bob","VERSION 1"]}`},
		{"action", Action("net", "#chan", "waves"), `{"do":"action","params":["net","#chan","waves"]}`},
		{"names", Names("net", "#chan"), `{"do":"names","params":["net","#chan"]}`},
		{"whois", Whois("net", "bob"), `{"do":"whois","params":["net","bob"]}`},
		{"subscribe", Subscribe(EventPrivMsg), `{"do":"subscribe","params":["PRIVMSG"]}`},
		{"subscribe command type", Subscribe(CommandEvent("greet")), `{"do":"command","params":["greet"]}`},
		{"unsubscribe", unsubscribe(EventJoin), `{"do":"unsubscribe","params":["JOIN"]}`},
		{"command", SubscribeCommand("greet"), `{"do":"command","params":["greet"]}`},
		{"command on network", SubscribeCommandOn("greet", "oftc"), `{"do":"command","params":["greet","oftc"]}`},
		{"handshake", Handshake("echo", "1.0", ""), `{"do":"handshake","params":["echo","1.0","1","echo"]}`},
		{"handshake config name", Handshake("echo", "1.0", "echo2"), `{"do":"handshake","params":["echo","1.0","1","echo2"]}`},
		{"config", Config("highlight", ConfigCore), `{"get":"config","params":["core","highlight"]}`},
		{"plugin config", Config("greeting", ConfigPlugin), `{"get":"config","params":["plugin","greeting"]}`},
		{"property get any scope", GetProperty("greeting", AnyScope()), `{"do":"property","params":["get","greeting"]}`},
		{"property set", SetProperty("greeting", "hi", NetworkScope("oftc")), `{"do":"property","params":["set","greeting","hi"],"scope":["oftc",null,null]}`},
		{"property unset", UnsetProperty("greeting", SenderScope("oftc", "#chan")), `{"do":"property","params":["unset","greeting"],"scope":["oftc","#chan",null]}`},
		{"property keys", PropertyKeys("greet", ReceiverScope("oftc", "bob")), `{"do":"property","params":["keys","greet"],"scope":["oftc",null,"bob"]}`},
		{"permission set", SetPermission("op", true, FullScope("oftc", "#chan", "bob")), `{"do":"permission","params":["set","op",true],"scope":["oftc","#chan","bob"]}`},
		{"permission get", HasPermission("op", false, AnyScope()), `{"do":"permission","params":["get","op",false]}`},
		{"permission unset", UnsetPermission("op", NetworkScope("oftc")), `{"do":"permission","params":["unset","op"],"scope":["oftc",null,null]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestRequestAccessors(t *testing.T) {
	req := SetProperty("greeting", "hi", NetworkScope("oftc"))
	assert.Equal(t, "property", req.Verb())
	assert.Equal(t, "do", req.Class())
	assert.Equal(t, NetworkScope("oftc"), req.Scope())

	params := req.Params()
	params[0] = "changed"
	assert.Equal(t, "set", req.Params()[0])

	assert.Equal(t, "get", Networks().Class())
}

func TestZeroRequest(t *testing.T) {
	_, err := json.Marshal(Request{})
	assert.Error(t, err)
	assert.Equal(t, "<invalid request>", Request{}.String())
}

func TestUnsubscribeCommandPanics(t *testing.T) {
	assert.Panics(t, func() { unsubscribe(CommandEvent("greet")) })
}

func TestParseConfigGroup(t *testing.T) {
	g, err := ParseConfigGroup("CORE")
	require.NoError(t, err)
	assert.Equal(t, ConfigCore, g)

	g, err = ParseConfigGroup("plugin")
	require.NoError(t, err)
	assert.Equal(t, ConfigPlugin, g)

	_, err = ParseConfigGroup("other")
	assert.Error(t, err)
}

func TestScopeJSON(t *testing.T) {
	data, err := json.Marshal(AnyScope())
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,null]`, string(data))
	assert.True(t, AnyScope().IsAny())
	assert.False(t, NetworkScope("oftc").IsAny())
}
