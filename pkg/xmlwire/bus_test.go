package xmlwire

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PingPong(t *testing.T) {
	bus, err := Listen("127.0.0.1:0", func(req Request) Reply {
		if req.Ping != nil {
			return Reply{Token: req.Token, Pong: &PongBody{}}
		}
		return Reply{Token: req.Token, Error: &ErrorBody{Message: "unexpected verb"}}
	}, zerolog.Nop())
	require.NoError(t, err)
	defer bus.Stop()

	sock, err := Dial(bus.Addr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer sock.Close()

	assert.True(t, sock.Ping("tok"))
}

func TestBus_RegisterIssuesParams(t *testing.T) {
	bus, err := Listen("127.0.0.1:0", func(req Request) Reply {
		if req.Register != nil {
			return Reply{
				Params: &ParamsBody{
					Token: "fresh-token",
					Settings: []KeyValue{
						{Key: "refresh_rate", Value: "300"},
					},
				},
			}
		}
		return Reply{Error: &ErrorBody{Message: "unexpected verb"}}
	}, zerolog.Nop())
	require.NoError(t, err)
	defer bus.Stop()

	sock, err := Dial(bus.Addr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer sock.Close()

	reply, err := sock.Send(Request{Register: &RegisterBody{SpawnToken: "one-off", Kind: "file-pull"}})
	require.NoError(t, err)
	require.NotNil(t, reply.Params)
	assert.Equal(t, "fresh-token", reply.Params.Token)

	rate, ok := reply.Params.Get("refresh_rate")
	assert.True(t, ok)
	assert.Equal(t, "300", rate)
}

func TestBus_SequentialRequestsOverSameSocket(t *testing.T) {
	var seen []string

	bus, err := Listen("127.0.0.1:0", func(req Request) Reply {
		if req.SubscriptionUpdate != nil {
			seen = append(seen, req.SubscriptionUpdate.URI)
		}
		return Reply{Ack: &AckBody{}}
	}, zerolog.Nop())
	require.NoError(t, err)
	defer bus.Stop()

	sock, err := Dial(bus.Addr().String(), zerolog.Nop())
	require.NoError(t, err)
	defer sock.Close()

	for _, uri := range []string{"file:///a.xml", "file:///b.xml", "file:///c.xml"} {
		reply, err := sock.Send(Request{
			Token:              "tok",
			SubscriptionUpdate: &SubscriptionUpdate{URI: uri},
		})
		require.NoError(t, err)
		require.NotNil(t, reply.Ack)
	}

	assert.Equal(t, []string{"file:///a.xml", "file:///b.xml", "file:///c.xml"}, seen)
}

func TestParamsBody_GetMissingKey(t *testing.T) {
	p := ParamsBody{Settings: []KeyValue{{Key: "a", Value: "1"}}}
	_, ok := p.Get("missing")
	assert.False(t, ok)
}
