package telemetry_test

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"
	"github.com/machbase/neo-fusion/mods/fusion/state"
	"github.com/machbase/neo-fusion/mods/fusion/telemetry"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newState(t *testing.T) (*state.State, state.Aux[state.Vec3]) {
	t.Helper()
	l := state.NewLayout()
	core := state.AddCore(l)
	pic := state.AddAuxiliary[state.Vec3](l, "p_ic")
	require.NoError(t, l.Build())

	s := state.New(l)
	s.Reset(func(sd *state.Seed) {
		state.Override(sd, core.Position, state.Vec3{X: 1, Y: 2, Z: 3})
		state.Override(sd, core.Velocity, state.Vec3{X: -1})
		state.Override(sd, core.Scale, state.Scale(0.5))
	})
	pic.Set(s, state.Vec3{X: 7, Y: 8, Z: 9})
	s.P.SetSym(0, 0, 0.25)
	s.Time = 42
	return s, pic
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]telemetry.Format{
		"":             telemetry.FormatJSON,
		"JSON":         telemetry.FormatJSON,
		"ilp":          telemetry.FormatLine,
		"lineprotocol": telemetry.FormatLine,
	} {
		f, err := telemetry.ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, f, in)
	}
	_, err := telemetry.ParseFormat("csv")
	require.Error(t, err)
}

func TestSourceRequiresPose(t *testing.T) {
	l := state.NewLayout()
	state.AddPropagated[state.Vec3](l, state.NamePosition)
	require.NoError(t, l.Build())
	_, err := telemetry.NewSource("x", l)
	require.ErrorIs(t, err, state.ErrConfiguration)
}

func TestRecordJSON(t *testing.T) {
	s, _ := newState(t)
	src, err := telemetry.NewSource("vicon", s.Layout())
	require.NoError(t, err)

	enc, err := telemetry.NewEncoder(telemetry.FormatJSON, "")
	require.NoError(t, err)
	require.Equal(t, "application/json", enc.ContentType())
	b, err := enc.Encode(src.Record(s))
	require.NoError(t, err)
	require.True(t, json.Valid(b))

	doc := string(b)
	require.Equal(t, "vicon", gjson.Get(doc, "name").String())
	require.Equal(t, 42.0, gjson.Get(doc, "time").Float())
	require.Equal(t, 2.0, gjson.Get(doc, "pose.position.Y").Float())
	require.Equal(t, 1.0, gjson.Get(doc, "pose.orientation.Real").Float())
	require.Equal(t, 0.25, gjson.Get(doc, "pose.covariance.0").Float())
	require.Equal(t, int64(36), gjson.Get(doc, "pose.covariance.#").Int())
	require.Equal(t, -1.0, gjson.Get(doc, "velocity.X").Float())
	require.Equal(t, int64(7), gjson.Get(doc, "fields.#").Int())
	require.Equal(t, "p_ic", gjson.Get(doc, "fields.6.name").String())
	require.Equal(t, "[7,8,9]", gjson.Get(doc, "fields.6.values").Raw)
	require.Equal(t, "scale", gjson.Get(doc, "fields.5.type").String())
}

func TestLineProtocol(t *testing.T) {
	s, pic := newState(t)
	src, err := telemetry.NewSource("vicon", s.Layout())
	require.NoError(t, err)

	_, err = telemetry.NewEncoder(telemetry.FormatLine, "")
	require.Error(t, err)

	enc, err := telemetry.NewEncoder(telemetry.FormatLine, "fusion")
	require.NoError(t, err)
	b, err := enc.Encode(src.Record(s))
	require.NoError(t, err)

	line := string(b)
	require.True(t, strings.HasPrefix(line, "fusion,name=vicon position_x=1,"), line)
	require.True(t, strings.HasSuffix(line, " 42000000000\n"), line)
	for _, kv := range []string{
		"orientation_w=1,", "velocity_x=-1,", "pose_var_0=0.25,",
		"q_wi_w=1,", "L=0.5,", "p_ic_x=7,", "p_ic_z=9 ",
	} {
		require.Contains(t, line, kv)
	}

	// no timestamp yet
	r := src.Record(s)
	r.Time = state.Unset
	_, err = enc.Encode(r)
	require.Error(t, err)

	// not representable
	pic.Set(s, state.Vec3{X: math.NaN()})
	_, err = enc.Encode(src.Record(s))
	require.ErrorContains(t, err, "p_ic_x")
}

type fakeToken struct {
	done chan struct{}
	err  error
}

func doneToken(err error) *fakeToken {
	tok := &fakeToken{done: make(chan struct{}), err: err}
	close(tok.done)
	return tok
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type message struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	connected bool
	stall     bool
	messages  []message
}

func (c *fakeClient) Connect() paho.Token {
	c.connected = true
	return doneToken(nil)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	if c.stall {
		return &fakeToken{done: make(chan struct{})}
	}
	c.messages = append(c.messages, message{topic: topic, qos: qos, payload: payload.([]byte)})
	return doneToken(nil)
}

func (c *fakeClient) Disconnect(uint)   { c.connected = false }
func (c *fakeClient) IsConnected() bool { return c.connected }

func TestPublisher(t *testing.T) {
	s, _ := newState(t)
	src, err := telemetry.NewSource("vicon", s.Layout())
	require.NoError(t, err)

	client := &fakeClient{}
	pub, err := telemetry.NewPublisher(telemetry.Config{
		Broker: "tcp://127.0.0.1:1883",
		Topic:  "fusion/vicon",
		QoS:    1,
		Format: "ilp",
	}, telemetry.WithClient(client))
	require.NoError(t, err)

	conf := pub.Config()
	require.Equal(t, "fusion", conf.Measurement)
	require.Equal(t, 3*time.Second, conf.Timeout)
	require.True(t, strings.HasPrefix(conf.ClientID, "fusion-"))
	_, err = uuid.FromString(strings.TrimPrefix(conf.ClientID, "fusion-"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, pub.Connect(ctx))
	require.NoError(t, pub.Publish(ctx, src.Record(s)))
	s.Time = 43
	require.NoError(t, pub.Publish(ctx, src.Record(s)))

	require.Len(t, client.messages, 2)
	require.Equal(t, "fusion/vicon", client.messages[0].topic)
	require.Equal(t, byte(1), client.messages[0].qos)
	require.True(t, strings.HasPrefix(string(client.messages[1].payload), "fusion,name=vicon "))

	stats := pub.Stats()
	require.Equal(t, int64(2), stats.Published)
	require.Equal(t, int64(0), stats.Failed)
	require.Equal(t, int64(len(client.messages[0].payload)+len(client.messages[1].payload)), stats.Bytes)

	pub.Close()
	require.False(t, client.connected)
}

func TestPublisherTimeout(t *testing.T) {
	s, _ := newState(t)
	src, err := telemetry.NewSource("", s.Layout())
	require.NoError(t, err)

	client := &fakeClient{stall: true}
	pub, err := telemetry.NewPublisher(telemetry.Config{
		Broker:   "tcp://127.0.0.1:1883",
		Topic:    "fusion",
		ClientID: "fixed",
		Timeout:  10 * time.Millisecond,
	}, telemetry.WithClient(client))
	require.NoError(t, err)
	require.Equal(t, "fixed", pub.Config().ClientID)

	err = pub.Publish(context.Background(), src.Record(s))
	require.ErrorIs(t, err, telemetry.ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pub.Publish(ctx, src.Record(s))
	require.Error(t, err)
	require.Equal(t, int64(2), pub.Stats().Failed)
}

func TestPublisherConfig(t *testing.T) {
	_, err := telemetry.NewPublisher(telemetry.Config{Topic: "a"})
	require.ErrorContains(t, err, "broker")
	_, err = telemetry.NewPublisher(telemetry.Config{Broker: "tcp://h:1883"})
	require.ErrorContains(t, err, "topic")
	_, err = telemetry.NewPublisher(telemetry.Config{Broker: "tcp://h:1883", Topic: "a", QoS: 3})
	require.ErrorContains(t, err, "qos")
	_, err = telemetry.NewPublisher(telemetry.Config{Broker: "tcp://h:1883", Topic: "a", Format: "csv"})
	require.Error(t, err)
}
