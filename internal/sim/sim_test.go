package sim

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/resolve"
)

var testSpec = &ir.Catalog{
	Entities: []ir.EntitySpec{
		{Name: "Player", Fields: []ir.FieldSpec{{Name: "SteamID", Type: ir.TypeInt}}},
		{Name: "Weapon", Fields: []ir.FieldSpec{
			{Name: "Name", Type: ir.TypeString},
			{Name: "Ammo", Type: ir.TypeInt},
			{Name: "Owner", Type: "Player"},
		}},
	},
	Events: []ir.EventSpec{
		{Name: "EventPlayerDeath", Accessor: true, Fields: []ir.FieldSpec{
			{Name: "Weapon", Type: "Weapon"},
			{Name: "Headshot", Type: ir.TypeBool},
			{Name: "Distance", Type: ir.TypeFloat},
		}},
		{Name: "EventRoundStart", Fields: []ir.FieldSpec{{Name: "TimeLimit", Type: ir.TypeInt}}},
	},
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := BuildRegistry(testSpec)
	require.NoError(t, err)
	return reg
}

func newPlayer(t *testing.T, reg *Registry, id, name, lang string) *Player {
	t.Helper()
	p, err := reg.NewPlayer(PlayerSpec{ID: id, Name: name, Language: lang})
	require.NoError(t, err)
	return p
}

func TestBuildRegistry_Descriptors(t *testing.T) {
	reg := newRegistry(t)

	death, ok := reg.Resolve("eventplayerdeath")
	require.True(t, ok)
	assert.Equal(t, "EventPlayerDeath", death.Name())
	assert.True(t, death.HasAccessor())
	assert.Same(t, reg.PlayerSchema(), death.PlayerSchema())

	round, ok := reg.Resolve("EventRoundStart")
	require.True(t, ok)
	assert.False(t, round.HasAccessor())

	f, ok := death.Schema().Field("weapon")
	require.True(t, ok)
	require.NotNil(t, f.Nested)
	assert.Equal(t, "Weapon", f.Nested.Name())
	assert.Equal(t, []string{"Weapon", "Weapon.Name", "Weapon.Ammo", "Weapon.Owner", "Weapon.Owner.Name",
		"Weapon.Owner.ID", "Weapon.Owner.Language", "Weapon.Owner.SteamID", "Headshot", "Distance"},
		death.Schema().Paths(3))
}

func TestBuildRegistry_DuplicateEvents(t *testing.T) {
	_, err := BuildRegistry(&ir.Catalog{Events: []ir.EventSpec{{Name: "A"}, {Name: "a"}}})
	assert.ErrorIs(t, err, event.ErrDuplicateEvent)
}

func TestBuildRegistry_UnknownEntity(t *testing.T) {
	_, err := BuildRegistry(&ir.Catalog{Events: []ir.EventSpec{
		{Name: "A", Fields: []ir.FieldSpec{{Name: "Team", Type: "Team"}}},
	}})
	assert.ErrorContains(t, err, `unknown entity "Team"`)
}

func TestBuildRegistry_EntityCycle(t *testing.T) {
	reg, err := BuildRegistry(&ir.Catalog{
		Entities: []ir.EntitySpec{
			{Name: "Team", Fields: []ir.FieldSpec{{Name: "Captain", Type: "Member"}}},
			{Name: "Member", Fields: []ir.FieldSpec{{Name: "Name", Type: ir.TypeString}, {Name: "Team", Type: "Team"}}},
		},
		Events: []ir.EventSpec{{Name: "EventTeam", Fields: []ir.FieldSpec{{Name: "Team", Type: "Team"}}}},
	})
	require.NoError(t, err)

	desc, inst, err := reg.NewEvent("EventTeam", nil, map[string]any{
		"Team": map[string]any{"Captain": map[string]any{"Name": "Zed", "Team": map[string]any{}}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Zed", resolve.Path(desc.Schema(), inst, "Team.Captain.Name"))
	assert.Equal(t, "Team", resolve.Path(desc.Schema(), inst, "Team.Captain.Team"))
}

func TestNewPlayer(t *testing.T) {
	reg := newRegistry(t)

	p, err := reg.NewPlayer(PlayerSpec{ID: "7", Language: "de", Fields: map[string]any{"steamid": 765}})
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID())
	assert.Equal(t, "7", p.Name(), "name defaults to id")
	assert.Equal(t, "de", p.Language())

	schema := p.Schema()
	assert.Equal(t, "765", resolve.Path(schema, p, "SteamID"))
	assert.Equal(t, "7", resolve.Path(schema, p, "Name"))
	assert.Equal(t, "de", resolve.Path(schema, p, "language"))

	_, err = reg.NewPlayer(PlayerSpec{ID: "8", Fields: map[string]any{"Score": 1}})
	assert.ErrorContains(t, err, `unknown field "Score"`)

	_, err = reg.NewPlayer(PlayerSpec{ID: "9", Fields: map[string]any{"SteamID": "abc"}})
	assert.ErrorContains(t, err, "expected int")

	_, err = reg.NewPlayer(PlayerSpec{})
	assert.ErrorContains(t, err, "player id is required")
}

func TestNewEvent_ResolvesLikeHostEvents(t *testing.T) {
	reg := newRegistry(t)
	alice := newPlayer(t, reg, "1", "Alice", "en")
	bob := newPlayer(t, reg, "2", "Bob", "en")
	players := map[string]*Player{"1": alice, "2": bob}

	desc, inst, err := reg.NewEvent("EventPlayerDeath",
		Roles{resolve.KeyUserID: alice, resolve.KeyAttacker: bob},
		map[string]any{
			"Weapon":   map[string]any{"Name": "ak47", "Ammo": 30.0, "Owner": "2"},
			"Headshot": true,
			"Distance": 12,
		}, players)
	require.NoError(t, err)

	render := func(path string) string { return resolve.Path(desc.Schema(), inst, path) }
	assert.Equal(t, "Alice", render("Player.Name"))
	assert.Equal(t, "Bob", render("Attacker.Name"))
	assert.Equal(t, "Alice", render("Victim.Name"))
	assert.Equal(t, "ak47", render("Weapon.Name"))
	assert.Equal(t, "30", render("Weapon.Ammo"))
	assert.Equal(t, "Bob", render("Weapon.Owner"))
	assert.Equal(t, "true", render("Headshot"))
	assert.Equal(t, "12", render("Distance"))

	p, ok := resolve.PlayerOf(inst)
	require.True(t, ok)
	assert.Same(t, alice, p)
}

func TestNewEvent_AbsentValues(t *testing.T) {
	reg := newRegistry(t)

	desc, inst, err := reg.NewEvent("EventPlayerDeath", Roles{}, map[string]any{"Weapon": nil}, nil)
	require.NoError(t, err)

	assert.Equal(t, resolve.Result{Status: resolve.Null}, resolve.Lookup(desc.Schema(), inst, "Attacker.Name"))
	assert.Equal(t, resolve.Result{Status: resolve.Null}, resolve.Lookup(desc.Schema(), inst, "Weapon.Name"))
	assert.Equal(t, resolve.Unresolved, resolve.Lookup(desc.Schema(), inst, "Nope.Name").Status)
}

func TestNewEvent_NoAccessor(t *testing.T) {
	reg := newRegistry(t)
	alice := newPlayer(t, reg, "1", "Alice", "en")

	_, inst, err := reg.NewEvent("EventRoundStart", Roles{resolve.KeyUserID: alice}, map[string]any{"TimeLimit": 90}, nil)
	require.NoError(t, err)

	_, ok := event.AccessorOf(inst)
	assert.False(t, ok)
}

func TestNewEvent_Errors(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name   string
		event  string
		fields map[string]any
		want   string
	}{
		{"unknown event", "EventNope", nil, `unknown event "EventNope"`},
		{"unknown field", "EventRoundStart", map[string]any{"Winner": "T"}, `unknown field "Winner"`},
		{"wrong scalar", "EventRoundStart", map[string]any{"TimeLimit": "long"}, "expected int"},
		{"fractional int", "EventRoundStart", map[string]any{"TimeLimit": 1.5}, "expected integer"},
		{"wrong bool", "EventPlayerDeath", map[string]any{"Headshot": "yes"}, "expected bool"},
		{"entity not object", "EventPlayerDeath", map[string]any{"Weapon": "ak47"}, "expected Weapon object"},
		{"unknown player", "EventPlayerDeath", map[string]any{"Weapon": map[string]any{"Owner": "99"}}, `unknown player "99"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := reg.NewEvent(tt.event, nil, tt.fields, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestBus_SubscribeFireUnsubscribe(t *testing.T) {
	reg := newRegistry(t)
	desc, _ := reg.Resolve("EventRoundStart")
	bus := NewBus()

	var got []string
	unsubA, err := bus.Subscribe(desc, func(_ context.Context, inst any) { got = append(got, "a") })
	require.NoError(t, err)
	_, err = bus.Subscribe(desc, func(_ context.Context, inst any) { got = append(got, "b") })
	require.NoError(t, err)

	assert.Equal(t, 2, bus.Fire(context.Background(), desc, nil))
	assert.Equal(t, []string{"a", "b"}, got)

	unsubA()
	unsubA()
	assert.Equal(t, 1, bus.Subscribers(desc))
	assert.Equal(t, 1, bus.Fire(context.Background(), desc, nil))
	assert.Equal(t, []string{"a", "b", "b"}, got)

	_, err = bus.Subscribe(nil, func(context.Context, any) {})
	assert.Error(t, err)
}

func TestRoster(t *testing.T) {
	reg := newRegistry(t)
	alice := newPlayer(t, reg, "1", "Alice", "en")
	bob := newPlayer(t, reg, "2", "Bob", "en")

	r := NewRoster(alice)
	require.NoError(t, r.Add(bob))
	assert.Error(t, r.Add(bob))

	valid := r.ValidPlayers()
	require.Len(t, valid, 2)
	assert.Equal(t, "1", valid[0].ID())
	assert.Equal(t, "2", valid[1].ID())

	got, ok := r.Get("2")
	require.True(t, ok)
	assert.Same(t, bob, got)

	assert.True(t, r.Remove("1"))
	assert.False(t, r.Remove("1"))
	assert.Len(t, r.Index(), 1)

	var _ host.PlayerManager = r
}

func TestChatAndHUD(t *testing.T) {
	reg := newRegistry(t)
	alice := newPlayer(t, reg, "1", "Alice", "en")

	var echoed []string
	chat := &ChatLog{OnSend: func(p event.Player, text string) { echoed = append(echoed, p.ID()+":"+text) }}
	chat.SendChat(alice, "hi")
	assert.Equal(t, []ChatLine{{PlayerID: "1", Text: "hi"}}, chat.Lines())
	assert.Equal(t, []string{"1:hi"}, echoed)
	chat.Reset()
	assert.Empty(t, chat.Lines())

	hud := &HUDLog{}
	hud.SendCenterHTML(alice, "<img src='a.png' />", 15*time.Second)
	assert.Equal(t, []HUDFrame{{PlayerID: "1", HTML: "<img src='a.png' />", Duration: 15 * time.Second}}, hud.Frames())
}

func TestCommands(t *testing.T) {
	c := NewCommands()
	require.NoError(t, c.RegisterCommand("Discord", func(ctx host.CommandContext) {
		name := "console"
		if ctx.Sender() != nil {
			name = ctx.Sender().ID()
		}
		ctx.Reply("hello " + name)
	}))
	assert.Error(t, c.RegisterCommand("discord", func(host.CommandContext) {}))
	assert.Error(t, c.RegisterCommand("", func(host.CommandContext) {}))
	assert.Equal(t, []string{"discord"}, c.Names())

	replies, err := c.Invoke("DISCORD", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello console"}, replies)

	c.UnregisterCommand("discord")
	_, err = c.Invoke("discord", nil)
	assert.ErrorContains(t, err, "unknown command")
}

func TestServer_Apply(t *testing.T) {
	reg := newRegistry(t)
	srv := NewServer()
	ctx := context.Background()

	var fired []any
	desc, _ := reg.Resolve("EventPlayerDeath")
	_, err := srv.Bus.Subscribe(desc, func(_ context.Context, inst any) { fired = append(fired, inst) })
	require.NoError(t, err)
	require.NoError(t, srv.Commands.RegisterCommand("ping", func(ctx host.CommandContext) { ctx.Reply("pong") }))

	steps := `{"connect": {"id": "1", "name": "Alice", "language": "en"}}
{"connect": {"id": "2", "name": "Bob", "fields": {"SteamID": 42}}}
{"event": "EventPlayerDeath", "roles": {"userid": "1", "attacker": "2"}, "fields": {"Distance": 3.5}}
{"command": "ping", "sender": "2"}
{"disconnect": "1"}
`
	dec := NewStepDecoder(strings.NewReader(steps))
	for {
		step, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, srv.Apply(ctx, reg, step))
	}

	require.Len(t, fired, 1)
	assert.Equal(t, "Bob", resolve.Path(desc.Schema(), fired[0], "Attacker.Name"))
	assert.Equal(t, "42", resolve.Path(desc.Schema(), fired[0], "Attacker.SteamID"))
	assert.Equal(t, "3.5", resolve.Path(desc.Schema(), fired[0], "Distance"))
	assert.Equal(t, []ChatLine{{PlayerID: "2", Text: "pong"}}, srv.Chat.Lines())
	assert.Len(t, srv.Roster.ValidPlayers(), 1)
}

func TestServer_ApplyErrors(t *testing.T) {
	reg := newRegistry(t)
	srv := NewServer()
	ctx := context.Background()

	assert.ErrorContains(t, srv.Apply(ctx, reg, Step{}), "exactly one")
	assert.ErrorContains(t, srv.Apply(ctx, reg, Step{Event: "EventRoundStart", Disconnect: "1"}), "exactly one")
	assert.ErrorContains(t, srv.Apply(ctx, reg, Step{Disconnect: "1"}), "not connected")
	assert.ErrorContains(t, srv.Apply(ctx, reg, Step{Command: "nope"}), "unknown command")
	assert.ErrorContains(t, srv.Apply(ctx, reg, Step{Command: "nope", Sender: "5"}), "unknown sender")
	assert.ErrorContains(t, srv.Apply(ctx, reg, Step{Event: "EventPlayerDeath", Roles: map[string]string{"userid": "5"}}), "unknown player")
}

func TestStepDecoder_BadLine(t *testing.T) {
	dec := NewStepDecoder(strings.NewReader("{\"event\": \"A\"}\n{oops}\n"))
	_, err := dec.Next()
	require.NoError(t, err)
	_, err = dec.Next()
	assert.ErrorContains(t, err, "step 2")
}

func TestParsePlayers(t *testing.T) {
	specs, err := ParsePlayers([]byte(`
- id: "1"
  name: Alice
  language: en
- id: "2"
  name: Bob
  fields:
    SteamID: 42
`))
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "Alice", specs[0].Name)
	assert.Equal(t, 42, specs[1].Fields["SteamID"])

	_, err = ParsePlayers([]byte("- id: 1\n  nick: x\n"))
	assert.Error(t, err, "unknown keys are rejected")

	specs, err = ParsePlayers(nil)
	require.NoError(t, err)
	assert.Empty(t, specs)
}
