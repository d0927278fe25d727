package resolve

import "github.com/roach88/msgpulse/internal/event"

type testPlayer struct {
	id   string
	name string
	lang string
}

var testPlayerSchema = event.MustSchema("Player",
	event.FieldOf("Name", func(p *testPlayer) any { return p.name }),
	event.FieldOf("ID", func(p *testPlayer) any { return p.id }),
)

func (p *testPlayer) Schema() *event.Schema { return testPlayerSchema }
func (p *testPlayer) ID() string            { return p.id }
func (p *testPlayer) Language() string      { return p.lang }

// testController stands in for the controller record a host keeps
// apart from the player pawn.
type testController struct {
	name string
	team string
}

var testControllerSchema = event.MustSchema("PlayerController",
	event.FieldOf("Name", func(c *testController) any { return c.name }),
	event.FieldOf("Team", func(c *testController) any { return c.team }),
)

func (c *testController) Schema() *event.Schema { return testControllerSchema }

// testAccessor serves players by role key. When controllers is set,
// Controller reads only from it; otherwise it mirrors Player.
type testAccessor struct {
	players     map[string]*testPlayer
	controllers map[string]*testController
}

func (a testAccessor) Player(key string) (event.Player, bool) {
	p, ok := a.players[key]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

func (a testAccessor) Controller(key string) (event.Entity, bool) {
	if a.controllers == nil {
		return a.Player(key)
	}
	c, ok := a.controllers[key]
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

type testWeapon struct {
	Name  string
	Ammo  int
	Owner *testPlayer
}

var testWeaponSchema = event.MustSchema("Weapon",
	event.FieldOf("Name", func(w *testWeapon) any { return w.Name }),
	event.FieldOf("Ammo", func(w *testWeapon) any { return w.Ammo }),
	event.Ref("Owner", testPlayerSchema, func(w *testWeapon) *testPlayer { return w.Owner }),
)

type testDeath struct {
	acc      *testAccessor
	weapon   *testWeapon
	headshot bool
	distance float64
	round    int
}

func (d *testDeath) Accessor() event.Accessor {
	if d.acc == nil {
		return nil
	}
	return *d.acc
}

var testDeathSchema = event.MustSchema("EventPlayerDeath",
	event.Ref("Weapon", testWeaponSchema, func(d *testDeath) *testWeapon { return d.weapon }),
	event.FieldOf("Headshot", func(d *testDeath) any { return d.headshot }),
	event.FieldOf("Distance", func(d *testDeath) any { return d.distance }),
	event.FieldOf("Round", func(d *testDeath) any { return d.round }),
)

func newDeath(victim, attacker *testPlayer) *testDeath {
	players := map[string]*testPlayer{}
	if victim != nil {
		players[KeyUserID] = victim
	}
	if attacker != nil {
		players[KeyAttacker] = attacker
	}
	return &testDeath{acc: &testAccessor{players: players}}
}
