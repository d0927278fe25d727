package resolve

import (
	"sort"

	"github.com/roach88/msgpulse/internal/event"
)

// Accessor role keys understood by hosts.
const (
	KeyUserID   = "userid"
	KeyAttacker = "attacker"
)

// PlayerRoot is the root alias that resolves through Accessor.Player.
// Every other accessor root resolves through Accessor.Controller.
const PlayerRoot = "Player"

var accessorRoots = map[string]string{
	"Player":           KeyUserID,
	"PlayerController": KeyUserID,
	"UserIdPlayer":     KeyUserID,
	"UserId":           KeyUserID,
	"Attacker":         KeyAttacker,
	"Victim":           KeyUserID,
}

var foldedRoots = func() map[string]string {
	m := make(map[string]string, len(accessorRoots))
	for root, key := range accessorRoots {
		m[event.Fold(root)] = key
	}
	return m
}()

// RootKey returns the accessor key for an accessor root, ignoring case.
func RootKey(root string) (string, bool) {
	key, ok := foldedRoots[event.Fold(root)]
	return key, ok
}

// IsPlayerRoot reports whether root selects Accessor.Player.
func IsPlayerRoot(root string) bool {
	return event.Fold(root) == event.Fold(PlayerRoot)
}

// Roots returns the accessor root names, sorted.
func Roots() []string {
	out := make([]string, 0, len(accessorRoots))
	for root := range accessorRoots {
		out = append(out, root)
	}
	sort.Strings(out)
	return out
}
