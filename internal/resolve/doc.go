// Package resolve reads values out of event instances by dotted path.
//
// A path such as "Attacker.Weapon.Name" is split on dots. The first
// component is the root: when the event exposes an accessor and the root
// is one of the accessor roots (Player, PlayerController, UserIdPlayer,
// UserId, Attacker, Victim) the entity is fetched through the accessor;
// otherwise the root is a field of the event itself. Remaining components
// are plain field reads.
//
// Resolution never fails. It degrades in two distinguishable ways:
//
//   - a missing field echoes the whole token back as "{path}", so a typo in
//     a template stays visible in chat;
//   - an absent value along the way (no attacker, nil weapon) renders as
//     the empty string.
package resolve
