// Package model holds the data types shared across the cooldown and
// buff-attribution pipeline: events, actors, status intervals, cooldown
// windows/trackers, rows, and the final fight table. Nothing in this
// package performs I/O; it is pure data plus the small helpers the other
// packages need to stay consistent about sentinels and keys.
package model

import "math"

// Timestamp is milliseconds relative to encounter start.
type Timestamp int64

// SentinelOpen marks a cooldown end, or a status interval end, that has
// not yet resolved. All comparisons must honor start < SentinelOpen and
// t < SentinelOpen.
const SentinelOpen Timestamp = math.MaxInt64

// Role classifies an actor. Only RolePlayer actors participate in
// mitigation calculations.
type Role string

const (
	RolePlayer     Role = "player"
	RoleNPC        Role = "npc"
	RolePet        Role = "pet"
	RoleLimitBreak Role = "limit_break"
)

// Actor is a participant in the encounter.
type Actor struct {
	ID   string
	Name string
	Job  string
	Role Role
}

// CastKind distinguishes a deliberate ability cast from an auto-attack.
type CastKind string

const (
	CastKindCast       CastKind = "cast"
	CastKindAutoAttack CastKind = "auto_attack"
)

// Cast is a single ability-use event on the shared chronological timeline.
type Cast struct {
	Timestamp   Timestamp
	Source      string // actor name
	Target      string // optional; "" when not applicable
	AbilityID   string
	AbilityName string
	Kind        CastKind
}

// BuffChangeKind is the lifecycle transition carried by a BuffChange or
// DebuffChange event.
type BuffChangeKind string

const (
	BuffApply       BuffChangeKind = "apply"
	BuffApplyStack  BuffChangeKind = "apply_stack"
	BuffRemoveStack BuffChangeKind = "remove_stack"
	BuffRemove      BuffChangeKind = "remove"
	BuffRefresh     BuffChangeKind = "refresh"
)

// BuffChange is an apply/remove/refresh transition for a buff. DebuffChange
// shares the exact same shape but carries vulnerability semantics; it is
// kept as a distinct type so callers cannot accidentally feed debuffs
// through the buff pipeline or vice versa.
type BuffChange struct {
	Timestamp   Timestamp
	Source      string
	Target      string
	AbilityID   string
	AbilityName string
	Stacks      *int
	Kind        BuffChangeKind
}

// DebuffChange is the vulnerability-tracking counterpart of BuffChange.
type DebuffChange struct {
	Timestamp   Timestamp
	Source      string
	Target      string
	AbilityID   string
	AbilityName string
	Stacks      *int
	Kind        BuffChangeKind
}

// DamageType classifies incoming damage for mitigation filtering.
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
	DamageUnique   DamageType = "unique"
	DamageUnknown  DamageType = "unknown"
)

// DamageEventKind distinguishes the final damage packet from the
// calculated-damage packet auto-attacks are reported under.
type DamageEventKind string

const (
	DamageKindDamage     DamageEventKind = "damage"
	DamageKindCalculated DamageEventKind = "calculated_damage"
)

// DamageTaken is an incoming-damage event against a player actor.
type DamageTaken struct {
	Timestamp   Timestamp
	Source      string // the actor who dealt the damage, if known
	Actor       string // the actor who took the damage
	AbilityName string
	Amount      int
	Absorbed    int
	Unmitigated int
	DamageType  DamageType
	ActiveBuffs []string
	EventKind   DamageEventKind
}

// Death marks an actor's death.
type Death struct {
	Timestamp   Timestamp
	Actor       string
	Source      string
	AbilityName string
}

// TrackerKey renders the canonical (player, ability) key used to index
// cooldown trackers and the availability index's cursors. The ability
// name must already be normalized (catalog.Normalize) by the caller.
func TrackerKey(player, ability string) string {
	return player + "\x00" + ability
}
