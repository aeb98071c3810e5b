package model

import "go.mongodb.org/mongo-driver/v2/bson"

// Row is one attributed, mitigation-annotated damage event in the final
// fight table.
type Row struct {
	Timestamp      Timestamp
	Source         string
	Actor          string
	Ability        string
	Amount         int
	Absorbed       int
	Unmitigated    int
	Mitigated      int
	MitigationPct  float64
	IntendedMitPct float64
	DamageType     DamageType

	Buffs map[string][]string // buff name -> applier names
	Vulns map[string]struct{} // active vulnerability names
	Deaths []string           // actors dead at this timestamp

	AvailableMitigationsByPlayer map[string][]string

	// Botched is true iff IntendedMitPct > MitigationPct.
	Botched bool

	// PotentiallyBotchedBuffs lists buffs present on the final damage
	// packet but absent from its paired calculated-damage packet
	// (case-insensitive, deduplicated). Added surface beyond the base
	// spec's Row shape, grounded on the teacher's debug-summary idiom;
	// empty when the row has no paired calculated-damage packet.
	PotentiallyBotchedBuffs []string
}

// DiagnosticKind names one of the five non-fatal error categories the
// engine can emit.
type DiagnosticKind string

const (
	DiagDataMissing             DiagnosticKind = "data_missing"
	DiagInvariantViolation      DiagnosticKind = "invariant_violation"
	DiagAttributionGap          DiagnosticKind = "attribution_gap"
	DiagMutualExclusionConflict DiagnosticKind = "mutual_exclusion_conflict"
	DiagResourceUnderflow       DiagnosticKind = "resource_underflow"
)

// Severity is the log level a diagnostic would be emitted at by a caller
// that wires this into its own logger.
type Severity string

const (
	SevDebug Severity = "debug"
	SevWarn  Severity = "warn"
	SevError Severity = "error"
)

// Diagnostic is a single non-fatal event recorded during the build,
// carried on the FightTable instead of being logged directly
// (the module never imports a logging framework; see DESIGN.md).
type Diagnostic struct {
	Kind      DiagnosticKind
	Severity  Severity
	Message   string
	Timestamp Timestamp
}

// FightTable is the final, row-indexed output of one encounter.
type FightTable struct {
	FightID           bson.ObjectID
	EncounterID       string
	Name              string
	FriendlyPlayerIDs []string

	Rows []Row

	Trackers            map[string]*Tracker // keyed by TrackerKey(player, ability)
	ExclusiveSelections map[string]string    // group_id -> chosen ability name

	diagnostics []Diagnostic
}

// AddDiagnostic appends a diagnostic to the table.
func (f *FightTable) AddDiagnostic(d Diagnostic) {
	f.diagnostics = append(f.diagnostics, d)
}

// Diagnostics returns the accumulated non-fatal diagnostics, in emission
// order. This is the "optional counters" surface spec.md §7 calls for.
func (f *FightTable) Diagnostics() []Diagnostic {
	return f.diagnostics
}
