package model

// CooldownWindow is a single span during which an ability was
// unavailable. Invariant: End > Start. End == SentinelOpen marks a
// resource lock: a placeholder window to be resolved once the
// triggering condition (paired draw, oath regeneration, charge
// replenishment) is observed later in the timeline.
type CooldownWindow struct {
	Start Timestamp
	End   Timestamp
}

// IsOpen reports whether the window is an unresolved resource lock.
func (w CooldownWindow) IsOpen() bool { return w.End == SentinelOpen }

// Covers reports whether t falls within [Start, End).
func (w CooldownWindow) Covers(t Timestamp) bool {
	if t < w.Start {
		return false
	}
	if w.End == SentinelOpen {
		return true
	}
	return t < w.End
}

// ChargedState is the per-tracker extension state for multi-charge
// abilities: how many charges are banked, how much partial regeneration
// time has accrued, and when the tracker last observed a cast.
type ChargedState struct {
	MaxCharges  int
	Charges     int
	RemainderMs Timestamp
	LastTs      Timestamp
	HasLast     bool
}

// Tracker is the per-(player, ability) cooldown state machine output: a
// sorted-by-start sequence of windows, plus charged-ability extension
// state when the ability regenerates multiple charges.
type Tracker struct {
	Ability      string // normalized ability name
	Player       string
	Job          string
	BaseRecastMs Timestamp
	Windows      []CooldownWindow
	Charged      *ChargedState
}

// SortWindows orders a tracker's windows by Start using a stable sort so
// windows sharing a Start (stacked resource locks) keep insertion order.
func SortWindows(t *Tracker) {
	// insertion sort: trackers rarely exceed a few dozen windows per
	// encounter, and stability matters more here than asymptotics.
	for i := 1; i < len(t.Windows); i++ {
		j := i
		for j > 0 && t.Windows[j-1].Start > t.Windows[j].Start {
			t.Windows[j-1], t.Windows[j] = t.Windows[j], t.Windows[j-1]
			j--
		}
	}
}

// WindowSummary is a debug/UI-facing view of one tracker window, grounded on
// the teacher's ModifierStack.GetSummary pattern.
type WindowSummary struct {
	Start Timestamp
	End   Timestamp
	Open  bool
}

// Summary renders the tracker's windows for display; it does not mutate
// the tracker.
func (t *Tracker) Summary() []WindowSummary {
	out := make([]WindowSummary, 0, len(t.Windows))
	for _, w := range t.Windows {
		out = append(out, WindowSummary{Start: w.Start, End: w.End, Open: w.IsOpen()})
	}
	return out
}
