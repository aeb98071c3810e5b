package availability

import (
	"strings"
	"testing"

	"github.com/nicoberrocal/combatlog/model"
)

func normalize(s string) string { return strings.ToLower(s) }

func TestAvailableAtExcludesOnCooldown(t *testing.T) {
	trackers := map[string]*model.Tracker{
		model.TrackerKey("Tank", "rampart"): {
			Windows: []model.CooldownWindow{{Start: 1000, End: 91000}},
		},
	}
	idx := Build(trackers)

	avail := idx.AvailableAt(500, "Tank", []string{"Rampart", "Reprisal"}, normalize)
	if len(avail) != 2 {
		t.Fatalf("expected both available before cooldown starts, got %v", avail)
	}

	avail = idx.AvailableAt(50000, "Tank", []string{"Rampart", "Reprisal"}, normalize)
	if len(avail) != 1 || avail[0] != "Reprisal" {
		t.Fatalf("expected only Reprisal available mid-cooldown, got %v", avail)
	}

	avail = idx.AvailableAt(91000, "Tank", []string{"Rampart", "Reprisal"}, normalize)
	if len(avail) != 2 {
		t.Fatalf("expected both available once cooldown ends, got %v", avail)
	}
}

func TestAvailableAtHandlesOpenLockIndefinitely(t *testing.T) {
	trackers := map[string]*model.Tracker{
		model.TrackerKey("Tank", "holy sheltron"): {
			Windows: []model.CooldownWindow{{Start: 36000, End: model.SentinelOpen}},
		},
	}
	idx := Build(trackers)
	avail := idx.AvailableAt(1_000_000, "Tank", []string{"Holy Sheltron"}, normalize)
	if len(avail) != 0 {
		t.Fatalf("expected open lock to stay on cooldown indefinitely, got %v", avail)
	}
}

func TestEmptyBaselineYieldsEmptyResult(t *testing.T) {
	idx := Build(nil)
	if avail := idx.AvailableAt(0, "NoOne", nil, normalize); avail != nil {
		t.Fatalf("expected nil for empty baseline, got %v", avail)
	}
}
