package snapshot

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/listkit/pkg/diffutil"
	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
)

// ErrInconsistent is returned when an edit script does not turn the old list
// into the new one.
var ErrInconsistent = errors.New("edit script does not reproduce the new list")

// Summary counts the notifications of an edit script. Counts are in items,
// moves count one each.
type Summary struct {
	Inserted int `json:"inserted" yaml:"inserted"`
	Removed  int `json:"removed"  yaml:"removed"`
	Moved    int `json:"moved"    yaml:"moved"`
	Changed  int `json:"changed"  yaml:"changed"`
}

// Report is the outcome of comparing two snapshots.
type Report struct {
	Ops     []listupdate.Op `json:"ops"      yaml:"ops"`
	Summary Summary         `json:"summary"  yaml:"summary"`
	OldSize int             `json:"old_size" yaml:"old_size"`
	NewSize int             `json:"new_size" yaml:"new_size"`
}

// Compare diffs oldItems against newItems and replays the resulting script on
// oldItems to check it lands on newItems.
func Compare(oldItems, newItems []Item, detectMoves bool) (Report, error) {
	var rec listupdate.Recorder

	diffutil.CalculateLists(oldItems, newItems, ItemCallback(), detectMoves).DispatchUpdatesTo(&rec)

	err := Verify(oldItems, newItems, rec.Ops)
	if err != nil {
		return Report{}, err
	}

	return NewReport(len(oldItems), len(newItems), rec.Ops), nil
}

// NewReport summarizes ops. A nil script becomes an empty one.
func NewReport(oldSize, newSize int, ops []listupdate.Op) Report {
	report := Report{
		Ops:     ops,
		OldSize: oldSize,
		NewSize: newSize,
	}

	if report.Ops == nil {
		report.Ops = []listupdate.Op{}
	}

	for _, op := range report.Ops {
		switch op.Kind {
		case listupdate.KindInsert:
			report.Summary.Inserted += op.Count
		case listupdate.KindRemove:
			report.Summary.Removed += op.Count
		case listupdate.KindMove:
			report.Summary.Moved++
		case listupdate.KindChange:
			report.Summary.Changed += op.Count
		}
	}

	return report
}

// Verify replays ops on oldItems and checks the result matches newItems by ID,
// with every content difference covered by a change notification.
func Verify(oldItems, newItems []Item, ops []listupdate.Op) error {
	slots, err := listupdate.Apply(oldItems, ops)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}

	if len(slots) != len(newItems) {
		return fmt.Errorf("%w: %d items, want %d", ErrInconsistent, len(slots), len(newItems))
	}

	for idx, slot := range slots {
		if slot.Inserted {
			continue
		}

		if slot.Item.ID != newItems[idx].ID {
			return fmt.Errorf("%w: position %d holds %q, want %q", ErrInconsistent, idx, slot.Item.ID, newItems[idx].ID)
		}

		if slot.Item.Content != newItems[idx].Content && !slot.Changed {
			return fmt.Errorf("%w: position %d changed without notification", ErrInconsistent, idx)
		}
	}

	return nil
}
