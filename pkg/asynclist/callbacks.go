package asynclist

// DefaultMaxCachedTiles is the tile budget suggested for DataCallback.MaxCachedTiles.
const DefaultMaxCachedTiles = 10

// ScrollHint is the direction the visible range last moved in.
type ScrollHint int

// Scroll hints. Descending means towards position 0.
const (
	ScrollNone ScrollHint = iota
	ScrollDescending
	ScrollAscending
)

func (h ScrollHint) String() string {
	switch h {
	case ScrollDescending:
		return "descending"
	case ScrollAscending:
		return "ascending"
	default:
		return "none"
	}
}

// DataCallback supplies data. Every method is called on the background
// executor, one call at a time.
type DataCallback[T any] interface {
	// RefreshData prepares a new generation of data and returns its size.
	RefreshData() int
	// FillData loads len(out) items starting at startPosition into out.
	FillData(out []T, startPosition int)
	// RecycleData is handed items that are no longer displayed.
	RecycleData(items []T)
	// MaxCachedTiles bounds the tiles kept loaded at once.
	MaxCachedTiles() int
}

// ViewCallback connects the loader to the view. Every method is called on the
// main executor.
type ViewCallback interface {
	// ItemRange returns the first and last visible positions, inclusive.
	ItemRange() (first, last int)
	// ExtendRange widens the visible range to the range worth preloading.
	ExtendRange(first, last int, hint ScrollHint) (extFirst, extLast int)
	// OnDataRefresh is called when the item count or the data set changed.
	OnDataRefresh()
	// OnItemLoaded is called when an item reported missing by ItemAt loads.
	OnItemLoaded(position int)
}

// ExtendRange preloads half a screen on both sides of first..last, or a full
// screen in the scroll direction.
func ExtendRange(first, last int, hint ScrollHint) (int, int) {
	fullRange := last - first + 1
	halfRange := fullRange / 2

	before, after := halfRange, halfRange

	switch hint {
	case ScrollDescending:
		before = fullRange
	case ScrollAscending:
		after = fullRange
	case ScrollNone:
	}

	return first - before, last + after
}
