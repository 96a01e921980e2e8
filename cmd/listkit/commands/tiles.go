package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/listkit/pkg/asynclist"
	"github.com/Sumatoshi-tech/listkit/pkg/executor"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/safeconv"
	"github.com/Sumatoshi-tech/listkit/pkg/tile"
)

const (
	tilesRequestName   = "cli.tiles"
	defaultTilesItems  = 1000
	defaultTilesWindow = "0:49"
	defaultTilesWait   = 30 * time.Second
)

// Tiles command errors.
var (
	ErrInvalidWindow = errors.New("window must be FIRST:LAST with 0 <= FIRST <= LAST")
	ErrInvalidItems  = errors.New("items must not be negative")
)

type tilesOptions struct {
	items    int
	tileSize int
	maxTiles int
	window   string
	timeout  time.Duration
}

func newTilesCommand(root *rootOptions) *cobra.Command {
	opts := tilesOptions{}

	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Simulate tiled loading of a synthetic list",
		Long: `Load a synthetic list of --items entries in tiles on a background pool
until every position of --window is available, then print the loaded tiles.
The window is clamped to the list.

Examples:
  listkit tiles --items 10000 --window 500:560
  listkit tiles --items 95 --tile-size 10 --max-tiles 3 --window 80:94`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), root, observability.ModeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			if !cmd.Flags().Changed("tile-size") {
				opts.tileSize = sess.cfg.Tiles.TileSize
			}

			if !cmd.Flags().Changed("max-tiles") {
				opts.maxTiles = sess.cfg.Tiles.MaxCachedTiles
			}

			return sess.track(cmd.Context(), tilesRequestName, func(ctx context.Context) error {
				return runTiles(ctx, sess, cmd.OutOrStdout(), opts)
			})
		},
	}

	cmd.Flags().IntVar(&opts.items, "items", defaultTilesItems, "number of synthetic items")
	cmd.Flags().IntVar(&opts.tileSize, "tile-size", 0, "items per tile (default from config)")
	cmd.Flags().IntVar(&opts.maxTiles, "max-tiles", 0, "tiles kept loaded at once (default from config)")
	cmd.Flags().StringVar(&opts.window, "window", defaultTilesWindow, "visible range FIRST:LAST, inclusive")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultTilesWait, "give up after this long")

	return cmd
}

func parseWindow(raw string) (first, last int, err error) {
	firstRaw, lastRaw, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}

	first, firstErr := strconv.Atoi(strings.TrimSpace(firstRaw))
	last, lastErr := strconv.Atoi(strings.TrimSpace(lastRaw))

	if firstErr != nil || lastErr != nil || first < 0 || last < first {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}

	return first, last, nil
}

// syntheticData serves "item-N" strings and remembers which tiles it filled.
type syntheticData struct {
	count    int
	maxTiles int

	mu       sync.Mutex
	fills    int
	recycled int
}

func (d *syntheticData) RefreshData() int { return d.count }

func (d *syntheticData) FillData(out []string, startPosition int) {
	for idx := range out {
		out[idx] = "item-" + strconv.Itoa(startPosition+idx)
	}

	d.mu.Lock()
	d.fills++
	d.mu.Unlock()
}

func (d *syntheticData) RecycleData(items []string) {
	d.mu.Lock()
	d.recycled += len(items)
	d.mu.Unlock()
}

func (d *syntheticData) MaxCachedTiles() int { return d.maxTiles }

func (d *syntheticData) stats() (fills, recycled int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.fills, d.recycled
}

// windowView shows a fixed window and stops the main loop once every position
// in it has loaded.
type windowView struct {
	first, last int
	loop        *executor.Loop
	util        *asynclist.AsyncListUtil[string]
	loaded      map[int]struct{}
}

func (v *windowView) ItemRange() (int, int) { return v.first, v.last }

func (v *windowView) ExtendRange(first, last int, hint asynclist.ScrollHint) (int, int) {
	return asynclist.ExtendRange(first, last, hint)
}

func (v *windowView) OnDataRefresh() {
	v.last = min(v.last, v.util.ItemCount()-1)

	// The refresh only completes once this returns; probe after it.
	v.loop.Execute(v.probe)
}

func (v *windowView) OnItemLoaded(position int) {
	v.markLoaded(position)
}

func (v *windowView) probe() {
	for pos := v.first; pos <= v.last; pos++ {
		if _, ok := v.util.ItemAt(pos); ok {
			v.markLoaded(pos)
		}
	}

	v.stopWhenComplete()
}

func (v *windowView) markLoaded(position int) {
	v.loaded[position] = struct{}{}
	v.stopWhenComplete()
}

func (v *windowView) stopWhenComplete() {
	if len(v.loaded) >= v.last-v.first+1 {
		v.loop.Stop()
	}
}

type tileRow struct {
	start, count int
	first        string
	encoded      int
}

func runTiles(ctx context.Context, sess *session, out io.Writer, opts tilesOptions) error {
	if opts.items < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidItems, opts.items)
	}

	first, last, err := parseWindow(opts.window)
	if err != nil {
		return err
	}

	if first >= opts.items {
		return fmt.Errorf("%w: %q starts past %d items", ErrInvalidWindow, opts.window, opts.items)
	}

	metrics, err := observability.NewLoaderMetrics(sess.providers.Meter)
	if err != nil {
		return fmt.Errorf("create loader metrics: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	pool := executor.NewPool(sess.cfg.Differ.BackgroundThreads)
	defer pool.Close()

	loop := executor.NewLoop()
	data := &syntheticData{count: opts.items, maxTiles: opts.maxTiles}
	view := &windowView{first: first, last: last, loop: loop, loaded: make(map[int]struct{})}

	start := time.Now()
	view.util = asynclist.New(opts.tileSize, data, view, loop, pool,
		asynclist.WithLogger(sess.providers.Logger),
		asynclist.WithMetrics(metrics),
	)

	err = loop.Run(ctx)
	if err != nil {
		return fmt.Errorf("loading window %d:%d: %w", first, last, err)
	}

	elapsed := time.Since(start)

	rows, err := windowTiles(view.util, opts.tileSize, view.first, view.last)
	if err != nil {
		return err
	}

	fills, recycled := data.stats()

	sess.providers.Logger.DebugContext(ctx, "window loaded",
		"first", view.first, "last", view.last, "fills", fills, "recycled", recycled, "elapsed", elapsed)

	_, err = fmt.Fprintf(out, "%s\nwindow %d:%d of %s items, %d tiles filled, %s items recycled, %s\n",
		tilesTable(rows), view.first, view.last, humanize.Comma(int64(opts.items)),
		fills, humanize.Comma(int64(recycled)), elapsed.Round(time.Millisecond))

	return err
}

// windowTiles collects the loaded tiles covering first..last. Callers run on
// the goroutine that drove the main loop.
func windowTiles(util *asynclist.AsyncListUtil[string], tileSize, first, last int) ([]tileRow, error) {
	var rows []tileRow

	for start := first - first%tileSize; start <= last; start += tileSize {
		t := tile.New[string](tileSize)
		t.StartPosition = start
		t.ItemCount = min(tileSize, util.ItemCount()-start)

		for idx := range t.ItemCount {
			item, ok := util.ItemAt(start + idx)
			if !ok {
				break
			}

			t.Items[idx] = item
		}

		encoded, err := tile.Encode(t)
		if err != nil {
			return nil, err
		}

		rows = append(rows, tileRow{start: start, count: t.ItemCount, first: t.Items[0], encoded: len(encoded)})
	}

	return rows, nil
}

func tilesTable(rows []tileRow) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.AppendHeader(table.Row{"Start", "Items", "First item", "Encoded"})

	total := 0

	for _, row := range rows {
		tbl.AppendRow(table.Row{row.start, row.count, row.first, humanize.Bytes(safeconv.MustIntToUint64(row.encoded))})
		total += row.encoded
	}

	tbl.AppendFooter(table.Row{"", len(rows), "tiles", humanize.Bytes(safeconv.MustIntToUint64(total))})

	return tbl.Render()
}
