package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/listkit/pkg/differ"
	"github.com/Sumatoshi-tech/listkit/pkg/executor"
	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/snapshot"
)

const (
	diffCmdUse      = "diff <old> <new>"
	diffArgCount    = 2
	diffRequestName = "cli.diff"
)

// ErrDiffInterrupted is returned when the diff did not land before the
// command was canceled.
var ErrDiffInterrupted = errors.New("diff interrupted")

type diffOptions struct {
	detectMoves bool
	render      renderOptions
}

func newDiffCommand(root *rootOptions) *cobra.Command {
	opts := diffOptions{}

	cmd := &cobra.Command{
		Use:   diffCmdUse,
		Short: "Print the edit script turning one list snapshot into another",
		Long: `Compute the edit script between two list snapshots.

Snapshots are .json, .yaml or .yml documents of the form
  items:
    - id: a
      content: first
optionally LZ4 framed (items.json.lz4). Items are matched by id and compared
by content.

Examples:
  listkit diff before.yaml after.yaml
  listkit diff --detect-moves=false --format json a.json.lz4 b.json.lz4`,
		Args: cobra.ExactArgs(diffArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), root, observability.ModeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			if !cmd.Flags().Changed("detect-moves") {
				opts.detectMoves = sess.cfg.Differ.DetectMoves
			}

			return sess.track(cmd.Context(), diffRequestName, func(ctx context.Context) error {
				report, diffErr := runDiff(ctx, sess, args[0], args[1], opts.detectMoves)
				if diffErr != nil {
					return diffErr
				}

				return renderReport(cmd.OutOrStdout(), report, opts.render)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.detectMoves, "detect-moves", true, "report reordered items as moves (default from config)")
	opts.render.register(cmd)

	return cmd
}

func runDiff(ctx context.Context, sess *session, oldPath, newPath string, detectMoves bool) (snapshot.Report, error) {
	maxBytes, err := sess.cfg.Tiles.SnapshotMaxBytes()
	if err != nil {
		return snapshot.Report{}, err
	}

	oldItems, err := snapshot.Load(oldPath, snapshot.WithMaxBytes(maxBytes))
	if err != nil {
		return snapshot.Report{}, err
	}

	newItems, err := snapshot.Load(newPath, snapshot.WithMaxBytes(maxBytes))
	if err != nil {
		return snapshot.Report{}, err
	}

	ops, err := diffThroughDiffer(ctx, sess, oldItems, newItems, detectMoves)
	if err != nil {
		return snapshot.Report{}, err
	}

	err = snapshot.Verify(oldItems, newItems, ops)
	if err != nil {
		return snapshot.Report{}, err
	}

	sess.providers.Logger.DebugContext(ctx, "diff computed",
		"old", oldPath, "new", newPath, "ops", len(ops), "detect_moves", detectMoves)

	return snapshot.NewReport(len(oldItems), len(newItems), ops), nil
}

// diffThroughDiffer shows oldItems, submits newItems and records what the
// differ dispatches once the new list lands on the main loop.
func diffThroughDiffer(
	ctx context.Context, sess *session, oldItems, newItems []snapshot.Item, detectMoves bool,
) ([]listupdate.Op, error) {
	metrics, err := observability.NewDifferMetrics(sess.providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create differ metrics: %w", err)
	}

	pool := executor.NewPool(sess.cfg.Differ.BackgroundThreads)
	defer pool.Close()

	loop := executor.NewLoop()

	cfg := differ.NewConfigBuilder(snapshot.ItemCallback()).
		SetMainExecutor(loop).
		SetBackgroundExecutor(pool).
		SetDetectMoves(detectMoves).
		Build()

	var rec listupdate.Recorder

	listDiffer := differ.New(&rec, cfg,
		differ.WithLogger(sess.providers.Logger),
		differ.WithTracer(sess.providers.Tracer),
		differ.WithMetrics(metrics),
	)

	listDiffer.SubmitListContext(ctx, oldItems, nil)
	rec.Reset()

	landed := false

	listDiffer.SubmitListContext(ctx, newItems, func() {
		landed = true

		loop.Stop()
	})

	err = loop.Run(ctx)
	if err != nil || !landed {
		return nil, errors.Join(ErrDiffInterrupted, err)
	}

	return rec.Ops, nil
}
