package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph/internal/application/batching"
	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/intelligence/molgraph"
	"github.com/turtacn/MolGraph/pkg/errors"
)

type buildOptions struct {
	indices string
	start   int
	count   int
	outFile string
	export  bool
	bucket  string
	key     string
}

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the batch index record for a selection of molecules",
		Long: `Build the batch index record for a selection of molecules.

Select molecules either with --indices (comma separated, "a-b" for an
inclusive range) or with --start and --count.  The record is printed as a
summary, written as JSON with -o json or --out, or uploaded with --export.`,
		Example: `  molgraph build --indices 0,3,5
  molgraph build --start 100 --count 32 -o json
  molgraph build --indices 0-127 --out batch.json
  molgraph build --indices 0-31 --export --bucket batches`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.indices, "indices", "i", "", `molecule indices, e.g. "0,3,5" or "0-31"`)
	f.IntVar(&opts.start, "start", 0, "first molecule index when using --count")
	f.IntVar(&opts.count, "count", 0, "number of consecutive molecules starting at --start")
	f.StringVar(&opts.outFile, "out", "", "write the JSON record to this file")
	f.BoolVar(&opts.export, "export", false, "upload the JSON record to object storage")
	f.StringVar(&opts.bucket, "bucket", "", "export bucket, overrides the config")
	f.StringVar(&opts.key, "key", "", "export object key, derived from the selection when empty")
	cmd.MarkFlagsMutuallyExclusive("indices", "count")
	cmd.MarkFlagsMutuallyExclusive("out", "export")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *buildOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	indices, err := selectIndices(opts)
	if err != nil {
		return err
	}

	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	app, err := cliCtx.NewApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.export {
		res, err := app.Service.ExportBatch(ctx, &batching.ExportInput{
			Indices:   indices,
			Bucket:    opts.bucket,
			ObjectKey: opts.key,
		})
		if err != nil {
			return err
		}
		if cliCtx.OutputFormat == "json" {
			return printJSON(cmd, res)
		}
		PrintSuccess(cmd, fmt.Sprintf("exported %d molecules (%d bytes) to %s", res.Molecules, res.Size, res.URI))
		return nil
	}

	start := time.Now()
	batch, err := app.Service.BuildBatch(ctx, indices)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	cliCtx.Logger.Debug("batch built",
		logging.Int("molecules", batch.Molecules()),
		logging.Duration("elapsed", elapsed))

	if opts.outFile != "" {
		if err := writeBatchFile(opts.outFile, batch); err != nil {
			return err
		}
		PrintSuccess(cmd, fmt.Sprintf("wrote %d molecules to %s", batch.Molecules(), opts.outFile))
		return nil
	}

	if cliCtx.OutputFormat == "json" {
		return printJSON(cmd, batch)
	}
	return PrintResult(cmd, newBatchSummary(batch, elapsed, app.Service.DatasetInfo().Targets))
}

func writeBatchFile(path string, batch *molgraph.IndexBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode batch")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write batch file").WithDetail(path)
	}
	return nil
}

func selectIndices(opts *buildOptions) ([]int, error) {
	switch {
	case opts.indices != "":
		return ParseIndices(opts.indices)
	case opts.count > 0:
		indices := make([]int, opts.count)
		for i := range indices {
			indices[i] = opts.start + i
		}
		return indices, nil
	default:
		return nil, errors.InvalidParam("either --indices or --count is required")
	}
}

// ParseIndices parses a comma separated list of indices where "a-b" stands
// for the inclusive range a..b.  Order and duplicates are preserved.
func ParseIndices(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// a leading '-' is a sign, not a range
		if dash := strings.Index(part[1:], "-"); dash >= 0 {
			lo, err1 := strconv.Atoi(strings.TrimSpace(part[:dash+1]))
			hi, err2 := strconv.Atoi(strings.TrimSpace(part[dash+2:]))
			if err1 != nil || err2 != nil || hi < lo {
				return nil, errors.InvalidParam("invalid index range").WithDetail(part)
			}
			for i := lo; i <= hi; i++ {
				out = append(out, i)
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.InvalidParam("invalid index").WithDetail(part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.InvalidParam("no indices given")
	}
	return out, nil
}

// batchSummary is the text and table rendering of a built batch.
type batchSummary struct {
	batch   *molgraph.IndexBatch
	elapsed time.Duration
	present map[string]bool
}

func newBatchSummary(b *molgraph.IndexBatch, elapsed time.Duration, targets []string) *batchSummary {
	present := make(map[string]bool, len(targets))
	for _, t := range targets {
		present[t] = true
	}
	return &batchSummary{batch: b, elapsed: elapsed, present: present}
}

func (s *batchSummary) String() string {
	b := s.batch
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	var sb strings.Builder
	sb.WriteString(bold.Sprint("Batch") + "\n")
	fmt.Fprintf(&sb, "  molecules  %s\n", cyan.Sprint(b.Molecules()))
	fmt.Fprintf(&sb, "  atoms      %s\n", cyan.Sprint(b.Atoms()))
	fmt.Fprintf(&sb, "  edges      %s\n", cyan.Sprint(b.Edges()))
	fmt.Fprintf(&sb, "  triplets   %s\n", cyan.Sprint(b.Triplets()))
	fmt.Fprintf(&sb, "  elapsed    %s\n", s.elapsed.Round(time.Microsecond))

	var present, missing []string
	for _, key := range molecule.TargetKeys {
		if s.present[string(key)] {
			present = append(present, string(key))
		} else {
			missing = append(missing, string(key))
		}
	}
	if len(present) > 0 {
		fmt.Fprintf(&sb, "  targets    %s\n", color.GreenString(strings.Join(present, " ")))
	}
	if len(missing) > 0 {
		fmt.Fprintf(&sb, "  absent     %s\n", color.YellowString(strings.Join(missing, " ")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *batchSummary) TableHeaders() []string {
	return []string{"ARRAY", "LENGTH"}
}

func (s *batchSummary) TableRows() [][]string {
	b := s.batch
	rows := [][]string{
		{string(molecule.FeatureAtomCount), strconv.Itoa(len(b.N))},
		{string(molecule.FeatureAtomicNum), strconv.Itoa(len(b.Z))},
		{string(molecule.FeaturePositions), strconv.Itoa(len(b.R))},
	}
	for _, key := range molecule.IndexKeys {
		rows = append(rows, []string{string(key), strconv.Itoa(len(b.Index(key)))})
	}
	for _, key := range molecule.TargetKeys {
		rows = append(rows, []string{string(key), strconv.Itoa(len(b.Target(key)))})
	}
	return rows
}
