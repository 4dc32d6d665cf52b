package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph/internal/application/batching"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show what the configured dataset contains",
		Example: `  molgraph inspect --dataset data/qm9_eV.npz
  molgraph inspect -o json`,
		Args: cobra.NoArgs,
		RunE: runInspect,
	}
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
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

	info := app.Service.DatasetInfo()
	if cliCtx.OutputFormat == "json" {
		return printJSON(cmd, info)
	}
	return PrintResult(cmd, &datasetView{info: info, path: cliCtx.Config.Dataset.Path})
}

type datasetView struct {
	info *batching.DatasetInfo
	path string
}

func (v *datasetView) String() string {
	i := v.info
	bold := color.New(color.Bold)

	var sb strings.Builder
	sb.WriteString(bold.Sprint("Dataset") + " " + v.path + "\n")
	fmt.Fprintf(&sb, "  molecules     %d\n", i.Molecules)
	fmt.Fprintf(&sb, "  max atoms     %d\n", i.MaxAtoms)
	fmt.Fprintf(&sb, "  total atoms   %d\n", i.TotalAtoms)
	fmt.Fprintf(&sb, "  atom counts   %s\n", yesNo(i.HasAtomCounts))
	fmt.Fprintf(&sb, "  atomic nums   %s\n", yesNo(i.HasAtomicNumbers))
	fmt.Fprintf(&sb, "  ids           %s\n", yesNo(i.HasIDs))
	fmt.Fprintf(&sb, "  targets       %s\n", strings.Join(i.Targets, " "))
	fmt.Fprintf(&sb, "  cutoff        %g\n", i.Cutoff)
	fmt.Fprintf(&sb, "  fingerprint   %s", i.Fingerprint)
	return sb.String()
}

func (v *datasetView) TableHeaders() []string { return []string{"FIELD", "VALUE"} }

func (v *datasetView) TableRows() [][]string {
	i := v.info
	return [][]string{
		{"path", v.path},
		{"molecules", strconv.Itoa(i.Molecules)},
		{"max_atoms", strconv.Itoa(i.MaxAtoms)},
		{"total_atoms", strconv.Itoa(i.TotalAtoms)},
		{"has_atom_counts", strconv.FormatBool(i.HasAtomCounts)},
		{"has_atomic_numbers", strconv.FormatBool(i.HasAtomicNumbers)},
		{"has_ids", strconv.FormatBool(i.HasIDs)},
		{"targets", strings.Join(i.Targets, ",")},
		{"cutoff", strconv.FormatFloat(i.Cutoff, 'g', -1, 64)},
		{"fingerprint", i.Fingerprint},
	}
}

func yesNo(b bool) string {
	if b {
		return color.GreenString("yes")
	}
	return color.YellowString("no")
}
