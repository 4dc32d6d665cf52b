package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph/internal/bootstrap"
	"github.com/turtacn/MolGraph/internal/config"
	"github.com/turtacn/MolGraph/internal/domain/molecule"
	"github.com/turtacn/MolGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph/internal/intelligence/molgraph"
	"github.com/turtacn/MolGraph/pkg/errors"
)

const testConfigYAML = `
dataset:
  path: "qm9.npz"
graph:
  cutoff: 1.5
server:
  mode: "test"
log:
  level: "error"
`

// fakeFactory wires the real application over an in-memory store and
// records the config it was given.
type fakeFactory struct {
	cfg *config.Config
}

func (f *fakeFactory) build(ctx context.Context, cfg *config.Config, _ logging.Logger) (*bootstrap.App, error) {
	f.cfg = cfg
	store, err := molecule.NewStore(molecule.Arrays{
		Count:    2,
		MaxAtoms: 2,
		R:        []float64{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0},
		N:        []int{2, 1},
		Z:        []int{1, 1, 8, 0},
		Targets:  map[molecule.TargetKey][]float64{molecule.TargetGap: {0.1, 0.2}},
	})
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, bootstrap.WithStore(store), bootstrap.WithLogger(logging.NewNopLogger()))
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "molgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))
	return path
}

func execute(t *testing.T, f *fakeFactory, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(f.build)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", writeTestConfig(t), "--no-color"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "molgraph", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"build", "inspect", "serve", "worker", "version"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout", "dataset", "cutoff"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestBuild_Text(t *testing.T) {
	out, err := execute(t, &fakeFactory{}, "build", "--indices", "0,1")
	require.NoError(t, err)

	assert.Contains(t, out, "Batch")
	assert.Contains(t, out, "molecules  2")
	assert.Contains(t, out, "atoms      3")
	assert.Contains(t, out, "edges      2")
	assert.Contains(t, out, "triplets   0")
	assert.Contains(t, out, "targets    gap")
	assert.Contains(t, out, "absent     mu alpha")
}

func TestBuild_JSON(t *testing.T) {
	out, err := execute(t, &fakeFactory{}, "build", "--indices", "1,0", "-o", "json")
	require.NoError(t, err)

	var batch molgraph.IndexBatch
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Equal(t, []int{1, 2}, batch.N)
	assert.Equal(t, []int{8, 1, 1}, batch.Z)
	assert.Equal(t, []int{1, 2}, batch.EdgeI)
	assert.Equal(t, []int{2, 1}, batch.EdgeJ)
	assert.Equal(t, molgraph.FloatArray{0.2, 0.1}, batch.Target(molecule.TargetGap))
}

func TestBuild_StartCountTable(t *testing.T) {
	out, err := execute(t, &fakeFactory{}, "build", "--start", "0", "--count", "2", "-o", "table")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "ARRAY"))
	assert.Contains(t, out, "idnb_i")
	assert.Contains(t, out, "id3dnb_k")
	assert.Contains(t, out, "Cv")
}

func TestBuild_OutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	out, err := execute(t, &fakeFactory{}, "build", "--indices", "0", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 molecules")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var batch molgraph.IndexBatch
	require.NoError(t, json.Unmarshal(data, &batch))
	assert.Equal(t, []int{0, 0}, batch.BatchSeg)
}

func TestBuild_Errors(t *testing.T) {
	_, err := execute(t, &fakeFactory{}, "build")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = execute(t, &fakeFactory{}, "build", "--indices", "5")
	assert.True(t, errors.IsCode(err, errors.ErrCodeIndexOutOfRange))

	_, err = execute(t, &fakeFactory{}, "build", "--indices", "0", "--export")
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))

	_, err = execute(t, &fakeFactory{}, "build", "--indices", "0", "--count", "1")
	assert.Error(t, err)
}

func TestInspect_JSON(t *testing.T) {
	out, err := execute(t, &fakeFactory{}, "inspect", "-o", "json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, float64(2), info["molecules"])
	assert.Equal(t, float64(3), info["total_atoms"])
	assert.Equal(t, 1.5, info["cutoff"])
	assert.Equal(t, []interface{}{"gap"}, info["targets"])
}

func TestInspect_Text(t *testing.T) {
	out, err := execute(t, &fakeFactory{}, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset qm9.npz")
	assert.Contains(t, out, "atomic nums   yes")
	assert.Contains(t, out, "ids           no")
}

func TestOverrides(t *testing.T) {
	f := &fakeFactory{}
	out, err := execute(t, f, "inspect", "-o", "json", "--dataset", "/data/other.npz", "--cutoff", "0.5")
	require.NoError(t, err)

	require.NotNil(t, f.cfg)
	assert.Equal(t, "/data/other.npz", f.cfg.Dataset.Path)
	assert.Equal(t, 0.5, f.cfg.Graph.Cutoff)
	assert.Contains(t, out, `"cutoff": 0.5`)
}

func TestInvalidCutoffOverride(t *testing.T) {
	_, err := execute(t, &fakeFactory{}, "inspect", "--cutoff", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := execute(t, &fakeFactory{}, "inspect", "-o", "yaml")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestVersion_NeedsNoConfig(t *testing.T) {
	cmd := newRootCommand((&fakeFactory{}).build)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "molgraph "+Version)
}

func TestGetCLIContext_Missing(t *testing.T) {
	_, err := GetCLIContext(NewBuildCmd())
	assert.True(t, errors.IsValidation(err))
}

func TestParseIndices(t *testing.T) {
	tests := []struct {
		in   string
		want []int
		err  bool
	}{
		{in: "0,3,5", want: []int{0, 3, 5}},
		{in: " 2 , 2 ,1", want: []int{2, 2, 1}},
		{in: "4-6,0", want: []int{4, 5, 6, 0}},
		{in: "-1", want: []int{-1}},
		{in: "7-7", want: []int{7}},
		{in: "6-4", err: true},
		{in: "a", err: true},
		{in: "1-b", err: true},
		{in: ",", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIndices(tt.in)
			if tt.err {
				assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"KEY", "N"}, [][]string{{"idnb_i", "12"}, {"Z"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "KEY     N ", lines[0])
	assert.Equal(t, "------  --", lines[1])
	assert.Equal(t, "idnb_i  12", lines[2])
	assert.Equal(t, "Z         ", lines[3])

	assert.Empty(t, FormatTable(nil, nil))
}
