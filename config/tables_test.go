package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

func TestDefaultTablesSanity(t *testing.T) {
	tables := DefaultTables()

	for _, field := range dto.Fields {
		assert.NotEmpty(t, tables.Labels[field], field)
	}

	assert.True(t, tables.SingleSurnames['張'])
	assert.True(t, tables.SingleSurnames['陳'])
	assert.True(t, tables.CompoundSurnames["歐陽"])
	assert.NotEmpty(t, tables.Titles)
	assert.NotEmpty(t, tables.DatePatterns)

	// Suffix table is ordered most specific first.
	for i := 1; i < len(tables.OrgSuffixes); i++ {
		assert.GreaterOrEqual(t,
			tables.OrgSuffixes[i-1].Weight, tables.OrgSuffixes[i].Weight,
			"suffix %q out of order", tables.OrgSuffixes[i].Suffix)
	}
	assert.Equal(t, 8, tables.MaxSuffixWeight())
}

func TestLoadTablesMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	yaml := `
labels:
  name: ["受查人"]
org_suffixes:
  - suffix: "事務所"
    weight: 3
weights:
  label: 0.9
  format: 0.8
  dist: 1.0
  dir: 0.4
  context: 0.3
  penalty: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	// Overridden sections replace the defaults.
	assert.Equal(t, []string{"受查人"}, tables.Labels[dto.FieldName])
	assert.Equal(t, []WeightedSuffix{{Suffix: "事務所", Weight: 3}}, tables.OrgSuffixes)
	assert.Equal(t, 0.9, tables.Weights.Label)

	// Untouched sections keep their built-ins.
	assert.True(t, tables.SingleSurnames['張'])
	assert.Equal(t, []int{2, 3, 1}, tables.GivenNameLens)
	assert.Equal(t, 1.0, tables.Priors.Right)
}

func TestLoadTablesMissingFile(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoadSurnames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surnames.txt")
	content := "# common surnames\n張\n陳\n\n歐陽\n司馬\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	singles, compounds, err := LoadSurnames(path)
	require.NoError(t, err)

	assert.True(t, singles['張'])
	assert.True(t, singles['陳'])
	assert.Len(t, singles, 2)
	assert.True(t, compounds["歐陽"])
	assert.True(t, compounds["司馬"])
	assert.Len(t, compounds, 2)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Workers = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.NERTimeout = 0
	assert.Error(t, cfg.Validate())
}
