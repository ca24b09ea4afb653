package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
)

// tablesFile is the on-disk shape of a tables override. Every section is
// optional; absent sections keep their built-in defaults.
type tablesFile struct {
	Labels           map[string][]string `mapstructure:"labels"`
	Surnames         string              `mapstructure:"surnames"`
	CompoundSurnames []string            `mapstructure:"compound_surnames"`
	GivenNameLens    []int               `mapstructure:"given_name_lens"`
	Titles           []string            `mapstructure:"titles"`
	OrgSuffixes      []WeightedSuffix    `mapstructure:"org_suffixes"`
	OrgBlacklist     []string            `mapstructure:"org_blacklist"`
	ContextKeywords  []string            `mapstructure:"context_keywords"`
	DatePatterns     []DatePattern       `mapstructure:"date_patterns"`
	PenaltyTokens    map[string][]string `mapstructure:"penalty_tokens"`
	Weights          *Weights            `mapstructure:"weights"`
	Priors           *Priors             `mapstructure:"priors"`
	Windows          *Windows            `mapstructure:"windows"`
	Limits           *Limits             `mapstructure:"limits"`
}

// LoadTables reads a YAML tables file and merges it over the built-in
// defaults. New document layouts are supported by data changes alone;
// nothing in the pipeline is hardwired to the shipped tables.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return t, fmt.Errorf("failed to read tables file %s: %w", path, err)
	}

	var f tablesFile
	if err := v.Unmarshal(&f); err != nil {
		return t, fmt.Errorf("failed to decode tables file %s: %w", path, err)
	}

	if len(f.Labels) > 0 {
		t.Labels = f.Labels
	}
	if f.Surnames != "" {
		singles := make(map[rune]bool)
		for _, r := range f.Surnames {
			singles[r] = true
		}
		t.SingleSurnames = singles
	}
	if len(f.CompoundSurnames) > 0 {
		compounds := make(map[string]bool, len(f.CompoundSurnames))
		for _, s := range f.CompoundSurnames {
			compounds[s] = true
		}
		t.CompoundSurnames = compounds
	}
	if len(f.GivenNameLens) > 0 {
		t.GivenNameLens = f.GivenNameLens
	}
	if len(f.Titles) > 0 {
		t.Titles = f.Titles
	}
	if len(f.OrgSuffixes) > 0 {
		t.OrgSuffixes = f.OrgSuffixes
	}
	if len(f.OrgBlacklist) > 0 {
		t.OrgBlacklist = f.OrgBlacklist
	}
	if len(f.ContextKeywords) > 0 {
		t.ContextKeywords = f.ContextKeywords
	}
	if len(f.DatePatterns) > 0 {
		t.DatePatterns = f.DatePatterns
	}
	if len(f.PenaltyTokens) > 0 {
		t.PenaltyTokens = f.PenaltyTokens
	}
	if f.Weights != nil {
		t.Weights = *f.Weights
	}
	if f.Priors != nil {
		t.Priors = *f.Priors
	}
	if f.Windows != nil {
		t.Windows = *f.Windows
	}
	if f.Limits != nil {
		t.Limits = *f.Limits
	}

	return t, nil
}

// LoadSurnames reads a newline-delimited surname dictionary. Entries of
// one rune go into the single-character set, longer entries into the
// compound set. Blank lines and #-comments are skipped.
func LoadSurnames(path string) (map[rune]bool, map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open surname dictionary %s: %w", path, err)
	}
	defer f.Close()

	singles := make(map[rune]bool)
	compounds := make(map[string]bool)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry := strings.TrimSpace(sc.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		if utf8.RuneCountInString(entry) == 1 {
			r, _ := utf8.DecodeRuneInString(entry)
			singles[r] = true
		} else {
			compounds[entry] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read surname dictionary %s: %w", path, err)
	}

	return singles, compounds, nil
}
