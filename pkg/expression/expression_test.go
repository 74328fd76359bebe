package expression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/freeleech/pkg/tracker"
)

func TestCompile(t *testing.T) {
	compiled, err := Compile([]string{"Seeders > 5", "  ", `Resolution == "1080p"`})
	require.NoError(t, err)
	assert.Len(t, compiled, 2)

	_, err = Compile([]string{"Seeders >"})
	assert.Error(t, err)

	_, err = Compile([]string{"Seeders + 1"})
	assert.Error(t, err, "non boolean expressions are rejected")

	_, err = Compile([]string{"Unknown == 1"})
	assert.Error(t, err)
}

func TestCheckItemAllMatch(t *testing.T) {
	item := &tracker.Item{
		ID:          "1",
		Title:       "The Matrix",
		ReleaseName: "The.Matrix.1999.1080p.BluRay.x264-GRP",
		Resolution:  "1080p",
		Seeders:     12,
		Size:        2 * 1024 * 1024 * 1024,
	}

	tests := []struct {
		name       string
		rules      []string
		wantMatch  bool
		wantFailed []string
	}{
		{"no rules", nil, true, nil},
		{"fields", []string{"Seeders >= 12", `Resolution == "1080p"`}, true, nil},
		{"size helpers", []string{"SizeGiB() == 2", "SizeMiB() > 1000"}, true, nil},
		{"regex", []string{`RegexMatch("matrix")`}, true, nil},
		{"regex release name", []string{`RegexMatch("bluray")`}, true, nil},
		{"regex any", []string{`RegexMatchAny("remux, x264")`}, true, nil},
		{"regex all", []string{`RegexMatchAll("matrix, remux")`}, false, []string{`RegexMatchAll("matrix, remux")`}},
		{"negated regex", []string{`!RegexMatch("remux")`}, true, nil},
		{"lookaround", []string{`RegexMatch("Matrix(?=\\.1999)")`}, true, nil},
		{"failed rule", []string{"Seeders > 100", "Leechers == 0"}, false, []string{"Seeders > 100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := Compile(tt.rules)
			require.NoError(t, err)

			match, failed, err := CheckItemAllMatch(context.Background(), item, compiled)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, match)
			assert.Equal(t, tt.wantFailed, failed)
		})
	}
}

func TestRegexMatch_InvalidPattern(t *testing.T) {
	env := &evalContext{Item: &tracker.Item{Title: "Alien"}}
	assert.False(t, env.RegexMatch("("))
	assert.True(t, env.RegexMatchAny("(, alien"))
	assert.False(t, env.RegexMatchAll("(, alien"))
	assert.False(t, env.RegexMatchAll(""))
}
