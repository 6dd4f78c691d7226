package argparser

import (
	"strings"
	"testing"

	"github.com/pborman/getopt/v2"
	"github.com/pborman/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOpts struct {
	Count int  `getopt:"--count=[1:MaxPayload] How many"`
	Floor int  `getopt:"--floor=[2:]           At least two"`
	Plain bool `getopt:"--plain                Not range checked"`
}

func newSet(t *testing.T) *getopt.Set {
	t.Helper()
	set := getopt.New()
	require.NoError(t, options.RegisterSet("", &testOpts{}, set))
	return set
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "in range", args: []string{"x", "--count=5", "--floor=9"}},
		{name: "at max", args: []string{"x", "--count=1048576", "--floor=2"}},
		{name: "above max", args: []string{"x", "--count=1048577", "--floor=2"}, wantErr: "out of range [1:1048576]"},
		{name: "below open min", args: []string{"x", "--count=1", "--floor=1"}, wantErr: "supplied for floor out of range [2:"},
		{name: "missing", args: []string{"x", "--floor=3"}, wantErr: "a value for count must be specified"},
		{name: "free-form", args: []string{"x", "--count=1", "--floor=2", "extra"}, wantErr: "unexpected free-form"},
		{name: "unknown option", args: []string{"x", "--bogus"}, wantErr: "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Parse(tt.args, newSet(t))
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)

			var msgs []string
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
			assert.Contains(t, strings.Join(msgs, "\n"), tt.wantErr)
		})
	}
}

func TestSubHelpIndents(t *testing.T) {
	sh := SubHelp("first line\nsecond line", newSet(t))
	require.Len(t, sh, 3)
	assert.Equal(t, "  first line\n  second line", sh[0].Error())
	assert.Contains(t, sh[2].Error(), "count=[1:MaxPayload]")

	assert.Len(t, SubHelp("bare", nil), 1)
}
