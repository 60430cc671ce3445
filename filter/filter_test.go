package filter

import (
	"testing"

	"github.com/perfgo/dgtest/model"
	"github.com/stretchr/testify/require"
)

func units(names ...string) []model.TestUnit {
	out := make([]model.TestUnit, len(names))
	for i, n := range names {
		out[i] = model.TestUnit{Name: n, Package: "pkg"}
	}
	return out
}

func names(us []model.TestUnit) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Name)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name        string
		exprs       []string
		candidates  []string
		wantNames   []string
		wantBlocked int
	}{
		{
			name:       "no filters selects everything",
			exprs:      nil,
			candidates: []string{"t1a", "t2", "t3"},
			wantNames:  []string{"t1a", "t2", "t3"},
		},
		{
			name:        "positive and negated clause",
			exprs:       []string{"t1*", "!t2"},
			candidates:  []string{"t1a", "t2", "t3"},
			wantNames:   []string{"t1a"},
			wantBlocked: 2,
		},
		{
			name:        "only negated clauses exclude matches",
			exprs:       []string{"!t2", "!t3"},
			candidates:  []string{"t1a", "t2", "t3", "t4"},
			wantNames:   []string{"t1a", "t4"},
			wantBlocked: 2,
		},
		{
			name:        "first applicable clause wins",
			exprs:       []string{"t*", "!t2"},
			candidates:  []string{"t1a", "t2", "x"},
			wantNames:   []string{"t1a", "t2"},
			wantBlocked: 1,
		},
		{
			name:        "negation before positive excludes",
			exprs:       []string{"!t2", "t*"},
			candidates:  []string{"t1a", "t2"},
			wantNames:   []string{"t1a"},
			wantBlocked: 1,
		},
		{
			name:        "character class",
			exprs:       []string{"test_[ab]"},
			candidates:  []string{"test_a", "test_b", "test_c"},
			wantNames:   []string{"test_a", "test_b"},
			wantBlocked: 1,
		},
		{
			name:        "everything blocked",
			exprs:       []string{"nomatch*"},
			candidates:  []string{"t1", "t2"},
			wantNames:   []string{},
			wantBlocked: 2,
		},
		{
			name:        "space after negation marker",
			exprs:       []string{"! t2", " !  t3 "},
			candidates:  []string{"t1a", "t2", "t3"},
			wantNames:   []string{"t1a"},
			wantBlocked: 2,
		},
		{
			name:       "blank expressions are ignored",
			exprs:      []string{"", "  ", "!", " ! "},
			candidates: []string{"t1"},
			wantNames:  []string{"t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.exprs)
			require.NoError(t, err)

			res := f.Apply(units(tt.candidates...))
			require.Equal(t, tt.wantNames, names(res.Selected))
			require.Equal(t, tt.wantBlocked, res.Blocked)
			require.Equal(t, len(tt.candidates), len(res.Selected)+res.Blocked)
		})
	}
}

func TestFilter_Empty(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)
	require.True(t, f.Empty())
	require.True(t, f.Match("anything"))

	f, err = New([]string{"t1*", "!t2"})
	require.NoError(t, err)
	require.False(t, f.Empty())
	require.Equal(t, "t1* !t2", f.String())

	f, err = New([]string{" t1* ", "! t2"})
	require.NoError(t, err)
	require.False(t, f.Match("t2"))
	require.Equal(t, "t1* !t2", f.String())
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]string{"ok*", "!bad["})
	require.ErrorIs(t, err, ErrInvalidPattern)
}
