package restql

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMapping() Mapping {
	return Mapping{
		Select: map[string][]string{
			"course":        {"course"},
			"course.author": {"course__author"},
		},
		Prefetch: map[string][]string{
			"course.books":  {"course__books"},
			"phone_numbers": {"phone_numbers"},
			"tags":          {"tags", "tags__owner"},
			"tags.owner":    {"tags__owner"},
		},
	}
}

func TestMappingPlan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Plan
	}{
		{
			name:  "only selected relations",
			input: "{name, course{code}}",
			want: Plan{
				Select:   []string{"course"},
				Prefetch: []string{},
			},
		},
		{
			name:  "nested relation",
			input: "{course{books{title}}}",
			want: Plan{
				Select:   []string{"course"},
				Prefetch: []string{"course__books"},
			},
		},
		{
			name:  "flat relation selects everything beneath it",
			input: "{course}",
			want: Plan{
				Select:   []string{"course", "course__author"},
				Prefetch: []string{"course__books"},
			},
		},
		{
			name:  "wildcard with exclusions",
			input: "{-phone_numbers, course{-author}}",
			want: Plan{
				Select:   []string{"course"},
				Prefetch: []string{"course__books", "tags", "tags__owner"},
			},
		},
		{
			name:  "nothing selected",
			input: "{}",
			want:  Plan{Select: []string{}, Prefetch: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testMapping().Plan(mustParse(t, tt.input))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMappingPlanNilQueryLoadsEverything(t *testing.T) {
	plan := testMapping().Plan(nil)
	assert.Equal(t, []string{"course", "course__author"}, plan.Select)
	assert.Equal(t, []string{"course__books", "phone_numbers", "tags", "tags__owner"}, plan.Prefetch)
	assert.False(t, plan.Empty())
}

func TestPlanEmpty(t *testing.T) {
	assert.True(t, Plan{}.Empty())
	assert.True(t, Mapping{}.Plan(mustParse(t, "{*}")).Empty())
}

func TestLoadMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	content := `select:
  course: [course]
prefetch:
  course.books:
    - course__books
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadMapping(path)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"course": {"course"}}, m.Select)
	assert.Equal(t, map[string][]string{"course.books": {"course__books"}}, m.Prefetch)
}

func TestLoadMappingErrors(t *testing.T) {
	_, err := LoadMapping(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read mapping")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("select: [unclosed"), 0o644))
	_, err = LoadMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode mapping")
}
