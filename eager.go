package restql

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mapping tells the eager-loading planner which relations to load for which
// fields. Keys are dotted field paths as clients see them ("course.books");
// values are the relation names handed to the datastore.
type Mapping struct {
	Select   map[string][]string `yaml:"select" json:"select,omitempty"`
	Prefetch map[string][]string `yaml:"prefetch" json:"prefetch,omitempty"`
}

// LoadMapping reads a Mapping from a YAML file.
func LoadMapping(path string) (Mapping, error) {
	var m Mapping
	data, err := os.ReadFile(path)
	if err != nil {
		return m, errors.Wrap(err, "read mapping")
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, errors.Wrapf(err, "decode mapping %s", path)
	}
	return m, nil
}

// Plan lists the relations to load for one query.
type Plan struct {
	Select   []string `json:"select" yaml:"select"`
	Prefetch []string `json:"prefetch" yaml:"prefetch"`
}

// Empty reports whether the plan loads nothing.
func (p Plan) Empty() bool {
	return len(p.Select) == 0 && len(p.Prefetch) == 0
}

// Plan decides which mapped relations q needs. A nil q needs all of them.
func (m Mapping) Plan(q *Query) Plan {
	tree := q.ToMap()
	return Plan{
		Select:   RelatedFields(m.Select, tree),
		Prefetch: RelatedFields(m.Prefetch, tree),
	}
}

// RelatedFields returns the relations of mapping whose field path is selected
// in tree, the output of Query.ToMap. Paths are visited in sorted order and
// relations are returned without duplicates.
func RelatedFields(mapping map[string][]string, tree map[string]any) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool)
	related := []string{}
	for _, key := range keys {
		if !pathSelected(tree, strings.Split(key, ".")) {
			continue
		}
		for _, rel := range mapping[key] {
			if !seen[rel] {
				seen[rel] = true
				related = append(related, rel)
			}
		}
	}
	return related
}

// pathSelected walks path through tree. A field is selected when it is listed,
// or when it is not listed but its level carries the wildcard.
func pathSelected(tree map[string]any, path []string) bool {
	var node any = tree
	for _, part := range path {
		level, ok := node.(map[string]any)
		if !ok {
			// A flat field selects everything beneath it.
			break
		}
		if v, ok := level[part]; ok {
			node = v
			continue
		}
		if level[Wildcard] == true {
			return true
		}
		return false
	}
	return node != false
}
