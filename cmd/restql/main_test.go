package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootFormat(t *testing.T) {
	out, err := execute(t, "", "fmt", "{name age}")
	require.NoError(t, err)
	assert.Equal(t, "{name, age}\n", out)
}

func TestRootConfigAppliesToSelect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_alias_len: 3\n"), 0o644))

	_, err := execute(t, `{"name": "Yezy"}`, "--config", path, "select", "{long: name}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded the limit of 3 characters")

	out, err := execute(t, `{"name": "Yezy"}`, "--config", path, "select", "{n: name}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": "Yezy"}`, out)
}

func TestRootMissingConfig(t *testing.T) {
	_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "fmt", "{name}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
