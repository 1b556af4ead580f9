package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"ingest", "remove", "search", "topics", "tags", "stats", "logs", "migrate", "watch", "version"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %s", name)
	}
}

func TestTopicsSubcommands(t *testing.T) {
	topics := newTopicsCmd()

	want := []string{"create", "list", "update", "delete", "add-doc", "remove-doc", "link-tag", "recommend"}
	for _, name := range want {
		found := false
		for _, c := range topics.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing topics subcommand %s", name)
	}
}

func TestTopicsUpdateRequiresAChange(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"topics", "update", "3"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name or --description")
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--short"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "dev\n", out.String())
}

func TestVersionCommandJSON(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"version": "dev"`)
	assert.Contains(t, out.String(), `"go_version"`)
}

func TestIngestRequiresArgs(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"ingest"})

	assert.Error(t, root.Execute())
}

func TestSearchRequiresArgs(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"search"})

	assert.Error(t, root.Execute())
}
