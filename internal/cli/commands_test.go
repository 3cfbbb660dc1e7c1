package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/database"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

const notesSchema = "testdata/notes.yaml"

// seed creates a database with two notes and one author, then closes it.
func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.strata")
	doc, err := schema.LoadFile(notesSchema)
	require.NoError(t, err)

	d, err := database.Open(database.Config{Path: path, Schema: doc.Classes, SchemaVersion: doc.Version})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(func() error {
		ann, err := d.Create("Author", map[string]value.Value{"name": value.String("ann")})
		if err != nil {
			return err
		}
		if _, err := d.Create("Note", map[string]value.Value{
			"id":     value.Int(1),
			"title":  value.String("first"),
			"score":  value.Double(2.5),
			"author": ann,
		}); err != nil {
			return err
		}
		_, err = d.Create("Note", map[string]value.Value{"id": value.Int(2), "title": value.String("second")})
		return err
	}))
	return path
}

// execute runs the root command and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(EnvPath, "")
	t.Setenv(EnvSchema, "")
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSchemaCommand_Text(t *testing.T) {
	path := seed(t)
	out, err := execute(t, "--path", path, "schema")
	require.NoError(t, err)
	golden(t).Assert(t, "schema_text", []byte(out))
}

func TestSchemaCommand_JSON(t *testing.T) {
	path := seed(t)
	out, err := execute(t, "--path", path, "--format", "json", "schema")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   SchemaResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, uint64(1), resp.Data.Version)
	require.Len(t, resp.Data.Classes, 2)
	assert.Equal(t, "Note", resp.Data.Classes[0].Name)
	assert.Equal(t, "id", resp.Data.Classes[0].PrimaryKey)
}

func TestSchemaCommand_CreatesFromDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.strata")
	out, err := execute(t, "--path", path, "--schema", notesSchema, "schema")
	require.NoError(t, err)
	golden(t).Assert(t, "schema_text", []byte(out))
	assert.FileExists(t, path)
}

func TestSchemaCommand_MissingDatabase(t *testing.T) {
	out, err := execute(t, "--path", filepath.Join(t.TempDir(), "nope.strata"), "schema")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
}

func TestObjectsCommand_Text(t *testing.T) {
	path := seed(t)
	out, err := execute(t, "--path", path, "objects", "Note")
	require.NoError(t, err)
	golden(t).Assert(t, "objects_text", []byte(out))
}

func TestObjectsCommand_JSONWithLimit(t *testing.T) {
	path := seed(t)
	out, err := execute(t, "--path", path, "--format", "json", "objects", "Note", "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data ObjectsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Count)
	require.Len(t, resp.Data.Objects, 1)
	assert.Equal(t, map[string]string{
		"id":     "1",
		"title":  `"first"`,
		"score":  "2.5",
		"author": "[Author]",
	}, resp.Data.Objects[0])
}

func TestObjectsCommand_UnknownClass(t *testing.T) {
	path := seed(t)
	out, err := execute(t, "--path", path, "objects", "Ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestGetCommand(t *testing.T) {
	path := seed(t)

	out, err := execute(t, "--path", path, "get", "Note", "1")
	require.NoError(t, err)
	assert.Equal(t, "id=1 title=\"first\" score=2.5 author=[Author]\n", out)

	out, err = execute(t, "--path", path, "get", "Author", "ann")
	require.NoError(t, err)
	assert.Equal(t, "name=\"ann\"\n", out)

	out, err = execute(t, "--path", path, "get", "Note", "9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [E004]: get Note: no Note object with primary key 9\n", out)

	out, err = execute(t, "--path", path, "get", "Note", "nine")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E009]")
}

func TestGetCommand_DatabaseInUse(t *testing.T) {
	path := seed(t)
	d, err := database.Open(database.Config{Path: path})
	require.NoError(t, err)
	defer d.Close()

	out, err := execute(t, "--path", path, "get", "Note", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E007]")
}

func TestCleanupCommand(t *testing.T) {
	path := seed(t)
	dir := filepath.Dir(path)
	keep := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	cargo := filepath.Join(dir, "Cargo.lock")
	require.NoError(t, os.WriteFile(cargo, []byte("x"), 0o644))

	out, err := execute(t, "cleanup", dir)
	require.NoError(t, err)
	assert.Equal(t, "Swept "+dir+"\n", out)
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+".lock")
	assert.FileExists(t, keep)
	assert.FileExists(t, cargo)
}
