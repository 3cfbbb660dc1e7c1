package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_YAMLMatchesFixture(t *testing.T) {
	doc, err := LoadFile(filepath.Join("testdata", "tasks.yaml"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), doc.Version)

	got, err := Normalize(doc.Classes)
	require.NoError(t, err)
	want, err := Normalize(fixtureRaw())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadFile_CUEMatchesFixture(t *testing.T) {
	doc, err := LoadFile(filepath.Join("testdata", "tasks.cue"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), doc.Version)

	got, err := Normalize(doc.Classes)
	require.NoError(t, err)
	want, err := Normalize(fixtureRaw())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadYAML_UnknownFieldRejected(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("version: 1\nclasses:\n  - name: A\n    primary: x\n"))
	require.Error(t, err)
}

func TestLoadYAML_Empty(t *testing.T) {
	doc, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc.Classes)
}

func TestLoadYAML_BadPropertyNode(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("classes:\n  - name: A\n    properties:\n      a: [1, 2]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `property "a"`)
}

func TestLoadCUE_SyntaxError(t *testing.T) {
	_, err := LoadCUE([]byte("classes: {"), "broken.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cue schema")
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema file extension")
}

func TestDescribe_Golden(t *testing.T) {
	s, err := Normalize(fixtureRaw())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Describe(&buf, s))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "describe_fixture", buf.Bytes())
}

func TestTypeExpr(t *testing.T) {
	tests := []struct {
		p    Property
		want string
	}{
		{Property{Type: TypeInt}, "int"},
		{Property{Type: TypeInt, Optional: true}, "int?"},
		{Property{Type: TypeMixed, Optional: true}, "mixed"},
		{Property{Type: TypeObject, ObjectType: "Dog", Optional: true}, "Dog?"},
		{Property{Type: TypeList, ObjectType: "Dog"}, "Dog[]"},
		{Property{Type: TypeList, ObjectType: "int", Optional: true}, "int?[]"},
		{Property{Type: TypeSet, ObjectType: "string"}, "string<>"},
		{Property{Type: TypeDictionary, ObjectType: "Dog", Optional: true}, "Dog{}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeExpr(tt.p))
	}
}
