package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestValidate_CleanRegistry(t *testing.T) {
	root := writeRegistry(t, map[string]string{
		"policies/acme.access.1.0.json": `{"permission":[{"action":"use"}]}`,
		"schemas/acme.order.1.json":     `{"$schema":"http://json-schema.org/draft-07/schema#","type":"object"}`,
		"schemas/acme.order.2.yaml":     "type: object\nrequired: [id]\nproperties:\n  id:\n    type: string\n",
		"rules/acme.retention.1.yml":    "days: 30\n",
		"policies/README.md":            "docs are ignored",
	})

	report, err := Validate(root)
	require.NoError(t, err)

	assert.Empty(t, report.Issues)
	assert.False(t, report.HasErrors())
	assert.Len(t, report.Artifacts, 4)
}

func TestValidate_Findings(t *testing.T) {
	root := writeRegistry(t, map[string]string{
		"policies/acme.broken.1.json": `{"permission":`,
		"policies/acme.dup.1.json":    `{}`,
		"policies/acme.dup.1.yaml":    "{}\n",
		"policies/access.json":        `{}`,
		"policies/acme.notes.1.txt":   "plain text",
		"schemas/acme.bad.1.json":     `{"type": 12}`,
	})

	report, err := Validate(root)
	require.NoError(t, err)
	assert.True(t, report.HasErrors())

	byPath := make(map[string]Issue)
	for _, i := range report.Issues {
		byPath[filepath.Base(i.Path)] = i
	}

	require.Contains(t, byPath, "acme.broken.1.json")
	assert.Equal(t, SeverityError, byPath["acme.broken.1.json"].Severity)
	assert.Contains(t, byPath["acme.broken.1.json"].Message, "invalid JSON")

	require.Contains(t, byPath, "acme.dup.1.yaml")
	assert.Contains(t, byPath["acme.dup.1.yaml"].Message, "duplicate POLICY acme.dup@1")
	assert.Contains(t, byPath["acme.dup.1.yaml"].Message, "acme.dup.1.json")

	require.Contains(t, byPath, "access.json")
	assert.Equal(t, SeverityWarning, byPath["access.json"].Severity)

	require.Contains(t, byPath, "acme.notes.1.txt")
	assert.Equal(t, SeverityWarning, byPath["acme.notes.1.txt"].Severity)

	require.Contains(t, byPath, "acme.bad.1.json")
	assert.Contains(t, byPath["acme.bad.1.json"].Message, "invalid JSON Schema")

	assert.Equal(t, 3, report.Count(SeverityError))
	assert.Equal(t, 2, report.Count(SeverityWarning))
}

func TestValidate_EmptyNameTokensWarn(t *testing.T) {
	root := writeRegistry(t, map[string]string{
		"policies/acme.access.1.json": `{}`,
		"policies/acme..1.json":       `{}`,
		"schemas/.order.1.json":       `{"type":"object"}`,
	})

	report, err := Validate(root)
	require.NoError(t, err)

	assert.False(t, report.HasErrors())
	assert.Len(t, report.Artifacts, 1)
	require.Len(t, report.Issues, 2)
	for _, i := range report.Issues {
		assert.Equal(t, SeverityWarning, i.Severity)
		assert.Contains(t, i.Message, "does not follow group.name.version.extension")
	}
}

func TestValidate_UnreadableResourcesDir(t *testing.T) {
	root := writeRegistry(t, map[string]string{
		"rules": "a file where a directory belongs",
	})

	report, err := Validate(root)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, SeverityError, report.Issues[0].Severity)
	assert.Contains(t, report.Issues[0].String(), "cannot list directory")
}

func TestValidate_RootErrors(t *testing.T) {
	_, err := Validate(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0644))
	_, err = Validate(file)
	assert.ErrorContains(t, err, "is not a directory")
}

func TestCheckDocument(t *testing.T) {
	assert.NoError(t, CheckDocument("a.b.1.json", []byte(`{"a":1}`)))
	assert.NoError(t, CheckDocument("a.b.1.yaml", []byte("a: 1\n")))
	assert.NoError(t, CheckDocument("a.b.1.yml", []byte("- x\n- y\n")))
	assert.NoError(t, CheckDocument("notes.txt", []byte("{")))

	assert.ErrorContains(t, CheckDocument("a.b.1.json", []byte(`{"a":`)), "invalid JSON in a.b.1.json")
	assert.ErrorContains(t, CheckDocument("a.b.1.yaml", []byte("a: [1, 2\n")), "invalid YAML in a.b.1.yaml")
}

func TestCompileSchema(t *testing.T) {
	schema, err := CompileSchema("acme.order.1.json", []byte(`{"type":"object","required":["id"]}`))
	require.NoError(t, err)
	assert.Error(t, schema.Validate(map[string]interface{}{}))
	assert.NoError(t, schema.Validate(map[string]interface{}{"id": "42"}))

	_, err = CompileSchema("acme.remote.1.json", []byte(`{"$ref":"https://example.com/other.json"}`))
	assert.Error(t, err)
}
