package declarative

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zbx-import/internal/domain"
)

// testdataDir returns the absolute path to testdata relative to this test file.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	return filepath.Join(filepath.Dir(filename), "testdata")
}

func TestLoadFile_YAML(t *testing.T) {
	doc, err := LoadFile(filepath.Join(testdataDir(t), "linux.yaml"), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Templates, 2)

	t.Run("definitions", func(t *testing.T) {
		defs := doc.Definitions()
		require.Len(t, defs, 2)

		ssh := defs[0]
		assert.Equal(t, domain.TemplateName("Template App SSH"), ssh.Name)
		assert.Equal(t, "SSH service", ssh.VisibleName)
		assert.Equal(t, []domain.GroupName{"Templates/Applications"}, ssh.Groups)
		assert.Equal(t, []domain.TemplateName{"Template OS Linux"}, ssh.Parents)
		assert.Equal(t, []domain.Macro{{Macro: "{$SSH.PORT}", Value: "22"}}, ssh.Macros)

		linux := defs[1]
		assert.Equal(t, "Template OS Linux", linux.VisibleName, "visible name defaults to the technical name")
		assert.Equal(t, "Base Linux template.", linux.Description)
		assert.Empty(t, linux.Parents)
		assert.Equal(t, []domain.Screen{{Name: "System performance"}}, linux.Screens)
	})

	t.Run("options", func(t *testing.T) {
		opts, warnings := doc.Options()
		assert.Empty(t, warnings)
		assert.True(t, opts.CreateMissingTemplates)
		assert.True(t, opts.UpdateExistingTemplates)
		assert.True(t, opts.CreateMissingLinkage)
		assert.True(t, doc.HasRules())
	})
}

func TestLoadFile_JSON(t *testing.T) {
	doc, err := LoadFile(filepath.Join(testdataDir(t), "cycle.json"), LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, doc.Templates, 3)
	assert.Equal(t, []domain.TemplateName{"B"}, doc.Definitions()[0].Parents)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read")
}

func TestLoad_UnknownFields(t *testing.T) {
	data := []byte(`apiVersion: zabbix-import/v1
kind: TemplateList
templates:
  - template: A
    groups: [{name: Templates}]
    items: [{key: agent.ping}]
`)

	_, err := Load(data, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items")

	doc, err := Load(data, LoadOptions{AllowUnknownFields: true})
	require.NoError(t, err)
	assert.Len(t, doc.Templates, 1)
	assert.False(t, doc.HasRules())
}

func TestLoad_Envelope(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty", data: "", wantErr: "empty document"},
		{name: "wrong version", data: "apiVersion: v0\nkind: TemplateList\n", wantErr: "unsupported apiVersion"},
		{name: "wrong kind", data: "apiVersion: zabbix-import/v1\nkind: HostList\n", wantErr: "unexpected kind"},
		{name: "not yaml", data: "templates: [", wantErr: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data), LoadOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
