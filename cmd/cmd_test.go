package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCommand builds a command with buffered output and a context, the way
// Execute would have set it up.
func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	return cmd, &out, &errOut
}

// configureViper points the global configuration at a temp template dir
// and quiets the logger, restoring viper afterwards.
func configureViper(t *testing.T, templatesDir string) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("templates.dir", templatesDir)
	viper.Set("logging.level", "error")
}

// writeDemoTemplate lays down one valid template under templatesDir.
func writeDemoTemplate(t *testing.T, templatesDir, id string) {
	t.Helper()

	files := map[string]string{
		"fastkit.yaml": "id: " + id + "\n" +
			"description: Demo API template\n" +
			"dependencies:\n" +
			"  - name: fastapi\n" +
			"  - name: uvicorn\n" +
			"test_command: [\"pytest\", \"tests\"]\n",
		"requirements.txt-tpl": "fastapi\nuvicorn\n",
		"setup.py-tpl":         "setup(\n    name=\"<project_name>\",\n    description=\"<description> [fastkit templated]\",\n    install_requires=[\"fastapi\"],\n)\n",
		"README.md-tpl":        "# <project_name>\n",
		"src/main.py-tpl":      "from fastapi import FastAPI\n\napp = FastAPI()\n",
		"tests/__init__.py":    "",
	}
	for rel, content := range files {
		path := filepath.Join(templatesDir, id, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestCommandRegistration(t *testing.T) {
	names := map[string]bool{}
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"new", "addroute", "inspect", "list", "version"} {
		assert.True(t, names[want], "missing command: %s", want)
	}
}

func TestListCommand(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "minimal")
	configureViper(t, templatesDir)

	cmd, out, _ := testCommand(t)
	listFormat = "table"
	require.NoError(t, runList(cmd, nil))

	assert.Contains(t, out.String(), "minimal")
	assert.Contains(t, out.String(), "Demo API template")
	assert.Contains(t, out.String(), "pip (default)")
	assert.Contains(t, out.String(), "poetry")
}

func TestListCommandJSON(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "minimal")
	configureViper(t, templatesDir)

	cmd, out, _ := testCommand(t)
	listFormat = "json"
	require.NoError(t, runList(cmd, nil))

	var doc struct {
		Templates []struct {
			ID           string `json:"id"`
			Dependencies int    `json:"dependencies"`
		} `json:"templates"`
		Backends       []string `json:"backends"`
		DefaultBackend string   `json:"default_backend"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, "minimal", doc.Templates[0].ID)
	assert.Equal(t, 2, doc.Templates[0].Dependencies)
	assert.Equal(t, []string{"pdm", "pip", "poetry", "uv"}, doc.Backends)
	assert.Equal(t, "pip", doc.DefaultBackend)
}

func TestListCommandRejectsUnknownFormat(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "minimal")
	configureViper(t, templatesDir)

	cmd, _, _ := testCommand(t)
	listFormat = "csv"
	err := runList(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestInspectCommandPasses(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "minimal")
	configureViper(t, templatesDir)

	cmd, out, _ := testCommand(t)
	inspectFormat = "text"
	inspectDynamic = false
	inspectStream = false
	require.NoError(t, runInspect(cmd, nil))

	assert.Contains(t, out.String(), "PASS  minimal")
	assert.Contains(t, out.String(), "1 checked, 1 passed, 0 failed")
}

func TestInspectCommandFailsNonzero(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "broken")
	require.NoError(t, os.Remove(filepath.Join(templatesDir, "broken", "setup.py-tpl")))
	configureViper(t, templatesDir)

	cmd, out, _ := testCommand(t)
	inspectFormat = "text"
	inspectDynamic = false
	inspectStream = false
	err := runInspect(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 templates failed inspection")
	assert.Contains(t, out.String(), "FAIL  broken")
}

func TestInspectCommandJSONReport(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "minimal")
	configureViper(t, templatesDir)

	cmd, out, _ := testCommand(t)
	inspectFormat = "json"
	inspectDynamic = false
	inspectStream = false
	require.NoError(t, runInspect(cmd, nil))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Contains(t, doc, "minimal")
	assert.Contains(t, doc, "summary")
}

func TestInspectCommandRejectsUnknownFormat(t *testing.T) {
	cmd, _, _ := testCommand(t)
	inspectFormat = "xml"
	err := runInspect(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestNewCommandUnknownBackendWritesNothing(t *testing.T) {
	templatesDir := t.TempDir()
	writeDemoTemplate(t, templatesDir, "minimal")
	outputDir := t.TempDir()
	configureViper(t, templatesDir)
	viper.Set("output.base_dir", outputDir)

	cmd, _, _ := testCommand(t)
	newTemplate = "minimal"
	newBackend = "conda"
	newDestination = ""
	err := runNew(cmd, []string{"demo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conda")
	assert.NoDirExists(t, filepath.Join(outputDir, "demo"))
}

func TestAddRouteCommandRejectsBadName(t *testing.T) {
	configureViper(t, t.TempDir())

	cmd, _, _ := testCommand(t)
	addRouteProject = t.TempDir()
	err := runAddRoute(cmd, []string{"../escape"})
	require.Error(t, err)
}

func TestSignalContextCancelsOnInterrupt(t *testing.T) {
	ctx, stop := signalContext()
	defer stop()

	require.NoError(t, ctx.Err())

	// With the handler registered the signal cancels the context instead
	// of killing the test process.
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt did not cancel the command context")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestValidateFormat(t *testing.T) {
	supported := []string{"text", "json", "yaml"}

	assert.NoError(t, ValidateFormat("json", supported))
	assert.NoError(t, ValidateFormat("JSON", supported))

	err := ValidateFormat("xml", supported)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported: text, json, yaml")
}

func TestFormatFlagRejectedAtParseTime(t *testing.T) {
	require.Error(t, inspectCmd.Flags().Set("format", "xml"))
	require.NoError(t, inspectCmd.Flags().Set("format", "json"))
	require.NoError(t, inspectCmd.Flags().Set("format", "text"))
}

func TestVersionCommand(t *testing.T) {
	cmd, out, _ := testCommand(t)
	versionFormat = "text"
	require.NoError(t, runVersion(cmd, nil))
	assert.Contains(t, out.String(), "fastkit dev")
}

func TestVersionCommandJSON(t *testing.T) {
	cmd, out, _ := testCommand(t)
	versionFormat = "json"
	require.NoError(t, runVersion(cmd, nil))

	var info struct {
		Version  string `json:"version"`
		Platform string `json:"platform"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, "dev", info.Version)
	assert.NotEmpty(t, info.Platform)
}
