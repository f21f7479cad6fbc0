package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"loan-agent/internal/common/logger"
	"loan-agent/internal/narrative"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, content string, hits *int32, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFraudReport_SamplePayload(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	var hits int32
	var seen chatRequest
	srv := newCompletionServer(t, "Looks fine.", &hits, &seen)

	out, _, err := execute(t, "--provider", "openai", "--base-url", srv.URL, "--model", "gemini-2.0-flash")
	require.NoError(t, err)

	assert.Contains(t, out, "Identity Fraud Risk:")
	assert.Contains(t, out, "Looks fine.")
	assert.EqualValues(t, 1, hits)
	assert.Equal(t, "gemini-2.0-flash", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, `"Sample Applicant"`)
}

func TestFraudReport_JSONBeatsFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	var hits int32
	var seen chatRequest
	srv := newCompletionServer(t, "Overall Application Risk: low", &hits, &seen)

	path := filepath.Join(t.TempDir(), "app.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o600))

	_, _, err := execute(t, "--provider", "openai", "--base-url", srv.URL, "--json", `{"from":"flag"}`, "--file", path)
	require.NoError(t, err)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, `{"from":"flag"}`)
}

func TestFraudReport_MissingCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	var hits int32
	srv := newCompletionServer(t, "unused", &hits, nil)

	_, stderr, err := execute(t, "--provider", "openai", "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, stderr, "GEMINI_API_KEY")
	assert.EqualValues(t, 0, hits)
}

func TestResolvePayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"first_name":"Ada","last_name":"Lovelace"}`), 0o600))

	tests := []struct {
		name    string
		opts    options
		want    interface{}
		wantErr bool
	}{
		{"sample", options{}, samplePayload, false},
		{"file", options{filePath: path}, `{"first_name":"Ada","last_name":"Lovelace"}`, false},
		{"profile from file", options{filePath: path, profile: true}, `{"first_name":"Ada","last_name":"Lovelace"}`, false},
		{"invalid profile", options{jsonPayload: `{"first_name":""}`, profile: true}, nil, true},
		{"profile without payload", options{profile: true}, nil, true},
		{"missing file", options{filePath: filepath.Join(t.TempDir(), "absent.json")}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePayload(&tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	log := logger.NewTestLogger(t)
	cfg, err := loadConfig(&options{provider: "gemini", model: "gemini-1.5-pro"}, log)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.Model)

	_, err = loadConfig(&options{provider: "anthropic"}, log)
	assert.Error(t, err)
}

func TestLoadConfig_MalformedConfigWarns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte("llm: [unclosed\n"), 0o644))
	t.Chdir(dir)

	var stderr bytes.Buffer
	cfg, err := loadConfig(&options{model: "gemini-1.5-pro"}, logger.NewConsole("warn", &stderr))

	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", cfg.Model)
	assert.Equal(t, narrative.DefaultConfig().Provider, cfg.Provider)
	assert.Contains(t, stderr.String(), "ignoring unreadable config, using defaults")
}
