package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090

channels:
  chat_default:
    type: chat
    bot_token: "abc123"
    chat_id: "12345"
    template: default_chat
    image_enabled: true
  webhook_prod:
    type: webhook
    url: "https://example.com/hook"
    template: default_webhook

routing:
  - match:
      _source: prometheus
    send_to: ["chat_default"]
  - default: true
    send_to: ["webhook_prod"]
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	require.Contains(t, cfg.Channels, "chat_default")
	assert.True(t, cfg.Channels["chat_default"].ResolveEnabled())
	assert.True(t, cfg.Channels["chat_default"].ResolveSendResolved())
	assert.Equal(t, 900, cfg.JenkinsDedup.TTLSeconds, "default dedup TTL should apply")
}

func TestLoad_RejectsUnknownSendToChannel(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  chat_default:
    type: chat
    bot_token: "x"
    chat_id: "y"
    template: t
routing:
  - default: true
    send_to: ["does_not_exist"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown channel")
}

func TestLoad_RejectsInvalidRegexPattern(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  chat_default:
    type: chat
    bot_token: "x"
    chat_id: "y"
    template: t
routing:
  - match:
      alertname: "(unclosed"
    send_to: ["chat_default"]
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsChatChannelMissingCredentials(t *testing.T) {
	path := writeTempConfig(t, `
channels:
  chat_default:
    type: chat
    template: t
routing:
  - default: true
    send_to: ["chat_default"]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
}

func TestConfigFilePath(t *testing.T) {
	env := map[string]string{"CONFIG_FILE": "/etc/alert-router/config.yaml"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	assert.Equal(t, "/flag/path.yaml", ConfigFilePath("/flag/path.yaml", lookup))
	assert.Equal(t, "/etc/alert-router/config.yaml", ConfigFilePath("", lookup))

	emptyLookup := func(string) (string, bool) { return "", false }
	assert.Equal(t, DefaultConfigFile, ConfigFilePath("", emptyLookup))
}
