package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n" +
		"  driver: sqlite\n" +
		"  path: " + filepath.Join(dir, "exchange.db") + "\n" +
		"auth:\n" +
		"  jwt_secret: cli-secret\n" +
		"log:\n" +
		"  level: error\n" +
		"  output: stdout\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func firstField(output string) string {
	return strings.SplitN(strings.TrimSpace(output), "\t", 2)[0]
}

// TestRootCommand 测试根命令与子命令注册
func TestRootCommand(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"server", "migrate", "ministry", "user", "token"} {
		assert.True(t, names[name], name)
	}
	assert.Equal(t, "ministry-exchange", GetRootCmd().Use)
}

// TestProvisioningCommands 迁移、开通部委与用户、签发令牌
func TestProvisioningCommands(t *testing.T) {
	configPath := writeSQLiteConfig(t)

	_, err := run(t, "migrate", "--config", configPath)
	require.NoError(t, err)

	out, err := run(t, "ministry", "add", "--config", configPath, "--name", "Ministry of Finance", "--abbreviation", "mof")
	require.NoError(t, err)
	assert.Contains(t, out, "MOF")
	ministryID := firstField(out)
	require.NotEmpty(t, ministryID)

	out, err = run(t, "user", "add", "--config", configPath, "--ministry", ministryID, "--email", "ops@mof.gov", "--password", "password123", "--role", "admin")
	require.NoError(t, err)
	userID := firstField(out)
	require.NotEmpty(t, userID)

	out, err = run(t, "token", "issue", "--config", configPath, "--user", userID)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")))

	_, err = run(t, "token", "issue", "--config", configPath, "--user", "nobody")
	assert.Error(t, err)

	_, err = run(t, "user", "add", "--config", configPath, "--ministry", ministryID, "--email", "x@mof.gov", "--password", "password123", "--role", "root")
	assert.Error(t, err)
}
