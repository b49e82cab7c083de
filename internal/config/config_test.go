package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10*time.Millisecond, cfg.RedoSleep())
	assert.Equal(t, 600*time.Second, cfg.CheckpointEvery())
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeoutDuration())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdlc.yaml")
	doc := `
database: ORCL
host: 10.0.0.103
port: "1521"
username: c##rdlc
password: secret
sid: ORCL
remote: true
redo-read-sleep: 50000
archive-dest: /opt/oracle/fra/ORCL/archivelog
tables:
  - mask: USR1.%
  - mask: USR2.ADAM
    options: 1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ORCL", cfg.Database)
	assert.True(t, cfg.Remote)
	assert.Equal(t, 50*time.Millisecond, cfg.RedoSleep())
	assert.Equal(t, 600*time.Second, cfg.CheckpointEvery(), "untouched keys keep their defaults")
	require.Len(t, cfg.Tables, 2)
	assert.Equal(t, "USR1.%", cfg.Tables[0].Mask)
	assert.Equal(t, uint64(1), cfg.Tables[1].Options)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rdlc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t:"), 0644))
	_, err := Load(path)
	require.Error(t, err)
}
