package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveLayout(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, "ORCL", time.Minute)

	err := f.Save(Record{Database: "ORCL", Sequence: 731, Scn: 48909911, Resetlogs: 956464352})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ORCL.json"))
	require.NoError(t, err)

	want := "{\n" +
		"  \"database\": \"ORCL\",\n" +
		"  \"sequence\": 731,\n" +
		"  \"scn\": 48909911,\n" +
		"  \"resetlogs\": 956464352\n" +
		"}"
	require.Equal(t, want, string(data))
}

func TestLoadRoundTrip(t *testing.T) {
	f := New(t.TempDir(), "ORCL", time.Minute)
	in := Record{Database: "ORCL", Sequence: 12, Scn: 1 << 50, Resetlogs: 7}
	require.NoError(t, f.Save(in))

	rec, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, &in, rec)
}

func TestLoadMissingIsColdStart(t *testing.T) {
	f := New(t.TempDir(), "ORCL", time.Minute)
	rec, err := f.Load()
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, "ORCL", time.Minute)
	require.NoError(t, os.WriteFile(f.Path(), []byte("{broken"), 0644))

	rec, err := f.Load()
	require.Error(t, err)
	require.Nil(t, rec)
}

func TestLoadDatabaseMismatchDiscarded(t *testing.T) {
	dir := t.TempDir()
	other := New(dir, "ORCL", time.Minute)
	require.NoError(t, other.Save(Record{Database: "ORCL", Sequence: 5}))
	require.NoError(t, os.Rename(other.Path(), filepath.Join(dir, "PROD.json")))

	f := New(dir, "PROD", time.Minute)
	rec, err := f.Load()
	require.ErrorIs(t, err, ErrDatabaseMismatch)
	require.Nil(t, rec)
}

func TestLoadTolerantOfAnyValidJSON(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, "ORCL", time.Minute)
	compact := `{"scn":99,"resetlogs":3,"sequence":44,"database":"ORCL"}`
	require.NoError(t, os.WriteFile(f.Path(), []byte(compact), 0644))

	rec, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, &Record{Database: "ORCL", Sequence: 44, Scn: 99, Resetlogs: 3}, rec)
}

func TestDue(t *testing.T) {
	f := New(t.TempDir(), "ORCL", 10*time.Second)
	require.NoError(t, f.Save(Record{Database: "ORCL"}))
	require.False(t, f.Due(time.Now()))
	require.True(t, f.Due(time.Now().Add(11*time.Second)))
}
