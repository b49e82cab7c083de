package reader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdlc/internal/checkpoint"
	"rdlc/internal/codec"
)

func bootstrapInfo() *DatabaseInfo {
	return &DatabaseInfo{
		LogMode:            "ARCHIVELOG",
		SupplementalLogMin: "YES",
		EndianFormat:       "Little",
		CurrentScn:         48908259,
		ResetlogsID:        956464352,
		Banner:             "Oracle Database 12c Enterprise Edition Release 12.2.0.1.0 - 64bit Production",
		Name:               "ORCL",
	}
}

func newBootstrapReader(t *testing.T, dict Dictionary) *Reader {
	t.Helper()
	return New(Options{
		Database:      "ORCL",
		Dict:          dict,
		Txns:          NoTransactions{},
		Checkpoint:    checkpoint.New(t.TempDir(), "ORCL", time.Minute),
		RedoReadSleep: time.Millisecond,
	})
}

func TestBootstrapColdStart(t *testing.T) {
	dict := &fakeDict{info: bootstrapInfo(), conId: 3, current: 731}
	r := newBootstrapReader(t, dict)

	require.NoError(t, r.Bootstrap(context.Background()))

	assert.Equal(t, uint32(731), r.sequence)
	assert.Equal(t, codec.SCN(48908259), r.scn)
	assert.Equal(t, uint32(956464352), r.resetlogs)
	assert.Equal(t, uint32(3), r.conId)
	assert.Equal(t, uint32(0x12200), r.version)
	assert.False(t, r.bigEndian)
	assert.IsType(t, codec.LittleEndian{}, r.Codec())
	assert.Equal(t, "ORCL", r.dbName)
}

func TestBootstrapResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ckpt := checkpoint.New(dir, "ORCL", time.Minute)
	require.NoError(t, ckpt.Save(checkpoint.Record{
		Database: "ORCL", Sequence: 700, Scn: 48000000, Resetlogs: 956464352,
	}))

	dict := &fakeDict{info: bootstrapInfo(), conId: 3, current: 731}
	r := New(Options{
		Database:      "ORCL",
		Dict:          dict,
		Txns:          NoTransactions{},
		Checkpoint:    checkpoint.New(dir, "ORCL", time.Minute),
		RedoReadSleep: time.Millisecond,
	})

	require.NoError(t, r.Bootstrap(context.Background()))
	assert.Equal(t, uint32(700), r.sequence, "checkpoint position wins over the live sequence")
	assert.Equal(t, codec.SCN(48000000), r.scn)
}

func TestBootstrapRejectsNoArchiveLog(t *testing.T) {
	info := bootstrapInfo()
	info.LogMode = "NOARCHIVELOG"
	r := newBootstrapReader(t, &fakeDict{info: info})

	err := r.Bootstrap(context.Background())
	require.ErrorIs(t, err, ErrConfigReject)
}

func TestBootstrapRejectsMissingSupplementalLog(t *testing.T) {
	info := bootstrapInfo()
	info.SupplementalLogMin = "NO"
	r := newBootstrapReader(t, &fakeDict{info: info})

	err := r.Bootstrap(context.Background())
	require.ErrorIs(t, err, ErrConfigReject)
}

func TestBootstrapRejectsWrongIncarnation(t *testing.T) {
	info := bootstrapInfo()
	info.ResetlogsID = 2
	r := newBootstrapReader(t, &fakeDict{info: info, current: 731})
	r.resetlogs = 1 // from a checkpoint of the previous incarnation

	err := r.Bootstrap(context.Background())
	require.ErrorIs(t, err, ErrConfigReject)
}

func TestBootstrapAdoptsLiveResetlogs(t *testing.T) {
	r := newBootstrapReader(t, &fakeDict{info: bootstrapInfo(), current: 731})
	require.NoError(t, r.Bootstrap(context.Background()))
	assert.Equal(t, uint32(956464352), r.resetlogs)
}

func TestBootstrapBigEndian(t *testing.T) {
	info := bootstrapInfo()
	info.EndianFormat = "Big"
	r := newBootstrapReader(t, &fakeDict{info: info, current: 731})

	require.NoError(t, r.Bootstrap(context.Background()))
	assert.True(t, r.bigEndian)
	assert.IsType(t, codec.BigEndian{}, r.Codec())
}

func TestBootstrapSkipsContainerOn11g(t *testing.T) {
	info := bootstrapInfo()
	info.Banner = "Oracle Database 11g Enterprise Edition Release 11.2.0.4.0 - 64bit Production"
	r := newBootstrapReader(t, &fakeDict{info: info, conId: 3, current: 731})

	require.NoError(t, r.Bootstrap(context.Background()))
	assert.Equal(t, uint32(0), r.conId)
	assert.Equal(t, uint32(0x11200), r.version)
}

func TestPackVersion(t *testing.T) {
	cases := map[string]uint32{
		"Oracle Database 12c Enterprise Edition Release 12.2.0.1.0": 0x12200,
		"Oracle Database 11g Enterprise Edition Release 11.2.0.4.0": 0x11200,
		"Oracle Database 19c Enterprise Edition Release 19.0.0.0.0": 0x19000,
		"no version here": 0,
	}
	for banner, want := range cases {
		assert.Equal(t, want, packVersion(banner), banner)
	}
}
