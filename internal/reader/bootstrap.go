package reader

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"rdlc/internal/codec"
)

var bannerVersion = regexp.MustCompile(`(\d+)\.(\d+)`)

// packVersion folds the banner's major.minor into the packed form the
// original trace gates use: 12.2 becomes 0x12200.
func packVersion(banner string) uint32 {
	m := bannerVersion.FindStringSubmatch(banner)
	if m == nil {
		return 0
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])

	var v uint32
	for _, d := range strconv.Itoa(major) {
		v = v<<4 | uint32(d-'0')
	}
	return (v<<4 | uint32(minor&0xF)) << 8
}

// Bootstrap verifies the database is minable, selects the codec and
// resolves the starting position. Every check must pass or the reader
// refuses to start.
func (r *Reader) Bootstrap(ctx context.Context) error {
	info, err := r.dict.DatabaseInfo(ctx)
	if err != nil {
		return fmt.Errorf("reading SYS.V_$DATABASE: %w", err)
	}

	if info.LogMode != "ARCHIVELOG" {
		pterm.Error.Println("database not in ARCHIVELOG mode, run:")
		pterm.Println(" SHUTDOWN IMMEDIATE;")
		pterm.Println(" STARTUP MOUNT;")
		pterm.Println(" ALTER DATABASE ARCHIVELOG;")
		pterm.Println(" ALTER DATABASE OPEN;")
		return fmt.Errorf("%w: LOG_MODE is %q", ErrConfigReject, info.LogMode)
	}

	if info.SupplementalLogMin != "YES" {
		pterm.Error.Println("SUPPLEMENTAL_LOG_DATA_MIN missing, run:")
		pterm.Println(" ALTER DATABASE ADD SUPPLEMENTAL LOG DATA;")
		pterm.Println(" ALTER SYSTEM ARCHIVE LOG CURRENT;")
		return fmt.Errorf("%w: supplemental logging disabled", ErrConfigReject)
	}

	r.bigEndian = info.EndianFormat == "Big"
	r.codec = codec.Select(r.bigEndian)

	if r.resetlogs != 0 && info.ResetlogsID != r.resetlogs {
		return fmt.Errorf("%w: incorrect database incarnation, previous resetlogs: %d, current: %d",
			ErrConfigReject, r.resetlogs, info.ResetlogsID)
	}
	r.resetlogs = info.ResetlogsID

	r.version = packVersion(info.Banner)
	r.log.Infof("version: %s", info.Banner)

	r.conId = 0
	if !strings.Contains(info.Banner, "Oracle Database 11g") {
		conId, err := r.dict.ContainerID(ctx)
		if err != nil {
			return fmt.Errorf("resolving container id: %w", err)
		}
		r.conId = conId
		r.log.Infof("conId: %d", r.conId)
	}

	r.dbName = info.Name

	if r.sequence == 0 || r.scn == 0 {
		seq, err := r.dict.CurrentSequence(ctx)
		if err != nil {
			return fmt.Errorf("resolving current sequence: %w", err)
		}
		r.sequence = seq
		r.scn = codec.SCN(info.CurrentScn)
	}

	r.log.Infof("sequence: %d", r.sequence)
	r.log.Infof("scn: %d", uint64(r.scn))
	r.log.Infof("resetlogs: %d", r.resetlogs)

	if r.sequence == 0 || r.scn == 0 {
		return fmt.Errorf("%w: could not resolve a starting position", ErrConfigReject)
	}
	return nil
}
