package client

import (
	"context"
	"database/sql"

	"rdlc/internal/catalog"
	"rdlc/internal/codec"
	"rdlc/internal/inventory"
	"rdlc/internal/reader"
)

// The SQL text below is part of the external interface; it matches the
// dictionary views version for version and is not reformatted.
const (
	sqlDatabaseInfo = "SELECT D.LOG_MODE, D.SUPPLEMENTAL_LOG_DATA_MIN, TP.ENDIAN_FORMAT, D.CURRENT_SCN, DI.RESETLOGS_ID, VER.BANNER, SYS_CONTEXT('USERENV','DB_NAME') AS DB_NAME FROM SYS.V_$DATABASE D JOIN SYS.V_$TRANSPORTABLE_PLATFORM TP ON TP.PLATFORM_NAME = D.PLATFORM_NAME JOIN SYS.V_$VERSION VER ON VER.BANNER LIKE '%Oracle Database%' JOIN SYS.V_$DATABASE_INCARNATION DI ON DI.STATUS = 'CURRENT'"

	sqlContainerID = "select sys_context('USERENV','CON_ID') CON_ID from DUAL"

	sqlCurrentSequence = "select SEQUENCE# from SYS.V_$LOG where status = 'CURRENT'"

	sqlOnlineLogs = "SELECT LF.GROUP#, LF.MEMBER FROM SYS.V_$LOGFILE LF ORDER BY LF.GROUP# ASC, LF.IS_RECOVERY_DEST_FILE DESC, LF.MEMBER ASC"

	sqlArchivedLogs = "SELECT NAME, SEQUENCE#, FIRST_CHANGE#, FIRST_TIME, NEXT_CHANGE#, NEXT_TIME FROM SYS.V_$ARCHIVED_LOG WHERE SEQUENCE# >= :1 AND RESETLOGS_ID = :2 AND NAME IS NOT NULL ORDER BY SEQUENCE#, DEST_ID"

	sqlTablesMatching = "SELECT tab.DATAOBJ# as objd, tab.OBJ# as objn, tab.CLUCOLS as clucols, usr.USERNAME AS owner, obj.NAME AS objectName, decode(bitand(tab.FLAGS, 8388608), 8388608, 1, 0) as dependencies " +
		"FROM SYS.TAB$ tab, SYS.OBJ$ obj, ALL_USERS usr " +
		"WHERE tab.OBJ# = obj.OBJ# " +
		"AND obj.OWNER# = usr.USER_ID " +
		"AND usr.USERNAME || '.' || obj.NAME LIKE :1"

	sqlTableColumns = "SELECT C.COL#, C.SEGCOL#, C.NAME, C.TYPE#, C.LENGTH, C.PRECISION#, C.SCALE, C.NULL$, (SELECT COUNT(*) FROM SYS.CCOL$ L JOIN SYS.CDEF$ D on D.con# = L.con# AND D.type# = 2 WHERE L.intcol# = C.intcol# and L.obj# = C.obj#) AS NUMPK FROM SYS.COL$ C WHERE C.OBJ# = :1 ORDER BY C.SEGCOL#"
)

var _ reader.Dictionary = (*Client)(nil)

// DatabaseInfo runs the bootstrap query.
func (c *Client) DatabaseInfo(ctx context.Context) (*reader.DatabaseInfo, error) {
	rows, err := c.query(ctx, sqlDatabaseInfo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var info reader.DatabaseInfo
	if err := rows.Scan(&info.LogMode, &info.SupplementalLogMin, &info.EndianFormat,
		&info.CurrentScn, &info.ResetlogsID, &info.Banner, &info.Name); err != nil {
		return nil, err
	}
	return &info, rows.Err()
}

// ContainerID resolves the container on multitenant servers.
func (c *Client) ContainerID(ctx context.Context) (uint32, error) {
	rows, err := c.query(ctx, sqlContainerID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var conId uint32
	if rows.Next() {
		if err := rows.Scan(&conId); err != nil {
			return 0, err
		}
	}
	return conId, rows.Err()
}

// CurrentSequence reads the sequence of the active online log.
func (c *Client) CurrentSequence(ctx context.Context) (uint32, error) {
	rows, err := c.query(ctx, sqlCurrentSequence)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var seq uint32
	if rows.Next() {
		if err := rows.Scan(&seq); err != nil {
			return 0, err
		}
	}
	return seq, rows.Err()
}

// OnlineLogs lists online group members, recovery destination first
// within each group.
func (c *Client) OnlineLogs(ctx context.Context) ([]inventory.GroupMember, error) {
	rows, err := c.query(ctx, sqlOnlineLogs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []inventory.GroupMember
	for rows.Next() {
		var m inventory.GroupMember
		if err := rows.Scan(&m.Group, &m.Path); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ArchivedLogs lists archived logs of the current incarnation from the
// wanted sequence on.
func (c *Client) ArchivedLogs(ctx context.Context, fromSequence, resetlogs uint32) ([]inventory.ArchivedLog, error) {
	rows, err := c.query(ctx, sqlArchivedLogs, fromSequence, resetlogs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []inventory.ArchivedLog
	for rows.Next() {
		var a inventory.ArchivedLog
		var firstScn, nextScn uint64
		var firstTime, nextTime interface{}
		if err := rows.Scan(&a.Path, &a.Sequence, &firstScn, &firstTime, &nextScn, &nextTime); err != nil {
			return nil, err
		}
		a.FirstScn = codec.SCN(firstScn)
		a.NextScn = codec.SCN(nextScn)
		logs = append(logs, a)
	}
	return logs, rows.Err()
}

// TablesMatching lists table candidates whose owner.name matches mask.
func (c *Client) TablesMatching(ctx context.Context, mask string) ([]catalog.TableRow, error) {
	rows, err := c.query(ctx, sqlTablesMatching, mask)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.TableRow
	for rows.Next() {
		var row catalog.TableRow
		var objd, cluCols sql.NullInt64
		var dependencies int64
		if err := rows.Scan(&objd, &row.Objn, &cluCols, &row.Owner, &row.Name, &dependencies); err != nil {
			return nil, err
		}
		if objd.Valid {
			row.Objd = uint64(objd.Int64)
			row.ObjdValid = true
		}
		if cluCols.Valid {
			row.CluCols = uint64(cluCols.Int64)
		}
		row.Dependencies = dependencies != 0
		out = append(out, row)
	}
	return out, rows.Err()
}

// TableColumns lists the columns of one table in segment order.
// Absent precision and scale come back as -1; a nonzero NULL$ marks
// the column NOT NULL.
func (c *Client) TableColumns(ctx context.Context, objn uint64) ([]catalog.ColumnRow, error) {
	rows, err := c.query(ctx, sqlTableColumns, objn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.ColumnRow
	for rows.Next() {
		var col catalog.ColumnRow
		var precision, scale sql.NullInt64
		var nullable int64
		if err := rows.Scan(&col.ColNo, &col.SegColNo, &col.Name, &col.TypeNo,
			&col.Length, &precision, &scale, &nullable, &col.NumPk); err != nil {
			return nil, err
		}
		col.Precision = -1
		if precision.Valid {
			col.Precision = precision.Int64
		}
		col.Scale = -1
		if scale.Valid {
			col.Scale = scale.Int64
		}
		col.Nullable = nullable == 0
		out = append(out, col)
	}
	return out, rows.Err()
}
