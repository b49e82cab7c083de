// Package catalog materializes table and column descriptors from the
// database dictionary. Descriptors drive row decoding downstream; the
// catalog itself is a map keyed by logical object number.
package catalog

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Column describes one dictionary column of a mined table, ordered by
// its segment position. Precision and Scale are -1 when absent.
type Column struct {
	ColNo     uint64
	SegColNo  uint64
	Name      string
	TypeNo    uint64
	Length    uint64
	Precision int64
	Scale     int64
	NumPk     uint64
	Nullable  bool
}

// Table describes one mined table. Objn is the logical object number
// redo records refer to; Objd is the physical data object.
type Table struct {
	Objn         uint64
	Objd         uint64
	Owner        string
	Name         string
	Dependencies bool
	CluCols      uint64
	Options      uint64
	Columns      []*Column
	TotalCols    uint64
	TotalPk      uint64
}

func (t *Table) AddColumn(c *Column) {
	t.Columns = append(t.Columns, c)
}

// TableRow is one dictionary row describing a table candidate.
// ObjdValid is false for partitioned and index-organized tables, which
// carry no physical object of their own.
type TableRow struct {
	Objn         uint64
	Objd         uint64
	ObjdValid    bool
	CluCols      uint64
	Owner        string
	Name         string
	Dependencies bool
}

// ColumnRow is one dictionary row describing a column, already
// normalized: absent precision/scale arrive as -1.
type ColumnRow struct {
	ColNo     uint64
	SegColNo  uint64
	Name      string
	TypeNo    uint64
	Length    uint64
	Precision int64
	Scale     int64
	Nullable  bool
	NumPk     uint64
}

// Dictionary is the metadata surface the catalog loads from.
type Dictionary interface {
	TablesMatching(ctx context.Context, mask string) ([]TableRow, error)
	TableColumns(ctx context.Context, objn uint64) ([]ColumnRow, error)
}

// Catalog is the objn-keyed descriptor map. Reads from downstream
// consumers may overlap inserts during initial loading, so access is
// serialized with a reader/writer lock.
type Catalog struct {
	mu     sync.RWMutex
	tables map[uint64]*Table
	log    *logrus.Entry
}

func New() *Catalog {
	return &Catalog{
		tables: make(map[uint64]*Table),
		log:    logrus.WithField("component", "catalog"),
	}
}

// Lookup returns the descriptor for objn, or nil when unknown.
func (c *Catalog) Lookup(objn uint64) *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[objn]
}

// Insert adds a descriptor unless one already exists for the same objn.
// First insertion wins; redundant discovery from the log and from
// dictionary queries is silently tolerated.
func (c *Catalog) Insert(t *Table) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[t.Objn]; ok {
		return false
	}
	c.tables[t.Objn] = t
	return true
}

// Len reports the number of cataloged tables.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// AddTablesMatching loads descriptors for every dictionary table whose
// owner.name matches the SQL-like mask. Partitioned and IOT rows are
// skipped. A failing dictionary query leaves a partial catalog behind;
// the caller decides whether that is fatal.
func (c *Catalog) AddTablesMatching(ctx context.Context, dict Dictionary, mask string, options uint64) error {
	c.log.Infof("reading table schema for: %s", mask)
	tabCnt := 0

	rows, err := dict.TablesMatching(ctx, mask)
	if err != nil {
		c.log.Errorf("getting table metadata: %v", err)
		return err
	}

	for _, row := range rows {
		if !row.ObjdValid {
			c.log.Infof("  * skipped: %s.%s (OBJN: %d) - partitioned or IOT", row.Owner, row.Name, row.Objn)
			continue
		}

		table := &Table{
			Objn:         row.Objn,
			Objd:         row.Objd,
			Owner:        row.Owner,
			Name:         row.Name,
			Dependencies: row.Dependencies,
			CluCols:      row.CluCols,
			Options:      options,
		}

		cols, err := dict.TableColumns(ctx, row.Objn)
		if err != nil {
			c.log.Errorf("getting table metadata: %v", err)
			return err
		}
		for _, col := range cols {
			table.AddColumn(&Column{
				ColNo:     col.ColNo,
				SegColNo:  col.SegColNo,
				Name:      col.Name,
				TypeNo:    col.TypeNo,
				Length:    col.Length,
				Precision: col.Precision,
				Scale:     col.Scale,
				NumPk:     col.NumPk,
				Nullable:  col.Nullable,
			})
			table.TotalCols++
			table.TotalPk += col.NumPk
		}

		c.log.Infof("  * found: %s.%s (OBJD: %d, OBJN: %d, DEP: %t)",
			row.Owner, row.Name, row.Objd, row.Objn, row.Dependencies)
		tabCnt++
		c.Insert(table)
	}

	c.log.Infof("  (total: %d)", tabCnt)
	return nil
}
