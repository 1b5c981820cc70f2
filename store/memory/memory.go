// Package memory provides an in-memory productivity.Store for tests and
// demos. Units of work are simulated with snapshot + restore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu sync.RWMutex
	state
	faults map[Op]error
}

// Op names a write operation that can be made to fail.
type Op string

const (
	OpReplaceStaging Op = "ReplaceStaging"
	OpClearStaging   Op = "ClearStaging"
	OpAppendRecords  Op = "AppendRecords"
	OpSaveImportRun  Op = "SaveImportRun"
	OpPutSetting     Op = "PutSetting"
	OpLoadCatalog    Op = "LoadCatalog"
)

type state struct {
	catalog       productivity.CatalogSnapshot
	staging       []productivity.StagingRow
	nextStagingID productivity.StagingRowID
	records       []productivity.Record
	nextRecordID  productivity.RecordID
	runs          []productivity.ImportRun
	settings      map[string]string
}

func New() *Memory {
	return &Memory{
		state:  state{settings: make(map[string]string)},
		faults: make(map[Op]error),
	}
}

// Seed replaces the master data.
func (m *Memory) Seed(snap productivity.CatalogSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = cloneSnapshot(snap)
}

// FailOn makes every later call of op return err. A nil err clears it.
func (m *Memory) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

func (m *Memory) fault(op Op) error {
	return m.faults[op]
}

// Records returns every committed record in insertion order.
func (m *Memory) Records() []productivity.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]productivity.Record(nil), m.records...)
}

// =============================================================================
// PUBLIC METHODS - Lock, then delegate to the *Locked variants
// =============================================================================

func (m *Memory) LoadCatalog(_ context.Context) (productivity.CatalogSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCatalogLocked()
}

func (m *Memory) ReplaceStaging(_ context.Context, rows []productivity.StagingRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceStagingLocked(rows)
}

func (m *Memory) ListStaging(_ context.Context) ([]productivity.StagingRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]productivity.StagingRow(nil), m.staging...), nil
}

func (m *Memory) UpdateStagingRow(_ context.Context, row productivity.StagingRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStagingLocked(row)
}

func (m *Memory) DeleteStagingRow(_ context.Context, id productivity.StagingRowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteStagingLocked(id)
}

func (m *Memory) ClearStaging(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearStagingLocked()
}

func (m *Memory) AppendRecords(_ context.Context, records []productivity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendRecordsLocked(records)
}

func (m *Memory) ListRecords(_ context.Context, r generic.DateRange) ([]productivity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRecordsLocked(r), nil
}

func (m *Memory) SaveImportRun(_ context.Context, run productivity.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveRunLocked(run)
}

func (m *Memory) ListImportRuns(_ context.Context, limit int) ([]productivity.ImportRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRunsLocked(limit), nil
}

func (m *Memory) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *Memory) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putSettingLocked(key, value)
}

// =============================================================================
// LOCKED IMPLEMENTATIONS
// =============================================================================

func (m *Memory) loadCatalogLocked() (productivity.CatalogSnapshot, error) {
	if err := m.fault(OpLoadCatalog); err != nil {
		return productivity.CatalogSnapshot{}, err
	}
	return cloneSnapshot(m.catalog), nil
}

func (m *Memory) replaceStagingLocked(rows []productivity.StagingRow) error {
	if err := m.fault(OpReplaceStaging); err != nil {
		return err
	}
	m.staging = make([]productivity.StagingRow, 0, len(rows))
	for _, row := range rows {
		m.nextStagingID++
		row.ID = m.nextStagingID
		m.staging = append(m.staging, row)
	}
	return nil
}

func (m *Memory) updateStagingLocked(row productivity.StagingRow) error {
	for i := range m.staging {
		if m.staging[i].ID == row.ID {
			m.staging[i] = row
			return nil
		}
	}
	return generic.ErrNotFound
}

func (m *Memory) deleteStagingLocked(id productivity.StagingRowID) error {
	for i := range m.staging {
		if m.staging[i].ID == id {
			m.staging = append(m.staging[:i:i], m.staging[i+1:]...)
			return nil
		}
	}
	return generic.ErrNotFound
}

func (m *Memory) clearStagingLocked() error {
	if err := m.fault(OpClearStaging); err != nil {
		return err
	}
	m.staging = nil
	return nil
}

func (m *Memory) appendRecordsLocked(records []productivity.Record) error {
	if err := m.fault(OpAppendRecords); err != nil {
		return err
	}
	for _, rec := range records {
		m.nextRecordID++
		rec.ID = m.nextRecordID
		m.records = append(m.records, rec)
	}
	return nil
}

func (m *Memory) listRecordsLocked(r generic.DateRange) []productivity.Record {
	var out []productivity.Record
	for _, rec := range m.records {
		if r.Contains(rec.WorkDate) {
			out = append(out, rec)
		}
	}
	return out
}

func (m *Memory) saveRunLocked(run productivity.ImportRun) error {
	if err := m.fault(OpSaveImportRun); err != nil {
		return err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) listRunsLocked(limit int) []productivity.ImportRun {
	out := append([]productivity.ImportRun(nil), m.runs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) putSettingLocked(key, value string) error {
	if err := m.fault(OpPutSetting); err != nil {
		return err
	}
	m.settings[key] = value
	return nil
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// WithTx runs fn with the store locked. Writes go straight to the live state;
// if fn fails the state captured before fn is put back.
func (m *Memory) WithTx(ctx context.Context, fn func(productivity.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.state = saved
		return err
	}
	return nil
}

func (m *Memory) snapshot() state {
	s := state{
		catalog:       m.catalog,
		staging:       append([]productivity.StagingRow(nil), m.staging...),
		nextStagingID: m.nextStagingID,
		records:       append([]productivity.Record(nil), m.records...),
		nextRecordID:  m.nextRecordID,
		runs:          append([]productivity.ImportRun(nil), m.runs...),
		settings:      make(map[string]string, len(m.settings)),
	}
	for k, v := range m.settings {
		s.settings[k] = v
	}
	return s
}

type txView struct {
	parent *Memory
}

func (tv *txView) LoadCatalog(context.Context) (productivity.CatalogSnapshot, error) {
	return tv.parent.loadCatalogLocked()
}

func (tv *txView) ReplaceStaging(_ context.Context, rows []productivity.StagingRow) error {
	return tv.parent.replaceStagingLocked(rows)
}

func (tv *txView) ListStaging(context.Context) ([]productivity.StagingRow, error) {
	return append([]productivity.StagingRow(nil), tv.parent.staging...), nil
}

func (tv *txView) UpdateStagingRow(_ context.Context, row productivity.StagingRow) error {
	return tv.parent.updateStagingLocked(row)
}

func (tv *txView) DeleteStagingRow(_ context.Context, id productivity.StagingRowID) error {
	return tv.parent.deleteStagingLocked(id)
}

func (tv *txView) ClearStaging(context.Context) error {
	return tv.parent.clearStagingLocked()
}

func (tv *txView) AppendRecords(_ context.Context, records []productivity.Record) error {
	return tv.parent.appendRecordsLocked(records)
}

func (tv *txView) ListRecords(_ context.Context, r generic.DateRange) ([]productivity.Record, error) {
	return tv.parent.listRecordsLocked(r), nil
}

func (tv *txView) SaveImportRun(_ context.Context, run productivity.ImportRun) error {
	return tv.parent.saveRunLocked(run)
}

func (tv *txView) ListImportRuns(_ context.Context, limit int) ([]productivity.ImportRun, error) {
	return tv.parent.listRunsLocked(limit), nil
}

func (tv *txView) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := tv.parent.settings[key]
	return v, ok, nil
}

func (tv *txView) PutSetting(_ context.Context, key, value string) error {
	return tv.parent.putSettingLocked(key, value)
}

func cloneSnapshot(s productivity.CatalogSnapshot) productivity.CatalogSnapshot {
	return productivity.CatalogSnapshot{
		Customers: append([]productivity.Customer(nil), s.Customers...),
		Accounts:  append([]productivity.Account(nil), s.Accounts...),
		Tasks:     append([]productivity.Task(nil), s.Tasks...),
		Indices:   append([]productivity.ConversionIndex(nil), s.Indices...),
		Roster:    append([]productivity.RosterEntry(nil), s.Roster...),
	}
}

var _ productivity.Store = (*Memory)(nil)
