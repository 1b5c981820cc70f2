/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Populates the database with a small warehouse operation so the import
	and report screens have something to show. Every scenario resets the
	database first, then seeds the catalog and roster, then optionally
	commits or stages a batch through the normal import path.

AVAILABLE SCENARIOS:

	warehouse-catalog:  Customers, accounts, tasks, conversion indices, roster
	july-history:       Catalog plus one committed July batch
	pending-import:     Catalog plus a staged batch with one unresolvable row

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "july-history"}

USAGE VIA CLI:

	productivity seed --scenario july-history

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - cmd/server/main.go: seed command
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/store/sqlite"
)

// DefaultScenario is what `seed` loads without a --scenario flag.
const DefaultScenario = "warehouse-catalog"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, store *sqlite.Store, im *productivity.Importer) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "warehouse-catalog",
			Name:        "Warehouse Catalog",
			Description: "Two customers, three accounts with conversion indices, five workers",
		},
		load: func(ctx context.Context, store *sqlite.Store, _ *productivity.Importer) error {
			return seedCatalog(ctx, store)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "july-history",
			Name:        "July History",
			Description: "Catalog plus a committed batch of July container work",
		},
		load: func(ctx context.Context, store *sqlite.Store, im *productivity.Importer) error {
			if err := seedCatalog(ctx, store); err != nil {
				return err
			}
			if _, err := im.Stage(ctx, julyBatch()); err != nil {
				return err
			}
			_, err := im.Confirm(ctx)
			return err
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "pending-import",
			Name:        "Pending Import",
			Description: "Catalog plus a staged batch awaiting review, one row names an unknown customer",
		},
		load: func(ctx context.Context, store *sqlite.Store, im *productivity.Importer) error {
			if err := seedCatalog(ctx, store); err != nil {
				return err
			}
			rows := julyBatch()[:3]
			rows = append(rows, productivity.StagingRow{
				Date: "2024-07-09", ContainerNo: "UNKN-001", RawQuantity: "7",
				Workers: [productivity.WorkerSlots]string{"E001"}, Task: "Unloading",
				Account: "Import", Customer: "Unknown Freight",
			})
			_, err := im.Stage(ctx, rows)
			return err
		},
	},
}

// Scenarios lists the available demo data sets.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// LoadScenario resets the store and loads the named scenario.
func LoadScenario(ctx context.Context, store *sqlite.Store, im *productivity.Importer, id string) error {
	for _, s := range scenarios {
		if s.ID != id {
			continue
		}
		if err := store.Reset(ctx); err != nil {
			return err
		}
		if err := s.load(ctx, store, im); err != nil {
			return fmt.Errorf("load scenario %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("%w: scenario %q", generic.ErrNotFound, id)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the last loaded scenario, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := LoadScenario(r.Context(), h.Store, h.Importer, req.ScenarioID); err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.logger.WithField("scenario", req.ScenarioID).Info("loaded demo scenario")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SEED DATA
// =============================================================================

func seedCatalog(ctx context.Context, store *sqlite.Store) error {
	abc, err := store.SaveCustomer(ctx, productivity.Customer{Code: "ABC", Name: "abc"})
	if err != nil {
		return err
	}
	delta, err := store.SaveCustomer(ctx, productivity.Customer{Code: "DLT", Name: "Delta Logistics"})
	if err != nil {
		return err
	}

	abcImport, err := store.SaveAccount(ctx, productivity.Account{CustomerID: abc, Code: "ABC-IMP", Name: "Import", Active: true})
	if err != nil {
		return err
	}
	abcExport, err := store.SaveAccount(ctx, productivity.Account{CustomerID: abc, Code: "ABC-EXP", Name: "Export", Active: true})
	if err != nil {
		return err
	}
	deltaCross, err := store.SaveAccount(ctx, productivity.Account{CustomerID: delta, Code: "DLT-XD", Name: "Cross-dock", Active: true})
	if err != nil {
		return err
	}

	type taskSeed struct {
		account    productivity.AccountID
		code, name string
		factor     string
		unit       generic.Unit
		from       string
	}
	seeds := []taskSeed{
		{abcImport, "UNLOAD", "Unloading", "1.2", generic.DefaultUnit, "2024-01-01"},
		{abcImport, "STRIP", "Stripping", "0.8", generic.DefaultUnit, "2024-01-01"},
		{abcExport, "LOAD", "Loading", "1", generic.DefaultUnit, "2024-01-01"},
		{deltaCross, "XDOCK", "Cross-docking", "0.5", "TEU", "2024-03-01"},
	}
	for _, s := range seeds {
		taskID, err := store.SaveTask(ctx, productivity.Task{AccountID: s.account, Code: s.code, Name: s.name})
		if err != nil {
			return err
		}
		_, err = store.SaveConversionIndex(ctx, productivity.ConversionIndex{
			AccountID:     s.account,
			TaskID:        taskID,
			Factor:        decimal.RequireFromString(s.factor),
			Unit:          s.unit,
			EffectiveFrom: generic.MustParseDate(s.from),
		})
		if err != nil {
			return err
		}
	}

	roster := []productivity.RosterEntry{
		{EmployeeCode: "E001", SecondaryCode: "M01", FullName: "Nguyễn Văn An", EmployeeType: "time", Position: "Worker", Active: true},
		{EmployeeCode: "E002", SecondaryCode: "M02", FullName: "Trần Thị Bình", EmployeeType: "time", Position: "Worker", Active: true},
		{EmployeeCode: "E003", SecondaryCode: "M03", FullName: "Lê Văn Cường", EmployeeType: "shared", Position: "Worker", Active: true},
		{EmployeeCode: "T001", SecondaryCode: "M10", FullName: "Phạm Minh Dũng", EmployeeType: "time", Position: "Tally", Active: true},
		{EmployeeCode: "L001", SecondaryCode: "M20", FullName: "Hoàng Văn Em", EmployeeType: "shared", Position: "Lift truck", Active: true},
	}
	for _, e := range roster {
		if _, err := store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// julyBatch is a week of container work. TB-prefixed identifiers are
// contractor placeholders that the default exclusion prefixes drop.
func julyBatch() []productivity.StagingRow {
	w := func(ids ...string) [productivity.WorkerSlots]string {
		var out [productivity.WorkerSlots]string
		copy(out[:], ids)
		return out
	}
	return []productivity.StagingRow{
		{Date: "01/07/2024", ContainerNo: "MSKU1234567", RawQuantity: "28.5", Tally: "T001", LiftTruck: "L001", Workers: w("E001", "E002"), Task: "Unloading", Account: "Import", Customer: "abc"},
		{Date: "01/07/2024", ContainerNo: "MSKU7654321", RawQuantity: "31", Tally: "T001", LiftTruck: "L001", Workers: w("E001", "E003", "TB-09"), Task: "STRIP", Account: "Import", Customer: "ABC"},
		{Date: "02/07/2024", ContainerNo: "TGHU0001112", RawQuantity: "22,75", Tally: "M10", Workers: w("E002", "E003"), Task: "Loading", Account: "Export", Customer: "abc"},
		{Date: "03/07/2024", ContainerNo: "XD-0703", RawQuantity: "4", LiftTruck: "L001", Workers: w("E001", "X999"), Task: "Cross-docking", Account: "Cross-dock", Customer: "Delta Logistics"},
		{Date: "04/07/2024", ContainerNo: "TGHU0001113", RawQuantity: "19", Tally: "T001", Workers: w("M01", "E002"), Task: "Loading", Account: "Export", Customer: "abc"},
		{Date: "05/07/2024", ContainerNo: "MANUAL-01", RawQuantity: "3", Workers: w("E003"), Task: "Sweeping", Account: "Import", Customer: "abc"},
	}
}
