/*
handlers.go - HTTP API handlers for the productivity engine

PURPOSE:
  Exposes the import lifecycle, reports and settings over REST. Handlers
  parse the request, validate input, call the productivity services and
  serialize the response. No business rule lives here.

ENDPOINTS:
  Imports:
    POST   /api/imports                 Upload .xlsx/.csv (multipart "file") and stage it
    GET    /api/imports/staging         Preview staged rows with validity
    PUT    /api/imports/staging/{id}    Edit one staged row
    DELETE /api/imports/staging/{id}    Drop one staged row
    POST   /api/imports/confirm         Commit the staged batch
    POST   /api/imports/cancel          Discard the staged batch
    GET    /api/imports/template        Download the import template
    GET    /api/imports/runs            Import audit log

  Records and reports:
    GET    /api/records?from&to
    GET    /api/reports/productivity?from&to
    GET    /api/reports/productivity/export?from&to

  Settings:
    GET    /api/settings/exclusion-prefixes
    PUT    /api/settings/exclusion-prefixes

  Catalog (read only):
    GET    /api/catalog/customers
    GET    /api/catalog/accounts?customer_id=
    GET    /api/catalog/tasks?account_id=
    GET    /api/catalog/employees

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status chosen from the sentinel:
  - 400: malformed input, bad date range, invalid config
  - 404: staged row not found
  - 409: confirm with nothing staged
  - 422: staged batch failed validation (row_errors lists every row)
  - 503: commit failed on storage, staging intact, safe to retry
  - 500: anything else

SECURITY NOTE:
  No authentication. Deploy behind a trusted network.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/productivity-engine/generic"
	"github.com/warp/productivity-engine/productivity"
	"github.com/warp/productivity-engine/sheet"
	"github.com/warp/productivity-engine/store/sqlite"
)

// maxUploadBytes bounds the multipart form kept in memory.
const maxUploadBytes = 32 << 20

// defaultRunLimit is how many audit rows GET /api/imports/runs returns.
const defaultRunLimit = 50

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Importer *productivity.Importer
	Reporter *productivity.Reporter

	clock    generic.Clock
	logger   logrus.FieldLogger
	validate *validator.Validate

	// currentScenario is the last scenario loaded, "" after a reset.
	currentScenario string
}

// NewHandler wires the services around store. Report defaults come from
// base; clock and logger may be nil.
func NewHandler(store *sqlite.Store, base productivity.AggregateConfig, clock generic.Clock, logger logrus.FieldLogger) *Handler {
	if clock == nil {
		clock = generic.RealClock{}
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Handler{
		Store:    store,
		Importer: productivity.NewImporter(store, clock, logger),
		Reporter: productivity.NewReporter(store, base, logger),
		clock:    clock,
		logger:   logger,
		validate: validator.New(),
	}
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// UploadImport reads the uploaded workbook and stages its rows, replacing any
// previous batch.
func (h *Handler) UploadImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file", err)
		return
	}
	defer file.Close()

	rows, err := sheet.ReadFile(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read workbook", err)
		return
	}
	n, err := h.Importer.Stage(r.Context(), rows)
	if err != nil {
		h.writeDomainError(w, "Failed to stage rows", err)
		return
	}
	preview, err := h.Importer.Preview(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load staging", err)
		return
	}
	writeJSON(w, http.StatusCreated, StageResponse{Staged: n, Preview: toPreviewDTO(preview)})
}

// GetStaging returns the staged batch with per-row validity.
func (h *Handler) GetStaging(w http.ResponseWriter, r *http.Request) {
	preview, err := h.Importer.Preview(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to load staging", err)
		return
	}
	writeJSON(w, http.StatusOK, toPreviewDTO(preview))
}

// UpdateStagingRow replaces the cells of one staged row.
func (h *Handler) UpdateStagingRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateStagingRowRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	row := req.toDomain()
	row.ID = productivity.StagingRowID(id)
	if err := h.Importer.UpdateRow(r.Context(), row); err != nil {
		h.writeDomainError(w, "Failed to update staged row", err)
		return
	}
	h.GetStaging(w, r)
}

// DeleteStagingRow drops one staged row.
func (h *Handler) DeleteStagingRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Importer.DeleteRow(r.Context(), productivity.StagingRowID(id)); err != nil {
		h.writeDomainError(w, "Failed to delete staged row", err)
		return
	}
	h.GetStaging(w, r)
}

// ConfirmImport commits the staged batch.
func (h *Handler) ConfirmImport(w http.ResponseWriter, r *http.Request) {
	res, err := h.Importer.Confirm(r.Context())
	if err != nil {
		h.writeDomainError(w, "Import not committed", err)
		return
	}
	writeJSON(w, http.StatusOK, CommitResultDTO{RunID: res.RunID, Count: res.Count})
}

// CancelImport clears staging.
func (h *Handler) CancelImport(w http.ResponseWriter, r *http.Request) {
	if err := h.Importer.Cancel(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to cancel import", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DownloadTemplate streams the blank import workbook with catalog dropdowns.
func (h *Handler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.LoadCatalog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return
	}
	f, err := sheet.NewTemplate(snap)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build template", err)
		return
	}
	defer f.Close()
	writeWorkbookHeaders(w, "import_template.xlsx")
	if err := f.Write(w); err != nil {
		h.logger.WithError(err).Warn("template download interrupted")
	}
}

// ListImportRuns returns recent import runs, newest first.
func (h *Handler) ListImportRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Importer.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list import runs", err)
		return
	}
	dtos := make([]ImportRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toImportRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECORD AND REPORT HANDLERS
// =============================================================================

// ListRecords returns committed records in the requested window.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ListRecords(r.Context(), rng)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}
	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReport returns the productivity report as JSON.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}
	rep, err := h.Reporter.Build(r.Context(), rng)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// ExportReport returns the productivity report as a workbook.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}
	rep, err := h.Reporter.Build(r.Context(), rng)
	if err != nil {
		h.writeDomainError(w, "Failed to build report", err)
		return
	}
	f, err := sheet.NewReport(rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}
	defer f.Close()
	writeWorkbookHeaders(w, sheet.ReportFilename(generic.DateOf(h.clock.Now()).String()))
	if err := f.Write(w); err != nil {
		h.logger.WithError(err).Warn("report download interrupted")
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetExclusionPrefixes returns the effective exclusion prefixes.
func (h *Handler) GetExclusionPrefixes(w http.ResponseWriter, r *http.Request) {
	prefixes, err := productivity.LoadExclusionPrefixes(r.Context(), h.Store, h.reportDefaults().ExclusionPrefixes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load setting", err)
		return
	}
	writeJSON(w, http.StatusOK, PrefixesDTO{Prefixes: prefixes, Value: productivity.FormatPrefixes(prefixes)})
}

// UpdateExclusionPrefixes stores the prefixes parsed from free text.
func (h *Handler) UpdateExclusionPrefixes(w http.ResponseWriter, r *http.Request) {
	var req UpdatePrefixesRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	prefixes, err := productivity.SaveExclusionPrefixes(r.Context(), h.Store, req.Value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save setting", err)
		return
	}
	h.logger.WithField("prefixes", prefixes).Info("updated exclusion prefixes")
	writeJSON(w, http.StatusOK, PrefixesDTO{Prefixes: prefixes, Value: productivity.FormatPrefixes(prefixes)})
}

func (h *Handler) reportDefaults() productivity.AggregateConfig {
	return h.Reporter.Defaults()
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListCustomers returns every customer.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.catalog(w, r)
	if !ok {
		return
	}
	dtos := make([]CustomerDTO, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		dtos = append(dtos, CustomerDTO{ID: int64(c.ID), Code: c.Code, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAccounts returns accounts, optionally for one customer.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter, ok := queryInt(w, r, "customer_id")
	if !ok {
		return
	}
	snap, ok := h.catalog(w, r)
	if !ok {
		return
	}
	dtos := []AccountDTO{}
	for _, a := range snap.Accounts {
		if filter != nil && int64(a.CustomerID) != *filter {
			continue
		}
		dtos = append(dtos, AccountDTO{ID: int64(a.ID), CustomerID: int64(a.CustomerID), Code: a.Code, Name: a.Name, Active: a.Active})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListTasks returns tasks, optionally for one account.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, ok := queryInt(w, r, "account_id")
	if !ok {
		return
	}
	snap, ok := h.catalog(w, r)
	if !ok {
		return
	}
	dtos := []TaskDTO{}
	for _, t := range snap.Tasks {
		if filter != nil && int64(t.AccountID) != *filter {
			continue
		}
		dtos = append(dtos, TaskDTO{ID: int64(t.ID), AccountID: int64(t.AccountID), Code: t.Code, Name: t.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListEmployees returns the roster.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.catalog(w, r)
	if !ok {
		return
	}
	dtos := make([]EmployeeDTO, 0, len(snap.Roster))
	for _, e := range snap.Roster {
		dtos = append(dtos, EmployeeDTO{
			ID:            int64(e.ID),
			EmployeeCode:  e.EmployeeCode,
			SecondaryCode: e.SecondaryCode,
			FullName:      e.FullName,
			EmployeeType:  e.EmployeeType,
			Position:      e.Position,
			Active:        e.Active,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) (productivity.CatalogSnapshot, bool) {
	snap, err := h.Store.LoadCatalog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load catalog", err)
		return productivity.CatalogSnapshot{}, false
	}
	return snap, true
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var vf *productivity.ValidationFailedError
	switch {
	case errors.As(err, &vf):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:     message,
			Details:   generic.ErrValidationFailed.Error(),
			RowErrors: toRowErrorDTOs(vf.Errors),
		})
	case errors.Is(err, generic.ErrStagingEmpty):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		h.logger.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 itself and reports false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		resp := ErrorResponse{Error: "Validation failed", Details: err.Error()}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Fields = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = fe.Tag()
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// queryRange reads optional from/to query parameters.
func queryRange(w http.ResponseWriter, r *http.Request) (generic.DateRange, bool) {
	q := r.URL.Query()
	rng, err := generic.ParseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return generic.DateRange{}, false
	}
	return rng, true
}

// queryInt reads an optional integer query parameter; nil when absent.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+name, err)
		return nil, false
	}
	return &n, true
}

func writeWorkbookHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", sheet.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
