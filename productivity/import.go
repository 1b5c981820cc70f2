/*
import.go - Import lifecycle: stage, review, confirm or cancel

PURPOSE:
  Importer owns the staging table. A batch moves through:

    Stage -> (Preview / UpdateRow / DeleteRow)* -> Confirm | Cancel

  Staging holds at most one batch. Stage discards whatever was there.

CONFIRM:
  Runs as one unit of work:
    1. Load staged rows (ErrStagingEmpty if none)
    2. Build a fresh Catalog from the same transaction
    3. Validate every row (ValidationFailedError lists all problems)
    4. Append records, clear staging, save the ImportRun audit row
  Any storage fault rolls everything back and is reported as
  ErrCommitFailed with staging intact. A failed run is then logged to the
  run log outside the aborted unit.

CONCURRENCY:
  No lock guards the staging table across requests. Two concurrent imports
  are last-writer-wins.

SEE ALSO:
  - commit.go: CommitRows
  - validate.go: Validate
*/
package productivity

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/productivity-engine/generic"
)

// Importer drives the import lifecycle against a Store.
type Importer struct {
	store  Store
	clock  generic.Clock
	logger logrus.FieldLogger
}

// NewImporter creates an importer. A nil clock uses the real clock and a nil
// logger discards output.
func NewImporter(store Store, clock generic.Clock, logger logrus.FieldLogger) *Importer {
	if clock == nil {
		clock = generic.RealClock{}
	}
	return &Importer{store: store, clock: clock, logger: loggerOrDiscard(logger)}
}

func loggerOrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

// Stage replaces the staged batch with rows.
func (im *Importer) Stage(ctx context.Context, rows []StagingRow) (int, error) {
	err := im.store.WithTx(ctx, func(tx Tx) error {
		return tx.ReplaceStaging(ctx, rows)
	})
	if err != nil {
		return 0, fmt.Errorf("stage rows: %w", err)
	}
	im.logger.WithField("rows", len(rows)).Info("staged import batch")
	return len(rows), nil
}

// PreviewRow is a staged row with its resolution problem, if any.
type PreviewRow struct {
	Row   StagingRow
	Error *RowError
}

// Preview is the review screen for the staged batch.
type Preview struct {
	Rows   []PreviewRow
	Errors []RowError
}

func (p *Preview) HasErrors() bool {
	return len(p.Errors) > 0
}

// Valid reports whether Confirm would accept the batch.
func (p *Preview) Valid() bool {
	return len(p.Rows) > 0 && !p.HasErrors()
}

// Preview validates the staged batch without committing it.
func (im *Importer) Preview(ctx context.Context) (*Preview, error) {
	rows, err := im.store.ListStaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staging: %w", err)
	}
	snap, err := im.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	cat := NewCatalog(snap)

	p := &Preview{Rows: make([]PreviewRow, 0, len(rows))}
	for i, row := range rows {
		pr := PreviewRow{Row: row}
		if re, ok := ValidateRow(i+1, row, cat); !ok {
			re := re
			pr.Error = &re
			p.Errors = append(p.Errors, re)
		}
		p.Rows = append(p.Rows, pr)
	}
	return p, nil
}

// UpdateRow edits one staged row in place.
func (im *Importer) UpdateRow(ctx context.Context, row StagingRow) error {
	if err := im.store.UpdateStagingRow(ctx, row); err != nil {
		return fmt.Errorf("update staging row %d: %w", row.ID, err)
	}
	return nil
}

// DeleteRow drops one staged row.
func (im *Importer) DeleteRow(ctx context.Context, id StagingRowID) error {
	if err := im.store.DeleteStagingRow(ctx, id); err != nil {
		return fmt.Errorf("delete staging row %d: %w", id, err)
	}
	return nil
}

// Cancel discards the staged batch.
func (im *Importer) Cancel(ctx context.Context) error {
	if err := im.store.ClearStaging(ctx); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	im.logger.Info("cancelled import batch")
	return nil
}

// CommitResult describes a successful confirm.
type CommitResult struct {
	RunID string
	Count int
}

// Confirm validates and commits the staged batch as one unit of work.
func (im *Importer) Confirm(ctx context.Context) (*CommitResult, error) {
	run := ImportRun{ID: uuid.NewString(), StartedAt: im.clock.Now()}
	log := im.logger.WithField("run_id", run.ID)

	err := im.store.WithTx(ctx, func(tx Tx) error {
		rows, err := tx.ListStaging(ctx)
		if err != nil {
			return commitFailed("list staging", err)
		}
		if len(rows) == 0 {
			return generic.ErrStagingEmpty
		}
		snap, err := tx.LoadCatalog(ctx)
		if err != nil {
			return commitFailed("load catalog", err)
		}
		cat := NewCatalog(snap)
		if errs := Validate(rows, cat); len(errs) > 0 {
			return &ValidationFailedError{Errors: errs}
		}

		n, err := CommitRows(ctx, tx, rows, cat, run.ID)
		if err != nil {
			return commitFailed("write records", err)
		}
		run.RowCount = n
		run.Status = RunCompleted
		run.CompletedAt = im.clock.Now()
		if err := tx.SaveImportRun(ctx, run); err != nil {
			return commitFailed("save import run", err)
		}
		return nil
	})

	switch {
	case err == nil:
		log.WithField("rows", run.RowCount).Info("committed import batch")
		return &CommitResult{RunID: run.ID, Count: run.RowCount}, nil
	case errors.Is(err, generic.ErrValidationFailed), errors.Is(err, generic.ErrStagingEmpty):
		log.WithError(err).Warn("import batch rejected")
		return nil, err
	}

	if !errors.Is(err, generic.ErrCommitFailed) {
		err = commitFailed("commit", err)
	}
	log.WithError(err).Error("import commit rolled back")
	im.recordFailure(ctx, run, err)
	return nil, err
}

// recordFailure stores a failed run outside the aborted unit of work.
func (im *Importer) recordFailure(ctx context.Context, run ImportRun, cause error) {
	run.Status = RunFailed
	run.RowCount = 0
	run.CompletedAt = im.clock.Now()
	run.Error = cause.Error()
	if err := im.store.SaveImportRun(ctx, run); err != nil {
		im.logger.WithError(err).WithField("run_id", run.ID).Warn("could not record failed import run")
	}
}

func commitFailed(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", generic.ErrCommitFailed, step, err)
}

// Runs lists recent import runs, newest first.
func (im *Importer) Runs(ctx context.Context, limit int) ([]ImportRun, error) {
	runs, err := im.store.ListImportRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}
