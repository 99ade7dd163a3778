package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Checker-Finance/storefront-admin/pkg/model"
)

// Execer is the subset of *pgxpool.Pool used by the writer.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MutationWriter appends product mutation outcomes to storefront.product_mutation.
type MutationWriter struct {
	db     Execer
	logger *zap.Logger
	source string
}

// NewMutationWriter constructs a writer. A nil db makes Record a no-op.
// source identifies the service writing the record.
func NewMutationWriter(db Execer, logger *zap.Logger, source string) *MutationWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MutationWriter{db: db, logger: logger, source: source}
}

// Record inserts one audit row. Missing ID and RecordedAt are filled in.
func (w *MutationWriter) Record(ctx context.Context, rec *model.MutationRecord) error {
	if w == nil || w.db == nil || rec == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO storefront.product_mutation (
			id,
			shop,
			operation,
			product_id,
			variant_id,
			outcome,
			stage,
			error,
			source,
			recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := w.db.Exec(ctx, query,
		rec.ID,
		rec.Shop,
		rec.Operation,
		nullable(rec.ProductID),
		nullable(rec.VariantID),
		rec.Outcome,
		nullable(rec.Stage),
		nullable(rec.Error),
		w.source,
		rec.RecordedAt,
	)
	if err != nil {
		w.logger.Error("audit.mutation_insert_failed",
			zap.String("operation", rec.Operation),
			zap.String("product_id", rec.ProductID),
			zap.Error(err))
		return err
	}

	w.logger.Debug("audit.mutation_recorded",
		zap.String("operation", rec.Operation),
		zap.String("outcome", rec.Outcome),
		zap.String("product_id", rec.ProductID))
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
