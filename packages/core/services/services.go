package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"core/metrics"
	"core/notify"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultTotalRounds = 2

// Deps carries what the round services share besides the database.
type Deps struct {
	Logger    *slog.Logger
	Publisher notify.Publisher
	Metrics   *metrics.Metrics
	// TotalRounds is the depth of the competition; the round with this id is final.
	TotalRounds int
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Publisher == nil {
		d.Publisher = notify.Fanout{}
	}
	if d.TotalRounds < 1 {
		d.TotalRounds = defaultTotalRounds
	}
	return d
}

// publish sends an event after a commit. Failures are logged and dropped.
func (d Deps) publish(ctx context.Context, event notify.Event) {
	if err := d.Publisher.Publish(ctx, event); err != nil {
		d.Logger.Warn("failed to publish event",
			"type", event.Type,
			"round_id", event.RoundID,
			"team_id", event.TeamID,
			"error", err)
	}
}

// TeamDirectory answers whether a team exists. db may be a transaction.
type TeamDirectory interface {
	TeamExists(ctx context.Context, db *gorm.DB, id uint) (bool, error)
}

// CriterionDirectory returns the catalog maximum of a criterion. db may be a
// transaction.
type CriterionDirectory interface {
	CriterionMax(ctx context.Context, db *gorm.DB, id uint) (int, error)
}

var tracer = otel.Tracer("core/services")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// lockRows adds a row lock on postgres. Sqlite serializes writers on its own.
func lockRows(tx *gorm.DB, strength string) *gorm.DB {
	if tx.Dialector.Name() != "postgres" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: strength})
}
