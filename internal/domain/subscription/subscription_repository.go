package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/subbase-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists subscriptions. Every method is scoped to the given owner:
// rows of other users are never read or written.
type Repository interface {
	// ListByOwner returns a page of subscriptions, newest first, and the total count.
	// A zero filter.Limit returns every matching row.
	ListByOwner(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) ([]types.Subscription, int, error)

	// ListByIDs returns the subscriptions among ids that belong to the owner.
	ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Subscription, error)

	Get(ctx context.Context, userID, id uuid.UUID) (*types.Subscription, error)
	Create(ctx context.Context, userID uuid.UUID, params types.CreateSubscriptionParams) (*types.Subscription, error)
	Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateSubscriptionParams) (*types.Subscription, error)
	Patch(ctx context.Context, userID, id uuid.UUID, params types.PatchSubscriptionParams) (*types.Subscription, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// DBTX is the subset of *pgxpool.Pool used by the repository.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const subscriptionColumns = "id, user_id, name, cost::text, currency, billing_cycle, status, " +
	"start_date, next_billing_date, description, created_at, updated_at"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DBTX
}

func NewRepositoryImpl(pgpool DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) ListByOwner(ctx context.Context, userID uuid.UUID, filter types.ListSubscriptionsFilter) ([]types.Subscription, int, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "ListByOwner", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "subscriptions"),
		attribute.Int("filter.limit", filter.Limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListByOwner"), slog.String("userID", userID.String()))

	where := squirrel.And{squirrel.Eq{"user_id": userID.String()}}
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": string(*filter.Status)})
	}

	sb := psql.Select(subscriptionColumns).
		From("subscriptions").
		Where(where).
		OrderBy("created_at DESC", "id")
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		sb = sb.Limit(uint64(filter.Limit)).Offset(uint64((page - 1) * filter.Limit))
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	subs, err := r.query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list subscriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error listing subscriptions: %w", err)
	}

	if filter.Limit == 0 {
		span.SetStatus(codes.Ok, "")
		return subs, len(subs), nil
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("subscriptions").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.pgpool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		l.ErrorContext(ctx, "Failed to count subscriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB count failed")
		return nil, 0, fmt.Errorf("database error counting subscriptions: %w", err)
	}

	l.DebugContext(ctx, "Subscriptions listed", slog.Int("count", len(subs)), slog.Int("total", total))
	span.SetStatus(codes.Ok, "")
	return subs, total, nil
}

func (r *RepositoryImpl) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "ListByIDs", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "subscriptions"),
		attribute.Int("ids.count", len(ids)),
	))
	defer span.End()

	if len(ids) == 0 {
		return []types.Subscription{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND id = ANY($2::uuid[])
		ORDER BY created_at DESC, id`

	subs, err := r.query(ctx, query, userID, idStrings)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list subscriptions by id",
			slog.String("method", "ListByIDs"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing subscriptions by id: %w", err)
	}
	return subs, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, userID, id uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND user_id = $2`

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, r.fail(ctx, span, "Get", "fetching subscription", err)
	}
	return sub, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, userID uuid.UUID, params types.CreateSubscriptionParams) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "subscriptions"),
	))
	defer span.End()

	if params.Currency == "" {
		params.Currency = types.DefaultCurrency
	}
	if params.Status == "" {
		params.Status = types.StatusActive
	}

	query := `
		INSERT INTO subscriptions (user_id, name, cost, currency, billing_cycle, status, start_date, next_billing_date, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query,
		userID,
		params.Name,
		params.Cost.String(),
		params.Currency,
		string(params.BillingCycle),
		string(params.Status),
		params.StartDate,
		params.NextBillingDate,
		params.Description,
	))
	if err != nil {
		return nil, r.fail(ctx, span, "Create", "creating subscription", err)
	}

	r.logger.InfoContext(ctx, "Subscription created",
		slog.String("method", "Create"), slog.String("subscriptionID", sub.ID.String()))
	span.SetStatus(codes.Ok, "")
	return sub, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, userID, id uuid.UUID, params types.UpdateSubscriptionParams) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	query := `
		UPDATE subscriptions
		SET name = $1, cost = $2, currency = $3, billing_cycle = $4, status = $5,
		    start_date = $6, next_billing_date = $7, description = $8, updated_at = NOW()
		WHERE id = $9 AND user_id = $10
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query,
		params.Name,
		params.Cost.String(),
		params.Currency,
		string(params.BillingCycle),
		string(params.Status),
		params.StartDate,
		params.NextBillingDate,
		params.Description,
		id,
		userID,
	))
	if err != nil {
		return nil, r.fail(ctx, span, "Update", "updating subscription", err)
	}

	span.SetStatus(codes.Ok, "")
	return sub, nil
}

func (r *RepositoryImpl) Patch(ctx context.Context, userID, id uuid.UUID, params types.PatchSubscriptionParams) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Patch", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	if params.IsEmpty() {
		return r.Get(ctx, userID, id)
	}

	ub := psql.Update("subscriptions").
		Where(squirrel.Eq{"id": id.String()}).
		Where(squirrel.Eq{"user_id": userID.String()})

	if params.Name != nil {
		ub = ub.Set("name", *params.Name)
	}
	if params.Cost != nil {
		ub = ub.Set("cost", params.Cost.String())
	}
	if params.Currency != nil {
		ub = ub.Set("currency", *params.Currency)
	}
	if params.BillingCycle != nil {
		ub = ub.Set("billing_cycle", string(*params.BillingCycle))
	}
	if params.Status != nil {
		ub = ub.Set("status", string(*params.Status))
	}
	if params.StartDate != nil {
		ub = ub.Set("start_date", *params.StartDate)
	}
	switch {
	case params.ClearNextBillingDate:
		ub = ub.Set("next_billing_date", nil)
	case params.NextBillingDate != nil:
		ub = ub.Set("next_billing_date", *params.NextBillingDate)
	}
	switch {
	case params.ClearDescription:
		ub = ub.Set("description", nil)
	case params.Description != nil:
		ub = ub.Set("description", *params.Description)
	}
	ub = ub.Set("updated_at", squirrel.Expr("NOW()")).Suffix("RETURNING " + subscriptionColumns)

	query, args, err := ub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build patch query: %w", err)
	}

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.fail(ctx, span, "Patch", "patching subscription", err)
	}

	span.SetStatus(codes.Ok, "")
	return sub, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return r.fail(ctx, span, "Delete", "deleting subscription", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Subscription not found")
		return fmt.Errorf("subscription %s: %w", id, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *RepositoryImpl) query(ctx context.Context, query string, args ...any) ([]types.Subscription, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []types.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// fail maps driver errors onto domain errors and records them on the span.
func (r *RepositoryImpl) fail(ctx context.Context, span trace.Span, method, action string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "Subscription not found")
		return fmt.Errorf("%s: %w", action, types.ErrNotFound)
	}

	span.RecordError(err)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" { // check_violation
		r.logger.WarnContext(ctx, "Constraint rejected subscription",
			slog.String("method", method), slog.String("constraint", pgErr.ConstraintName))
		span.SetStatus(codes.Error, "Check constraint violated")
		return fmt.Errorf("%s: %s: %w", action, pgErr.ConstraintName, types.ErrBadRequest)
	}

	r.logger.ErrorContext(ctx, "Database error", slog.String("method", method), slog.Any("error", err))
	span.SetStatus(codes.Error, "DB operation failed")
	return fmt.Errorf("database error %s: %w", action, err)
}

func scanSubscription(row pgx.Row) (*types.Subscription, error) {
	var (
		s    types.Subscription
		cost string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Name,
		&cost,
		&s.Currency,
		&s.BillingCycle,
		&s.Status,
		&s.StartDate,
		&s.NextBillingDate,
		&s.Description,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Cost, err = decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("invalid cost %q: %w", cost, err)
	}
	return &s, nil
}
