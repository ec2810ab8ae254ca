package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/zayana/storefront/pkg/database"
	apperrors "github.com/zayana/storefront/pkg/errors"
	"github.com/zayana/storefront/services/storefront/internal/domain"
)

type OutboxRepository struct {
	db database.DBTX
}

func NewOutboxRepository(db database.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// FetchPending returns unpublished events oldest first. Parked rows are
// skipped.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) (_ []domain.OutboxEvent, err error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM order_outbox
		WHERE published_at IS NULL AND parked_at IS NULL
		ORDER BY id
		LIMIT $1`
	ctx, end := database.TraceQuery(ctx, "FetchOutbox", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []int64) (err error) {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE order_outbox SET published_at = now() WHERE id = ANY($1)`
	ctx, end := database.TraceQuery(ctx, "MarkOutboxPublished", query)
	defer func() { end(err) }()

	if _, err := r.db.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// RecordFailure counts a failed publish of row id and parks the row once it
// has failed maxAttempts times.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, reason string, maxAttempts int) (attempts int, parked bool, err error) {
	query := `
		UPDATE order_outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    parked_at = CASE WHEN attempts + 1 >= $3 THEN now() END
		WHERE id = $1 AND published_at IS NULL
		RETURNING attempts, parked_at IS NOT NULL`
	ctx, end := database.TraceQuery(ctx, "RecordOutboxFailure", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, id, reason, maxAttempts).Scan(&attempts, &parked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, apperrors.NotFound("outbox event", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return 0, false, fmt.Errorf("record outbox failure: %w", err)
	}
	return attempts, parked, nil
}
