// Package repository persists the event store's contents in PostgreSQL.
// It loads the initial store at startup and durably records registration
// changes after the in-memory core has committed them.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/society-events/internal/model"
)

// ErrNotFound is returned when a record to update does not exist.
var ErrNotFound = errors.New("not found")

// Repository reads and writes events and registrations.
type Repository struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// New constructs a Repository.
func New(db *pgxpool.Pool, log zerolog.Logger) *Repository {
	return &Repository{db: db, log: log.With().Str("component", "repository").Logger()}
}

const eventColumns = `id, title, description, instructor, start_date, end_date, location,
	category, difficulty, price, max_attendees, current_attendees, featured, tags, created_date`

// LoadEvents returns every event ordered by creation time, oldest first, so
// the store's insertion order matches the order they were published.
func (r *Repository) LoadEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Instructor, &e.StartDate, &e.EndDate, &e.Location,
			&e.Category, &e.Difficulty, &e.Price, &e.MaxAttendees, &e.CurrentAttendees, &e.Featured, &e.Tags, &e.CreatedDate,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LoadRegistrations returns every registration, including cancelled ones,
// in registration order.
func (r *Repository) LoadRegistrations(ctx context.Context) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, member_id, member_display_name, special_requests,
		        emergency_contact, registration_date, status
		 FROM registrations
		 ORDER BY registration_date ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.MemberID, &reg.MemberDisplayName, &reg.SpecialRequests,
			&reg.EmergencyContact, &reg.RegistrationDate, &reg.Status,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// SaveEvent inserts a newly created event.
func (r *Repository) SaveEvent(ctx context.Context, e model.Event) error {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.Title, e.Description, e.Instructor, e.StartDate, e.EndDate, e.Location,
		string(e.Category), string(e.Difficulty), e.Price, e.MaxAttendees, e.CurrentAttendees, e.Featured, tags, e.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecordRegistration stores a confirmed registration and increments the
// event's attendee count in one transaction.
func (r *Repository) RecordRegistration(ctx context.Context, reg model.Registration) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO registrations (id, event_id, member_id, member_display_name,
			        special_requests, emergency_contact, registration_date, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			reg.ID, reg.EventID, reg.MemberID, reg.MemberDisplayName,
			reg.SpecialRequests, reg.EmergencyContact, reg.RegistrationDate, string(reg.Status),
		); err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		return adjustAttendees(ctx, tx, reg.EventID, 1)
	})
}

// RecordCancellation marks a registration cancelled and decrements the
// event's attendee count, clamped at zero, in one transaction.
func (r *Repository) RecordCancellation(ctx context.Context, reg model.Registration) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE registrations SET status = $1 WHERE id = $2`,
			string(model.StatusCancelled), reg.ID,
		)
		if err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return adjustAttendees(ctx, tx, reg.EventID, -1)
	})
}

func adjustAttendees(ctx context.Context, tx pgx.Tx, eventID string, delta int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE events SET current_attendees = GREATEST(current_attendees + $1, 0) WHERE id = $2`,
		delta, eventID,
	)
	if err != nil {
		return fmt.Errorf("update current_attendees: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.log.Warn().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
