package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"access-platform/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This store assumes the following tables exist:
// - events (insert-only; partial unique index on (panel_id, created_at)
//   WHERE panel_id IS NOT NULL)
// - registration_status_history (insert-only)
// - registrations (open flag + status columns maintained here)

const pgUniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertEvent(ctx, tx, e); err != nil {
			return err
		}
		if e.RegistrationID == "" {
			return nil
		}
		// Projection rides in the same transaction so the cached status can
		// never diverge from the ledger derivation.
		return projectRegistration(ctx, tx, e.RegistrationID, e.ID, e.Type, !e.Type.closes(), e.CreatedAt)
	})
}

func insertEvent(ctx context.Context, tx *sql.Tx, e Event) error {
	const q = `
INSERT INTO events (
  id, employee_id, visitor_id, registration_id, access_point_id, panel_id, schedule_id,
  type, channel, raw_code, similarity, authorizer_id, comment, image,
  latitude, longitude, panel_raw_timestamp, received_at,
  clock_drift_seconds, clock_drift_alert, created_by, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		nullStr(e.EmployeeID),
		nullStr(e.VisitorID),
		nullStr(e.RegistrationID),
		nullStr(e.AccessPointID),
		nullStr(e.PanelID),
		nullStr(e.ScheduleID),
		int(e.Type),
		int(e.Channel),
		e.RawCode,
		e.Similarity,
		nullStr(e.AuthorizerID),
		e.Comment,
		e.Image,
		e.Latitude,
		e.Longitude,
		e.PanelRawTimestamp,
		nullTime(e.ReceivedAt),
		e.ClockDriftSeconds,
		e.ClockDriftAlert,
		nullStr(e.CreatedBy),
		e.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicatePanelEvent
	}
	return err
}

func projectRegistration(ctx context.Context, tx *sql.Tx, registrationID, eventID string, t EventType, open bool, at time.Time) error {
	const hist = `
INSERT INTO registration_status_history (registration_id, event_id, created_at)
VALUES ($1,$2,$3)
`
	if _, err := tx.ExecContext(ctx, hist, registrationID, eventID, at); err != nil {
		return err
	}
	const upd = `
UPDATE registrations
SET status = $2, open = $3, updated_at = $4
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, upd, registrationID, int(t), open, at)
	return err
}

const eventColumns = `
id, employee_id, visitor_id, registration_id, access_point_id, panel_id, schedule_id,
type, channel, raw_code, similarity, authorizer_id, comment, image,
latitude, longitude, panel_raw_timestamp, received_at,
clock_drift_seconds, clock_drift_alert, created_by, created_at
`

func (s *PostgresStore) Last(ctx context.Context, q LastQuery) (Event, bool, error) {
	where, args := scopeClause(q.Scope, nil)
	if len(q.Types) > 0 {
		codes := make([]string, 0, len(q.Types))
		for _, t := range q.Types {
			args = append(args, int(t))
			codes = append(codes, fmt.Sprintf("$%d", len(args)))
		}
		where = append(where, "type IN ("+strings.Join(codes, ",")+")")
	}
	if q.AccessPointID != "" {
		args = append(args, q.AccessPointID)
		where = append(where, fmt.Sprintf("access_point_id = $%d", len(args)))
	}
	if q.PanelID != "" {
		args = append(args, q.PanelID)
		where = append(where, fmt.Sprintf("panel_id = $%d", len(args)))
	}
	if !q.Before.IsZero() {
		args = append(args, q.Before)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	query := "SELECT " + eventColumns + " FROM events WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at DESC LIMIT 1"

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, err
	}
	return e, true, nil
}

func (s *PostgresStore) ExistsPanelEvent(ctx context.Context, panelID string, createdAt time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM events WHERE panel_id = $1 AND created_at = $2
)
`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, panelID, createdAt).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) HasEntryBetween(ctx context.Context, scope Scope, panelID string, from, to time.Time) (bool, error) {
	where, args := scopeClause(scope, nil)
	args = append(args, int(TypeEntry))
	where = append(where, fmt.Sprintf("type = $%d", len(args)))
	if panelID != "" {
		args = append(args, panelID)
		where = append(where, fmt.Sprintf("panel_id = $%d", len(args)))
	}
	args = append(args, from)
	where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	args = append(args, to)
	where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))

	query := "SELECT EXISTS (SELECT 1 FROM events WHERE " + strings.Join(where, " AND ") + ")"
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) ListBetween(ctx context.Context, scope Scope, from, to time.Time) ([]Event, error) {
	where, args := scopeClause(scope, nil)
	args = append(args, from)
	where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	args = append(args, to)
	where = append(where, fmt.Sprintf("created_at < $%d", len(args)))

	query := "SELECT " + eventColumns + " FROM events WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at ASC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scopeClause(s Scope, args []any) ([]string, []any) {
	switch {
	case s.RegistrationID != "":
		args = append(args, s.RegistrationID)
		return []string{fmt.Sprintf("registration_id = $%d", len(args))}, args
	case s.EmployeeID != "":
		args = append(args, s.EmployeeID)
		return []string{fmt.Sprintf("employee_id = $%d", len(args))}, args
	case s.VisitorID != "":
		args = append(args, s.VisitorID)
		return []string{fmt.Sprintf("visitor_id = $%d", len(args))}, args
	default:
		// Matches nothing; ledger scopes are never empty on the read path.
		return []string{"1 = 0"}, args
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (Event, error) {
	var e Event
	var employeeID, visitorID, registrationID, accessPointID, panelID, scheduleID, authorizerID, createdBy sql.NullString
	var receivedAt sql.NullTime
	var typ, channel int
	err := r.Scan(
		&e.ID,
		&employeeID,
		&visitorID,
		&registrationID,
		&accessPointID,
		&panelID,
		&scheduleID,
		&typ,
		&channel,
		&e.RawCode,
		&e.Similarity,
		&authorizerID,
		&e.Comment,
		&e.Image,
		&e.Latitude,
		&e.Longitude,
		&e.PanelRawTimestamp,
		&receivedAt,
		&e.ClockDriftSeconds,
		&e.ClockDriftAlert,
		&createdBy,
		&e.CreatedAt,
	)
	if err != nil {
		return Event{}, err
	}
	e.EmployeeID = employeeID.String
	e.VisitorID = visitorID.String
	e.RegistrationID = registrationID.String
	e.AccessPointID = accessPointID.String
	e.PanelID = panelID.String
	e.ScheduleID = scheduleID.String
	e.AuthorizerID = authorizerID.String
	e.CreatedBy = createdBy.String
	e.Type = EventType(typ)
	e.Channel = DeviceChannel(channel)
	if receivedAt.Valid {
		e.ReceivedAt = receivedAt.Time
	}
	return e, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
