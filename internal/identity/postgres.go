package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// NOTE: This store assumes the following tables exist:
// - employees (access_point_ids jsonb)
// - visitors (descriptor jsonb)
// - registrations (access_points jsonb, status_history jsonb)
// - approved_documents (registration_id, document_type)

// PostgresStore implements the identity lookup surfaces over database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const employeeColumns = `id, code, name, active, COALESCE(schedule_id, ''), access_point_ids, COALESCE(image_ref, '')`

func (s *PostgresStore) EmployeeByID(ctx context.Context, id string) (Employee, error) {
	const q = `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	return scanEmployee(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) EmployeeByCode(ctx context.Context, code int64) (Employee, error) {
	const q = `SELECT ` + employeeColumns + ` FROM employees WHERE code = $1`
	return scanEmployee(s.db.QueryRowContext(ctx, q, code))
}

func scanEmployee(row *sql.Row) (Employee, error) {
	var e Employee
	var accessPoints []byte
	err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Active, &e.ScheduleID, &accessPoints, &e.ImageRef)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	if len(accessPoints) > 0 {
		if err := json.Unmarshal(accessPoints, &e.AccessPointIDs); err != nil {
			return Employee{}, err
		}
	}
	return e, nil
}

const visitorColumns = `id, code, name, active, COALESCE(card_code, ''), descriptor, COALESCE(image_ref, '')`

func (s *PostgresStore) VisitorByID(ctx context.Context, id string) (Visitor, error) {
	const q = `SELECT ` + visitorColumns + ` FROM visitors WHERE id = $1`
	return scanVisitor(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) VisitorByCode(ctx context.Context, code int64) (Visitor, error) {
	const q = `SELECT ` + visitorColumns + ` FROM visitors WHERE code = $1`
	return scanVisitor(s.db.QueryRowContext(ctx, q, code))
}

func (s *PostgresStore) VisitorByCardCode(ctx context.Context, cardCode string) (Visitor, error) {
	const q = `SELECT ` + visitorColumns + ` FROM visitors WHERE card_code = $1`
	return scanVisitor(s.db.QueryRowContext(ctx, q, cardCode))
}

func (s *PostgresStore) VisitorsWithDescriptors(ctx context.Context) ([]Visitor, error) {
	const q = `SELECT ` + visitorColumns + ` FROM visitors WHERE active AND descriptor IS NOT NULL`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Visitor
	for rows.Next() {
		var v Visitor
		var descriptor []byte
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.Active, &v.CardCode, &descriptor, &v.ImageRef); err != nil {
			return nil, err
		}
		if len(descriptor) > 0 {
			if err := json.Unmarshal(descriptor, &v.Descriptor); err != nil {
				return nil, err
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVisitor(row *sql.Row) (Visitor, error) {
	var v Visitor
	var descriptor []byte
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.Active, &v.CardCode, &descriptor, &v.ImageRef)
	if errors.Is(err, sql.ErrNoRows) {
		return Visitor{}, ErrNotFound
	}
	if err != nil {
		return Visitor{}, err
	}
	if len(descriptor) > 0 {
		if err := json.Unmarshal(descriptor, &v.Descriptor); err != nil {
			return Visitor{}, err
		}
	}
	return v, nil
}

const registrationColumns = `
id, code, kind, visitor_id, name, COALESCE(host_id, ''), active, status, open,
status_history, entry_at, exit_at, access_points,
COALESCE(identification_type, ''), COALESCE(identification_number, ''),
COALESCE(profile_image, ''), COALESCE(ident_front_image, ''), COALESCE(ident_back_image, ''),
created_at, updated_at
`

func (s *PostgresStore) RegistrationByID(ctx context.Context, id string) (Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return scanRegistration(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) RegistrationByCode(ctx context.Context, code string) (Registration, error) {
	const q = `SELECT ` + registrationColumns + ` FROM registrations WHERE code = $1 AND active`
	return scanRegistration(s.db.QueryRowContext(ctx, q, code))
}

func scanRegistration(row *sql.Row) (Registration, error) {
	var r Registration
	var kind, status int
	var history, grants []byte
	var exitAt sql.NullTime
	err := row.Scan(
		&r.ID, &r.Code, &kind, &r.VisitorID, &r.Name, &r.HostID, &r.Active, &status, &r.Open,
		&history, &r.EntryAt, &exitAt, &grants,
		&r.IdentificationType, &r.IdentificationNumber,
		&r.ProfileImage, &r.IdentFrontImage, &r.IdentBackImage,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Registration{}, ErrNotFound
	}
	if err != nil {
		return Registration{}, err
	}
	r.Kind = RegistrationKind(kind)
	r.Status = status
	if exitAt.Valid {
		r.ExitAt = exitAt.Time
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &r.StatusHistory); err != nil {
			return Registration{}, err
		}
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &r.AccessPoints); err != nil {
			return Registration{}, err
		}
	}
	return r, nil
}

// ApplyProjection performs the standalone projection write. The ledger's
// Postgres store normally runs the equivalent update inside the event insert
// transaction; this method backs the memory-ledger wiring and repair tooling.
func (s *PostgresStore) ApplyProjection(ctx context.Context, registrationID, eventID string, status int, open bool) error {
	const q = `
UPDATE registrations
SET status_history = COALESCE(status_history, '[]'::jsonb) || to_jsonb($2::text),
    status = $3, open = $4, updated_at = $5
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q, registrationID, eventID, status, open, time.Now().UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ApprovedDocumentTypes(ctx context.Context, registrationID string) ([]string, error) {
	const q = `SELECT document_type FROM approved_documents WHERE registration_id = $1`
	rows, err := s.db.QueryContext(ctx, q, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
