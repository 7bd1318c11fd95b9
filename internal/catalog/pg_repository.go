package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.DateOfBirth,
		&p.MedicalHistory,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.SpecialtyID,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location

	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Address,
		&l.Active,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	return &l, nil
}

func scanSpecialty(row pgx.Row) (*Specialty, error) {
	var sp Specialty

	err := row.Scan(
		&sp.ID,
		&sp.Name,
		&sp.Description,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpecialtyNotFound
		}
		return nil, err
	}

	return &sp, nil
}

func scanLabTest(row pgx.Row) (*LabTest, error) {
	var t LabTest

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.CostCents,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLabTestNotFound
		}
		return nil, err
	}

	return &t, nil
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication

	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicationNotFound
		}
		return nil, err
	}

	return &m, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Interface methods

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, phone, date_of_birth, medical_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, name, email, phone, date_of_birth, medical_history, created_at, updated_at
	`, id, p.Name, p.Email, p.Phone, p.DateOfBirth, p.MedicalHistory)

	return scanPatient(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, date_of_birth, medical_history, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) UpdatePatient(ctx context.Context, id uuid.UUID, upd PatientUpdate) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET name            = COALESCE($2, name),
		    email           = COALESCE($3, email),
		    phone           = COALESCE($4, phone),
		    date_of_birth   = COALESCE($5, date_of_birth),
		    medical_history = COALESCE($6, medical_history),
		    updated_at      = now()
		WHERE id = $1
		RETURNING id, name, email, phone, date_of_birth, medical_history, created_at, updated_at
	`, id, upd.Name, upd.Email, upd.Phone, upd.DateOfBirth, upd.MedicalHistory)

	return scanPatient(row)
}

func (r *PgRepository) CreateStaff(ctx context.Context, s *Staff) (*Staff, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO staff (id, name, specialty_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, name, specialty_id, active, created_at, updated_at
	`, id, s.Name, s.SpecialtyID, s.Active)

	staff, err := scanStaff(row)
	if err != nil && isForeignKeyViolation(err) {
		return nil, ErrSpecialtyNotFound
	}
	return staff, err
}

func (r *PgRepository) GetStaffByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty_id, active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, id)
	return scanStaff(row)
}

func (r *PgRepository) CreateLocation(ctx context.Context, l *Location) (*Location, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO locations (id, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, name, address, active, created_at, updated_at
	`, id, l.Name, l.Address, l.Active)

	return scanLocation(row)
}

func (r *PgRepository) GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, address, active, created_at, updated_at
		FROM locations
		WHERE id = $1
	`, id)
	return scanLocation(row)
}

func (r *PgRepository) CreateSpecialty(ctx context.Context, sp *Specialty) (*Specialty, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO specialties (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, description, created_at, updated_at
	`, id, sp.Name, sp.Description)

	return scanSpecialty(row)
}

func (r *PgRepository) GetSpecialtyByID(ctx context.Context, id uuid.UUID) (*Specialty, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM specialties
		WHERE id = $1
	`, id)
	return scanSpecialty(row)
}

func (r *PgRepository) AssignStaffLocation(ctx context.Context, staffID, locationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_locations (staff_id, location_id)
		VALUES ($1, $2)
		ON CONFLICT (staff_id, location_id) DO NOTHING
	`, staffID, locationID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrStaffNotFound
		}
		return err
	}
	return nil
}

func (r *PgRepository) ListLocationsForStaff(ctx context.Context, staffID uuid.UUID) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.name, l.address, l.active, l.created_at, l.updated_at
		FROM locations l
		JOIN staff_locations sl ON sl.location_id = l.id
		WHERE sl.staff_id = $1
		ORDER BY l.name
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateLabTest(ctx context.Context, t *LabTest) (*LabTest, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO lab_tests (id, name, description, cost_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, name, description, cost_cents, created_at, updated_at
	`, id, t.Name, t.Description, t.CostCents)

	return scanLabTest(row)
}

func (r *PgRepository) GetLabTestByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, cost_cents, created_at, updated_at
		FROM lab_tests
		WHERE id = $1
	`, id)
	return scanLabTest(row)
}

func (r *PgRepository) CreateMedication(ctx context.Context, m *Medication) (*Medication, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO medications (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, description, created_at, updated_at
	`, id, m.Name, m.Description)

	return scanMedication(row)
}

func (r *PgRepository) GetMedicationByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM medications
		WHERE id = $1
	`, id)
	return scanMedication(row)
}
