package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	specialtyIDs, err := seedSpecialties(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed specialties: %v", err)
	}
	locationIDs, err := seedLocations(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed locations: %v", err)
	}
	staffIDs, err := seedStaff(context.Background(), pool, 50, specialtyIDs, locationIDs)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, staffIDs, locationIDs, 14); err != nil {
		log.Fatalf("seed slots: %v", err)
	}
	if err := seedCatalogs(context.Background(), pool); err != nil {
		log.Fatalf("seed catalogs: %v", err)
	}

	log.Println("seed complete")
}

func seedSpecialties(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	log.Printf("seeding %d specialties", len(specialties))

	ids := make([]uuid.UUID, 0, len(specialties))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for _, name := range specialties {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO specialties (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, gofakeit.Sentence(8))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedLocations(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d locations", count)

	ids := make([]uuid.UUID, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO locations (id, name, address, active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
		`, id, gofakeit.City()+" Clinic", gofakeit.Address().Address)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, count int, specialtyIDs, locationIDs []uuid.UUID) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff", count)

	ids := make([]uuid.UUID, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialtyIDs[gofakeit.Number(0, len(specialtyIDs)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO staff (id, name, specialty_id, active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
		`, id, "Dr. "+gofakeit.Name(), spec)
		if err != nil {
			return nil, err
		}

		// Each staff member works at one or two locations.
		locs := gofakeit.Number(1, 2)
		for j := 0; j < locs && j < len(locationIDs); j++ {
			loc := locationIDs[(i+j)%len(locationIDs)]
			_, err := tx.Exec(ctx, `
				INSERT INTO staff_locations (staff_id, location_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, id, loc)
			if err != nil {
				return nil, err
			}
		}

		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, phone, date_of_birth, medical_history, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email(), gofakeit.Phone(), dob, gofakeit.Sentence(12))
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}

func seedSlots(ctx context.Context, pool *pgxpool.Pool, staffIDs, locationIDs []uuid.UUID, days int) error {
	log.Printf("seeding slots for %d staff over %d days", len(staffIDs), days)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	start := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	total := 0
	for _, staffID := range staffIDs {
		loc := locationIDs[gofakeit.Number(0, len(locationIDs)-1)]
		for d := 0; d < days; d++ {
			day := start.AddDate(0, 0, d)
			// 30-minute slots, 09:00 to 12:00.
			for h := 0; h < 6; h++ {
				slotStart := day.Add(9*time.Hour + time.Duration(h)*30*time.Minute)
				slotEnd := slotStart.Add(30 * time.Minute)

				_, err := tx.Exec(ctx, `
					INSERT INTO slots (id, staff_id, location_id, date, start_time, end_time, available, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
				`, uuid.New(), staffID, loc, day, slotStart, slotEnd)
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("slots seeded: %d", total)
	return nil
}

func seedCatalogs(ctx context.Context, pool *pgxpool.Pool) error {
	labTests := []struct {
		name string
		cost int64
	}{
		{"Complete Blood Count", 2500},
		{"Basic Metabolic Panel", 3200},
		{"Lipid Panel", 4100},
		{"Hemoglobin A1C", 2900},
		{"Thyroid Panel", 5600},
		{"Urinalysis", 1800},
	}
	medications := []string{
		"Amoxicillin",
		"Lisinopril",
		"Metformin",
		"Atorvastatin",
		"Omeprazole",
		"Sertraline",
	}

	log.Printf("seeding %d lab tests and %d medications", len(labTests), len(medications))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range labTests {
		_, err := tx.Exec(ctx, `
			INSERT INTO lab_tests (id, name, description, cost_cents, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, uuid.New(), t.name, gofakeit.Sentence(6), t.cost)
		if err != nil {
			return err
		}
	}

	for _, name := range medications {
		_, err := tx.Exec(ctx, `
			INSERT INTO medications (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), name, gofakeit.Sentence(6))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
