package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	initSchema := flag.Bool("init", false, "apply the database schema before seeding")
	professionals := flag.Int("professionals", 50, "number of professionals to seed")
	patients := flag.Int("patients", 2000, "number of patients to seed")
	flag.Parse()

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

	if *initSchema {
		if err := db.ApplySchema(context.Background(), pool); err != nil {
			log.Fatalf("apply schema: %v", err)
		}
		log.Println("schema applied")
	}

	gofakeit.Seed(time.Now().UnixNano())

	serviceIDs, err := seedServices(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed services: %v", err)
	}
	professionalIDs, err := seedProfessionals(context.Background(), pool, *professionals)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	if err := seedOfferings(context.Background(), pool, professionalIDs, serviceIDs); err != nil {
		log.Fatalf("seed service offerings: %v", err)
	}
	if err := seedPatients(context.Background(), pool, *patients); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSchedules(context.Background(), pool, professionalIDs); err != nil {
		log.Fatalf("seed schedules: %v", err)
	}

	log.Println("seed complete")
}

func seedServices(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	services := []string{
		"General Consultation",
		"Dermatology Exam",
		"Cardiology Checkup",
		"Physiotherapy Session",
		"Nutrition Counseling",
		"Dental Cleaning",
		"Eye Exam",
		"Vaccination",
	}

	log.Printf("seeding %d services", len(services))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(services))
	for _, name := range services {
		id := uuid.New()
		desc := gofakeit.Sentence(8)

		_, err := tx.Exec(ctx, `
			INSERT INTO services (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, desc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("services seeded")
	return ids, nil
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

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

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, full_name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("professionals seeded")
	return ids, nil
}

func seedOfferings(ctx context.Context, pool *pgxpool.Pool, professionalIDs, serviceIDs []uuid.UUID) error {
	log.Println("seeding service offerings")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Each professional offers between one and four services.
	for _, profID := range professionalIDs {
		n := gofakeit.Number(1, 4)
		offered := map[uuid.UUID]bool{}

		for len(offered) < n {
			svcID := serviceIDs[gofakeit.Number(0, len(serviceIDs)-1)]
			if offered[svcID] {
				continue
			}
			offered[svcID] = true

			_, err := tx.Exec(ctx, `
				INSERT INTO professional_services (id, professional_id, service_id, created_at)
				VALUES ($1, $2, $3, now())
			`, uuid.New(), profID, svcID)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("service offerings seeded")
	return nil
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
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, full_name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
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

	log.Println("patients seeded")
	return nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool, professionalIDs []uuid.UUID) error {
	log.Println("seeding professional schedules with one working week each")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	weekStart := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)

	for _, profID := range professionalIDs {
		scheduleID := uuid.New()
		name := fmt.Sprintf("%s agenda", gofakeit.MonthString())

		_, err := tx.Exec(ctx, `
			INSERT INTO professional_schedules (id, professional_id, name, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, scheduleID, profID, name)
		if err != nil {
			return err
		}

		for day := 0; day < 5; day++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO daily_schedules (id, professional_schedule_id, schedule_date, work_start, work_end, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, uuid.New(), scheduleID, weekStart.AddDate(0, 0, day), "09:00", "17:00")
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("professional schedules seeded")
	return nil
}
