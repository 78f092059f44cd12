package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickmed/opd-scheduling/internal/db"
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

	if err := seedDoctors(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

var specializations = []struct {
	name       string
	department string
}{
	{"Dermatology", "Outpatient"},
	{"Cardiology", "Cardiac Care"},
	{"General Practice", "Outpatient"},
	{"Orthopedics", "Surgery"},
	{"Endocrinology", "Internal Medicine"},
	{"Neurology", "Internal Medicine"},
	{"Pediatrics", "Child Care"},
	{"Psychiatry", "Mental Health"},
	{"Ophthalmology", "Outpatient"},
	{"ENT", "Outpatient"},
}

var weekdaySets = [][]string{
	{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
	{"Monday", "Wednesday", "Friday"},
	{"Tuesday", "Thursday", "Saturday"},
	{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		days := weekdaySets[gofakeit.Number(0, len(weekdaySets)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, first_name, last_name, specialization, department,
				experience_years, consultation_fee, rating, available_days, day_start, day_end,
				max_patients_per_day, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, true, now(), now())
		`, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), spec.name, spec.department,
			gofakeit.Number(1, 30), gofakeit.Price(30, 300), gofakeit.Float64Range(2.5, 5.0),
			days, "09:00", "17:00", gofakeit.Number(10, 40))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	bloodGroups := []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		var bloodGroup *string
		if gofakeit.Bool() {
			bg := bloodGroups[gofakeit.Number(0, len(bloodGroups)-1)]
			bloodGroup = &bg
		}
		dob := gofakeit.DateRange(
			time.Now().AddDate(-90, 0, 0),
			time.Now().AddDate(-1, 0, 0),
		)

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, first_name, last_name, email, phone, date_of_birth,
				blood_group, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email(),
			gofakeit.Phone(), dob, bloodGroup)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
