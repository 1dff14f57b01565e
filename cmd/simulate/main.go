// simulate fires concurrent booking requests at a running api-server and
// reports how contention resolved: for every slot at most one booking should
// come back 201, the rest 409.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meditrack/scheduling/internal/db"
)

type counters struct {
	booked    atomic.Int64
	conflicts atomic.Int64
	notFound  atomic.Int64
	failures  atomic.Int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := envOr("API_BASE_URL", "http://localhost:8080")
	workers := envInt("SIM_WORKERS", 20)
	duration := envInt("SIM_DURATION_SEC", 10)

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	patients, err := loadIDs(pool, `SELECT id FROM patients LIMIT 500`)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	type slotRef struct{ slot, doctor uuid.UUID }
	rows, err := pool.Query(context.Background(), `
		SELECT id, doctor_id FROM appointment_slots
		WHERE is_booked = FALSE
		LIMIT 500
	`)
	if err != nil {
		log.Fatalf("load slots: %v", err)
	}
	var slots []slotRef
	for rows.Next() {
		var s slotRef
		if err := rows.Scan(&s.slot, &s.doctor); err != nil {
			log.Fatalf("scan slot: %v", err)
		}
		slots = append(slots, s)
	}
	rows.Close()

	if len(patients) == 0 || len(slots) == 0 {
		log.Fatal("need seeded patients and generated open slots to simulate")
	}
	log.Printf("simulating with %d workers over %ds, %d patients, %d open slots",
		workers, duration, len(patients), len(slots))

	var c counters
	deadline := time.Now().Add(time.Duration(duration) * time.Second)
	client := &http.Client{Timeout: 5 * time.Second}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				s := slots[rng.Intn(len(slots))]
				p := patients[rng.Intn(len(patients))]
				book(client, baseURL, s.slot, p, s.doctor, &c)
			}
		}(int64(i) + time.Now().UnixNano())
	}
	wg.Wait()

	log.Printf("done: booked=%d conflicts=%d not_found=%d failures=%d",
		c.booked.Load(), c.conflicts.Load(), c.notFound.Load(), c.failures.Load())
}

func book(client *http.Client, baseURL string, slotID, patientID, doctorID uuid.UUID, c *counters) {
	body, _ := json.Marshal(map[string]string{
		"slot_id":    slotID.String(),
		"patient_id": patientID.String(),
		"doctor_id":  doctorID.String(),
	})

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		c.failures.Add(1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		c.booked.Add(1)
	case http.StatusConflict:
		c.conflicts.Add(1)
	case http.StatusNotFound:
		c.notFound.Add(1)
	default:
		c.failures.Add(1)
	}
}

func loadIDs(pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(context.Background(), query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
