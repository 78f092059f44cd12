package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickmed/opd-scheduling/internal/db"
)

// simulate drives the booking and token-queue endpoints with concurrent
// workers and reports success/conflict/error counts plus latency
// percentiles. It needs a seeded database and a running api-server.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	TokenRatio   float64
	PatientLimit int
	DoctorLimit  int
	PostgresDSN  string
}

type DataPool struct {
	Patients []uuid.UUID
	Doctors  []uuid.UUID

	mu     sync.RWMutex
	tokens []uuid.UUID
}

func (dp *DataPool) AddToken(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.tokens = append(dp.tokens, id)
}

// TakeToken pops a random issued token, or uuid.Nil if none are left.
func (dp *DataPool) TakeToken() uuid.UUID {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.tokens) == 0 {
		return uuid.Nil
	}
	i := rand.Intn(len(dp.tokens))
	id := dp.tokens[i]
	dp.tokens[i] = dp.tokens[len(dp.tokens)-1]
	dp.tokens = dp.tokens[:len(dp.tokens)-1]
	return id
}

func (dp *DataPool) RandomDoctor() uuid.UUID {
	return dp.Doctors[rand.Intn(len(dp.Doctors))]
}

func (dp *DataPool) RandomPatient() uuid.UUID {
	return dp.Patients[rand.Intn(len(dp.Patients))]
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, p50, p95
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking  OperationMetrics
	Issue    OperationMetrics
	CallNext OperationMetrics
	Complete OperationMetrics
	Cancel   OperationMetrics
	Queue    OperationMetrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadSimConfig()
	log.Printf("simulate: url=%s workers=%d duration=%s", cfg.APIBaseURL, cfg.Workers, cfg.Duration)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	dataPool, err := loadDataPool(context.Background(), pool, cfg)
	pool.Close()
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d patients, %d doctors", len(dataPool.Patients), len(dataPool.Doctors))

	metrics := &Metrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	runCtx, stopRun := context.WithTimeout(context.Background(), cfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(runCtx, client, cfg, dataPool, metrics)
		}()
	}
	wg.Wait()

	report("booking", &metrics.Booking)
	report("issue_token", &metrics.Issue)
	report("call_next", &metrics.CallNext)
	report("complete", &metrics.Complete)
	report("cancel", &metrics.Cancel)
	report("queue_read", &metrics.Queue)
}

func worker(ctx context.Context, client *http.Client, cfg SimConfig, pool *DataPool, m *Metrics) {
	today := time.Now().Format("2006-01-02")
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rand.Float64()
		switch {
		case r < cfg.BookingRatio:
			doBooking(ctx, client, cfg, pool, m, tomorrow)
		case r < cfg.BookingRatio+cfg.TokenRatio:
			doIssueToken(ctx, client, cfg, pool, m, today)
		case r < cfg.BookingRatio+cfg.TokenRatio+0.1:
			doCallAndComplete(ctx, client, cfg, pool, m, today)
		case r < cfg.BookingRatio+cfg.TokenRatio+0.15:
			doCancelToken(ctx, client, cfg, pool, m)
		default:
			doQueueRead(ctx, client, cfg, pool, m, today)
		}
	}
}

func doBooking(ctx context.Context, client *http.Client, cfg SimConfig, pool *DataPool, m *Metrics, date string) {
	slot := fmt.Sprintf("%02d:%02d", rand.Intn(8)+9, []int{0, 15, 30, 45}[rand.Intn(4)])
	body := map[string]any{
		"patient_id": pool.RandomPatient().String(),
		"doctor_id":  pool.RandomDoctor().String(),
		"date":       date,
		"time":       slot,
	}

	status, _, latency := post(ctx, client, cfg.APIBaseURL+"/appointments", body)
	m.Booking.Record(latency, status)
}

func doIssueToken(ctx context.Context, client *http.Client, cfg SimConfig, pool *DataPool, m *Metrics, date string) {
	body := map[string]any{
		"patient_id": pool.RandomPatient().String(),
		"doctor_id":  pool.RandomDoctor().String(),
		"date":       date,
	}

	status, respBody, latency := post(ctx, client, cfg.APIBaseURL+"/tokens", body)
	m.Issue.Record(latency, status)

	if status == http.StatusCreated {
		var resp struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.Unmarshal(respBody, &resp); err == nil {
			pool.AddToken(resp.ID)
		}
	}
}

func doCallAndComplete(ctx context.Context, client *http.Client, cfg SimConfig, pool *DataPool, m *Metrics, date string) {
	doctor := pool.RandomDoctor()
	url := fmt.Sprintf("%s/tokens/call-next?doctor_id=%s&date=%s", cfg.APIBaseURL, doctor, date)

	status, respBody, latency := put(ctx, client, url, nil)
	m.CallNext.Record(latency, status)
	if status != http.StatusOK {
		return
	}

	var called struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(respBody, &called); err != nil {
		return
	}

	body := map[string]any{"actual_wait_minutes": rand.Intn(40) + 5}
	completeURL := fmt.Sprintf("%s/tokens/%s/complete", cfg.APIBaseURL, called.ID)
	status, _, latency = put(ctx, client, completeURL, body)
	m.Complete.Record(latency, status)
}

func doCancelToken(ctx context.Context, client *http.Client, cfg SimConfig, pool *DataPool, m *Metrics) {
	id := pool.TakeToken()
	if id == uuid.Nil {
		return
	}

	url := fmt.Sprintf("%s/tokens/%s/cancel", cfg.APIBaseURL, id)
	status, _, latency := put(ctx, client, url, nil)
	m.Cancel.Record(latency, status)
}

func doQueueRead(ctx context.Context, client *http.Client, cfg SimConfig, pool *DataPool, m *Metrics, date string) {
	url := fmt.Sprintf("%s/queue?doctor_id=%s&date=%s", cfg.APIBaseURL, pool.RandomDoctor(), date)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		m.Queue.Record(latency, 0)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	m.Queue.Record(latency, resp.StatusCode)
}

func post(ctx context.Context, client *http.Client, url string, body any) (int, []byte, time.Duration) {
	return send(ctx, client, http.MethodPost, url, body)
}

func put(ctx context.Context, client *http.Client, url string, body any) (int, []byte, time.Duration) {
	return send(ctx, client, http.MethodPut, url, body)
}

func send(ctx context.Context, client *http.Client, method, url string, body any) (int, []byte, time.Duration) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, 0
		}
		reader = bytes.NewReader(data)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, time.Since(start)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, nil, latency
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, respBody, latency
}

func report(name string, om *OperationMetrics) {
	avg, p50, p95 := om.Stats()
	log.Printf("%-12s total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s",
		name, om.Total, om.Success, om.Conflict, om.Error, avg, p50, p95)
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Patients = append(dp.Patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	docRows, err := pool.Query(ctx, `SELECT id FROM doctors WHERE active LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, err
	}
	defer docRows.Close()
	for docRows.Next() {
		var id uuid.UUID
		if err := docRows.Scan(&id); err != nil {
			return nil, err
		}
		dp.Doctors = append(dp.Doctors, id)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}

	if len(dp.Patients) == 0 || len(dp.Doctors) == 0 {
		return nil, fmt.Errorf("no patients or doctors found, run cmd/seed first")
	}
	return dp, nil
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   envOr("SIM_API_URL", "http://localhost:8080"),
		Duration:     durationOr("SIM_DURATION", 30*time.Second),
		Workers:      intOr("SIM_WORKERS", 20),
		BookingRatio: floatOr("SIM_BOOKING_RATIO", 0.3),
		TokenRatio:   floatOr("SIM_TOKEN_RATIO", 0.3),
		PatientLimit: intOr("SIM_PATIENT_LIMIT", 1000),
		DoctorLimit:  intOr("SIM_DOCTOR_LIMIT", 50),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func durationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
