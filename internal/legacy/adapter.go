package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/safecity/dispatch/internal/shared/config"
	"github.com/safecity/dispatch/internal/shared/errors"
)

// FIR is a First Information Report row from the city's legacy
// registry. Read-only; the registry stays the system of record for
// cases opened before this service existed.
type FIR struct {
	Number       string     `json:"number"`
	CrimeType    string     `json:"crime_type"`
	Description  string     `json:"description"`
	District     string     `json:"district"`
	Station      string     `json:"station"`
	ReportedAt   time.Time  `json:"reported_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	OfficerBadge string     `json:"officer_badge,omitempty"`
}

// Adapter reads FIRs out of the legacy SQL Server registry and keeps a
// liveness poll running against it.
type Adapter struct {
	db     *sql.DB
	config config.LegacyConfig

	running  bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	lastPoll time.Time
	wg       sync.WaitGroup
}

// New creates a legacy registry adapter
func New(cfg config.LegacyConfig) *Adapter {
	return &Adapter{config: cfg}
}

// Start opens the registry connection and begins the liveness poll
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)

	if a.config.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open legacy registry: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping legacy registry: %w", err)
	}

	a.db = db
	a.running = true
	a.lastPoll = time.Now()

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go a.pollLoop(pollCtx)

	return nil
}

// Stop shuts the adapter down and closes the connection
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if a.db != nil {
		a.db.Close()
	}

	a.running = false
	return nil
}

// Health checks registry connectivity
func (a *Adapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("adapter not running")
	}

	return a.db.PingContext(ctx)
}

// IsConnected returns connection status
func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running && a.db != nil
}

func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := a.db.PingContext(pingCtx); err != nil {
				log.Printf("legacy registry unreachable: %v", err)
			}
			cancel()

			a.mu.Lock()
			a.lastPoll = time.Now()
			a.mu.Unlock()
		}
	}
}

// FetchFIRs lists FIRs for a district within a reporting window.
// Either bound may be zero.
func (a *Adapter) FetchFIRs(ctx context.Context, district string, from, to time.Time) ([]FIR, error) {
	if !a.IsConnected() {
		return nil, errors.Unavailable("legacy registry", fmt.Errorf("adapter not connected"))
	}

	query := fmt.Sprintf(`
		SELECT
			FIRNumber,
			CrimeType,
			Description,
			District,
			Station,
			ReportedAt,
			ClosedAt,
			OfficerBadge
		FROM %s
		WHERE District = @district
		  AND (@from IS NULL OR ReportedAt >= @from)
		  AND (@to IS NULL OR ReportedAt <= @to)
		ORDER BY ReportedAt DESC
	`, a.config.FIRTable)

	var fromArg, toArg any
	if !from.IsZero() {
		fromArg = from
	}
	if !to.IsZero() {
		toArg = to
	}

	rows, err := a.db.QueryContext(ctx, query,
		sql.Named("district", district),
		sql.Named("from", fromArg),
		sql.Named("to", toArg),
	)
	if err != nil {
		return nil, errors.Unavailable("legacy registry", err)
	}
	defer rows.Close()

	var firs []FIR
	for rows.Next() {
		var f FIR
		var closedAt sql.NullTime
		var station, badge sql.NullString

		err := rows.Scan(&f.Number, &f.CrimeType, &f.Description, &f.District,
			&station, &f.ReportedAt, &closedAt, &badge)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan FIR")
		}

		f.Station = station.String
		f.OfficerBadge = badge.String
		if closedAt.Valid {
			f.ClosedAt = &closedAt.Time
		}

		firs = append(firs, f)
	}

	return firs, nil
}
