package discovery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/protocol"
)

const (
	// queueSize is the number of pending events held before dropping.
	queueSize = 256

	// writeTimeout bounds each SQLite write.
	writeTimeout = 5 * time.Second
)

// ErrSightingNotFound is returned when a device has no journal row.
var ErrSightingNotFound = errors.New("discovery: sighting not found")

// ErrAlreadyRunning is returned by a second Start.
var ErrAlreadyRunning = errors.New("discovery: journal already running")

// Logger defines the logging interface used by the Journal.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sighting is one row of the journal.
type Sighting struct {
	DeviceID  protocol.DeviceID `json:"device_id"`
	Label     string            `json:"label"`
	Power     uint16            `json:"power"`
	Tags      uint64            `json:"tags"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
	Sightings int               `json:"sightings"`
	LostAt    *time.Time        `json:"lost_at,omitempty"`
}

type eventKind int

const (
	eventFound eventKind = iota
	eventChanged
	eventLost
)

type event struct {
	kind  eventKind
	light device.Light
	at    time.Time
}

// Journal records light lifecycle events in SQLite.
type Journal struct {
	db     *sql.DB
	logger Logger
	now    func() time.Time

	foundStmt   *sql.Stmt
	changedStmt *sql.Stmt
	lostStmt    *sql.Stmt

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewJournal creates a journal over db. The light_sightings table must
// already exist (see the migrations package).
func NewJournal(db *sql.DB) *Journal {
	return &Journal{
		db:     db,
		logger: noopLogger{},
		now:    time.Now,
		events: make(chan event, queueSize),
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger. Call before Start.
func (j *Journal) SetLogger(logger Logger) {
	if logger != nil {
		j.logger = logger
	}
}

// Start prepares the write statements and starts the writer goroutine.
func (j *Journal) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return ErrAlreadyRunning
	}

	var err error
	j.foundStmt, err = j.db.PrepareContext(ctx, `
		INSERT INTO light_sightings (device_id, label, power, tags, first_seen, last_seen, sightings, lost_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, NULL)
		ON CONFLICT(device_id) DO UPDATE SET
			label = excluded.label,
			power = excluded.power,
			tags = excluded.tags,
			last_seen = excluded.last_seen,
			sightings = sightings + 1,
			lost_at = NULL
	`)
	if err != nil {
		return fmt.Errorf("preparing found statement: %w", err)
	}

	j.changedStmt, err = j.db.PrepareContext(ctx, `
		UPDATE light_sightings SET label = ?, power = ?, tags = ?, last_seen = ?
		WHERE device_id = ?
	`)
	if err != nil {
		j.closeStatements()
		return fmt.Errorf("preparing changed statement: %w", err)
	}

	j.lostStmt, err = j.db.PrepareContext(ctx, `
		UPDATE light_sightings SET last_seen = ?, lost_at = ?
		WHERE device_id = ?
	`)
	if err != nil {
		j.closeStatements()
		return fmt.Errorf("preparing lost statement: %w", err)
	}

	j.running = true
	j.wg.Add(1)
	go j.writeLoop()

	j.logger.Info("sightings journal started")
	return nil
}

// Stop writes any queued events, then stops the writer.
func (j *Journal) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()

	close(j.done)
	j.wg.Wait()
	j.closeStatements()

	j.logger.Info("sightings journal stopped",
		"written", j.written.Load(),
		"dropped", j.dropped.Load(),
	)
}

// LightFound implements device.Listener.
func (j *Journal) LightFound(light device.Light) {
	j.enqueue(event{kind: eventFound, light: light})
}

// LightChanged implements device.Listener.
func (j *Journal) LightChanged(light device.Light) {
	j.enqueue(event{kind: eventChanged, light: light})
}

// LightLost implements device.Listener.
func (j *Journal) LightLost(light device.Light) {
	j.enqueue(event{kind: eventLost, light: light, at: j.now()})
}

// Dropped returns the number of events discarded because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// enqueue never blocks the caller.
func (j *Journal) enqueue(ev event) {
	select {
	case j.events <- ev:
	default:
		if j.dropped.Add(1) == 1 {
			j.logger.Warn("sightings journal queue full, dropping events")
		}
	}
}

func (j *Journal) writeLoop() {
	defer j.wg.Done()

	for {
		select {
		case ev := <-j.events:
			j.write(ev)
		case <-j.done:
			for {
				select {
				case ev := <-j.events:
					j.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (j *Journal) write(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	l := ev.light
	var err error
	switch ev.kind {
	case eventFound:
		_, err = j.foundStmt.ExecContext(ctx, string(l.ID), l.Label, int64(l.Power), int64(l.Tags),
			formatTime(l.FirstSeen), formatTime(l.LastSeen))
	case eventChanged:
		_, err = j.changedStmt.ExecContext(ctx, l.Label, int64(l.Power), int64(l.Tags),
			formatTime(l.LastSeen), string(l.ID))
	case eventLost:
		_, err = j.lostStmt.ExecContext(ctx, formatTime(l.LastSeen), formatTime(ev.at), string(l.ID))
	}

	if err != nil {
		j.logger.Warn("writing sighting", "id", l.ID, "error", err)
		return
	}
	j.written.Add(1)
}

func (j *Journal) closeStatements() {
	for _, stmt := range []*sql.Stmt{j.foundStmt, j.changedStmt, j.lostStmt} {
		if stmt != nil {
			stmt.Close() //nolint:errcheck // Best effort on shutdown
		}
	}
	j.foundStmt, j.changedStmt, j.lostStmt = nil, nil, nil
}

const selectSighting = `
	SELECT device_id, label, power, tags, first_seen, last_seen, sightings, lost_at
	FROM light_sightings`

// List returns every journal row, most recently seen first.
func (j *Journal) List(ctx context.Context) ([]Sighting, error) {
	rows, err := j.db.QueryContext(ctx, selectSighting+" ORDER BY last_seen DESC, device_id")
	if err != nil {
		return nil, fmt.Errorf("querying sightings: %w", err)
	}
	defer rows.Close()

	var out []Sighting
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sightings: %w", err)
	}
	return out, nil
}

// Get returns the journal row for id.
func (j *Journal) Get(ctx context.Context, id protocol.DeviceID) (Sighting, error) {
	row := j.db.QueryRowContext(ctx, selectSighting+" WHERE device_id = ?", string(id))
	s, err := scanSighting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Sighting{}, ErrSightingNotFound
	}
	return s, err
}

// Count returns the number of distinct lights ever journaled.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM light_sightings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sightings: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSighting(row scanner) (Sighting, error) {
	var (
		s                   Sighting
		id                  string
		power, tags         int64
		firstSeen, lastSeen string
		lostAt              sql.NullString
	)
	if err := row.Scan(&id, &s.Label, &power, &tags, &firstSeen, &lastSeen, &s.Sightings, &lostAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Sighting{}, err
		}
		return Sighting{}, fmt.Errorf("scanning sighting: %w", err)
	}

	s.DeviceID = protocol.DeviceID(id)
	s.Power = uint16(power) //nolint:gosec // Written from a uint16
	s.Tags = uint64(tags)   //nolint:gosec // Round-trips the stored bit pattern
	s.FirstSeen = parseTime(firstSeen)
	s.LastSeen = parseTime(lastSeen)
	if lostAt.Valid {
		t := parseTime(lostAt.String)
		s.LostAt = &t
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s) //nolint:errcheck // Written by formatTime
	return t
}
