package telemetry

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store persists lifecycle events and window stats to SQLite for
// offline analysis. Optional; a nil *Store is a no-op sink.
type Store struct {
	conn *sqlx.DB
}

// OpenStore opens or creates a SQLite database at the given path.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame INTEGER NOT NULL,
		type TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		species INTEGER NOT NULL,
		cause TEXT,
		target_id TEXT,
		amount REAL NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS window_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		prey_count INTEGER NOT NULL,
		pred_count INTEGER NOT NULL,
		prey_births INTEGER NOT NULL,
		pred_births INTEGER NOT NULL,
		prey_deaths INTEGER NOT NULL,
		pred_deaths INTEGER NOT NULL,
		deaths_old_age INTEGER NOT NULL,
		deaths_starvation INTEGER NOT NULL,
		deaths_predation INTEGER NOT NULL,
		catches INTEGER NOT NULL,
		feedings INTEGER NOT NULL,
		prey_energy_mean REAL NOT NULL,
		pred_energy_mean REAL NOT NULL,
		events_dropped INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_frame ON events(frame);
	CREATE INDEX IF NOT EXISTS idx_stats_frame ON window_stats(frame);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveEvents inserts a batch of lifecycle events in one transaction.
func (s *Store) SaveEvents(events []Event) error {
	if s == nil || len(events) == 0 {
		return nil
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(frame, type, agent_id, species, cause, target_id, amount, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		row := ev.ToCSV()
		if _, err := stmt.Exec(row.Frame, row.Type, row.AgentID, row.Species,
			row.Cause, row.Target, row.Amount, row.X, row.Y); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// SaveStats inserts one window stats row.
func (s *Store) SaveStats(ws WindowStats) error {
	if s == nil {
		return nil
	}

	_, err := s.conn.Exec(`INSERT INTO window_stats
		(frame, sim_time, prey_count, pred_count,
		 prey_births, pred_births, prey_deaths, pred_deaths,
		 deaths_old_age, deaths_starvation, deaths_predation,
		 catches, feedings, prey_energy_mean, pred_energy_mean, events_dropped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ws.Frame, ws.SimTime, ws.PreyCount, ws.PredCount,
		ws.PreyBirths, ws.PredBirths, ws.PreyDeaths, ws.PredDeaths,
		ws.DeathsOldAge, ws.DeathsStarvation, ws.DeathsPredation,
		ws.Catches, ws.Feedings, ws.PreyEnergyMean, ws.PredEnergyMean, ws.EventsDropped)
	if err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}
	return nil
}

// EventCount returns the number of persisted events, mainly for tests.
func (s *Store) EventCount() (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	if err := s.conn.Get(&n, `SELECT COUNT(*) FROM events`); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
