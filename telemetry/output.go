package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/RegiByte/emergent-boids-sub002/config"
)

// EventCSV is the flattened CSV row for a lifecycle event.
type EventCSV struct {
	Frame   uint32  `csv:"frame"`
	Type    string  `csv:"type"`
	AgentID string  `csv:"agent_id"`
	Species int     `csv:"species"`
	Cause   string  `csv:"cause"`
	Target  string  `csv:"target_id"`
	Amount  float32 `csv:"amount"`
	X       float32 `csv:"x"`
	Y       float32 `csv:"y"`
}

// ToCSV flattens an event for export.
func (ev Event) ToCSV() EventCSV {
	row := EventCSV{
		Frame:   ev.Frame,
		Type:    ev.Type.String(),
		AgentID: ev.AgentID,
		Species: ev.SpeciesID,
		Target:  ev.TargetID,
		Amount:  ev.Amount,
		X:       ev.X,
		Y:       ev.Y,
	}
	if ev.Type == EventDeath {
		row.Cause = ev.Cause.String()
	}
	return row
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir       string
	statsFile *os.File
	eventFile *os.File

	// Track if headers have been written
	statsHeaderWritten bool
	eventHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the
// output directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	f, err = os.Create(filepath.Join(dir, "events.csv"))
	if err != nil {
		om.statsFile.Close()
		return nil, fmt.Errorf("creating events.csv: %w", err)
	}
	om.eventFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats appends a window stats record to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}

	records := []WindowStats{stats}

	if !om.statsHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}

	return nil
}

// WriteEvents appends lifecycle events to events.csv.
func (om *OutputManager) WriteEvents(events []Event) error {
	if om == nil || len(events) == 0 {
		return nil
	}

	rows := make([]EventCSV, len(events))
	for i, ev := range events {
		rows[i] = ev.ToCSV()
	}

	if !om.eventHeaderWritten {
		if err := gocsv.Marshal(rows, om.eventFile); err != nil {
			return fmt.Errorf("writing events: %w", err)
		}
		om.eventHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, om.eventFile); err != nil {
			return fmt.Errorf("writing events: %w", err)
		}
	}

	return nil
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	if err := om.statsFile.Close(); err != nil {
		firstErr = err
	}
	if err := om.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
