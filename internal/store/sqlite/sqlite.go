package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/regatta-live/regata-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, applySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func applySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS races (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		start_tmst INTEGER NOT NULL DEFAULT 0,
		end_tmst   INTEGER,
		active     BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS race_buoys (
		race_id  TEXT NOT NULL REFERENCES races(id) ON DELETE CASCADE,
		seq      INTEGER NOT NULL,
		name     TEXT NOT NULL,
		lat      REAL NOT NULL,
		lng      REAL NOT NULL,
		PRIMARY KEY (race_id, seq)
	);

	CREATE TABLE IF NOT EXISTS race_positions (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		race_id  TEXT NOT NULL REFERENCES races(id) ON DELETE CASCADE,
		vessel   TEXT NOT NULL,
		lat      REAL NOT NULL,
		lng      REAL NOT NULL,
		azimuth  REAL NOT NULL DEFAULT 0,
		speed    REAL NOT NULL DEFAULT 0,
		pitch    REAL NOT NULL DEFAULT 0,
		roll     REAL NOT NULL DEFAULT 0,
		tmst     INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_race_positions_race_vessel
		ON race_positions (race_id, vessel, id);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== RaceStore implementation ====

// CreateRace creates a new race record together with its buoys and any
// pre-loaded position history.
func (s *SQLiteStore) CreateRace(ctx context.Context, race *store.Race) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO races (id, name, start_tmst, end_tmst, active)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, race.ID, race.Name, race.StartTmst, race.EndTmst, race.Active); err != nil {
		return fmt.Errorf("insert race: %w", err)
	}

	buoyQuery := `
		INSERT INTO race_buoys (race_id, seq, name, lat, lng)
		VALUES (?, ?, ?, ?, ?)
	`
	for i, buoy := range race.Buoys {
		if _, err := tx.ExecContext(ctx, buoyQuery, race.ID, i, buoy.Name, buoy.Latitude, buoy.Longitude); err != nil {
			return fmt.Errorf("insert buoy: %w", err)
		}
	}

	posQuery := `
		INSERT INTO race_positions (race_id, vessel, lat, lng, azimuth, speed, pitch, roll, tmst)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for vessel, points := range race.Positions {
		for _, pt := range points {
			if _, err := tx.ExecContext(ctx, posQuery,
				race.ID, vessel, pt.Latitude, pt.Longitude, pt.Azimuth, pt.Speed, pt.Pitch, pt.Roll, pt.Timestamp,
			); err != nil {
				return fmt.Errorf("insert position: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRace retrieves a race with its buoys and full position history.
func (s *SQLiteStore) GetRace(ctx context.Context, id string) (*store.Race, error) {
	race, err := s.scanRace(ctx, "id = ?", id)
	if err != nil {
		return nil, err
	}

	if race.Buoys, err = s.raceBuoys(ctx, race.ID); err != nil {
		return nil, err
	}
	if race.Positions, err = s.racePositions(ctx, race.ID); err != nil {
		return nil, err
	}
	return race, nil
}

// GetRaceByName retrieves a race by name, without position history.
func (s *SQLiteStore) GetRaceByName(ctx context.Context, name string) (*store.Race, error) {
	return s.scanRace(ctx, "name = ?", name)
}

func (s *SQLiteStore) scanRace(ctx context.Context, where string, arg any) (*store.Race, error) {
	query := `
		SELECT id, name, start_tmst, end_tmst, active, created_at
		FROM races
		WHERE ` + where
	var race store.Race
	var end sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&race.ID,
		&race.Name,
		&race.StartTmst,
		&end,
		&race.Active,
		&race.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query race: %w", err)
	}
	if end.Valid {
		race.EndTmst = &end.Int64
	}
	return &race, nil
}

// ListRaces lists all races, newest first, without position history.
func (s *SQLiteStore) ListRaces(ctx context.Context) ([]*store.Race, error) {
	query := `
		SELECT id, name, start_tmst, end_tmst, active, created_at
		FROM races
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query races: %w", err)
	}
	defer rows.Close()

	var races []*store.Race
	for rows.Next() {
		var race store.Race
		var end sql.NullInt64
		if err := rows.Scan(&race.ID, &race.Name, &race.StartTmst, &end, &race.Active, &race.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		if end.Valid {
			race.EndTmst = &end.Int64
		}
		races = append(races, &race)
	}

	return races, rows.Err()
}

func (s *SQLiteStore) raceBuoys(ctx context.Context, raceID string) ([]store.Buoy, error) {
	query := `
		SELECT name, lat, lng
		FROM race_buoys
		WHERE race_id = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("query buoys: %w", err)
	}
	defer rows.Close()

	var buoys []store.Buoy
	for rows.Next() {
		var b store.Buoy
		if err := rows.Scan(&b.Name, &b.Latitude, &b.Longitude); err != nil {
			return nil, fmt.Errorf("scan buoy: %w", err)
		}
		buoys = append(buoys, b)
	}
	return buoys, rows.Err()
}

func (s *SQLiteStore) racePositions(ctx context.Context, raceID string) (map[string][]store.TrackPoint, error) {
	query := `
		SELECT vessel, lat, lng, azimuth, speed, pitch, roll, tmst
		FROM race_positions
		WHERE race_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, raceID)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	positions := make(map[string][]store.TrackPoint)
	for rows.Next() {
		var vessel string
		var pt store.TrackPoint
		if err := rows.Scan(&vessel, &pt.Latitude, &pt.Longitude, &pt.Azimuth, &pt.Speed, &pt.Pitch, &pt.Roll, &pt.Timestamp); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions[vessel] = append(positions[vessel], pt)
	}
	return positions, rows.Err()
}

// AppendPosition appends a point to the race's history for a vessel.
func (s *SQLiteStore) AppendPosition(ctx context.Context, raceID, vesselName string, pt store.TrackPoint) error {
	query := `
		INSERT INTO race_positions (race_id, vessel, lat, lng, azimuth, speed, pitch, roll, tmst)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		raceID, vesselName, pt.Latitude, pt.Longitude, pt.Azimuth, pt.Speed, pt.Pitch, pt.Roll, pt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// SetRaceEnd marks the race as finished at the given time. The guard on
// end_tmst makes concurrent or repeated finalization a no-op.
func (s *SQLiteStore) SetRaceEnd(ctx context.Context, raceID string, end time.Time) error {
	query := `
		UPDATE races
		SET end_tmst = ?, active = 0
		WHERE id = ? AND end_tmst IS NULL
	`
	_, err := s.db.ExecContext(ctx, query, end.UnixMilli(), raceID)
	if err != nil {
		return fmt.Errorf("set race end: %w", err)
	}
	return nil
}

// SetActiveRace marks the race as the single active one. The flag is
// cleared on every other race and set on the target inside one
// transaction, so observers never see two active races.
func (s *SQLiteStore) SetActiveRace(ctx context.Context, raceID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var end sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT end_tmst FROM races WHERE id = ?`, raceID).Scan(&end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("query race: %w", err)
	}
	if end.Valid {
		return store.ErrRaceFinished
	}

	if _, err := tx.ExecContext(ctx, `UPDATE races SET active = 0 WHERE id != ?`, raceID); err != nil {
		return fmt.Errorf("clear active flags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE races SET active = 1 WHERE id = ?`, raceID); err != nil {
		return fmt.Errorf("set active flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
