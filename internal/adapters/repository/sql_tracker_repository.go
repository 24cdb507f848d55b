package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the tracker database. SQLite runs on a single connection
// so that in-memory databases survive between queries and writers never
// contend for the file lock.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		return db, nil
	case DriverPostgres:
		db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type SQLTrackerRepository struct {
	db       *sqlx.DB
	postgres bool
}

func NewSQLTrackerRepository(db *sqlx.DB) *SQLTrackerRepository {
	name := db.DriverName()
	return &SQLTrackerRepository{
		db:       db,
		postgres: name == "pgx" || name == "postgres",
	}
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		date_created TEXT NOT NULL,
		date_completed TEXT,
		deadline TEXT,
		priority TEXT NOT NULL DEFAULT 'MEDIUM'
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		currently_tracking BOOLEAN NOT NULL DEFAULT 1,
		currently_building BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS habit_performed (
		habit_id INTEGER NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		PRIMARY KEY (habit_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS habit_status (
		habit_id INTEGER NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		frequency TEXT NOT NULL DEFAULT 'NONE',
		trend TEXT NOT NULL DEFAULT 'NONE',
		was_building BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (habit_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entry (
		date TEXT PRIMARY KEY,
		note TEXT NOT NULL DEFAULT '',
		is_starred BOOLEAN NOT NULL DEFAULT 0,
		mood INTEGER,
		habits_calculated BOOLEAN NOT NULL DEFAULT 0
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		date_created DATE NOT NULL,
		date_completed DATE,
		deadline DATE,
		priority TEXT NOT NULL DEFAULT 'MEDIUM'
	)`,
	`CREATE TABLE IF NOT EXISTS habits (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		currently_tracking BOOLEAN NOT NULL DEFAULT TRUE,
		currently_building BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS habit_performed (
		habit_id BIGINT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		day_of_week SMALLINT NOT NULL,
		PRIMARY KEY (habit_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS habit_status (
		habit_id BIGINT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		frequency TEXT NOT NULL DEFAULT 'NONE',
		trend TEXT NOT NULL DEFAULT 'NONE',
		was_building BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (habit_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entry (
		date DATE PRIMARY KEY,
		note TEXT NOT NULL DEFAULT '',
		is_starred BOOLEAN NOT NULL DEFAULT FALSE,
		mood SMALLINT,
		habits_calculated BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// Migrate creates the tracker tables when they do not exist yet.
func (r *SQLTrackerRepository) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.postgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return wrap("Migrate", err)
		}
	}
	log.Printf("[DB] Schema ready (%s)", r.db.DriverName())
	return nil
}

// wrap turns any storage error into a *domain.PersistenceError, naming the
// constraint violations both Postgres drivers report.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		err = classifyConstraint(string(pgErr.Code), err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		err = classifyConstraint(string(pqErr.Code), err)
	}
	return domain.NewPersistenceError(op, err)
}

func classifyConstraint(code string, err error) error {
	switch code {
	case "23503":
		return fmt.Errorf("referenced row does not exist: %w", err)
	case "23505":
		return fmt.Errorf("row already exists: %w", err)
	default:
		return err
	}
}

func (r *SQLTrackerRepository) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("[DB] Rollback of %s failed: %v", op, rbErr)
		}
		return wrap(op, err)
	}
	return wrap(op, tx.Commit())
}

func (r *SQLTrackerRepository) Ping(ctx context.Context) error {
	return wrap("Ping", r.db.PingContext(ctx))
}

const insertJournalEntryQuery = `INSERT INTO journal_entry (date) VALUES (?) ON CONFLICT (date) DO NOTHING`

func (r *SQLTrackerRepository) InsertJournalEntry(ctx context.Context, date domain.Date) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(insertJournalEntryQuery), date)
	return wrap("InsertJournalEntry", err)
}

func (r *SQLTrackerRepository) InsertJournalEntries(ctx context.Context, dates []domain.Date) error {
	return r.inTx(ctx, "InsertJournalEntries", func(tx *sqlx.Tx) error {
		query := tx.Rebind(insertJournalEntryQuery)
		for _, d := range dates {
			if _, err := tx.ExecContext(ctx, query, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLTrackerRepository) UpdateJournalEntry(ctx context.Context, entry domain.JournalEntry) error {
	query := `
		UPDATE journal_entry
		SET note = :note, is_starred = :is_starred, mood = :mood
		WHERE date = :date`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	return wrap("UpdateJournalEntry", err)
}

const journalColumns = `date, note, is_starred, mood, habits_calculated`

func (r *SQLTrackerRepository) selectOneJournalEntry(ctx context.Context, op, query string, args ...any) (*domain.JournalEntry, error) {
	var entry domain.JournalEntry
	err := r.db.GetContext(ctx, &entry, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap(op, err)
	}
	return &entry, nil
}

func (r *SQLTrackerRepository) SelectJournalEntry(ctx context.Context, date domain.Date) (*domain.JournalEntry, error) {
	return r.selectOneJournalEntry(ctx, "SelectJournalEntry",
		`SELECT `+journalColumns+` FROM journal_entry WHERE date = ?`, date)
}

func (r *SQLTrackerRepository) SelectJournalEntriesBetween(ctx context.Context, from, to domain.Date) ([]domain.JournalEntry, error) {
	entries := []domain.JournalEntry{}
	query := `SELECT ` + journalColumns + ` FROM journal_entry WHERE date >= ? AND date <= ? ORDER BY date ASC`
	if err := r.db.SelectContext(ctx, &entries, r.db.Rebind(query), from, to); err != nil {
		return nil, wrap("SelectJournalEntriesBetween", err)
	}
	return entries, nil
}

func (r *SQLTrackerRepository) SelectFirstJournalEntry(ctx context.Context) (*domain.JournalEntry, error) {
	return r.selectOneJournalEntry(ctx, "SelectFirstJournalEntry",
		`SELECT `+journalColumns+` FROM journal_entry ORDER BY date ASC LIMIT 1`)
}

func (r *SQLTrackerRepository) SelectLatestJournalEntry(ctx context.Context) (*domain.JournalEntry, error) {
	return r.selectOneJournalEntry(ctx, "SelectLatestJournalEntry",
		`SELECT `+journalColumns+` FROM journal_entry ORDER BY date DESC LIMIT 1`)
}

func (r *SQLTrackerRepository) SelectJournalDatesWithoutHabitStatuses(ctx context.Context) ([]domain.Date, error) {
	dates := []domain.Date{}
	query := `SELECT date FROM journal_entry WHERE habits_calculated = ? ORDER BY date ASC`
	if err := r.db.SelectContext(ctx, &dates, r.db.Rebind(query), false); err != nil {
		return nil, wrap("SelectJournalDatesWithoutHabitStatuses", err)
	}
	return dates, nil
}

func (r *SQLTrackerRepository) InsertTask(ctx context.Context, task domain.NewTask) (*domain.Task, error) {
	stored := domain.Task{
		Name:        task.Name,
		DateCreated: task.DateCreated,
		Deadline:    task.Deadline,
		Priority:    task.Priority,
	}
	if stored.Priority == "" {
		stored.Priority = domain.TaskPriorityMedium
	}

	query := `
		INSERT INTO tasks (name, date_created, deadline, priority)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		stored.Name, stored.DateCreated, stored.Deadline, stored.Priority,
	).Scan(&stored.ID)
	if err != nil {
		return nil, wrap("InsertTask", err)
	}
	return &stored, nil
}

func (r *SQLTrackerRepository) UpdateTask(ctx context.Context, task domain.Task) error {
	query := `
		UPDATE tasks
		SET name = :name, date_completed = :date_completed, deadline = :deadline, priority = :priority
		WHERE id = :id`

	_, err := r.db.NamedExecContext(ctx, query, task)
	return wrap("UpdateTask", err)
}

func (r *SQLTrackerRepository) DeleteTask(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
	return wrap("DeleteTask", err)
}

func (r *SQLTrackerRepository) SelectAllTasks(ctx context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	query := `SELECT id, name, date_created, date_completed, deadline, priority FROM tasks ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, wrap("SelectAllTasks", err)
	}
	return tasks, nil
}

func (r *SQLTrackerRepository) InsertHabit(ctx context.Context, name string) (*domain.Habit, error) {
	habit := domain.Habit{Name: name, CurrentlyTracking: true}
	query := `
		INSERT INTO habits (name, currently_tracking, currently_building)
		VALUES (?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), name, true, false).Scan(&habit.ID)
	if err != nil {
		return nil, wrap("InsertHabit", err)
	}
	return &habit, nil
}

func (r *SQLTrackerRepository) UpdateHabitName(ctx context.Context, id int64, name string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE habits SET name = ? WHERE id = ?`), name, id)
	return wrap("UpdateHabitName", err)
}

func (r *SQLTrackerRepository) UpdateHabitIsTracked(ctx context.Context, id int64, isTracked bool) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE habits SET currently_tracking = ? WHERE id = ?`), isTracked, id)
	return wrap("UpdateHabitIsTracked", err)
}

func (r *SQLTrackerRepository) UpdateHabitIsBuilding(ctx context.Context, id int64, isBuilding bool) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE habits SET currently_building = ? WHERE id = ?`), isBuilding, id)
	return wrap("UpdateHabitIsBuilding", err)
}

func (r *SQLTrackerRepository) DeleteHabit(ctx context.Context, id int64) error {
	return r.inTx(ctx, "DeleteHabit", func(tx *sqlx.Tx) error {
		for _, query := range []string{
			`DELETE FROM habit_status WHERE habit_id = ?`,
			`DELETE FROM habit_performed WHERE habit_id = ?`,
			`DELETE FROM habits WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLTrackerRepository) SelectAllHabits(ctx context.Context) ([]domain.Habit, error) {
	habits := []domain.Habit{}
	query := `SELECT id, name, currently_tracking, currently_building FROM habits ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &habits, query); err != nil {
		return nil, wrap("SelectAllHabits", err)
	}
	return habits, nil
}

func (r *SQLTrackerRepository) InsertHabitPerformed(ctx context.Context, habitID int64, date domain.Date) error {
	query := `
		INSERT INTO habit_performed (habit_id, date, day_of_week)
		VALUES (?, ?, ?)
		ON CONFLICT (habit_id, date) DO NOTHING`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), habitID, date, int(date.Weekday()))
	return wrap("InsertHabitPerformed", err)
}

func (r *SQLTrackerRepository) DeleteHabitPerformed(ctx context.Context, habitID int64, date domain.Date) error {
	query := `DELETE FROM habit_performed WHERE habit_id = ? AND date = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), habitID, date)
	return wrap("DeleteHabitPerformed", err)
}

func (r *SQLTrackerRepository) SelectHabitIDsPerformedOnDate(ctx context.Context, date domain.Date) ([]int64, error) {
	ids := []int64{}
	query := `SELECT habit_id FROM habit_performed WHERE date = ? ORDER BY habit_id ASC`
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), date); err != nil {
		return nil, wrap("SelectHabitIDsPerformedOnDate", err)
	}
	return ids, nil
}

func (r *SQLTrackerRepository) CountHabitPerformedDuring(ctx context.Context, habitID int64, dates []domain.Date) (int, error) {
	if len(dates) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		`SELECT COUNT(DISTINCT date) FROM habit_performed WHERE habit_id = ? AND date IN (?)`,
		habitID, dates,
	)
	if err != nil {
		return 0, wrap("CountHabitPerformedDuring", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return 0, wrap("CountHabitPerformedDuring", err)
	}
	return count, nil
}

func (r *SQLTrackerRepository) SelectMostRecentDatesHabitPerformed(ctx context.Context, habitID int64, n int, asOf domain.Date) ([]domain.Date, error) {
	dates := []domain.Date{}
	query := `
		SELECT date FROM habit_performed
		WHERE habit_id = ? AND date <= ?
		ORDER BY date DESC
		LIMIT ?`

	if err := r.db.SelectContext(ctx, &dates, r.db.Rebind(query), habitID, asOf, n); err != nil {
		return nil, wrap("SelectMostRecentDatesHabitPerformed", err)
	}
	return dates, nil
}

func (r *SQLTrackerRepository) SelectHabitPerformancesBetween(ctx context.Context, from, to domain.Date) ([]domain.HabitPerformed, error) {
	records := []domain.HabitPerformed{}
	query := `
		SELECT habit_id, date FROM habit_performed
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, habit_id ASC`

	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), from, to); err != nil {
		return nil, wrap("SelectHabitPerformancesBetween", err)
	}
	return records, nil
}

const upsertHabitStatusQuery = `
	INSERT INTO habit_status (habit_id, date, frequency, trend, was_building)
	VALUES (:habit_id, :date, :frequency, :trend, :was_building)
	ON CONFLICT (habit_id, date) DO UPDATE SET
		frequency = excluded.frequency,
		trend = excluded.trend,
		was_building = excluded.was_building`

func (r *SQLTrackerRepository) InsertHabitStatusesForDate(ctx context.Context, date domain.Date, statuses []domain.HabitStatus) error {
	for _, s := range statuses {
		if s.Date != date {
			return wrap("InsertHabitStatusesForDate",
				fmt.Errorf("status of habit %d is dated %s, expected %s", s.HabitID, s.Date, date))
		}
	}

	return r.inTx(ctx, "InsertHabitStatusesForDate", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM habit_status WHERE date = ?`), date); err != nil {
			return err
		}
		for _, s := range statuses {
			if _, err := tx.NamedExecContext(ctx, upsertHabitStatusQuery, s); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE journal_entry SET habits_calculated = ? WHERE date = ?`), true, date)
		return err
	})
}

func (r *SQLTrackerRepository) InsertOrReplaceHabitStatuses(ctx context.Context, statuses []domain.HabitStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.inTx(ctx, "InsertOrReplaceHabitStatuses", func(tx *sqlx.Tx) error {
		for _, s := range statuses {
			if _, err := tx.NamedExecContext(ctx, upsertHabitStatusQuery, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLTrackerRepository) SelectHabitStatus(ctx context.Context, habitID int64, date domain.Date) (*domain.HabitStatus, error) {
	var status domain.HabitStatus
	query := `
		SELECT habit_id, date, frequency, trend, was_building
		FROM habit_status WHERE habit_id = ? AND date = ?`

	err := r.db.GetContext(ctx, &status, r.db.Rebind(query), habitID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("SelectHabitStatus", err)
	}
	return &status, nil
}

func (r *SQLTrackerRepository) SelectHabitStatusesForDate(ctx context.Context, date domain.Date) ([]domain.HabitStatusDetails, error) {
	details := []domain.HabitStatusDetails{}
	query := `
		SELECT s.habit_id, s.date, s.frequency, s.trend, s.was_building, h.name,
			(SELECT MAX(p.date) FROM habit_performed p
			 WHERE p.habit_id = s.habit_id AND p.date <= s.date) AS last_performed
		FROM habit_status s
		JOIN habits h ON h.id = s.habit_id
		WHERE s.date = ?
		ORDER BY s.habit_id ASC`

	if err := r.db.SelectContext(ctx, &details, r.db.Rebind(query), date); err != nil {
		return nil, wrap("SelectHabitStatusesForDate", err)
	}
	return details, nil
}

func (r *SQLTrackerRepository) DoesAnyHabitStatusExistForHabit(ctx context.Context, habitID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM habit_status WHERE habit_id = ?)`
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query), habitID); err != nil {
		return false, wrap("DoesAnyHabitStatusExistForHabit", err)
	}
	return exists, nil
}

func (r *SQLTrackerRepository) DeleteHabitStatus(ctx context.Context, habitID int64, date domain.Date) error {
	query := `DELETE FROM habit_status WHERE habit_id = ? AND date = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), habitID, date)
	return wrap("DeleteHabitStatus", err)
}
