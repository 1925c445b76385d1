package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"apiary-voice/internal/domain"
	"apiary-voice/internal/infra"
)

var ErrNotFound = errors.New("not found")

// DefaultApiaries are created in an empty store.
var DefaultApiaries = []domain.Apiary{
	{Name: "Norte", Location: "Zona norte de la finca"},
	{Name: "Centro", Location: "Zona central de la finca"},
	{Name: "Sur", Location: "Zona sur de la finca"},
}

// Store keeps apiaries, hives, the question catalog and inspection records in
// SQLite or MySQL.
type Store struct {
	db      *sql.DB
	dialect dialect
	retry   infra.RetryConfig
	logger  *slog.Logger
}

// Open connects with driver "sqlite" or "mysql" and creates missing tables.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	var (
		d   dialect
		err error
	)
	switch driver {
	case "", "sqlite":
		d = sqliteDialect
	case "mysql":
		d = mysqlDialect
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}

	if d.driver == "sqlite" {
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Store{db: db, dialect: d, retry: infra.DefaultRetryConfig(), logger: logger}, nil
}

func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parsing mysql dsn: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() string {
	return s.dialect.driver
}

func (s *Store) LoadActive(ctx context.Context) ([]domain.QuestionSpec, error) {
	return s.queryQuestions(ctx, "WHERE active = 1")
}

// AllQuestions returns active and inactive questions in catalog order.
func (s *Store) AllQuestions(ctx context.Context) ([]domain.QuestionSpec, error) {
	return s.queryQuestions(ctx, "")
}

func (s *Store) queryQuestions(ctx context.Context, where string) ([]domain.QuestionSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, kind, required, position, active, min_val, max_val, options, depends_on, show_when
		FROM questions `+where+` ORDER BY position, seq`)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.QuestionSpec
	for rows.Next() {
		var (
			q                 domain.QuestionSpec
			kind              string
			options, showWhen string
		)
		if err := rows.Scan(&q.ID, &q.Text, &kind, &q.Required, &q.Order, &q.Active,
			&q.Min, &q.Max, &options, &q.DependsOn, &showWhen); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		q.Kind = domain.QuestionKind(kind)
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decoding options of %q: %w", q.ID, err)
		}
		if err := json.Unmarshal([]byte(showWhen), &q.ShowWhen); err != nil {
			return nil, fmt.Errorf("decoding show_when of %q: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return questions, nil
}

// ReplaceAll swaps the question catalog in one transaction. Slice order is
// kept as the tie-break for equal positions.
func (s *Store) ReplaceAll(ctx context.Context, questions []domain.QuestionSpec) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM questions"); err != nil {
		return fmt.Errorf("clearing questions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, text, kind, required, position, seq, active, min_val, max_val, options, depends_on, show_when)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range questions {
		options, err := jsonList(q.Options)
		if err != nil {
			return err
		}
		showWhen, err := jsonList(q.ShowWhen)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, q.ID, q.Text, string(q.Kind), q.Required, q.Order, i,
			q.Active, q.Min, q.Max, options, q.DependsOn, showWhen); err != nil {
			return fmt.Errorf("inserting question %q: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing questions: %w", err)
	}
	s.logger.Info("question catalog replaced", "count", len(questions))
	return nil
}

// SetActive toggles one question, or every question when id is empty. It
// returns the number of questions changed.
func (s *Store) SetActive(ctx context.Context, id string, active bool) (int64, error) {
	query, args := "UPDATE questions SET active = ? WHERE active <> ?", []any{active, active}
	if id != "" {
		query += " AND id = ?"
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("updating questions: %w", err)
	}
	return res.RowsAffected()
}

func jsonList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(data), nil
}

// Insert stores a record once. Inserting a record_id that already exists is
// a no-op, so replays from the offline queue are safe.
func (s *Store) Insert(ctx context.Context, record domain.Record) error {
	answers, err := json.Marshal(record.Answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}

	query := s.dialect.insertIgnore + ` INTO inspections
		(record_id, apiary_id, apiary_name, hive_number, started_at, completed_at, answers)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	return infra.WithRetry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, query,
			record.RecordID, record.ApiaryID, record.ApiaryName, record.HiveNumber,
			formatTime(record.StartedAt), formatTime(record.CompletedAt), string(answers))
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", record.RecordID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			s.logger.Info("record already stored", "record_id", record.RecordID)
		}
		return nil
	})
}

const recordColumns = "record_id, apiary_id, apiary_name, hive_number, started_at, completed_at, answers"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.Record, error) {
	var (
		r                  domain.Record
		started, completed string
		answers            string
	)
	if err := row.Scan(&r.RecordID, &r.ApiaryID, &r.ApiaryName, &r.HiveNumber, &started, &completed, &answers); err != nil {
		return domain.Record{}, err
	}

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return domain.Record{}, err
	}
	if r.CompletedAt, err = parseTime(completed); err != nil {
		return domain.Record{}, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return domain.Record{}, fmt.Errorf("decoding answers of %s: %w", r.RecordID, err)
	}
	return r, nil
}

func (s *Store) Get(ctx context.Context, recordID string) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM inspections WHERE record_id = ?", recordID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("record %s: %w", recordID, ErrNotFound)
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("querying record %s: %w", recordID, err)
	}
	return r, nil
}

// ListRecords returns the most recently completed inspections first. A limit
// of 0 or less returns all of them.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]domain.Record, error) {
	query := "SELECT " + recordColumns + " FROM inspections ORDER BY completed_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inspections").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (s *Store) ListApiaries(ctx context.Context) ([]domain.Apiary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, location FROM apiaries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying apiaries: %w", err)
	}
	defer rows.Close()

	var apiaries []domain.Apiary
	for rows.Next() {
		var a domain.Apiary
		if err := rows.Scan(&a.ID, &a.Name, &a.Location); err != nil {
			return nil, fmt.Errorf("scanning apiary: %w", err)
		}
		apiaries = append(apiaries, a)
	}
	return apiaries, rows.Err()
}

func (s *Store) ListHives(ctx context.Context, apiaryID int64) ([]domain.Hive, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, number FROM hives WHERE apiary_id = ? ORDER BY number", apiaryID)
	if err != nil {
		return nil, fmt.Errorf("querying hives: %w", err)
	}
	defer rows.Close()

	var hives []domain.Hive
	for rows.Next() {
		var h domain.Hive
		if err := rows.Scan(&h.ID, &h.Number); err != nil {
			return nil, fmt.Errorf("scanning hive: %w", err)
		}
		hives = append(hives, h)
	}
	return hives, rows.Err()
}

func (s *Store) AddApiary(ctx context.Context, name, location string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO apiaries (name, location) VALUES (?, ?)", name, location)
	if err != nil {
		return 0, fmt.Errorf("adding apiary %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (s *Store) AddHive(ctx context.Context, apiaryID int64, number int) error {
	if _, err := s.db.ExecContext(ctx,
		s.dialect.insertIgnore+" INTO hives (apiary_id, number) VALUES (?, ?)", apiaryID, number); err != nil {
		return fmt.Errorf("adding hive %d: %w", number, err)
	}
	return nil
}

// SeedApiaries creates the given apiaries with hives 1..hivesEach when the
// store has no apiaries yet. It reports whether anything was created.
func (s *Store) SeedApiaries(ctx context.Context, apiaries []domain.Apiary, hivesEach int) (bool, error) {
	existing, err := s.ListApiaries(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	for _, a := range apiaries {
		id, err := s.AddApiary(ctx, a.Name, a.Location)
		if err != nil {
			return false, err
		}
		for n := 1; n <= hivesEach; n++ {
			if err := s.AddHive(ctx, id, n); err != nil {
				return false, err
			}
		}
	}
	s.logger.Info("default apiaries created", "apiaries", len(apiaries), "hives_each", hivesEach)
	return true, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
