package library

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	tableMembers  = "members"
	tableProfiles = "profiles"
	tableBooks    = "books"
	tableLoans    = "loans"
	tableMeta     = "meta"

	pgUniqueViolation = "23505"

	logMsgSQLExecuted = "executed sql"
	logMsgMigrated    = "schema migrated"
	logAttrQuery      = "query"
	logAttrDurationMS = "duration_ms"
	logAttrVersion    = "schema_version"
	logAttrDriver     = "driver"
)

var (
	memberColumns  = []interface{}{"id", "name", "email", "phone", "registration_date"}
	profileColumns = []interface{}{"id", "member_id", "address", "city", "postal_code", "reading_preferences"}
	bookColumns    = []interface{}{"id", "title", "isbn", "author", "publication_year", "genre", "available"}
	loanColumns    = []interface{}{"id", "member_id", "book_id", "loan_date", "return_date", "state"}
)

// Logger receives SQL at debug level and operational messages at info level.
// *slog.Logger satisfies it.
type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

func discardLogger() Logger { return slog.New(slog.DiscardHandler) }

// Database is the SQL record store. It serves plain reads directly and runs
// multi-record writes through RunInTx.
type Database struct {
	records

	db     *sqlx.DB
	driver string
}

// DBOption configures a Database.
type DBOption func(*Database) error

// WithDriver selects the SQL backend: DriverSQLite (default) or DriverPostgres.
func WithDriver(driver string) DBOption {
	return func(d *Database) error {
		switch driver {
		case "", DriverSQLite:
			d.driver = DriverSQLite
		case DriverPostgres, "pgx":
			d.driver = DriverPostgres
		default:
			return fmt.Errorf("unsupported database driver %q", driver)
		}
		return nil
	}
}

// WithQueryLogger sets the logger for SQL and migration messages.
func WithQueryLogger(logger Logger) DBOption {
	return func(d *Database) error {
		if logger != nil {
			d.logger = logger
		}
		return nil
	}
}

// NewDatabase opens (or creates) the database, applies schema migrations and
// returns a ready store. For SQLite dsn is a file path; for PostgreSQL it is
// a connection string.
func NewDatabase(dsn string, opts ...DBOption) (*Database, error) {
	d := &Database{driver: DriverSQLite}
	d.logger = discardLogger()
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch d.driver {
	case DriverPostgres:
		db, err = sqlx.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		// Immediate transactions take the write lock at BEGIN, so loan
		// operations on SQLite run one at a time; busy_timeout makes the
		// others wait for it.
		db, err = sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	}

	d.db = db
	d.records.q = db
	d.records.dialect = goqu.Dialect(d.driver)
	d.records.driver = d.driver

	if err := d.applyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the DB.
func (d *Database) Close() error {
	return d.db.Close()
}

// Driver reports the backend in use.
func (d *Database) Driver() string { return d.driver }

// RunInTx runs fn inside one transaction. Rows fn reads by id are locked for
// the rest of the transaction on PostgreSQL; SQLite transactions already hold
// the database write lock from BEGIN.
func (d *Database) RunInTx(ctx context.Context, fn func(tx Records) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	txRecords := d.records
	txRecords.q = tx
	txRecords.lockRows = d.driver == DriverPostgres

	if err := fn(txRecords); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        phone TEXT NOT NULL DEFAULT '',
        registration_date DATE NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS profiles (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        member_id INTEGER NOT NULL UNIQUE REFERENCES members(id),
        address TEXT NOT NULL,
        city TEXT NOT NULL,
        postal_code TEXT NOT NULL,
        reading_preferences TEXT NOT NULL DEFAULT ''
    );`,
	`CREATE TABLE IF NOT EXISTS books (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        title TEXT NOT NULL,
        isbn TEXT NOT NULL UNIQUE,
        author TEXT NOT NULL,
        publication_year INTEGER,
        genre TEXT NOT NULL,
        available BOOLEAN NOT NULL DEFAULT 1
    );`,
	`CREATE TABLE IF NOT EXISTS loans (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        member_id INTEGER NOT NULL REFERENCES members(id),
        book_id INTEGER NOT NULL REFERENCES books(id),
        loan_date DATE NOT NULL,
        return_date DATE,
        state TEXT NOT NULL CHECK (state IN ('ACTIVE','RETURNED'))
    );`,
	`CREATE INDEX IF NOT EXISTS idx_loans_member_state ON loans(member_id, state);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_active_book ON loans(book_id) WHERE state = 'ACTIVE';`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        phone TEXT NOT NULL DEFAULT '',
        registration_date DATE NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS profiles (
        id BIGSERIAL PRIMARY KEY,
        member_id BIGINT NOT NULL UNIQUE REFERENCES members(id),
        address TEXT NOT NULL,
        city TEXT NOT NULL,
        postal_code TEXT NOT NULL,
        reading_preferences TEXT NOT NULL DEFAULT ''
    );`,
	`CREATE TABLE IF NOT EXISTS books (
        id BIGSERIAL PRIMARY KEY,
        title TEXT NOT NULL,
        isbn TEXT NOT NULL UNIQUE,
        author TEXT NOT NULL,
        publication_year INTEGER,
        genre TEXT NOT NULL,
        available BOOLEAN NOT NULL DEFAULT TRUE
    );`,
	`CREATE TABLE IF NOT EXISTS loans (
        id BIGSERIAL PRIMARY KEY,
        member_id BIGINT NOT NULL REFERENCES members(id),
        book_id BIGINT NOT NULL REFERENCES books(id),
        loan_date DATE NOT NULL,
        return_date DATE,
        state TEXT NOT NULL CHECK (state IN ('ACTIVE','RETURNED'))
    );`,
	`CREATE INDEX IF NOT EXISTS idx_loans_member_state ON loans(member_id, state);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_active_book ON loans(book_id) WHERE state = 'ACTIVE';`,
}

func (d *Database) applyMigrations(ctx context.Context) error {
	if d.driver == DriverSQLite {
		// WAL improves write concurrency.
		if _, err := d.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enable WAL: %w", err)
		}
	}

	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	versionQuery, args, err := d.dialect.From(tableMeta).Select("value").
		Where(goqu.Ex{"key": "schema_version"}).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_ = d.db.QueryRowContext(ctx, versionQuery, args...).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	return d.RunInTx(ctx, func(tx Records) error {
		r := tx.(records)
		stmts := sqliteSchema
		if d.driver == DriverPostgres {
			stmts = postgresSchema
		}
		for _, stmt := range stmts {
			if _, err := r.q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration: %w", err)
			}
		}

		upsert := d.dialect.Insert(tableMeta).
			Rows(goqu.Record{"key": "schema_version", "value": fmt.Sprint(schemaVersion)}).
			OnConflict(goqu.DoUpdate("key", goqu.Record{"value": fmt.Sprint(schemaVersion)})).
			Prepared(true)
		if _, err := r.exec(ctx, upsert); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}

		d.logger.InfoContext(ctx, logMsgMigrated, logAttrVersion, schemaVersion, logAttrDriver, d.driver)
		return nil
	})
}

// ---------------------------------------------------------------------------
// Records over a *sqlx.DB or a *sqlx.Tx
// ---------------------------------------------------------------------------

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

type records struct {
	q        sqlx.ExtContext
	dialect  goqu.DialectWrapper
	driver   string
	logger   Logger
	lockRows bool
}

func (r records) get(ctx context.Context, dest interface{}, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	start := time.Now()
	err = sqlx.GetContext(ctx, r.q, dest, query, args...)
	r.logQuery(ctx, query, time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	return errors.Wrap(err, "query row")
}

func (r records) selectAll(ctx context.Context, dest interface{}, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return errors.Wrap(err, "build query")
	}
	start := time.Now()
	err = sqlx.SelectContext(ctx, r.q, dest, query, args...)
	r.logQuery(ctx, query, time.Since(start))
	return errors.Wrap(err, "query rows")
}

func (r records) exec(ctx context.Context, ds sqlBuilder) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "build statement")
	}
	start := time.Now()
	res, err := r.q.ExecContext(ctx, query, args...)
	r.logQuery(ctx, query, time.Since(start))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.Wrap(errUniqueViolation, err.Error())
		}
		return 0, errors.Wrap(err, "exec statement")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "rows affected")
}

// insert runs ds and returns the generated id. PostgreSQL reports it through
// RETURNING; SQLite through LastInsertId.
func (r records) insert(ctx context.Context, ds *goqu.InsertDataset) (int64, error) {
	if r.driver == DriverPostgres {
		var id int64
		query, args, err := ds.Returning("id").Prepared(true).ToSQL()
		if err != nil {
			return 0, errors.Wrap(err, "build insert")
		}
		start := time.Now()
		err = sqlx.GetContext(ctx, r.q, &id, query, args...)
		r.logQuery(ctx, query, time.Since(start))
		if err != nil {
			if isUniqueViolation(err) {
				return 0, errors.Wrap(errUniqueViolation, err.Error())
			}
			return 0, errors.Wrap(err, "insert")
		}
		return id, nil
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "build insert")
	}
	start := time.Now()
	res, err := r.q.ExecContext(ctx, query, args...)
	r.logQuery(ctx, query, time.Since(start))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.Wrap(errUniqueViolation, err.Error())
		}
		return 0, errors.Wrap(err, "insert")
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "last insert id")
}

// from starts a prepared select; byID adds FOR UPDATE inside PostgreSQL
// transactions.
func (r records) from(table string, cols []interface{}) *goqu.SelectDataset {
	return r.dialect.From(table).Select(cols...).Prepared(true)
}

func (r records) byID(table string, cols []interface{}, id int64) *goqu.SelectDataset {
	ds := r.from(table, cols).Where(goqu.Ex{"id": id})
	if r.lockRows {
		ds = ds.ForUpdate(exp.Wait)
	}
	return ds
}

func (r records) logQuery(ctx context.Context, query string, d time.Duration) {
	r.logger.DebugContext(ctx, logMsgSQLExecuted,
		logAttrQuery, query,
		logAttrDurationMS, math.Round(float64(d.Nanoseconds())/1e6*1000)/1000)
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// ------------------ Members ------------------

func (r records) FindMemberByID(ctx context.Context, id int64) (*Member, error) {
	var m Member
	if err := r.get(ctx, &m, r.byID(tableMembers, memberColumns, id)); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r records) ExistsMember(ctx context.Context, id int64) (bool, error) {
	var n int64
	ds := r.dialect.From(tableMembers).Select(goqu.COUNT("*")).Where(goqu.Ex{"id": id}).Prepared(true)
	if err := r.get(ctx, &n, ds); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r records) FindMemberByEmail(ctx context.Context, email string) (*Member, error) {
	var m Member
	if err := r.get(ctx, &m, r.from(tableMembers, memberColumns).Where(goqu.Ex{"email": email})); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r records) ListMembers(ctx context.Context) ([]Member, error) {
	members := []Member{}
	ds := r.from(tableMembers, memberColumns).Order(goqu.I("id").Asc())
	if err := r.selectAll(ctx, &members, ds); err != nil {
		return nil, err
	}
	return members, nil
}

func (r records) SaveMember(ctx context.Context, m *Member) (*Member, error) {
	saved := *m
	saved.Profile = nil
	row := goqu.Record{
		"name":              m.Name,
		"email":             m.Email,
		"phone":             m.Phone,
		"registration_date": m.RegistrationDate,
	}
	if m.ID == 0 {
		id, err := r.insert(ctx, r.dialect.Insert(tableMembers).Rows(row))
		if err != nil {
			return nil, err
		}
		saved.ID = id
		return &saved, nil
	}
	n, err := r.exec(ctx, r.dialect.Update(tableMembers).Set(row).Where(goqu.Ex{"id": m.ID}).Prepared(true))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrRecordNotFound
	}
	return &saved, nil
}

func (r records) DeleteMember(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, r.dialect.Delete(tableMembers).Where(goqu.Ex{"id": id}).Prepared(true))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ------------------ Profiles ------------------

func (r records) FindProfileByMember(ctx context.Context, memberID int64) (*Profile, error) {
	var p Profile
	if err := r.get(ctx, &p, r.from(tableProfiles, profileColumns).Where(goqu.Ex{"member_id": memberID})); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r records) SaveProfile(ctx context.Context, p *Profile) (*Profile, error) {
	saved := *p
	row := goqu.Record{
		"member_id":           p.MemberID,
		"address":             p.Address,
		"city":                p.City,
		"postal_code":         p.PostalCode,
		"reading_preferences": p.ReadingPreferences,
	}
	if p.ID == 0 {
		id, err := r.insert(ctx, r.dialect.Insert(tableProfiles).Rows(row))
		if err != nil {
			return nil, err
		}
		saved.ID = id
		return &saved, nil
	}
	n, err := r.exec(ctx, r.dialect.Update(tableProfiles).Set(row).Where(goqu.Ex{"id": p.ID}).Prepared(true))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrRecordNotFound
	}
	return &saved, nil
}

func (r records) DeleteProfileByMember(ctx context.Context, memberID int64) error {
	_, err := r.exec(ctx, r.dialect.Delete(tableProfiles).Where(goqu.Ex{"member_id": memberID}).Prepared(true))
	return err
}

// ------------------ Books ------------------

func (r records) FindBookByID(ctx context.Context, id int64) (*Book, error) {
	var b Book
	if err := r.get(ctx, &b, r.byID(tableBooks, bookColumns, id)); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r records) FindBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	var b Book
	if err := r.get(ctx, &b, r.from(tableBooks, bookColumns).Where(goqu.Ex{"isbn": isbn})); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r records) ListBooks(ctx context.Context, f BookFilter) ([]Book, error) {
	ds := r.from(tableBooks, bookColumns).Order(goqu.I("id").Asc())
	if f.Available != nil {
		ds = ds.Where(goqu.C("available").Eq(*f.Available))
	}
	if f.Genre != "" {
		ds = ds.Where(goqu.Ex{"genre": f.Genre})
	}
	if f.Author != "" {
		ds = ds.Where(goqu.Ex{"author": f.Author})
	}
	books := []Book{}
	if err := r.selectAll(ctx, &books, ds); err != nil {
		return nil, err
	}
	return books, nil
}

func (r records) SaveBook(ctx context.Context, b *Book) (*Book, error) {
	saved := *b
	row := goqu.Record{
		"title":            b.Title,
		"isbn":             b.ISBN,
		"author":           b.Author,
		"publication_year": nullableInt(b.PublicationYear),
		"genre":            b.Genre,
		"available":        b.Available,
	}
	if b.ID == 0 {
		id, err := r.insert(ctx, r.dialect.Insert(tableBooks).Rows(row))
		if err != nil {
			return nil, err
		}
		saved.ID = id
		return &saved, nil
	}
	n, err := r.exec(ctx, r.dialect.Update(tableBooks).Set(row).Where(goqu.Ex{"id": b.ID}).Prepared(true))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrRecordNotFound
	}
	return &saved, nil
}

func (r records) DeleteBook(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, r.dialect.Delete(tableBooks).Where(goqu.Ex{"id": id}).Prepared(true))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ------------------ Loans ------------------

func (r records) FindLoanByID(ctx context.Context, id int64) (*Loan, error) {
	var l Loan
	if err := r.get(ctx, &l, r.byID(tableLoans, loanColumns, id)); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r records) FindLoansByMemberAndState(ctx context.Context, memberID int64, state LoanState) ([]Loan, error) {
	return r.ListLoans(ctx, LoanFilter{MemberID: memberID, State: state})
}

func (r records) ListLoans(ctx context.Context, f LoanFilter) ([]Loan, error) {
	ds := r.from(tableLoans, loanColumns).Where(loanWhere(f)...).Order(goqu.I("id").Asc())
	loans := []Loan{}
	if err := r.selectAll(ctx, &loans, ds); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r records) SaveLoan(ctx context.Context, l *Loan) (*Loan, error) {
	saved := *l
	row := goqu.Record{
		"member_id":   l.MemberID,
		"book_id":     l.BookID,
		"loan_date":   l.LoanDate,
		"return_date": nullableTime(l.ReturnDate),
		"state":       string(l.State),
	}
	if l.ID == 0 {
		id, err := r.insert(ctx, r.dialect.Insert(tableLoans).Rows(row))
		if err != nil {
			return nil, err
		}
		saved.ID = id
		return &saved, nil
	}
	n, err := r.exec(ctx, r.dialect.Update(tableLoans).Set(row).Where(goqu.Ex{"id": l.ID}).Prepared(true))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrRecordNotFound
	}
	return &saved, nil
}

func (r records) DeleteLoan(ctx context.Context, id int64) error {
	n, err := r.exec(ctx, r.dialect.Delete(tableLoans).Where(goqu.Ex{"id": id}).Prepared(true))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteLoans removes every loan matching f. An empty filter is rejected
// rather than clearing the table.
func (r records) DeleteLoans(ctx context.Context, f LoanFilter) (int64, error) {
	where := loanWhere(f)
	if len(where) == 0 {
		return 0, errors.New("delete loans: empty filter")
	}
	return r.exec(ctx, r.dialect.Delete(tableLoans).Where(where...).Prepared(true))
}

func loanWhere(f LoanFilter) []exp.Expression {
	var where []exp.Expression
	if f.MemberID != 0 {
		where = append(where, goqu.Ex{"member_id": f.MemberID})
	}
	if f.BookID != 0 {
		where = append(where, goqu.Ex{"book_id": f.BookID})
	}
	if f.State != "" {
		where = append(where, goqu.Ex{"state": string(f.State)})
	}
	return where
}
