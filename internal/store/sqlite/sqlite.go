package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode. The URI parameters give better concurrency for read-heavy use.
func Open(path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var memSeq atomic.Int64

// OpenMemory opens a fresh private in-memory database, used by tests and
// conciergectl dry runs. Each call returns an independent database; shared
// cache keeps it alive across the connection pool.
func OpenMemory() (*sql.DB, error) {
	name := fmt.Sprintf("memdb%d", memSeq.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)", name)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates core tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS Users (
            UserId TEXT PRIMARY KEY,
            Email TEXT NOT NULL UNIQUE,
            DisplayName TEXT,
            HashedPassword TEXT NOT NULL,
            CreationTime TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS Contacts (
            UserId TEXT NOT NULL,
            ContactId TEXT NOT NULL,
            Name TEXT NOT NULL,
            Relationship TEXT,
            AgeBand TEXT,
            Interests TEXT,
            Constraints TEXT,
            Notes TEXT,
            IsCoreContact BOOLEAN NOT NULL DEFAULT 1,
            NetworkLevel INTEGER NOT NULL DEFAULT 1,
            Street TEXT, City TEXT, State TEXT, PostalCode TEXT, Country TEXT,
            FormattedAddress TEXT,
            AddressStatus TEXT NOT NULL DEFAULT 'unvalidated',
            CreationTime TIMESTAMP NOT NULL,
            UpdateTime TIMESTAMP NOT NULL,
            PRIMARY KEY(UserId, ContactId)
        );`,
		`CREATE TABLE IF NOT EXISTS Occasions (
            UserId TEXT NOT NULL,
            OccasionId TEXT NOT NULL,
            ContactId TEXT NOT NULL,
            Name TEXT NOT NULL,
            OccasionType TEXT,
            Date TIMESTAMP,
            BudgetRange TEXT,
            Status TEXT NOT NULL,
            CreationTime TIMESTAMP NOT NULL,
            PRIMARY KEY(UserId, OccasionId)
        );`,
		`CREATE INDEX IF NOT EXISTS Occasions_Contact_Idx ON Occasions(UserId, ContactId);`,
		`CREATE TABLE IF NOT EXISTS RelationshipEdges (
            UserId TEXT NOT NULL,
            EdgeId TEXT NOT NULL,
            FromContactId TEXT NOT NULL,
            ToContactId TEXT NOT NULL,
            RelationshipType TEXT NOT NULL,
            Bidirectional BOOLEAN NOT NULL DEFAULT 0,
            CreationTime TIMESTAMP NOT NULL,
            PRIMARY KEY(UserId, EdgeId),
            UNIQUE(UserId, FromContactId, ToContactId)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// NewWithDB constructs a SQLite store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Users() store.Users                 { return &users{db: s.db} }
func (s *sqliteStore) Contacts() store.Contacts           { return &contacts{db: s.db} }
func (s *sqliteStore) Occasions() store.Occasions         { return &occasions{db: s.db} }
func (s *sqliteStore) Relationships() store.Relationships { return &relationships{db: s.db} }

// HealthPing implements health checking for the SQLite-backed store.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	out := *m
	if out.UserID == "" {
		out.UserID = uuid.New().String()
	}
	out.CreationTime = time.Now().UTC()
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO Users (UserId, Email, DisplayName, HashedPassword, CreationTime) VALUES (?,?,?,?,?)`,
		out.UserID, out.Email, out.DisplayName, out.HashedPassword, out.CreationTime)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, model.NewConflictError("email", "email already registered")
		}
		return nil, err
	}
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx,
		`SELECT UserId, Email, DisplayName, HashedPassword, CreationTime FROM Users WHERE UserId = ?`, userID)
	return scanUser(row)
}

func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx,
		`SELECT UserId, Email, DisplayName, HashedPassword, CreationTime FROM Users WHERE Email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var m model.User
	var display sql.NullString
	err := row.Scan(&m.UserID, &m.Email, &display, &m.HashedPassword, &m.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.DisplayName = display.String
	return &m, nil
}

// --- Contacts ---

type contacts struct{ db *sql.DB }

const contactCols = `UserId, ContactId, Name, Relationship, AgeBand, Interests, Constraints, Notes,
    IsCoreContact, NetworkLevel, Street, City, State, PostalCode, Country, FormattedAddress,
    AddressStatus, CreationTime, UpdateTime`

func (c *contacts) Create(ctx context.Context, m *model.Contact) (*model.Contact, error) {
	out := *m
	if out.ContactID == "" {
		out.ContactID = uuid.New().String()
	}
	if out.AddressStatus == "" {
		out.AddressStatus = model.AddressUnvalidated
	}
	if out.NetworkLevel == 0 {
		out.NetworkLevel = 1
	}
	now := time.Now().UTC()
	out.CreationTime = now
	out.UpdateTime = now

	interests, _ := json.Marshal(out.Interests)
	constraints, _ := json.Marshal(out.Constraints)

	_, err := c.db.ExecContext(ctx, `INSERT INTO Contacts (`+contactCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		out.UserID, out.ContactID, out.Name, out.Relationship, out.AgeBand,
		string(interests), string(constraints), out.Notes,
		out.IsCoreContact, out.NetworkLevel,
		out.Address.Street, out.Address.City, out.Address.State, out.Address.PostalCode, out.Address.Country,
		out.Address.Formatted, string(out.AddressStatus), out.CreationTime, out.UpdateTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *contacts) Get(ctx context.Context, userID, contactID string) (*model.Contact, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+contactCols+` FROM Contacts WHERE UserId = ? AND ContactId = ?`, userID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, model.ErrNotFound
	}
	return scanContact(rows)
}

func (c *contacts) List(ctx context.Context, userID string) ([]*model.Contact, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+contactCols+` FROM Contacts WHERE UserId = ? ORDER BY CreationTime`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Contact
	for rows.Next() {
		m, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *contacts) FindByName(ctx context.Context, userID, name string, mode store.NameMatch) (*model.Contact, error) {
	if mode == store.MatchExact {
		rows, err := c.db.QueryContext(ctx,
			`SELECT `+contactCols+` FROM Contacts WHERE UserId = ? AND lower(Name) = lower(?)`, userID, name)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		if !rows.Next() {
			return nil, model.ErrNotFound
		}
		return scanContact(rows)
	}

	// Substring containment in either direction is easier to express in Go
	// than in portable SQL; contact lists are small by invariant.
	list, err := c.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, m := range list {
		have := strings.ToLower(m.Name)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return m, nil
		}
	}
	return nil, model.ErrNotFound
}

func (c *contacts) Update(ctx context.Context, m *model.Contact) (*model.Contact, error) {
	out := *m
	out.UpdateTime = time.Now().UTC()
	interests, _ := json.Marshal(out.Interests)
	constraints, _ := json.Marshal(out.Constraints)

	res, err := c.db.ExecContext(ctx, `UPDATE Contacts SET
        Name = ?, Relationship = ?, AgeBand = ?, Interests = ?, Constraints = ?, Notes = ?,
        IsCoreContact = ?, NetworkLevel = ?, Street = ?, City = ?, State = ?, PostalCode = ?,
        Country = ?, FormattedAddress = ?, AddressStatus = ?, UpdateTime = ?
        WHERE UserId = ? AND ContactId = ?`,
		out.Name, out.Relationship, out.AgeBand, string(interests), string(constraints), out.Notes,
		out.IsCoreContact, out.NetworkLevel,
		out.Address.Street, out.Address.City, out.Address.State, out.Address.PostalCode, out.Address.Country,
		out.Address.Formatted, string(out.AddressStatus), out.UpdateTime,
		out.UserID, out.ContactID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return &out, nil
}

func (c *contacts) Delete(ctx context.Context, userID, contactID string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM Occasions WHERE UserId = ? AND ContactId = ?`, userID, contactID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM RelationshipEdges WHERE UserId = ? AND (FromContactId = ? OR ToContactId = ?)`, userID, contactID, contactID); err != nil {
		_ = tx.Rollback()
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM Contacts WHERE UserId = ? AND ContactId = ?`, userID, contactID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return model.ErrNotFound
	}
	return tx.Commit()
}

func (c *contacts) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Contacts WHERE UserId = ?`, userID).Scan(&n)
	return n, err
}

func scanContact(rows *sql.Rows) (*model.Contact, error) {
	var m model.Contact
	var rel, age, interests, constraints, notes sql.NullString
	var street, city, state, postal, country, formatted sql.NullString
	var status string
	if err := rows.Scan(&m.UserID, &m.ContactID, &m.Name, &rel, &age, &interests, &constraints, &notes,
		&m.IsCoreContact, &m.NetworkLevel, &street, &city, &state, &postal, &country, &formatted,
		&status, &m.CreationTime, &m.UpdateTime); err != nil {
		return nil, err
	}
	m.Relationship = rel.String
	m.AgeBand = age.String
	m.Notes = notes.String
	if interests.String != "" {
		_ = json.Unmarshal([]byte(interests.String), &m.Interests)
	}
	if constraints.String != "" {
		_ = json.Unmarshal([]byte(constraints.String), &m.Constraints)
	}
	m.Address = model.Address{
		Street: street.String, City: city.String, State: state.String,
		PostalCode: postal.String, Country: country.String, Formatted: formatted.String,
	}
	m.AddressStatus = model.AddressStatus(status)
	return &m, nil
}

// --- Occasions ---

type occasions struct{ db *sql.DB }

func (o *occasions) Create(ctx context.Context, m *model.Occasion) (*model.Occasion, error) {
	out := *m
	if out.OccasionID == "" {
		out.OccasionID = uuid.New().String()
	}
	if out.Status == "" {
		out.Status = model.OccasionIdeaNeeded
	}
	out.CreationTime = time.Now().UTC()
	_, err := o.db.ExecContext(ctx, `INSERT INTO Occasions
        (UserId, OccasionId, ContactId, Name, OccasionType, Date, BudgetRange, Status, CreationTime)
        VALUES (?,?,?,?,?,?,?,?,?)`,
		out.UserID, out.OccasionID, out.ContactID, out.Name, out.OccasionType, out.Date,
		out.BudgetRange, string(out.Status), out.CreationTime)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (o *occasions) ListByContact(ctx context.Context, userID, contactID string) ([]*model.Occasion, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT OccasionId, Name, OccasionType, Date, BudgetRange, Status, CreationTime
        FROM Occasions WHERE UserId = ? AND ContactId = ? ORDER BY CreationTime`, userID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Occasion
	for rows.Next() {
		var m model.Occasion
		m.UserID = userID
		m.ContactID = contactID
		var otype, budget sql.NullString
		var date sql.NullTime
		var status string
		if err := rows.Scan(&m.OccasionID, &m.Name, &otype, &date, &budget, &status, &m.CreationTime); err != nil {
			return nil, err
		}
		m.OccasionType = otype.String
		m.BudgetRange = budget.String
		if date.Valid {
			d := date.Time
			m.Date = &d
		}
		m.Status = model.OccasionStatus(status)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (o *occasions) UpdateStatus(ctx context.Context, userID, occasionID string, status model.OccasionStatus) error {
	res, err := o.db.ExecContext(ctx, `UPDATE Occasions SET Status = ? WHERE UserId = ? AND OccasionId = ?`,
		string(status), userID, occasionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Relationship edges ---

type relationships struct{ db *sql.DB }

func (r *relationships) Create(ctx context.Context, m *model.RelationshipEdge) (*model.RelationshipEdge, error) {
	out := *m
	if out.EdgeID == "" {
		out.EdgeID = uuid.New().String()
	}
	out.CreationTime = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO RelationshipEdges
        (UserId, EdgeId, FromContactId, ToContactId, RelationshipType, Bidirectional, CreationTime)
        VALUES (?,?,?,?,?,?,?)`,
		out.UserID, out.EdgeID, out.FromContactID, out.ToContactID, out.RelationshipType,
		out.Bidirectional, out.CreationTime)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, model.NewConflictError("edge", "relationship already exists")
		}
		return nil, err
	}
	return &out, nil
}

func (r *relationships) Find(ctx context.Context, userID, fromID, toID string) (*model.RelationshipEdge, error) {
	row := r.db.QueryRowContext(ctx, `SELECT EdgeId, RelationshipType, Bidirectional, CreationTime
        FROM RelationshipEdges WHERE UserId = ? AND FromContactId = ? AND ToContactId = ?`, userID, fromID, toID)
	var m model.RelationshipEdge
	m.UserID = userID
	m.FromContactID = fromID
	m.ToContactID = toID
	err := row.Scan(&m.EdgeID, &m.RelationshipType, &m.Bidirectional, &m.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *relationships) ListByContact(ctx context.Context, userID, contactID string) ([]*model.RelationshipEdge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT EdgeId, FromContactId, ToContactId, RelationshipType, Bidirectional, CreationTime
        FROM RelationshipEdges WHERE UserId = ? AND (FromContactId = ? OR ToContactId = ?)`, userID, contactID, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.RelationshipEdge
	for rows.Next() {
		var m model.RelationshipEdge
		m.UserID = userID
		if err := rows.Scan(&m.EdgeID, &m.FromContactID, &m.ToContactID, &m.RelationshipType, &m.Bidirectional, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
