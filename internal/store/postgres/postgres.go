package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users                 { return &users{db: s.db} }
func (s *pgStore) Contacts() store.Contacts           { return &contacts{db: s.db} }
func (s *pgStore) Occasions() store.Occasions         { return &occasions{db: s.db} }
func (s *pgStore) Relationships() store.Relationships { return &relationships{db: s.db} }

// HealthPing implements health checking for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates core tables if they do not exist. Deployments normally
// run migrations out of band; this keeps dev setups one-command.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            user_id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            display_name TEXT,
            hashed_password TEXT NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE TABLE IF NOT EXISTS contacts (
            user_id TEXT NOT NULL,
            contact_id TEXT NOT NULL,
            name TEXT NOT NULL,
            relationship TEXT,
            age_band TEXT,
            interests JSONB,
            constraints JSONB,
            notes TEXT,
            is_core_contact BOOLEAN NOT NULL DEFAULT TRUE,
            network_level INT NOT NULL DEFAULT 1,
            street TEXT, city TEXT, state TEXT, postal_code TEXT, country TEXT,
            formatted_address TEXT,
            address_status TEXT NOT NULL DEFAULT 'unvalidated',
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            update_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (user_id, contact_id)
        );`,
		`CREATE TABLE IF NOT EXISTS occasions (
            user_id TEXT NOT NULL,
            occasion_id TEXT NOT NULL,
            contact_id TEXT NOT NULL,
            name TEXT NOT NULL,
            occasion_type TEXT,
            date TIMESTAMPTZ,
            budget_range TEXT,
            status TEXT NOT NULL,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (user_id, occasion_id)
        );`,
		`CREATE INDEX IF NOT EXISTS occasions_contact_idx ON occasions (user_id, contact_id);`,
		`CREATE TABLE IF NOT EXISTS relationship_edges (
            user_id TEXT NOT NULL,
            edge_id TEXT NOT NULL,
            from_contact_id TEXT NOT NULL,
            to_contact_id TEXT NOT NULL,
            relationship_type TEXT NOT NULL,
            bidirectional BOOLEAN NOT NULL DEFAULT FALSE,
            creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (user_id, edge_id),
            UNIQUE (user_id, from_contact_id, to_contact_id)
        );`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	out := *m
	if out.UserID == "" {
		out.UserID = uuid.New().String()
	}
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (user_id, email, display_name, hashed_password)
        VALUES ($1,$2,$3,$4)
        RETURNING creation_time
    `, out.UserID, out.Email, out.DisplayName, out.HashedPassword)
	if err := row.Scan(&out.CreationTime); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, model.NewConflictError("email", "email already registered")
		}
		return nil, err
	}
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, hashed_password, creation_time
        FROM users WHERE user_id = $1
    `, userID)
	return scanUser(row)
}

func (u *users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, hashed_password, creation_time
        FROM users WHERE email = $1
    `, email)
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

const contactCols = `user_id, contact_id, name, relationship, age_band, interests, constraints, notes,
    is_core_contact, network_level, street, city, state, postal_code, country, formatted_address,
    address_status, creation_time, update_time`

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
	interests, _ := json.Marshal(out.Interests)
	constraints, _ := json.Marshal(out.Constraints)
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO contacts (user_id, contact_id, name, relationship, age_band, interests, constraints,
            notes, is_core_contact, network_level, street, city, state, postal_code, country,
            formatted_address, address_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING creation_time, update_time
    `, out.UserID, out.ContactID, out.Name, out.Relationship, out.AgeBand,
		string(interests), string(constraints), out.Notes, out.IsCoreContact, out.NetworkLevel,
		out.Address.Street, out.Address.City, out.Address.State, out.Address.PostalCode, out.Address.Country,
		out.Address.Formatted, string(out.AddressStatus))
	if err := row.Scan(&out.CreationTime, &out.UpdateTime); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *contacts) Get(ctx context.Context, userID, contactID string) (*model.Contact, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+contactCols+` FROM contacts WHERE user_id = $1 AND contact_id = $2`, userID, contactID)
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
	rows, err := c.db.QueryContext(ctx, `SELECT `+contactCols+` FROM contacts WHERE user_id = $1 ORDER BY creation_time`, userID)
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
		rows, err := c.db.QueryContext(ctx, `SELECT `+contactCols+` FROM contacts WHERE user_id = $1 AND lower(name) = lower($2)`, userID, name)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		if !rows.Next() {
			return nil, model.ErrNotFound
		}
		return scanContact(rows)
	}
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
	res, err := c.db.ExecContext(ctx, `UPDATE contacts SET
        name=$1, relationship=$2, age_band=$3, interests=$4, constraints=$5, notes=$6,
        is_core_contact=$7, network_level=$8, street=$9, city=$10, state=$11, postal_code=$12,
        country=$13, formatted_address=$14, address_status=$15, update_time=$16
        WHERE user_id=$17 AND contact_id=$18`,
		out.Name, out.Relationship, out.AgeBand, string(interests), string(constraints), out.Notes,
		out.IsCoreContact, out.NetworkLevel,
		out.Address.Street, out.Address.City, out.Address.State, out.Address.PostalCode,
		out.Address.Country, out.Address.Formatted, string(out.AddressStatus), out.UpdateTime,
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
	if _, err := tx.ExecContext(ctx, `DELETE FROM occasions WHERE user_id=$1 AND contact_id=$2`, userID, contactID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relationship_edges WHERE user_id=$1 AND (from_contact_id=$2 OR to_contact_id=$2)`, userID, contactID); err != nil {
		_ = tx.Rollback()
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE user_id=$1 AND contact_id=$2`, userID, contactID)
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
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE user_id=$1`, userID).Scan(&n)
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
	row := o.db.QueryRowContext(ctx, `
        INSERT INTO occasions (user_id, occasion_id, contact_id, name, occasion_type, date, budget_range, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING creation_time
    `, out.UserID, out.OccasionID, out.ContactID, out.Name, out.OccasionType, out.Date, out.BudgetRange, string(out.Status))
	if err := row.Scan(&out.CreationTime); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o *occasions) ListByContact(ctx context.Context, userID, contactID string) ([]*model.Occasion, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT occasion_id, name, occasion_type, date, budget_range, status, creation_time
        FROM occasions WHERE user_id=$1 AND contact_id=$2 ORDER BY creation_time`, userID, contactID)
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
	res, err := o.db.ExecContext(ctx, `UPDATE occasions SET status=$1 WHERE user_id=$2 AND occasion_id=$3`,
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
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO relationship_edges (user_id, edge_id, from_contact_id, to_contact_id, relationship_type, bidirectional)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING creation_time
    `, out.UserID, out.EdgeID, out.FromContactID, out.ToContactID, out.RelationshipType, out.Bidirectional)
	if err := row.Scan(&out.CreationTime); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, model.NewConflictError("edge", "relationship already exists")
		}
		return nil, err
	}
	return &out, nil
}

func (r *relationships) Find(ctx context.Context, userID, fromID, toID string) (*model.RelationshipEdge, error) {
	row := r.db.QueryRowContext(ctx, `SELECT edge_id, relationship_type, bidirectional, creation_time
        FROM relationship_edges WHERE user_id=$1 AND from_contact_id=$2 AND to_contact_id=$3`, userID, fromID, toID)
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
	rows, err := r.db.QueryContext(ctx, `SELECT edge_id, from_contact_id, to_contact_id, relationship_type, bidirectional, creation_time
        FROM relationship_edges WHERE user_id=$1 AND (from_contact_id=$2 OR to_contact_id=$2)`, userID, contactID)
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
