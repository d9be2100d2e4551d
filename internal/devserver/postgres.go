package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/talenorix/candidate-portal/internal/dbx"
	"github.com/talenorix/candidate-portal/internal/devserver/migrations"
)

// PostgresStore implements Store over database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and applies the embedded migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.runMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.UpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string, meta map[string]string) (*User, error) {
	user := &User{Email: email, PasswordHash: passwordHash}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id`,
			email, passwordHash).Scan(&user.ID)
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return ErrDuplicate
			}
			return err
		}

		// The hosted backend seeds the identity row with a trigger; here it is
		// part of the same transaction.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (id, email, first_name, middle_name, last_name, second_last_name)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID, email, meta["first_name"], meta["middle_name"], meta["last_name"], meta["second_last_name"])
		return err
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = $1`,
		email).Scan(&user.ID, &user.Email, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// Select reads matching rows. Table and column names come from the schema
// whitelist, never from the request, so building SQL by concatenation here
// is safe.
func (s *PostgresStore) Select(ctx context.Context, table string, columns []string, filters []Filter, orderBy string, asc bool) ([]map[string]any, error) {
	schema, ok := schemaFor(table)
	if !ok {
		return nil, ErrNotFound
	}
	cols := sanitizeColumns(schema, columns)

	var b strings.Builder
	args := make([]any, 0, len(filters))
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), table)
	writeWhere(&b, schema, filters, &args)
	if orderBy != "" && schema.hasColumn(orderBy) {
		dir := "DESC"
		if asc {
			dir = "ASC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", orderBy, dir)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		row := map[string]any{}
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Insert(ctx context.Context, table string, rows []map[string]any) ([]map[string]any, error) {
	return s.write(ctx, table, rows, "")
}

func (s *PostgresStore) Upsert(ctx context.Context, table string, rows []map[string]any, conflictKey string) ([]map[string]any, error) {
	return s.write(ctx, table, rows, conflictKey)
}

// write inserts each row, optionally with ON CONFLICT ... DO UPDATE on
// conflictKey, and returns the resulting rows.
func (s *PostgresStore) write(ctx context.Context, table string, rows []map[string]any, conflictKey string) ([]map[string]any, error) {
	schema, ok := schemaFor(table)
	if !ok {
		return nil, ErrNotFound
	}
	if conflictKey != "" && !schema.hasColumn(conflictKey) {
		return nil, fmt.Errorf("unknown conflict key %q", conflictKey)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		cols := make([]string, 0, len(row))
		args := make([]any, 0, len(row))
		ph := make([]string, 0, len(row))
		for _, c := range schema.Columns {
			v, present := row[c]
			if !present || c == "created_at" {
				continue
			}
			cols = append(cols, c)
			args = append(args, v)
			ph = append(ph, fmt.Sprintf("$%d", len(args)))
		}
		if len(cols) == 0 {
			continue
		}

		var b strings.Builder
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
		if conflictKey != "" {
			sets := make([]string, 0, len(cols))
			for _, c := range cols {
				if c == conflictKey || c == "id" {
					continue
				}
				sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
			}
			if len(sets) == 0 {
				sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", conflictKey, conflictKey))
			}
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", conflictKey, strings.Join(sets, ", "))
		}
		b.WriteString(" RETURNING " + strings.Join(schema.Columns, ", "))

		vals := make([]any, len(schema.Columns))
		ptrs := make([]any, len(schema.Columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := s.db.QueryRowContext(ctx, b.String(), args...).Scan(ptrs...); err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				return nil, ErrDuplicate
			}
			return nil, fmt.Errorf("db error: %w", err)
		}
		res := map[string]any{}
		for i, c := range schema.Columns {
			res[c] = normalizeValue(vals[i])
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, table string, filters []Filter) (int64, error) {
	schema, ok := schemaFor(table)
	if !ok {
		return 0, ErrNotFound
	}
	if len(filters) == 0 {
		return 0, fmt.Errorf("unfiltered delete refused")
	}

	var b strings.Builder
	args := make([]any, 0, len(filters))
	fmt.Fprintf(&b, "DELETE FROM %s", table)
	writeWhere(&b, schema, filters, &args)

	res, err := s.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func writeWhere(b *strings.Builder, schema tableSchema, filters []Filter, args *[]any) {
	wrote := false
	for _, f := range filters {
		if !schema.hasColumn(f.Column) {
			continue
		}
		if wrote {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" WHERE ")
			wrote = true
		}
		*args = append(*args, f.Value)
		fmt.Fprintf(b, "%s::text = $%d", f.Column, len(*args))
	}
}

func sanitizeColumns(schema tableSchema, requested []string) []string {
	if len(requested) == 0 {
		return schema.Columns
	}
	cols := make([]string, 0, len(requested))
	for _, c := range requested {
		if schema.hasColumn(c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return schema.Columns
	}
	return cols
}

// normalizeValue maps driver values onto JSON-friendly types.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case int32:
		return int64(t)
	default:
		return v
	}
}
