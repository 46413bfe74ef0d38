package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/platformer/internal/game/profile"
)

const profileColumns = `username, password_hash, experience, level, last_room, last_x, last_y, strength, max_health`

// ProfileRepository implements profile.Store on the profiles table.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a ProfileRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (profile.Profile, error) {
	var p profile.Profile
	err := row.Scan(&p.Username, &p.PasswordHash, &p.Experience, &p.Level,
		&p.LastRoom, &p.LastX, &p.LastY, &p.Strength, &p.MaxHealth)
	return p, err
}

// Register inserts a profile with default attributes and a bcrypt-hashed password.
//
// Postcondition: Returns profile.ErrExists if the username is taken.
func (r *ProfileRepository) Register(ctx context.Context, username, password string) (profile.Profile, error) {
	if username == "" || password == "" {
		return profile.Profile{}, profile.ErrMissingCredentials
	}
	hash, err := profile.HashPassword(password)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("hashing password: %w", err)
	}
	d := profile.NewProfile(username, hash)

	p, err := scanProfile(r.db.QueryRow(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+profileColumns,
		d.Username, d.PasswordHash, d.Experience, d.Level, d.LastRoom, d.LastX, d.LastY, d.Strength, d.MaxHealth,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return profile.Profile{}, profile.ErrExists
		}
		return profile.Profile{}, fmt.Errorf("inserting profile: %w", err)
	}
	return p, nil
}

// Login verifies credentials and returns the profile.
//
// Postcondition: Returns profile.ErrNotFound or profile.ErrInvalidCredentials on failure.
func (r *ProfileRepository) Login(ctx context.Context, username, password string) (profile.Profile, error) {
	p, err := r.Get(ctx, username)
	if err != nil {
		return profile.Profile{}, err
	}
	if !profile.CheckPassword(password, p.PasswordHash) {
		return profile.Profile{}, profile.ErrInvalidCredentials
	}
	return p, nil
}

// Get returns the profile for username.
//
// Postcondition: Returns profile.ErrNotFound if no row matches.
func (r *ProfileRepository) Get(ctx context.Context, username string) (profile.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("querying profile: %w", err)
	}
	return p, nil
}

// Update writes the non-nil fields of u.
//
// Postcondition: Returns profile.ErrNotFound if no row matches. An empty update
// only checks existence.
func (r *ProfileRepository) Update(ctx context.Context, username string, u profile.Update) error {
	if u.Empty() {
		_, err := r.Get(ctx, username)
		return err
	}
	sets, args := updateClauses(u)
	args = append(args, username)
	query := fmt.Sprintf(`UPDATE profiles SET %s, updated_at = NOW() WHERE username = $%d`,
		strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}

// updateClauses builds the SET list for u with positional placeholders from $1.
func updateClauses(u profile.Update) ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Experience != nil {
		add("experience", *u.Experience)
	}
	if u.Level != nil {
		add("level", *u.Level)
	}
	if u.LastRoom != nil {
		add("last_room", *u.LastRoom)
	}
	if u.LastX != nil {
		add("last_x", *u.LastX)
	}
	if u.LastY != nil {
		add("last_y", *u.LastY)
	}
	if u.Strength != nil {
		add("strength", *u.Strength)
	}
	if u.MaxHealth != nil {
		add("max_health", *u.MaxHealth)
	}
	return sets, args
}

// isDuplicateKeyError reports whether err is a unique constraint violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
