package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stevenvinci05/portfolio/internal/store/migrations"
	"github.com/stevenvinci05/portfolio/pkg/models"
)

// ErrNotFound is returned by mutations that target a missing row.
var ErrNotFound = errors.New("not found")

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
	url  string
}

// ProjectStore persists portfolio projects.
type ProjectStore interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	FeaturedProjects(ctx context.Context, limit int) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, bool, error)
	CreateProject(ctx context.Context, p models.Project) (int64, error)
	UpdateProject(ctx context.Context, p models.Project) error
	DeleteProject(ctx context.Context, id int64) error
}

// MessageStore persists contact form submissions.
type MessageStore interface {
	CreateMessage(ctx context.Context, m models.ContactMessage) (int64, error)
	ListMessages(ctx context.Context) ([]models.ContactMessage, error)
	MarkMessageRead(ctx context.Context, id int64) error
	DeleteMessage(ctx context.Context, id int64) error
}

// ReviewStore persists visitor reviews.
type ReviewStore interface {
	CreateReview(ctx context.Context, r models.Review) (int64, error)
	ListReviews(ctx context.Context, approvedOnly bool) ([]models.Review, error)
	ApproveReview(ctx context.Context, id int64) error
	DeleteReview(ctx context.Context, id int64) error
}

// UserStore persists admin accounts.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, bool, error)
	CreateUser(ctx context.Context, u models.User) (int64, error)
}

// Compile-time check: *Store implements every store interface.
var (
	_ ProjectStore = (*Store)(nil)
	_ MessageStore = (*Store)(nil)
	_ ReviewStore  = (*Store)(nil)
	_ UserStore    = (*Store)(nil)
)

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, url: url}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrate applies any pending embedded SQL migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(s.url))
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// pgx5URL swaps a postgres:// or postgresql:// scheme for pgx5:// so that
// golang-migrate selects its pgx/v5 driver.
func pgx5URL(connString string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(connString, scheme) {
			return "pgx5://" + strings.TrimPrefix(connString, scheme)
		}
	}
	return connString
}

// ---------- projects ----------

const projectColumns = `id, title, description, image, github_repo, category, technologies, featured, created_at, updated_at`

func scanProject(row pgx.Row) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.GithubRepo, &p.Category,
		&p.Technologies, &p.Featured, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProjects(rows pgx.Rows) ([]models.Project, error) {
	defer rows.Close()
	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// FeaturedProjects returns up to limit featured projects, newest first.
func (s *Store) FeaturedProjects(ctx context.Context, limit int) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE featured ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, bool, error) {
	p, err := scanProject(s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Project{}, false, nil
		}
		return models.Project{}, false, err
	}
	return p, true, nil
}

// CreateProject inserts a project and returns its id.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (int64, error) {
	const q = `
		INSERT INTO projects (title, description, image, github_repo, category, technologies, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := s.pool.QueryRow(ctx, q,
		p.Title, p.Description, withDefault(p.Image, models.DefaultProjectImage), p.GithubRepo,
		withDefault(p.Category, models.DefaultProjectCategory), nonNil(p.Technologies), p.Featured,
	).Scan(&id)
	return id, err
}

// UpdateProject overwrites the editable fields of an existing project.
func (s *Store) UpdateProject(ctx context.Context, p models.Project) error {
	const q = `
		UPDATE projects SET
			title        = $2,
			description  = $3,
			image        = $4,
			github_repo  = $5,
			category     = $6,
			technologies = $7,
			featured     = $8,
			updated_at   = now()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q,
		p.ID, p.Title, p.Description, withDefault(p.Image, models.DefaultProjectImage), p.GithubRepo,
		withDefault(p.Category, models.DefaultProjectCategory), nonNil(p.Technologies), p.Featured,
	)
	return affected(tag.RowsAffected(), err)
}

// DeleteProject removes a project.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

// ---------- contact messages ----------

// CreateMessage stores a contact form submission.
func (s *Store) CreateMessage(ctx context.Context, m models.ContactMessage) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, subject, message) VALUES ($1, $2, $3, $4) RETURNING id`,
		m.Name, m.Email, m.Subject, m.Message,
	).Scan(&id)
	return id, err
}

// ListMessages returns all messages, newest first.
func (s *Store) ListMessages(ctx context.Context) ([]models.ContactMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, subject, message, read, created_at FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ContactMessage{}
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MarkMessageRead(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE contact_messages SET read = TRUE WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

// ---------- reviews ----------

// CreateReview stores a review; new reviews wait for approval.
func (s *Store) CreateReview(ctx context.Context, r models.Review) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reviews (name, rating, comment, approved) VALUES ($1, $2, $3, FALSE) RETURNING id`,
		r.Name, r.Rating, r.Comment,
	).Scan(&id)
	return id, err
}

// ListReviews returns reviews newest first, optionally only approved ones.
func (s *Store) ListReviews(ctx context.Context, approvedOnly bool) ([]models.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, rating, comment, approved, created_at FROM reviews
		 WHERE approved OR NOT $1 ORDER BY created_at DESC, id DESC`, approvedOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.Name, &r.Rating, &r.Comment, &r.Approved, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ApproveReview(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE reviews SET approved = TRUE WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (s *Store) DeleteReview(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

// ---------- users ----------

// GetUserByUsername retrieves an account by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	return u, true, nil
}

// CreateUser inserts an account; PasswordHash must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u models.User) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.IsAdmin,
	).Scan(&id)
	return id, err
}

// ---------- helpers ----------

func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
