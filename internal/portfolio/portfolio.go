// Package portfolio holds the application logic behind the public site and
// the admin area: listing projects, previewing their code, taking contact
// messages and reviews, and managing all of it.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/stevenvinci05/portfolio/internal/auth"
	"github.com/stevenvinci05/portfolio/internal/codepreview"
	"github.com/stevenvinci05/portfolio/internal/store"
	"github.com/stevenvinci05/portfolio/pkg/models"
)

// HomeFeatured is how many featured projects the home page shows.
const HomeFeatured = 3

// Store is the persistence the service needs.
type Store interface {
	store.ProjectStore
	store.MessageStore
	store.ReviewStore
	store.UserStore
}

// CodeResolver finds previewable files for a repository URL.
type CodeResolver interface {
	Resolve(ctx context.Context, repoURL string) codepreview.CodeFiles
}

type Service struct {
	Store    Store
	Resolver CodeResolver
	validate *validator.Validate
}

// NewService creates a new portfolio service with the provided store and resolver
func NewService(st Store, resolver CodeResolver) *Service {
	return &Service{
		Store:    st,
		Resolver: resolver,
		validate: newValidator(),
	}
}

// ProjectCode is a project together with its previewed files.
type ProjectCode struct {
	Project models.Project
	Files   codepreview.CodeFiles
}

// ---------- public ----------

// Home returns the newest featured projects.
func (s *Service) Home(ctx context.Context) ([]models.Project, error) {
	return s.Store.FeaturedProjects(ctx, HomeFeatured)
}

func (s *Service) Projects(ctx context.Context) ([]models.Project, error) {
	return s.Store.ListProjects(ctx)
}

// Project returns a single project.
func (s *Service) Project(ctx context.Context, id int64) (models.Project, bool, error) {
	return s.Store.GetProject(ctx, id)
}

// ProjectCode loads a project and resolves its code preview. Preview failures
// never surface as errors; the file set is simply empty.
func (s *Service) ProjectCode(ctx context.Context, id int64) (ProjectCode, bool, error) {
	p, ok, err := s.Store.GetProject(ctx, id)
	if err != nil || !ok {
		return ProjectCode{}, ok, err
	}
	files := codepreview.CodeFiles{}
	if p.GithubRepo != "" && s.Resolver != nil {
		files = s.Resolver.Resolve(ctx, p.GithubRepo)
	}
	log.Ctx(ctx).Debug().Int64("project", id).Int("files", len(files)).Msg("resolved code preview")
	return ProjectCode{Project: p, Files: files}, true, nil
}

// SubmitContact validates and stores a contact message.
func (s *Service) SubmitContact(ctx context.Context, f ContactForm) (models.ContactMessage, error) {
	trimContact(&f)
	if err := s.check(f); err != nil {
		return models.ContactMessage{}, err
	}
	m := models.ContactMessage{
		Name:    f.Name,
		Email:   normalizeEmail(f.Email),
		Subject: f.Subject,
		Message: f.Message,
	}
	id, err := s.Store.CreateMessage(ctx, m)
	if err != nil {
		return models.ContactMessage{}, fmt.Errorf("save message: %w", err)
	}
	m.ID = id
	log.Ctx(ctx).Info().Int64("message", id).Msg("contact message received")
	return m, nil
}

// SubmitReview validates and stores a review. It stays hidden until approved.
func (s *Service) SubmitReview(ctx context.Context, f ReviewForm) (models.Review, error) {
	trimReview(&f)
	if err := s.check(f); err != nil {
		return models.Review{}, err
	}
	r := models.Review{Name: f.Name, Rating: f.Rating, Comment: f.Comment}
	id, err := s.Store.CreateReview(ctx, r)
	if err != nil {
		return models.Review{}, fmt.Errorf("save review: %w", err)
	}
	r.ID = id
	log.Ctx(ctx).Info().Int64("review", id).Int("rating", r.Rating).Msg("review submitted")
	return r, nil
}

func (s *Service) ApprovedReviews(ctx context.Context) ([]models.Review, error) {
	return s.Store.ListReviews(ctx, true)
}

// ---------- admin ----------

// ProjectFormFor fills a form from an existing project for editing.
func ProjectFormFor(p models.Project) ProjectForm {
	return ProjectForm{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Image:        p.Image,
		GithubRepo:   p.GithubRepo,
		Category:     p.Category,
		Technologies: strings.Join(p.Technologies, ", "),
		Featured:     p.Featured,
	}
}

// SaveProject creates or updates a project and returns its id.
func (s *Service) SaveProject(ctx context.Context, f ProjectForm) (int64, error) {
	trimProject(&f)
	if err := s.check(f); err != nil {
		return 0, err
	}
	p := models.Project{
		ID:           f.ID,
		Title:        f.Title,
		Description:  f.Description,
		Image:        f.Image,
		GithubRepo:   f.GithubRepo,
		Category:     f.Category,
		Technologies: splitTechnologies(f.Technologies),
		Featured:     f.Featured,
	}
	if p.Image == "" {
		p.Image = models.DefaultProjectImage
	}
	if p.Category == "" {
		p.Category = models.DefaultProjectCategory
	}

	if p.ID == 0 {
		id, err := s.Store.CreateProject(ctx, p)
		if err != nil {
			return 0, fmt.Errorf("create project: %w", err)
		}
		log.Ctx(ctx).Info().Int64("project", id).Str("title", p.Title).Msg("project created")
		return id, nil
	}
	if err := s.Store.UpdateProject(ctx, p); err != nil {
		return 0, fmt.Errorf("update project %d: %w", p.ID, err)
	}
	log.Ctx(ctx).Info().Int64("project", p.ID).Msg("project updated")
	return p.ID, nil
}

func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.Store.DeleteProject(ctx, id)
}

func (s *Service) Messages(ctx context.Context) ([]models.ContactMessage, error) {
	return s.Store.ListMessages(ctx)
}

func (s *Service) MarkMessageRead(ctx context.Context, id int64) error {
	return s.Store.MarkMessageRead(ctx, id)
}

func (s *Service) DeleteMessage(ctx context.Context, id int64) error {
	return s.Store.DeleteMessage(ctx, id)
}

// Reviews returns every review, approved or not.
func (s *Service) Reviews(ctx context.Context) ([]models.Review, error) {
	return s.Store.ListReviews(ctx, false)
}

func (s *Service) ApproveReview(ctx context.Context, id int64) error {
	return s.Store.ApproveReview(ctx, id)
}

func (s *Service) DeleteReview(ctx context.Context, id int64) error {
	return s.Store.DeleteReview(ctx, id)
}

// Dashboard summarises the admin area.
type Dashboard struct {
	Projects       []models.Project
	Messages       []models.ContactMessage
	UnreadMessages int
	PendingReviews int
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list projects: %w", err)
	}
	messages, err := s.Store.ListMessages(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list messages: %w", err)
	}
	reviews, err := s.Store.ListReviews(ctx, false)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list reviews: %w", err)
	}
	d := Dashboard{Projects: projects, Messages: messages}
	for _, m := range messages {
		if !m.Read {
			d.UnreadMessages++
		}
	}
	for _, r := range reviews {
		if !r.Approved {
			d.PendingReviews++
		}
	}
	return d, nil
}

// ErrNoAdminPassword is returned when an admin must be created without a password.
var ErrNoAdminPassword = errors.New("admin password is required to create the admin account")

// EnsureAdmin creates the admin account unless it already exists. It reports
// whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, ok, err := s.Store.GetUserByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("lookup admin: %w", err)
	}
	if ok {
		return false, nil
	}
	if password == "" {
		return false, ErrNoAdminPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	id, err := s.Store.CreateUser(ctx, models.User{
		Username:     username,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		IsAdmin:      true,
	})
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	log.Ctx(ctx).Info().Int64("user", id).Str("username", username).Msg("admin account created")
	return true, nil
}
