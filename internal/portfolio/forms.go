package portfolio

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stevenvinci05/portfolio/internal/codepreview"
)

// ContactForm is a visitor message submitted from the contact page.
type ContactForm struct {
	Name    string `form:"name" validate:"required,max=100"`
	Email   string `form:"email" validate:"required,email,max=120"`
	Subject string `form:"subject" validate:"required,max=200"`
	Message string `form:"message" validate:"required,max=5000"`
}

// ReviewForm is a visitor review awaiting moderation.
type ReviewForm struct {
	Name    string `form:"name" validate:"required,max=100"`
	Rating  int    `form:"rating" validate:"required,min=1,max=5"`
	Comment string `form:"comment" validate:"required,max=2000"`
}

// ProjectForm creates a project when ID is zero and updates it otherwise.
// Technologies is a comma separated list.
type ProjectForm struct {
	ID           int64  `form:"-"`
	Title        string `form:"title" validate:"required,max=200"`
	Description  string `form:"description" validate:"required"`
	Image        string `form:"image" validate:"max=255"`
	GithubRepo   string `form:"github_repo" validate:"omitempty,max=255,repourl"`
	Category     string `form:"category" validate:"max=50"`
	Technologies string `form:"technologies"`
	Featured     bool   `form:"featured"`
}

// ValidationError maps form field names to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries field errors.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("repourl", func(fl validator.FieldLevel) bool {
		_, ok := codepreview.ParseRepositoryURL(fl.Field().String())
		return ok
	})
	return v
}

// check runs struct validation and converts failures into a ValidationError.
func (s *Service) check(form any) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "repourl":
		return "must be a GitHub repository URL or owner/name"
	case "min", "max":
		if fe.Kind() == reflect.Int {
			return "must be between 1 and 5"
		}
		if fe.Tag() == "max" {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// normalizeEmail lower-cases the domain part of an address.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// splitTechnologies turns "Go, Postgres,,HTMX" into its trimmed, non-empty parts.
func splitTechnologies(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimContact(f *ContactForm) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
}

func trimReview(f *ReviewForm) {
	f.Name = strings.TrimSpace(f.Name)
	f.Comment = strings.TrimSpace(f.Comment)
}

func trimProject(f *ProjectForm) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Image = strings.TrimSpace(f.Image)
	f.GithubRepo = strings.TrimSpace(f.GithubRepo)
	f.Category = strings.TrimSpace(f.Category)
}
