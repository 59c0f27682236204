// Package web serves the portfolio site, its JSON API and the admin area.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/stevenvinci05/portfolio/internal/auth"
	"github.com/stevenvinci05/portfolio/internal/portfolio"
	"github.com/stevenvinci05/portfolio/internal/store"
	"github.com/stevenvinci05/portfolio/pkg/models"
)

// dbTimeout bounds the store work of a single request.
const dbTimeout = 5 * time.Second

type Options struct {
	StaticDir    string
	CookieSecure bool
}

type Server struct {
	svc  *portfolio.Service
	auth *auth.Manager
	tpl  *Templates
	opts Options
}

func NewServer(svc *portfolio.Service, am *auth.Manager, tpl *Templates, opts Options) *Server {
	return &Server{svc: svc, auth: am, tpl: tpl, opts: opts}
}

// page is the data passed to every template.
type page struct {
	Title  string
	Flash  *Flash
	User   *auth.SessionUser
	Year   int
	Data   any
	Form   any
	Errors map[string]string
	Next   string
}

// Routes builds the full handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	admin := s.auth.RequireAdmin

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	if s.opts.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir))))
	}

	// public pages
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /about", s.handleAbout)
	mux.HandleFunc("GET /projects", s.handleProjects)
	mux.HandleFunc("GET /project/{id}/code", s.handleProjectCode)
	mux.HandleFunc("GET /contact", s.handleContactForm)
	mux.HandleFunc("POST /contact", s.handleContactSubmit)
	mux.HandleFunc("GET /reviews", s.handleReviews)
	mux.HandleFunc("POST /reviews", s.handleReviewSubmit)

	// JSON
	mux.HandleFunc("GET /api/projects", s.apiProjects)
	mux.HandleFunc("GET /api/projects/{id}/files", s.apiProjectFiles)
	mux.HandleFunc("GET /api/reviews", s.apiReviews)
	mux.Handle("GET /api/messages", admin(http.HandlerFunc(s.apiMessages)))

	// admin
	mux.HandleFunc("GET /admin/login", s.handleLoginForm)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("POST /admin/logout", s.handleLogout)
	mux.Handle("GET /admin/{$}", admin(http.RedirectHandler("/admin/dashboard", http.StatusSeeOther)))
	mux.Handle("GET /admin/dashboard", admin(http.HandlerFunc(s.handleDashboard)))
	mux.Handle("GET /admin/projects/new", admin(http.HandlerFunc(s.handleProjectNew)))
	mux.Handle("POST /admin/projects/new", admin(http.HandlerFunc(s.handleProjectSave)))
	mux.Handle("GET /admin/projects/{id}/edit", admin(http.HandlerFunc(s.handleProjectEdit)))
	mux.Handle("POST /admin/projects/{id}/edit", admin(http.HandlerFunc(s.handleProjectSave)))
	mux.Handle("POST /admin/projects/{id}/delete", admin(http.HandlerFunc(s.handleProjectDelete)))
	mux.Handle("GET /admin/messages", admin(http.HandlerFunc(s.handleMessages)))
	mux.Handle("POST /admin/messages/{id}/read", admin(http.HandlerFunc(s.handleMessageRead)))
	mux.Handle("POST /admin/messages/{id}/delete", admin(http.HandlerFunc(s.handleMessageDelete)))
	mux.Handle("GET /admin/reviews", admin(http.HandlerFunc(s.handleAdminReviews)))
	mux.Handle("POST /admin/reviews/{id}/approve", admin(http.HandlerFunc(s.handleReviewApprove)))
	mux.Handle("POST /admin/reviews/{id}/delete", admin(http.HandlerFunc(s.handleReviewDelete)))

	mux.HandleFunc("/", s.notFound)
	return mux
}

// ---------- rendering helpers ----------

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	p.Flash = popFlash(w, r)
	if p.User == nil {
		p.User = s.sessionUser(r)
	}
	p.Year = time.Now().Year()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := s.tpl.Render(&buf, name, p); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// sessionUser returns the logged-in admin, if any, for pages outside the
// admin middleware so the navigation can show admin links.
func (s *Server) sessionUser(r *http.Request) *auth.SessionUser {
	if u := auth.GetUserFromContext(r); u != nil {
		return u
	}
	tok := auth.TokenFromRequest(r)
	if tok == "" {
		return nil
	}
	claims, err := s.auth.Validate(r.Context(), tok)
	if err != nil {
		return nil
	}
	return &auth.SessionUser{ID: claims.UserID, Username: claims.Username, IsAdmin: claims.IsAdmin}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.render(w, r, http.StatusNotFound, "404.html", page{Title: "Page not found"})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.render(w, r, http.StatusInternalServerError, "500.html", page{Title: "Something went wrong"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, msg string) {
	setFlash(w, kind, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func dbContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), dbTimeout)
}

// safeNext only allows local absolute paths as post-login targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/admin/dashboard"
	}
	return next
}

// ---------- public pages ----------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	featured, err := s.svc.Home(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", page{Title: "Home", Data: featured})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about.html", page{Title: "About"})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	projects, err := s.svc.Projects(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "projects.html", page{Title: "Projects", Data: projects})
}

func (s *Server) handleProjectCode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	pc, found, err := s.svc.ProjectCode(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !found {
		s.notFound(w, r)
		return
	}
	hlog.FromRequest(r).Info().Int64("project", id).Int("files", len(pc.Files)).Msg("code preview served")
	s.render(w, r, http.StatusOK, "project_code.html", page{Title: pc.Project.Title + " · Code", Data: pc})
}

func (s *Server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "contact.html", page{Title: "Contact", Form: portfolio.ContactForm{}})
}

func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := portfolio.ContactForm{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Subject: r.PostForm.Get("subject"),
		Message: r.PostForm.Get("message"),
	}
	ctx, cancel := dbContext(r)
	defer cancel()
	if _, err := s.svc.SubmitContact(ctx, form); err != nil {
		if ve, ok := portfolio.IsValidationError(err); ok {
			s.render(w, r, http.StatusBadRequest, "contact.html", page{Title: "Contact", Form: form, Errors: ve.Fields})
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.redirectWithFlash(w, r, "/contact", "success", "Thanks for your message! I'll get back to you soon.")
}

type reviewsPage struct {
	Reviews []models.Review
	Average float64
}

func (s *Server) reviewsData(ctx context.Context) (reviewsPage, error) {
	reviews, err := s.svc.ApprovedReviews(ctx)
	if err != nil {
		return reviewsPage{}, err
	}
	out := reviewsPage{Reviews: reviews}
	if len(reviews) > 0 {
		sum := 0
		for _, rv := range reviews {
			sum += rv.Rating
		}
		out.Average = float64(sum) / float64(len(reviews))
	}
	return out, nil
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	data, err := s.reviewsData(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "reviews.html", page{Title: "Reviews", Data: data, Form: portfolio.ReviewForm{Rating: 5}})
}

func (s *Server) handleReviewSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	rating, _ := strconv.Atoi(r.PostForm.Get("rating"))
	form := portfolio.ReviewForm{
		Name:    r.PostForm.Get("name"),
		Rating:  rating,
		Comment: r.PostForm.Get("comment"),
	}
	ctx, cancel := dbContext(r)
	defer cancel()
	if _, err := s.svc.SubmitReview(ctx, form); err != nil {
		if ve, ok := portfolio.IsValidationError(err); ok {
			data, derr := s.reviewsData(ctx)
			if derr != nil {
				s.serverError(w, r, derr)
				return
			}
			s.render(w, r, http.StatusBadRequest, "reviews.html", page{Title: "Reviews", Data: data, Form: form, Errors: ve.Fields})
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.redirectWithFlash(w, r, "/reviews", "success", "Thanks for your review! It will appear once approved.")
}

// ---------- JSON API ----------

func (s *Server) apiProjects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	projects, err := s.svc.Projects(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, projects)
}

func (s *Server) apiProjectFiles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	pc, found, err := s.svc.ProjectCode(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !found {
		s.notFound(w, r)
		return
	}
	files := []models.CodeFile(pc.Files)
	if files == nil {
		files = []models.CodeFile{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"project_id": pc.Project.ID,
		"repository": pc.Project.GithubRepo,
		"files":      files,
	})
}

func (s *Server) apiReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	reviews, err := s.svc.ApprovedReviews(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reviews)
}

func (s *Server) apiMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	msgs, err := s.svc.Messages(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, msgs)
}

// ---------- admin: session ----------

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if u := s.sessionUser(r); u != nil && u.IsAdmin {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "admin/login.html", page{Title: "Admin login", Next: r.URL.Query().Get("next")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	next := r.PostForm.Get("next")
	ctx, cancel := dbContext(r)
	defer cancel()

	token, user, err := s.auth.Login(ctx, r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			hlog.FromRequest(r).Warn().Str("username", r.PostForm.Get("username")).Msg("failed admin login")
			s.render(w, r, http.StatusUnauthorized, "admin/login.html", page{
				Title:  "Admin login",
				Next:   next,
				Errors: map[string]string{"login": "Invalid username or password"},
			})
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.auth.SetSessionCookie(w, token, s.opts.CookieSecure)
	hlog.FromRequest(r).Info().Str("username", user.Username).Msg("admin logged in")
	s.redirectWithFlash(w, r, safeNext(next), "success", "Logged in successfully.")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok := auth.TokenFromRequest(r); tok != "" {
		if err := s.auth.Logout(r.Context(), tok); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("logout could not revoke session")
		}
	}
	auth.ClearSessionCookie(w)
	s.redirectWithFlash(w, r, "/", "success", "Logged out successfully.")
}

// ---------- admin: pages ----------

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	d, err := s.svc.Dashboard(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin/dashboard.html", page{Title: "Dashboard", Data: d})
}

func (s *Server) handleProjectNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "admin/project_form.html", page{Title: "New project", Form: portfolio.ProjectForm{}})
}

func (s *Server) handleProjectEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx, cancel := dbContext(r)
	defer cancel()
	p, found, err := s.svc.Project(ctx, id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !found {
		s.notFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "admin/project_form.html", page{Title: "Edit project", Form: portfolio.ProjectFormFor(p)})
}

func (s *Server) handleProjectSave(w http.ResponseWriter, r *http.Request) {
	var id int64
	if r.PathValue("id") != "" {
		var ok bool
		if id, ok = pathID(r); !ok {
			s.notFound(w, r)
			return
		}
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := portfolio.ProjectForm{
		ID:           id,
		Title:        r.PostForm.Get("title"),
		Description:  r.PostForm.Get("description"),
		Image:        r.PostForm.Get("image"),
		GithubRepo:   r.PostForm.Get("github_repo"),
		Category:     r.PostForm.Get("category"),
		Technologies: r.PostForm.Get("technologies"),
		Featured:     r.PostForm.Get("featured") != "",
	}
	ctx, cancel := dbContext(r)
	defer cancel()
	if _, err := s.svc.SaveProject(ctx, form); err != nil {
		if ve, ok := portfolio.IsValidationError(err); ok {
			title := "New project"
			if id != 0 {
				title = "Edit project"
			}
			s.render(w, r, http.StatusBadRequest, "admin/project_form.html", page{Title: title, Form: form, Errors: ve.Fields})
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}
	msg := "Project created successfully."
	if id != 0 {
		msg = "Project updated successfully."
	}
	s.redirectWithFlash(w, r, "/admin/dashboard", "success", msg)
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.svc.DeleteProject, "/admin/dashboard", "Project deleted successfully.")
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	msgs, err := s.svc.Messages(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin/messages.html", page{Title: "Messages", Data: msgs})
}

func (s *Server) handleMessageRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, r, http.StatusNotFound, map[string]bool{"success": false})
		return
	}
	ctx, cancel := dbContext(r)
	defer cancel()
	if err := s.svc.MarkMessageRead(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, r, http.StatusNotFound, map[string]bool{"success": false})
			return
		}
		hlog.FromRequest(r).Error().Err(err).Int64("message", id).Msg("mark read failed")
		writeJSON(w, r, http.StatusInternalServerError, map[string]bool{"success": false})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMessageDelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.svc.DeleteMessage, "/admin/messages", "Message deleted successfully.")
}

func (s *Server) handleAdminReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()
	reviews, err := s.svc.Reviews(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin/reviews.html", page{Title: "Reviews", Data: reviews})
}

func (s *Server) handleReviewApprove(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.svc.ApproveReview, "/admin/reviews", "Review approved.")
}

func (s *Server) handleReviewDelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.svc.DeleteReview, "/admin/reviews", "Review deleted.")
}

// mutate runs an id-addressed admin action and redirects back with a flash.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error, back, msg string) {
	id, ok := pathID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	ctx, cancel := dbContext(r)
	defer cancel()
	if err := op(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("path", r.URL.Path).Int64("id", id).Msg("admin action")
	s.redirectWithFlash(w, r, back, "success", msg)
}
