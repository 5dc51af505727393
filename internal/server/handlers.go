package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/wallyscope/pkg/assist"
	"github.com/matzehuels/wallyscope/pkg/buildinfo"
	"github.com/matzehuels/wallyscope/pkg/diagnostics"
	"github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/registry"
)

// CheckResponse is the body of POST /v1/check.
type CheckResponse struct {
	Findings []diagnostics.Finding `json:"findings"`
	Summary  diagnostics.Summary   `json:"summary"`
}

// AuthorsResponse is the body of GET /v1/authors.
type AuthorsResponse struct {
	Registry string   `json:"registry"`
	Authors  []string `json:"authors"`
}

// PackagesResponse is the body of GET /v1/authors/{author}/packages.
type PackagesResponse struct {
	Registry string   `json:"registry"`
	Author   string   `json:"author"`
	Packages []string `json:"packages"`
}

// VersionsResponse is the body of GET .../packages/{name}/versions.
// Versions are newest first.
type VersionsResponse struct {
	Registry string   `json:"registry"`
	Package  string   `json:"package"`
	Latest   string   `json:"latest,omitempty"`
	Versions []string `json:"versions"`
}

// PackageResponse is the body of GET .../packages/{name}.
type PackageResponse struct {
	*assist.Hover
	Realm    string `json:"realm"`
	Markdown string `json:"markdown"`
}

// ErrorResponse wraps every error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxManifestSize+1))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}
	if len(body) > maxManifestSize {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, errors.New(errors.ErrCodeInvalidInput, "manifest exceeds %d bytes", maxManifestSize))
		return
	}

	findings, err := s.checker.CheckText(r.Context(), string(body))
	if err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	if findings == nil {
		findings = []diagnostics.Finding{}
	}
	writeJSON(w, http.StatusOK, CheckResponse{
		Findings: findings,
		Summary:  diagnostics.Summarize(findings),
	})
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w, r)
	if !ok {
		return
	}
	if client.Exists(r.Context()) == registry.Invalid {
		s.writeError(w, r, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "registry %s does not exist", client.URL()))
		return
	}
	names, ok := client.AuthorNames(r.Context())
	if !ok {
		s.unavailable(w, r, client)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, AuthorsResponse{Registry: client.URL(), Authors: names})
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	client, ok := s.client(w, r)
	if !ok {
		return
	}
	author := chi.URLParam(r, "author")
	if !s.requireAuthor(w, r, client, author) {
		return
	}
	names, ok := client.PackageNames(r.Context(), author)
	if !ok {
		s.unavailable(w, r, client)
		return
	}
	writeJSON(w, http.StatusOK, PackagesResponse{Registry: client.URL(), Author: author, Packages: names})
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	client, author, name, ok := s.packageRef(w, r)
	if !ok {
		return
	}
	versions, ok := client.PackageVersions(r.Context(), author, name)
	if !ok {
		s.unavailable(w, r, client)
		return
	}
	latest, _ := client.LatestVersion(r.Context(), author, name)
	writeJSON(w, http.StatusOK, VersionsResponse{
		Registry: client.URL(),
		Package:  author + "/" + name,
		Latest:   latest,
		Versions: versions,
	})
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	client, author, name, ok := s.packageRef(w, r)
	if !ok {
		return
	}
	version := r.URL.Query().Get("version")
	if version == "" {
		latest, ok := client.LatestVersion(r.Context(), author, name)
		if !ok {
			s.unavailable(w, r, client)
			return
		}
		version = latest
	}
	info, ok := client.FullPackageInfo(r.Context(), author, name, version)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, errors.New(errors.ErrCodePackageNotFound, "no version of %s/%s matches %q", author, name, version))
		return
	}
	h := assist.NewHover(info)
	writeJSON(w, http.StatusOK, PackageResponse{
		Hover:    h,
		Realm:    info.Package.Realm,
		Markdown: h.Markdown(),
	})
}

// client resolves ?registry=, writing a 400 when it cannot be used.
func (s *Server) client(w http.ResponseWriter, r *http.Request) (*registry.Client, bool) {
	url := r.URL.Query().Get("registry")
	if url == "" {
		url = s.registry
	}
	c, err := s.store.Client(url)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return nil, false
	}
	return c, true
}

func (s *Server) requireAuthor(w http.ResponseWriter, r *http.Request, c *registry.Client, author string) bool {
	switch c.IsValidAuthor(r.Context(), author) {
	case registry.Invalid:
		s.writeError(w, r, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "unknown author %q", author))
		return false
	case registry.Indeterminate:
		s.unavailable(w, r, c)
		return false
	}
	return true
}

func (s *Server) packageRef(w http.ResponseWriter, r *http.Request) (*registry.Client, string, string, bool) {
	author, name, err := errors.ValidatePackageRef(chi.URLParam(r, "author") + "/" + chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return nil, "", "", false
	}
	client, ok := s.client(w, r)
	if !ok {
		return nil, "", "", false
	}
	switch client.IsValidPackage(r.Context(), author, name) {
	case registry.Invalid:
		s.writeError(w, r, http.StatusNotFound, errors.New(errors.ErrCodePackageNotFound, "unknown package %s/%s", author, name))
		return nil, "", "", false
	case registry.Indeterminate:
		s.unavailable(w, r, client)
		return nil, "", "", false
	}
	return client, author, name, true
}

func (s *Server) unavailable(w http.ResponseWriter, r *http.Request, c *registry.Client) {
	s.writeError(w, r, http.StatusBadGateway, errors.New(errors.ErrCodeNetwork, "registry %s is unavailable", c.URL()))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Request failed", "id", RequestID(r.Context()), "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   errors.UserMessage(err),
		RequestID: RequestID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
