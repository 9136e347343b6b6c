package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"courseforge/internal/gateway"
	"courseforge/internal/model"
	"courseforge/internal/mutate"
)

// Wire types shared with internal/remote.

type OrderRequest struct {
	IDs []string `json:"ids"`
}

type MoveRequest struct {
	ModuleID string `json:"moduleId"`
}

type CopyRequest struct {
	Lesson model.Lesson `json:"lesson"`
}

type TemplateRequest struct {
	Template model.LessonTemplate `json:"template"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeNotFound   = "not_found"
	CodeInvalid    = "invalid"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

const maxBodyBytes = 4 << 20

func (s *Server) handleFetchStructure(w http.ResponseWriter, r *http.Request) {
	st, err := s.gw.FetchStructure(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSaveLesson(w http.ResponseWriter, r *http.Request) {
	var l model.Lesson
	if !s.decode(w, r, &l) {
		return
	}
	l.ID = chi.URLParam(r, "lessonID")
	if err := s.gw.SaveLesson(r.Context(), l); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.gw.CreateLessonFromTemplate(r.Context(), chi.URLParam(r, "moduleID"), req.Template)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) handleReorderModules(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.gw.ReorderModules(r.Context(), chi.URLParam(r, "courseID"), req.IDs); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderLessons(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.gw.ReorderLessons(r.Context(), chi.URLParam(r, "moduleID"), req.IDs); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveLesson(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ModuleID) == "" {
		s.writeError(w, r, mutate.ValidationError{Field: "moduleId", Reason: "required"})
		return
	}
	if err := s.gw.MoveLesson(r.Context(), chi.URLParam(r, "lessonID"), req.ModuleID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyLesson(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.gw.CopyLesson(r.Context(), req.Lesson, chi.URLParam(r, "moduleID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	if err := s.gw.DeleteLesson(r.Context(), chi.URLParam(r, "lessonID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveStructureTemplate(w http.ResponseWriter, r *http.Request) {
	var in model.StructureTemplateInput
	if !s.decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		s.writeError(w, r, mutate.ValidationError{Field: "name", Reason: "required"})
		return
	}
	id, err := s.gw.SaveStructureTemplate(r.Context(), chi.URLParam(r, "courseID"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid json: %v", err), Code: CodeBadRequest})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve mutate.ValidationError
	switch {
	case gateway.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Code: CodeInvalid})
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
