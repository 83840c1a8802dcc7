// Package api exposes the review workflow over HTTP. It is thin glue: every
// handler decodes JSON, calls into review.Service, and encodes the result.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fabfab/review-agent/review"
	"github.com/fabfab/review-agent/storage"
)

const maxUploadBytes = 32 << 20

// Server exposes HTTP handlers for the document review workflows.
type Server struct {
	svc     *review.Service
	store   *storage.Store
	logger  zerolog.Logger
	handler http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	Success      bool     `json:"success"`
	SessionID    string   `json:"session_id"`
	Sections     []string `json:"sections"`
	DocumentName string   `json:"document_name"`
}

type sectionRequest struct {
	SessionID   string `json:"session_id"`
	SectionName string `json:"section_name"`
}

type sectionResponse struct {
	Content     string `json:"content"`
	SectionName string `json:"section_name"`
}

type analyzeResponse struct {
	FeedbackItems []review.FeedbackItem `json:"feedback_items"`
}

type feedbackRequest struct {
	SessionID    string              `json:"session_id"`
	SectionName  string              `json:"section_name"`
	FeedbackItem review.FeedbackItem `json:"feedback_item"`
}

type customFeedbackRequest struct {
	SessionID   string `json:"session_id"`
	SectionName string `json:"section_name"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type customFeedbackResponse struct {
	Success  bool                `json:"success"`
	Feedback review.FeedbackItem `json:"feedback"`
}

type chatRequest struct {
	SessionID string      `json:"session_id"`
	Query     string      `json:"query"`
	Context   chatContext `json:"context"`
}

type chatContext struct {
	CurrentSection string `json:"current_section"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type completeRequest struct {
	SessionID string `json:"session_id"`
}

type completeResponse struct {
	Success       bool   `json:"success"`
	OutputPath    string `json:"output_path"`
	CommentsCount int    `json:"comments_count"`
}

type statsRequest struct {
	SessionID string `json:"session_id"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// New constructs a Server over the review service.
func New(svc *review.Service, store *storage.Store, logger zerolog.Logger) *Server {
	s := &Server{svc: svc, store: store, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/get_section", s.handleGetSection).Methods(http.MethodPost)
	r.HandleFunc("/analyze_section", s.handleAnalyzeSection).Methods(http.MethodPost)
	r.HandleFunc("/accept_feedback", s.handleAcceptFeedback).Methods(http.MethodPost)
	r.HandleFunc("/reject_feedback", s.handleRejectFeedback).Methods(http.MethodPost)
	r.HandleFunc("/add_custom_feedback", s.handleAddCustomFeedback).Methods(http.MethodPost)
	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/complete_review", s.handleCompleteReview).Methods(http.MethodPost)
	r.HandleFunc("/get_stats", s.handleGetStats).Methods(http.MethodPost)
	r.HandleFunc("/download/{filename}", s.handleDownload).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload form: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("no file part"))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("no selected file"))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".docx") {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid file type"))
		return
	}

	result, err := s.svc.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("error processing document: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success:      true,
		SessionID:    result.SessionID,
		Sections:     result.SectionNames,
		DocumentName: result.DocumentName,
	})
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	content, err := s.svc.SectionText(req.SessionID, req.SectionName)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sectionResponse{Content: content, SectionName: req.SectionName})
}

func (s *Server) handleAnalyzeSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	items, err := s.svc.Analyze(r.Context(), req.SessionID, req.SectionName)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	if items == nil {
		items = []review.FeedbackItem{}
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{FeedbackItems: items})
}

func (s *Server) handleAcceptFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSONLenient(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.svc.Accept(req.SessionID, req.SectionName, req.FeedbackItem); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleRejectFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSONLenient(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.svc.Reject(req.SessionID, req.SectionName, req.FeedbackItem); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleAddCustomFeedback(w http.ResponseWriter, r *http.Request) {
	var req customFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	item, err := s.svc.AddCustom(req.SessionID, req.SectionName, req.Type, req.Category, req.Description)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, customFeedbackResponse{Success: true, Feedback: item})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	answer, err := s.svc.Chat(r.Context(), req.SessionID, req.Query, req.Context.CurrentSection)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

func (s *Server) handleCompleteReview(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	result, err := s.svc.Complete(r.Context(), req.SessionID)
	switch {
	case errors.Is(err, review.ErrNoAcceptedFeedback):
		s.writeError(w, http.StatusBadRequest,
			fmt.Errorf("no feedback accepted, please accept some feedback items first"))
		return
	case errors.Is(err, review.ErrSessionNotFound):
		s.writeSessionError(w, err)
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to generate reviewed document"))
		return
	}

	s.writeJSON(w, http.StatusOK, completeResponse{
		Success:       true,
		OutputPath:    result.OutputName,
		CommentsCount: result.CommentsCount,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	stats, err := s.svc.Stats(req.SessionID)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	f, err := s.store.OpenOutput(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("file not found"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("download interrupted")
	}
}

// writeSessionError maps the review error taxonomy to HTTP statuses: caller
// errors (unknown session or section) are 400s, everything else is a 500.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, review.ErrSessionNotFound):
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid session"))
	case errors.Is(err, review.ErrSectionNotFound):
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("section not found"))
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn().Int("status", status).Err(err).Msg("api error")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	return decode(r, dst, true)
}

// decodeJSONLenient tolerates unknown fields; feedback items travel with
// whatever extra keys the suggestion provider attached.
func decodeJSONLenient(r *http.Request, dst any) error {
	return decode(r, dst, false)
}

func decode(r *http.Request, dst any, strict bool) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}
