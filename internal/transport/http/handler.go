package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"quizroom/internal/app"
	"quizroom/internal/domain"
)

// Handler exposes the game operations over HTTP. Everything here is thin
// plumbing: it parses requests, forwards to the game service, and maps
// domain errors to status codes.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Routes builds the router. Allowed origins come from config; the
// browser-facing endpoints all sit behind the CORS allowlist.
func (h *Handler) Routes(allowedOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/api/game/create", h.createGame)

	r.Route("/api/game/{gameID:[A-Z0-9]{8}}", func(r chi.Router) {
		r.Post("/join", h.join)
		r.Get("/state", h.state)
		r.Post("/start", h.start)
		r.Post("/next", h.next)
		r.Post("/answer", h.answer)
		r.Get("/ws", h.serveWS)
	})

	return r
}

type createRequest struct {
	QuizKey string `json:"quizKey"`
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	// an empty or malformed body falls back to the default quiz key
	_ = json.NewDecoder(r.Body).Decode(&req)

	created, err := h.service.CreateGame(r.Context(), req.QuizKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type joinRequest struct {
	Name string `json:"name"`
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	// a blank name becomes a placeholder downstream
	_ = json.NewDecoder(r.Body).Decode(&req)

	joined, err := h.service.Join(r.Context(), gameID(r), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joined)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.State(r.Context(), gameID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Start(r.Context(), gameID(r), bearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Next(r.Context(), gameID(r), bearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

type answerRequest struct {
	PlayerID    string `json:"playerId"`
	PlayerToken string `json:"playerToken"`
	Choice      int    `json:"choice"`
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBad(w, "invalid answer payload")
		return
	}
	if req.PlayerID == "" || req.PlayerToken == "" {
		writeBad(w, "missing playerId or playerToken")
		return
	}

	if err := h.service.SubmitAnswer(r.Context(), gameID(r), req.PlayerID, req.PlayerToken, req.Choice); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func gameID(r *http.Request) string {
	return chi.URLParam(r, "gameID")
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrQuizNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotAcceptingAnswers),
		errors.Is(err, domain.ErrUnknownPlayer),
		errors.Is(err, domain.ErrTimeUp),
		errors.Is(err, domain.ErrAlreadyAnswered):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("http: request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeBad(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("http: write response", "error", err)
	}
}
