package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/daybook/internal/assistant"
	"github.com/ent0n29/daybook/internal/brain"
	"github.com/ent0n29/daybook/internal/config"
	"github.com/ent0n29/daybook/internal/observability"
	"github.com/ent0n29/daybook/internal/tasks"
	"github.com/ent0n29/daybook/internal/timeparse"
)

type Server struct {
	cfg       config.Config
	svc       *assistant.Service
	manager   *tasks.Manager
	metrics   *observability.Metrics
	loc       *time.Location
	storeMode string
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, svc *assistant.Service, manager *tasks.Manager, metrics *observability.Metrics, loc *time.Location, storeMode string) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		cfg:       cfg,
		svc:       svc,
		manager:   manager,
		metrics:   metrics,
		loc:       loc,
		storeMode: storeMode,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may watch the event stream
				// unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/nl", s.handleNL)
	r.Post("/v1/plans/{id}/confirm", s.handleConfirmPlan)
	r.Post("/v1/raw", s.handleRaw)

	r.Get("/v1/tasks", s.handleListTasks)
	r.Get("/v1/tasks/{id}", s.handleGetTask)
	r.Post("/v1/tasks/{id}/restore", s.handleRestoreTask)
	r.Get("/v1/trash", s.handleListTrash)
	r.Delete("/v1/trash/{id}", s.handlePurgeTrash)
	r.Post("/v1/days/{date}/defer", s.handleDeferDay)

	r.Get("/v1/events", s.handleEvents)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode,
	})
}

type nlRequest struct {
	Text string `json:"text"`
	Date string `json:"date,omitempty"`
	Mode string `json:"mode,omitempty"`
}

func (s *Server) handleNL(w http.ResponseWriter, r *http.Request) {
	var req nlRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}

	var ref time.Time
	if strings.TrimSpace(req.Date) != "" {
		day, err := timeparse.ResolveDay(req.Date, time.Now().In(s.loc))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		ref = day
	}

	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", "direct":
		results, err := s.svc.Process(r.Context(), req.Text, ref)
		if err != nil {
			s.respondInterpreterError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"results": results})
	case "plan":
		plan, err := s.svc.Plan(r.Context(), req.Text, ref)
		if err != nil {
			switch {
			case errors.Is(err, assistant.ErrNothingPlanned):
				respondJSON(w, http.StatusOK, map[string]any{"plan": nil, "reason": "no_action"})
			case errors.Is(err, assistant.ErrNothingActionable):
				respondJSON(w, http.StatusOK, map[string]any{"plan": nil, "reason": "unactionable"})
			default:
				s.respondInterpreterError(w, err)
			}
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"plan": plan})
	default:
		respondError(w, http.StatusBadRequest, "invalid_mode", "mode must be direct or plan")
	}
}

func (s *Server) respondInterpreterError(w http.ResponseWriter, err error) {
	if errors.Is(err, brain.ErrRequestFailed) {
		respondError(w, http.StatusBadGateway, "interpreter_unavailable", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func (s *Server) handleConfirmPlan(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, assistant.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "plan_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	line := strings.TrimSpace(string(body))
	if line == "" {
		respondError(w, http.StatusBadRequest, "missing_body", "raw command line is required")
		return
	}
	res := s.svc.ExecuteRaw(r.Context(), line)
	status := http.StatusOK
	if res.Error != "" {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, res)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(s.loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		resolved, err := timeparse.ResolveDay(raw, day)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		day = resolved
	}
	list, err := s.manager.TasksForDay(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":  tasks.DayKey(timeparse.StartOfDay(day)),
		"tasks": list,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleRestoreTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.manager.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTrash(w http.ResponseWriter, r *http.Request) {
	items, err := s.manager.Trash(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"trash": items})
}

func (s *Server) handlePurgeTrash(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.PurgeTrash(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "purged"})
}

func (s *Server) handleDeferDay(w http.ResponseWriter, r *http.Request) {
	day, err := timeparse.ResolveDay(chi.URLParam(r, "date"), time.Now().In(s.loc))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}
	moved, err := s.manager.DeferIncomplete(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":  tasks.DayKey(day),
		"moved": moved,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
