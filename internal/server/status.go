package server

import (
	"net/http"

	"github.com/desertthunder/mzsearch/internal/models"
	"github.com/desertthunder/mzsearch/internal/shared"
	"github.com/desertthunder/mzsearch/internal/tasks"
)

// Monitor is the read and cancel surface of a running search task.
type Monitor interface {
	ID() string
	Snapshot() tasks.State
	Description() string
	Cancel()
}

// StatusResponse is the JSON body of GET /status and POST /cancel.
type StatusResponse struct {
	ID           string              `json:"id"`
	Status       models.SearchStatus `json:"status"`
	Progress     float64             `json:"progress"`
	Description  string              `json:"description"`
	Error        string              `json:"error,omitempty"`
	FinishedRows int                 `json:"finished_rows"`
	TotalRows    int                 `json:"total_rows"`
	Identified   int                 `json:"identified"`
	ResultURL    string              `json:"result_url,omitempty"`
}

// StatusHandler reports a task's state and accepts cancel requests.
type StatusHandler struct {
	task Monitor
}

// NewStatusHandler creates a [StatusHandler] for task.
func NewStatusHandler(task Monitor) *StatusHandler {
	return &StatusHandler{task: task}
}

// Routes returns the HTTP routes this handler serves.
func (h *StatusHandler) Routes() []string {
	return []string{"GET /status", "POST /cancel"}
}

// ServeHTTP writes the current status. POST /cancel requests cancellation first and answers 202.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	if r.Method == http.MethodPost && r.URL.Path == "/cancel" {
		h.task.Cancel()
		code = http.StatusAccepted
	}

	writeJSON(w, code, h.Status())
}

// Status builds a [StatusResponse] from the task's current snapshot.
func (h *StatusHandler) Status() StatusResponse {
	state := h.task.Snapshot()
	return StatusResponse{
		ID:           h.task.ID(),
		Status:       state.Status,
		Progress:     state.Percentage(),
		Description:  h.task.Description(),
		Error:        state.Message,
		FinishedRows: state.FinishedRows,
		TotalRows:    state.TotalRows,
		Identified:   state.Identified,
		ResultURL:    state.ResultURL,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
