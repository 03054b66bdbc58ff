package intelligence

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Handler exposes the administrator-only sync trigger.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logrus.Logger
}

func NewHandler(orchestrator *Orchestrator, logger *logrus.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, logger: logger}
}

func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.RunSyncCycle(r.Context())
	if err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			h.respondWithError(w, http.StatusConflict, "A sync cycle is already running")
			return
		}
		h.logger.WithError(err).Error("Sync cycle failed to start")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to run sync cycle")
		return
	}

	code := http.StatusOK
	if !result.Success {
		code = http.StatusInternalServerError
	}
	h.respondWithJSON(w, code, result)
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
