package httpapi

import (
	"net/http"
)

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Message: "Status:OK"})
}

func (h *handlers) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{ModelName: h.svc.ModelName()})
}

func (h *handlers) tools(w http.ResponseWriter, _ *http.Request) {
	entries := h.svc.ToolBox().List()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	writeJSON(w, http.StatusOK, toolsResponse{Tools: names})
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	query, err := decodeAsk(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeMappedError(w, err)
		return
	}

	res, err := h.svc.Ask(r.Context(), query, nil)
	if err != nil {
		h.log.ErrorContext(r.Context(), "ask failed", "error", err)
		writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Response: res.Response()})
}
