package httprpc

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Server  string `json:"server"`
	Version string `json:"version"`
}

type toolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type infoResponse struct {
	Server       string `json:"server"`
	Version      string `json:"version"`
	Description  string `json:"description"`
	Capabilities struct {
		Tools int `json:"tools"`
	} `json:"capabilities"`
	Tools []toolSummary `json:"tools"`
}

// handleHealth reports liveness. It never calls upstream.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := h.srv.ServerInfo()
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Server: info.Name, Version: info.Version})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := h.srv.ServerInfo()
	tools := h.srv.Tools()

	resp := infoResponse{
		Server:      info.Name,
		Version:     info.Version,
		Description: Description,
		Tools:       make([]toolSummary, 0, len(tools)),
	}
	resp.Capabilities.Tools = len(tools)
	for _, t := range tools {
		resp.Tools = append(resp.Tools, toolSummary{Name: t.Name, Description: t.Description})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProtectedResource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, h.prm)
}
