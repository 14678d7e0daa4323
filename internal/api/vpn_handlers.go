package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.svc.ListProfiles()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"configs": profiles})
}

func (s *Server) handleVPNStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.VPNStatus()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	profile := r.PathValue("profile")

	if err := s.svc.Connect(profile); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"connected": true,
		"profile":   profile,
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	wasUp, err := s.svc.Disconnect()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"connected":    false,
		"disconnected": wasUp,
	})
}

func (s *Server) handleKillSwitchStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.svc.KillSwitchEnabled()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"enabled": enabled})
}

func (s *Server) handleKillSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tunnelActive, err := s.svc.SetKillSwitch(req.Enabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":       req.Enabled,
		"tunnel_active": tunnelActive,
	})
}

func (s *Server) handleAddProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name, err := s.svc.AddProfile(req.Name, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{"name": name})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := s.svc.DeleteProfile(name); err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": name})
}
