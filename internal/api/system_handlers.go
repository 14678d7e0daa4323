package api

import "net/http"

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	interfaces, routes := s.svc.SystemInfo()
	WriteJSON(w, http.StatusOK, map[string]string{
		"interfaces": interfaces,
		"routes":     routes,
	})
}
