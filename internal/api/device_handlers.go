package api

import (
	"net/http"
	"strconv"
)

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.ListDevices()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

func (s *Server) handleDeviceBypass(w http.ResponseWriter, r *http.Request) {
	mac := r.PathValue("mac")
	enable, err := strconv.ParseBool(r.URL.Query().Get("enable"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "enable must be true or false")
		return
	}

	res, err := s.svc.SetDeviceBypass(mac, enable)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"mac":         mac,
		"bypass_vpn":  enable,
		"applied":     res.Applied,
		"skip_reason": res.SkipReason,
	})
}
