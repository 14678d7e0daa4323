package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type domainRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.svc.ListDomains()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"domains": domains})
}

func (s *Server) handleAddDomain(w http.ResponseWriter, r *http.Request) {
	var req domainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	domain := strings.TrimSpace(strings.ToLower(req.Domain))
	if domain == "" {
		WriteError(w, http.StatusBadRequest, "domain is required")
		return
	}

	res, err := s.svc.AddDomainBypass(domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"domain":      domain,
		"applied":     res.Applied,
		"skip_reason": res.SkipReason,
		"ips":         res.IPs,
	})
}

func (s *Server) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	domain := strings.TrimSpace(strings.ToLower(r.PathValue("domain")))

	res, err := s.svc.RemoveDomainBypass(domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"domain":      domain,
		"applied":     res.Applied,
		"skip_reason": res.SkipReason,
		"ips":         res.IPs,
	})
}
