package server

import (
	"encoding/json"
	"net/http"

	"code.cloudfoundry.org/lager/v3"

	"code.cloudfoundry.org/bootstrap"
)

type createResponse struct {
	Handle string `json:"handle"`
}

type listResponse struct {
	Handles []string `json:"handles"`
}

type destroyResponse struct{}

func (s *BootstrapServer) handlePing(w http.ResponseWriter, r *http.Request) {
	err := s.backend.Ping()
	if err != nil {
		s.writeError(w, err, s.logger.Session("ping"))
		return
	}

	s.writeResponse(w, map[string]string{})
}

func (s *BootstrapServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var spec bootstrap.ContainerSpec
	if !s.readRequest(&spec, w, r) {
		return
	}

	hLog := s.logger.Session("create", lager.Data{
		"request": spec,
	})

	hLog.Debug("creating")

	container, err := s.backend.Create(spec)
	if err != nil {
		s.writeError(w, err, hLog)
		return
	}

	hLog.Info("created", lager.Data{
		"handle": container.Handle(),
	})

	s.writeResponse(w, createResponse{Handle: container.Handle()})
}

func (s *BootstrapServer) handleList(w http.ResponseWriter, r *http.Request) {
	hLog := s.logger.Session("list")

	containers, err := s.backend.Containers()
	if err != nil {
		s.writeError(w, err, hLog)
		return
	}

	handles := []string{}
	for _, container := range containers {
		handles = append(handles, container.Handle())
	}

	s.writeResponse(w, listResponse{Handles: handles})
}

func (s *BootstrapServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	handle := r.FormValue(":handle")

	hLog := s.logger.Session("info", lager.Data{
		"handle": handle,
	})

	container, err := s.backend.Lookup(handle)
	if err != nil {
		s.writeError(w, err, hLog)
		return
	}

	info, err := container.Info()
	if err != nil {
		s.writeError(w, err, hLog)
		return
	}

	s.writeResponse(w, info)
}

func (s *BootstrapServer) handleDestroy(w http.ResponseWriter, r *http.Request) {
	handle := r.FormValue(":handle")

	hLog := s.logger.Session("destroy", lager.Data{
		"handle": handle,
	})

	err := s.backend.Destroy(handle)
	if err != nil {
		s.writeError(w, err, hLog)
		return
	}

	hLog.Info("destroyed")

	s.writeResponse(w, destroyResponse{})
}

func (s *BootstrapServer) writeError(w http.ResponseWriter, err error, logger lager.Logger) {
	logger.Error("failed", err)

	bootstrapError := bootstrap.Error{Err: err}

	w.WriteHeader(bootstrapError.StatusCode())
	json.NewEncoder(w).Encode(bootstrapError)
}

func (s *BootstrapServer) writeResponse(w http.ResponseWriter, msg interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

func (s *BootstrapServer) readRequest(msg interface{}, w http.ResponseWriter, r *http.Request) bool {
	err := json.NewDecoder(r.Body).Decode(msg)
	if err != nil {
		s.logger.Error("invalid-request", err)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(bootstrap.Error{Err: err})
		return false
	}

	return true
}
