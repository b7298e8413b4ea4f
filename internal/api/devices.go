package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nerrad567/device-relay/internal/relay"
)

type bindRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

type renameRequest struct {
	Name string `json:"name"`
}

// decodeBody decodes a JSON request body into v, reporting malformed input
// as relay.ErrBadRequest.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body too large", relay.ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON body", relay.ErrBadRequest)
	}
	return nil
}

// handleListDeviceTypes returns the device catalog.
func (s *Server) handleListDeviceTypes(w http.ResponseWriter, _ *http.Request) {
	types := s.service.ListTypes()
	writeData(w, http.StatusOK, map[string]any{"device_types": types, "count": len(types)})
}

// handleBindDevice binds a catalog device to the caller.
func (s *Server) handleBindDevice(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.service.Bind(r.Context(), identityFrom(r), req.DeviceID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, rec)
}

// handleListDevices returns the caller's devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.service.ListDevices(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one of the caller's devices.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Device(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

// handleLatest returns the device's latest telemetry snapshot.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := s.service.Latest(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, latest)
}

// handleUpdateSettings validates, stores and publishes a settings change.
//
// Request body: {"<field>": <value>, ...}
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var changes map[string]any
	if err := decodeBody(r, &changes); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.UpdateSettings(r.Context(), identityFrom(r), chi.URLParam(r, "id"), changes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"device_id": result.DeviceID,
		"settings":  result.Settings,
		"published": result.Published,
	})
}

// handleRenameDevice changes a device's display name.
func (s *Server) handleRenameDevice(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.service.Rename(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

// handleReleaseDevice unbinds a device from the caller.
func (s *Server) handleReleaseDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.Release(r.Context(), identityFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"device_id": id, "released": true})
}
