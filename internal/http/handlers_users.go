package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	u, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.validate(); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	updated, err := s.users.UpdateProfile(r.Context(), core.User{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Position:  req.Position,
		Address:   req.Address,
	}, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(updated))
}
