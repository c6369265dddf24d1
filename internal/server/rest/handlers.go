package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/danielmvs/fleetsync/internal/common"
	"github.com/danielmvs/fleetsync/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	user, err := s.users.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		s.log.Error(r.Context(), "register failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "username": user.UserName})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	pair, err := s.users.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, common.ErrorUnauthorized)
			return
		}
		s.log.Error(r.Context(), "login failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, common.ErrRefreshTokenExpired)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleListCategory(w http.ResponseWriter, r *http.Request) {
	category := models.Category(mux.Vars(r)["category"])

	list, err := s.fleet.ListCategory(r.Context(), category)
	if err != nil {
		writeError(w, http.StatusNotFound, common.ErrorNotFound)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateInCategory(w http.ResponseWriter, r *http.Request) {
	category := models.Category(mux.Vars(r)["category"])

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	created, err := s.fleet.CreateInCategory(r.Context(), category, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	list, err := s.fleet.ListRegistrations(r.Context())
	if err != nil {
		s.log.Error(r.Context(), "list registrations failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateRegistration(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get(common.IdempotencyKeyHeaderName)
	if idempotencyKey == "" {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	reg := &models.Registration{}
	if err := json.NewDecoder(r.Body).Decode(reg); err != nil {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	confirmed, err := s.fleet.CreateRegistration(r.Context(), reg, idempotencyKey)
	if err != nil {
		if errors.Is(err, common.ErrUnknownKind) || errors.Is(err, common.ErrDetailsMismatch) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error(r.Context(), "create registration failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusCreated, confirmed)
}

func (s *Server) handleNewUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.uploads.GetPresignedPutUrl(r.Context())
	if err != nil {
		s.log.Error(r.Context(), "presign failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, common.ErrorValidation)
		return
	}

	url, err := s.uploads.GetPresignedGetUrl(r.Context(), key)
	if err != nil {
		s.log.Error(r.Context(), "presign failed", "err", err)
		writeError(w, http.StatusInternalServerError, common.ErrorInternal)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
