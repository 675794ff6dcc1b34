package http

import (
	"net/http"

	"cantine/internal/log"
)

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(recs).Write(w)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	date, err := ParsePathDate(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rec, err := s.svc.Get(r.Context(), date)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(rec).Write(w)
}

// handleCreateRecord stores the posted day, replacing any record with the
// same date. Derived fields in the body are ignored and recomputed.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := DecodeRecord(w, r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.svc.Save(r.Context(), rec)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRecordSaved(r.Context(), log.OpCreate, saved.Date, "")
	NewResponse().Status(http.StatusCreated).JSON(saved).Write(w)
}

// handleUpdateRecord replaces the record at the path date. A different date
// in the body renames the record; an empty one keeps the path date.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	date, err := ParsePathDate(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rec, err := DecodeRecord(w, r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if rec.Date == "" {
		rec.Date = date
	}
	saved, err := s.svc.Update(r.Context(), date, rec)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	op, previous := log.OpUpdate, ""
	if saved.Date != date {
		op, previous = log.OpRename, date
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRecordSaved(r.Context(), op, saved.Date, previous)
	NewResponse().JSON(saved).Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	date, err := ParsePathDate(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.Delete(r.Context(), date); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
