package http

import (
	"net/http"

	"cantine/internal/core"
	"cantine/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), core.Now().In(s.loc))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	d, err := s.dashboard(r.Context(), month)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewResponse().JSON(d).Write(w)
}

type monthsResponse struct {
	Months  [core.BucketCount]core.MonthlyBucket `json:"months"`
	Skipped core.SkipCounts                      `json:"skipped"`
}

// handleMonths serves the ten school-year buckets without the per-day
// payload of the dashboard.
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	rep := core.AggregateReport(recs)
	NewResponse().JSON(monthsResponse{
		Months: rep.Buckets,
		Skipped: core.SkipCounts{
			InvalidDate:     rep.SkippedInvalidDate,
			OutOfSchoolYear: rep.SkippedOutOfYear,
		},
	}).Write(w)
}

// handleSummary serves the headline figures over every record, or over one
// month when ?month=YYYY-MM is given.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("month") != "" {
		month, err := ParseMonthParam(r.URL.Query(), core.Now().In(s.loc))
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		d, err := s.dashboard(r.Context(), month)
		if err != nil {
			writeError(w, r, log.OpRead, err)
			return
		}
		NewResponse().JSON(d.MonthSummary).Write(w)
		return
	}

	recs, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(core.ComputeSummary(recs)).Write(w)
}
