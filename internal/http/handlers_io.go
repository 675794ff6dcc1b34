package http

import (
	"bytes"
	"errors"
	"net/http"

	"cantine/internal/core"
	"cantine/internal/csvio"
	"cantine/internal/export"
	"cantine/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func exportName(ext string) string {
	return "cantine-" + core.Now().Format("2006-01-02") + ext
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := csvio.Write(&buf, recs); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().
		Attachment("text/csv; charset=utf-8", exportName(".csv")).
		Body(buf.Bytes()).
		Write(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, recs, core.AggregateByMonth(recs)); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	NewResponse().
		Attachment(xlsxContentType, exportName(".xlsx")).
		Body(buf.Bytes()).
		Write(w)
}

// handleImport upserts the rows of an uploaded CSV or XLSX file. Rows that
// fail to parse or validate are listed in the report and skipped.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	parsed, err := ReadImport(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			ErrorResponse(http.StatusRequestEntityTooLarge, "import too large").Write(w)
		case statusFor(err) == http.StatusInternalServerError:
			// Header or workbook problems come from the upload itself.
			BadRequestError(err.Error()).Write(w)
		default:
			writeError(w, r, log.OpImport, err)
		}
		return
	}
	report, err := s.svc.Import(r.Context(), parsed)
	if err != nil {
		writeError(w, r, log.OpImport, err)
		return
	}
	NewResponse().JSON(report).Write(w)
}

// handleReset restores the seed data on backends that keep one. Other
// backends answer 409.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reset(r.Context()); err != nil {
		writeError(w, r, log.OpReset, err)
		return
	}
	s.dashCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}
