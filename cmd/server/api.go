package main

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/report"
)

const maxUploadBytes = 10 << 20

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/hts/{code}", s.handleLookup)
		r.Post("/calculate", s.handleCalculate)
		r.Post("/batch", s.handleBatch)
		r.Get("/batch/template", s.handleBatchTemplate)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Count(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "hts_entries": n})
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	entry, err := s.store.Lookup(r.Context(), code)
	if errors.Is(err, duty.ErrCodeNotFound) {
		err = &duty.Error{Kind: duty.KindLookupFailure, Code: code, Err: err}
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// calculateRequest is one line item. DutyRate, when set, is evaluated
// instead of the rate on file for HTSCode.
type calculateRequest struct {
	HTSCode         string          `json:"hts_code"`
	Cost            decimal.Decimal `json:"cost"`
	Freight         decimal.Decimal `json:"freight"`
	Insurance       decimal.Decimal `json:"insurance"`
	Quantity        int             `json:"quantity"`
	UnitWeight      decimal.Decimal `json:"unit_weight"`
	CountryOfOrigin string          `json:"country_of_origin"`
	DutyRate        string          `json:"duty_rate"`
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeFailure(w, r, &duty.Error{Kind: duty.KindInvalidInput, Reason: "request body is not a valid line item", Err: err})
		return
	}

	item, err := duty.NewShipmentLineItem(duty.ShipmentInput{
		HTSCode:         req.HTSCode,
		Cost:            req.Cost,
		Freight:         req.Freight,
		Insurance:       req.Insurance,
		Quantity:        req.Quantity,
		UnitWeight:      req.UnitWeight,
		CountryOfOrigin: req.CountryOfOrigin,
	}, s.calc.Config())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	var res duty.Result
	if req.DutyRate != "" {
		res, err = s.calc.Calculate(item, req.DutyRate, "")
	} else {
		res, err = s.calc.CalculateCode(r.Context(), item, s.store)
	}
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	body, closeBody, err := uploadBody(r)
	if err != nil {
		s.writeFailure(w, r, &duty.Error{Kind: duty.KindInvalidInput, Field: "file", Reason: "could not read upload", Err: err})
		return
	}
	defer closeBody()

	rows, err := report.ReadBatchCSV(body, s.calc.Config())
	if err != nil {
		s.writeFailure(w, r, &duty.Error{Kind: duty.KindInvalidInput, Field: "file", Err: err})
		return
	}

	entries, err := duty.ResolveEntries(r.Context(), s.store, rows)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	res, err := s.batch.Process(r.Context(), entries)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="landed_costs.csv"`)
		if err := report.WriteResults(w, res); err != nil {
			s.logger.Error("write batch csv", zap.String("batch_id", res.ID), zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// uploadBody returns the CSV of a batch request: the multipart "file" part
// when the request is a form upload, the raw body otherwise.
func uploadBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func (s *server) handleBatchTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="batch_template.csv"`)
	if err := report.WriteTemplate(w); err != nil {
		s.logger.Error("write batch template", zap.Error(err))
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusForKind(kind duty.ErrorKind) int {
	switch kind {
	case duty.KindLookupFailure:
		return http.StatusNotFound
	case duty.KindParseUnresolved, duty.KindMissingStructuralInput:
		return http.StatusUnprocessableEntity
	case duty.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure reports a calculation failure to the client as is. Anything
// else is logged and hidden behind a generic 500.
func (s *server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := duty.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, status, errorResponse{Error: "internal", Message: "internal server error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: string(kind), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
