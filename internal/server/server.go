// Package server exposes a trained fraud model over HTTP.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/GoFraud/internal/features"
	"github.com/FlavioCFOliveira/GoFraud/internal/model"
)

//go:embed templates/index.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html"))

var ErrInvalidValue = errors.New("server: feature value is not a finite number")

// Server serves the prediction form and endpoint. The artifact is only
// read after construction, so handlers run concurrently.
type Server struct {
	artifact *model.Artifact
	clf      model.Classifier
	log      logrus.FieldLogger
	router   *mux.Router
	index    []byte
}

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the router for a loaded artifact.
func New(a *model.Artifact, log logrus.FieldLogger) (*Server, error) {
	clf, err := a.Classifier()
	if err != nil {
		return nil, err
	}
	s := &Server{artifact: a, clf: clf, log: log, router: mux.NewRouter()}

	derived := make(map[string]bool, len(features.Engineered))
	for _, name := range features.Engineered {
		derived[name] = true
	}
	var fields []string
	for _, name := range a.Features {
		if !derived[name] {
			fields = append(fields, name)
		}
	}
	var buf bytes.Buffer
	err = indexTmpl.Execute(&buf, struct {
		Kind, RunID string
		Fields      []string
	}{a.Kind, a.RunID, fields})
	if err != nil {
		return nil, fmt.Errorf("rendering index: %w", err)
	}
	s.index = buf.Bytes()

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/", s.home).Methods("GET")
	s.router.HandleFunc("/predict", s.predict).Methods("POST")
	s.router.HandleFunc("/healthz", s.health).Methods("GET")
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.index)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  s.artifact.Kind,
		"run_id": s.artifact.RunID,
	})
}

// predict scores one transaction. Every failure, panics included, is
// answered with status 500 and the error message.
func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.fail(w, fmt.Errorf("%v", rec))
		}
	}()

	rec, err := decodeRecord(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.WithField("data", rec).Debug("Incoming data")

	if err := features.EngineerRecord(rec); err != nil {
		s.fail(w, err)
		return
	}
	x, err := s.artifact.Vector(rec)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := PredictResponse{Probability: s.clf.PredictProba(x)}
	if resp.Probability > 0.5 {
		resp.Prediction = 1
	}
	s.log.WithFields(logrus.Fields{"prediction": resp.Prediction, "probability": resp.Probability}).Info("Prediction")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.WithError(err).Error("Prediction failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// decodeRecord reads a JSON object of feature values. Values may be
// numbers or numeric strings; NaN and infinities are rejected.
func decodeRecord(r *http.Request) (map[string]float64, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if raw == nil {
		return nil, errors.New("request body must be a JSON object")
	}

	rec := make(map[string]float64, len(raw))
	for name, v := range raw {
		var (
			f   float64
			err error
		)
		switch v := v.(type) {
		case json.Number:
			f, err = v.Float64()
		case string:
			f, err = strconv.ParseFloat(v, 64)
		default:
			err = ErrInvalidValue
		}
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, name)
		}
		rec[name] = f
	}
	return rec, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("Request handled")
	})
}
