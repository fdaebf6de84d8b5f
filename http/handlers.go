package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"matchcast/db"
	"matchcast/ml"
	"matchcast/monitoring"
)

// Handlers serves the prediction API. The model is loaded once at startup
// and shared read-only; the store owns all record persistence. Feed,
// Metrics and ModelStale are optional.
type Handlers struct {
	Store      *db.Store
	Model      ml.Classifier
	Feed       *Feed
	Metrics    *monitoring.Metrics
	ModelStale func() bool
	Logger     *zap.Logger
}

// Register wires the API routes onto mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /predictions", h.handleList)
	mux.HandleFunc("DELETE /predictions/{id}", h.handleDelete)
	mux.HandleFunc("GET /health", h.handleHealth)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics.Handler())
	}
	if h.Feed != nil {
		mux.Handle("GET /ws/predictions", h.Feed)
	}
}

// handlePredict runs the serving pipeline: validate, infer, persist,
// respond. Validation failures stop the request before any side effect;
// a record is only written after inference succeeded, and the winner is
// only returned after the record committed.
func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	input, err := ml.DecodeMatchInput(r.Body)
	if err != nil {
		var verr *ml.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	label, confidence, err := h.Model.Predict(ml.FeatureVector(input))
	if err != nil {
		h.Logger.Error("inference failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	winner := ml.WinnerLabel(label)

	rec, err := h.Store.Insert(r.Context(), db.Prediction{
		Team1Strength:    input.Team1Strength,
		Team2Strength:    input.Team2Strength,
		WeatherCondition: input.WeatherCondition,
		PredictedWinner:  winner,
	})
	if err != nil {
		h.Logger.Error("persist prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.Logger.Debug("prediction served",
		zap.Int64("id", rec.ID),
		zap.String("winner", winner),
		zap.Float64("confidence", confidence))

	if h.Metrics != nil {
		h.Metrics.ObservePrediction(winner, time.Since(start))
	}
	if h.Feed != nil {
		h.Feed.Publish(rec)
	}

	respondJSON(w, map[string]string{"predicted_winner": winner})
}

func (h *Handlers) handleList(w http.ResponseWriter, r *http.Request) {
	predictions, err := h.Store.ListAll(r.Context())
	if err != nil {
		h.Logger.Error("list predictions failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, predictions)
}

func (h *Handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "prediction not found")
		return
	}

	if err := h.Store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(w, http.StatusNotFound, "prediction not found")
			return
		}
		h.Logger.Error("delete prediction failed", zap.Int64("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, map[string]string{"message": fmt.Sprintf("prediction %d deleted", id)})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	stale := false
	if h.ModelStale != nil {
		stale = h.ModelStale()
	}
	respondJSON(w, map[string]any{
		"status":      "ok",
		"model_stale": stale,
	})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
