package routes

import (
	"errors"
	"fmt"
	"golden-diff/internal/codec"
	diffimage "golden-diff/internal/diff/image"
	"golden-diff/internal/gate"
	"log/slog"
	"net/http"
	"time"
)

type AssertResponse struct {
	Result        string  `json:"result"`
	BaselineKey   string  `json:"baselineKey"`
	DiffURL       string  `json:"diffUrl,omitempty"`
	ChangedPixels int64   `json:"changedPixels,omitempty"`
	DiffAmount    float64 `json:"diffAmount,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func BaselineKey(key string) string {
	return fmt.Sprintf("baselines/%s.png", key)
}

// DiffKey names the diff of one failed assertion. Nanoseconds keep
// assertions on the same key within one second apart.
func DiffKey(key string, now time.Time) string {
	return fmt.Sprintf("diffs/%s/%s.png", key, now.UTC().Format("20060102150405.000000000"))
}

// ArtifactURL is the GetArtifact path serving key.
func ArtifactURL(key string) string {
	return "/api/artifacts/" + key
}

// Assert compares the multipart "actual" image against the baseline stored
// for the key, creating the baseline when there is none.
func Assert(g *gate.Gate, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := cleanKey(r.PathValue("key"))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if !parseUpload(w, r) {
			return
		}
		actualData, err := readFormFile(r, "actual")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		actual, _, err := codec.DecodeBytes(actualData)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("failed to decode actual image: %s", err)})
			return
		}

		response := AssertResponse{
			BaselineKey: BaselineKey(key),
		}

		diffKey := DiffKey(key, now())
		outcome, err := g.AssertEqualOrBootstrap(r.Context(), response.BaselineKey, actual, diffKey)
		var persisted *gate.DiffPersistedError
		var persistFailed *gate.DiffPersistFailedError
		switch {
		case err == nil && outcome == gate.OutcomeBaselineCreated:
			response.Result = outcome.String()
			writeJSON(w, http.StatusCreated, response)
		case err == nil:
			response.Result = outcome.String()
			writeJSON(w, http.StatusOK, response)
		case errors.As(err, &persisted):
			response.Result = "unequal"
			response.DiffURL = ArtifactURL(diffKey)
			response.ChangedPixels = persisted.ChangedPixels
			response.DiffAmount = persisted.DiffAmount
			writeJSON(w, http.StatusConflict, response)
		case errors.As(err, &persistFailed):
			slog.Error(fmt.Sprintf("failed to persist diff %s: %s", persistFailed.Key, err))
			response.Result = "unequal"
			response.Error = "failed to persist diff"
			writeJSON(w, http.StatusInternalServerError, response)
		case errors.Is(err, diffimage.ErrDimensionMismatch):
			response.Result = "dimension_mismatch"
			response.Error = err.Error()
			writeJSON(w, http.StatusUnprocessableEntity, response)
		default:
			slog.Error(fmt.Sprintf("failed to compare against baseline: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
