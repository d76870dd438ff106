package routes

import (
	"encoding/base64"
	"errors"
	"fmt"
	"golden-diff/internal/codec"
	diffimage "golden-diff/internal/diff/image"
	"log/slog"
	"net/http"
)

type DiffResponse struct {
	Equal         bool    `json:"equal"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	ChangedPixels int64   `json:"changedPixels"`
	DiffAmount    float64 `json:"diffAmount"`
	DiffData      string  `json:"diffData,omitempty"`
}

// Diff answers with the diff mask of the "expected" and "actual" multipart
// images. The mask is omitted when the images are equal.
func Diff(differ diffimage.Differ) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUpload(w, r) {
			return
		}

		expectedData, err := readFormFile(r, "expected")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		actualData, err := readFormFile(r, "actual")
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		expected, _, err := codec.DecodeBytes(expectedData)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("failed to decode expected image: %s", err)})
			return
		}
		actual, _, err := codec.DecodeBytes(actualData)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("failed to decode actual image: %s", err)})
			return
		}

		result, err := differ.Calculate(expected, actual)
		if err != nil {
			if errors.Is(err, diffimage.ErrDimensionMismatch) {
				writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
				return
			}
			slog.Error(fmt.Sprintf("failed to calculate diff: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		response := DiffResponse{
			Equal:         result.ChangedPixels == 0,
			Width:         result.Mask.Width,
			Height:        result.Mask.Height,
			ChangedPixels: result.ChangedPixels,
			DiffAmount:    result.DiffAmount,
		}
		if !response.Equal {
			data, err := codec.EncodePNG(result.Mask)
			if err != nil {
				slog.Error(fmt.Sprintf("failed to encode diff: %s", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffData = base64.StdEncoding.EncodeToString(data)
		}

		writeJSON(w, http.StatusOK, response)
	}
}
