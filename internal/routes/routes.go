package routes

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"golang.org/x/xerrors"
)

const maxUploadMemory = 32 << 20

var errInvalidKey = xerrors.New("invalid key")

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", errInvalidKey
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

// parseUpload answers 413 or 400 itself and reports false when the
// multipart form cannot be parsed.
func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseMultipartForm(maxUploadMemory)
	if err == nil {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	return false
}

func readFormFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, xerrors.Errorf("missing form file %s: %w", name, err)
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("failed to read form file %s: %w", name, err)
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
