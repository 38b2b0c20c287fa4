package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"recview/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v as JSON with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// escapePath percent-encodes each segment of a slash separated relative path.
func escapePath(rel string) string {
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func videoURL(rel string) string {
	return "/videos/" + escapePath(rel)
}

func downloadURL(rel string) string {
	return videoURL(rel) + "?download=1"
}

func listingURL(rel string) string {
	if rel == "" {
		return "/"
	}
	return "/?dir=" + url.QueryEscape(rel)
}
