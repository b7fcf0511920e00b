package api

import (
	"encoding/json"
	"net/http"
)

// StatusResponse — ответ служебных endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
