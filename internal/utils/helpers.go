package utils

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/auction-service/internal/models"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := models.ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Println(err)
	}
}

// SendJSONResponse отправляет произвольный ответ в формате JSON
func SendJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Println(err)
	}
}

// DatetimeToStr переводит время в строковый вид для документов и патчей.
func DatetimeToStr(t time.Time) string {
	return t.Format(time.RFC3339)
}
