package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	handler := setupHandler(t, false)

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}

func TestRegisterRoutes_Patterns(t *testing.T) {
	handler := setupHandler(t, false)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	var patterns []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		patterns = append(patterns, method+" "+route)
		return nil
	})
	assert.NoError(t, err)

	for _, expected := range []string{
		"POST /valuations/",
		"POST /valuations/custom",
		"POST /valuations/batch",
		"POST /valuations/run-and-save",
		"GET /valuations/config",
		"GET /valuations/saved/",
		"GET /valuations/saved/{id}",
		"DELETE /valuations/saved/{id}",
	} {
		assert.Contains(t, patterns, expected)
	}
}
