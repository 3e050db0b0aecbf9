package http

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders fiber errors as {"error": true, "message": ...}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/locations/search", handler.SearchLocations)
		api.Get("/locations/reverse", handler.ReverseGeocode)
		api.Get("/weather", handler.GetWeather)

		// Dashboard session
		dash := api.Group("/dashboard")
		dash.Get("/", handler.GetDashboard)
		dash.Put("/location", handler.SetLocation)
		dash.Put("/unit", handler.SetUnit)
		dash.Post("/refresh", handler.Refresh)
		dash.Put("/query", handler.SetQuery)
		dash.Get("/suggestions", handler.GetSuggestions)
		dash.Post("/detect", handler.DetectLocation)

		api.Get("/fetch-logs", handler.GetFetchLogs)
	}
}
