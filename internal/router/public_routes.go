package router

import "github.com/labstack/echo/v4"

// RegisterPublic mounts the browse, booking and checkout endpoints. None
// of them require a token.
func RegisterPublic(api *echo.Group, h Handlers, g Guards) {
	movies := api.Group("/movies", g.Cache)
	movies.GET("", h.Movies.List)
	movies.GET("/public", h.Movies.List)
	movies.GET("/search", h.Movies.List)

	st := api.Group("/showtimes")
	st.POST("/ensure", h.Showtimes.Ensure)
	st.GET("/schedule", h.Showtimes.Schedule)
	st.GET("/:id/seats", h.Showtimes.Seats)
	st.POST("/:id/holds", h.Showtimes.PlaceHold)
	st.DELETE("/:id/holds/:token", h.Showtimes.ReleaseHold)

	api.GET("/promotions/preview", h.Promotions.Preview)
	api.POST("/promotions/apply", h.Promotions.Apply)

	api.POST("/payments/confirm", h.Payments.Confirm)
}
