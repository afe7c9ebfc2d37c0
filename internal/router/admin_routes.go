package router

import "github.com/labstack/echo/v4"

// RegisterAdmin mounts the back-office endpoints. Every route requires a
// valid token whose user currently holds the ADMIN role.
func RegisterAdmin(api *echo.Group, h Handlers, g Guards) {
	admin := api.Group("/admin", g.Auth, g.Admin)

	admin.GET("/movies", h.Movies.AdminList)
	admin.POST("/movies", h.Movies.Create)
	admin.PATCH("/movies/:id", h.Movies.Update)
	admin.DELETE("/movies/:id", h.Movies.Delete)
	admin.POST("/movies/:id/toggle", h.Movies.Toggle)

	admin.GET("/promotions", h.Promotions.AdminList)
	admin.POST("/promotions", h.Promotions.Create)
	admin.PATCH("/promotions/:id", h.Promotions.Update)
	admin.DELETE("/promotions/:id", h.Promotions.Delete)
}
