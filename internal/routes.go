package internal

import (
	"net/http"
	"pixeld/internal/controllers"
	"pixeld/internal/providers"
)

func InitRoutes(trackController *controllers.TrackController, resolveController *controllers.ResolveController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/v1/track", http.HandlerFunc(trackController.Track))
	routers.Post("/v1/track/reset", http.HandlerFunc(trackController.Reset))
	routers.Get("/v1/resolve", http.HandlerFunc(resolveController.Resolve))
	return routers
}
