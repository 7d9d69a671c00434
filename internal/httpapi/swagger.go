//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	"stlauncher/internal/httpapi/apidocs"
)

// MountSwagger serves the API documentation under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.InstanceName(apidocs.SwaggerInfo.InstanceName()),
	))
}
