package api

import (
	"net/http"
	"regexp"

	"jatrackr/docs"

	"github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// SwaggerDocPath is where the OpenAPI description is served in development
const SwaggerDocPath = "/swagger/v1/swagger.json"

// swaggerUIPaths are the Swagger UI files mounted at the application root
var swaggerUIPaths = regexp.MustCompile(`^/(index\.html|doc\.json|swagger-ui[\w.-]*\.(?:css|js)(?:\.map)?|index\.css|swagger-initializer\.js|favicon-\d+x\d+\.png|oauth2-redirect\.html)?$`)

// docsMiddleware serves the OpenAPI description and mounts the Swagger UI at
// the application root. Other requests pass through.
func (a *API) docsMiddleware(next http.Handler) http.Handler {
	ui := httpSwagger.Handler(
		httpSwagger.URL(SwaggerDocPath),
		httpSwagger.InstanceName(docs.SwaggerInfo.InstanceName()),
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == SwaggerDocPath:
			a.serveSwaggerDoc(w, r)
		case (r.Method == http.MethodGet || r.Method == http.MethodHead) && swaggerUIPaths.MatchString(r.URL.Path):
			// The UI handler only answers GET
			if r.Method == http.MethodHead {
				r = r.Clone(r.Context())
				r.Method = http.MethodGet
			}
			ui.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (a *API) serveSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil, nil)
		return
	}

	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "API description unavailable", err, a.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
