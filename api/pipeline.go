package api

import (
	"net/http"

	"jatrackr/config"
)

// StageName identifies one middleware stage of the request pipeline
type StageName string

// Pipeline stages, listed in the order they see a request
const (
	StageRecovery      StageName = "recovery"
	StageRequestLog    StageName = "request-log"
	StageHSTS          StageName = "hsts"
	StageDocs          StageName = "docs"
	StageRateLimit     StageName = "rate-limit"
	StageHTTPSRedirect StageName = "https-redirect"
	StageStaticFiles   StageName = "static-files"
	StageRouting       StageName = "routing"
	StageFallback      StageName = "fallback"
)

// PipelineOptions carries the configuration-driven stage switches that do not
// depend on the deployment environment.
type PipelineOptions struct {
	RateLimit bool
}

// PipelineStages returns the ordered stage list for env. Production adds HSTS,
// development adds the API documentation UI, any other environment gets
// neither. The list always ends with the fallback stage.
func PipelineStages(env config.Environment, opts PipelineOptions) []StageName {
	stages := []StageName{StageRecovery, StageRequestLog}

	switch {
	case env.IsProduction():
		stages = append(stages, StageHSTS)
	case env.IsDevelopment():
		stages = append(stages, StageDocs)
	}

	if opts.RateLimit {
		stages = append(stages, StageRateLimit)
	}

	return append(stages,
		StageHTTPSRedirect,
		StageStaticFiles,
		StageRouting,
		StageFallback,
	)
}

// middleware returns the handler wrapper for a stage
func (a *API) middleware(stage StageName) func(http.Handler) http.Handler {
	switch stage {
	case StageRecovery:
		return a.errorRecoveryMiddleware
	case StageRequestLog:
		return a.requestLogMiddleware
	case StageHSTS:
		return a.hstsMiddleware
	case StageDocs:
		return a.docsMiddleware
	case StageRateLimit:
		return a.rateLimitMiddleware
	case StageHTTPSRedirect:
		return a.httpsRedirectMiddleware
	case StageStaticFiles:
		return a.staticFilesMiddleware
	case StageRouting:
		return a.routingMiddleware
	default:
		a.logger.Warnw("Unknown pipeline stage ignored", "stage", stage)
		return func(next http.Handler) http.Handler { return next }
	}
}

// buildPipeline chains the stages around the fallback handler so that the
// first stage in the list sees each request first.
func (a *API) buildPipeline(stages []StageName) http.Handler {
	handler := a.fallbackHandler()
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] == StageFallback {
			continue
		}
		handler = a.middleware(stages[i])(handler)
	}
	return handler
}
