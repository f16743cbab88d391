package api

import (
	"net/http"
	"testing"

	"jatrackr/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPipelineStages(t *testing.T) {
	tests := []struct {
		name string
		env  config.Environment
		opts PipelineOptions
		want []StageName
	}{
		{
			name: "production adds hsts",
			env:  config.EnvironmentProduction,
			want: []StageName{StageRecovery, StageRequestLog, StageHSTS, StageHTTPSRedirect, StageStaticFiles, StageRouting, StageFallback},
		},
		{
			name: "development adds docs",
			env:  config.EnvironmentDevelopment,
			want: []StageName{StageRecovery, StageRequestLog, StageDocs, StageHTTPSRedirect, StageStaticFiles, StageRouting, StageFallback},
		},
		{
			name: "other environments get neither",
			env:  config.Environment("Staging"),
			want: []StageName{StageRecovery, StageRequestLog, StageHTTPSRedirect, StageStaticFiles, StageRouting, StageFallback},
		},
		{
			name: "rate limit follows the environment stage",
			env:  config.EnvironmentProduction,
			opts: PipelineOptions{RateLimit: true},
			want: []StageName{StageRecovery, StageRequestLog, StageHSTS, StageRateLimit, StageHTTPSRedirect, StageStaticFiles, StageRouting, StageFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PipelineStages(tt.env, tt.opts))
		})
	}
}

func TestPipelineStages_FallbackAlwaysLast(t *testing.T) {
	for _, env := range []config.Environment{config.EnvironmentProduction, config.EnvironmentDevelopment, "QA"} {
		stages := PipelineStages(env, PipelineOptions{RateLimit: true})
		require.NotEmpty(t, stages)
		assert.Equal(t, StageFallback, stages[len(stages)-1], env.String())
		assert.Equal(t, StageRecovery, stages[0], env.String())
	}
}

func TestNewAPI_RateLimitStageNeedsLimiterAndBudget(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 5}, nil, zap.NewNop().Sugar())
	defer rl.Close()

	api, _, _ := setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{rateLimiter: rl})
	assert.NotContains(t, api.Stages(), StageRateLimit, "budget of zero disables the stage")

	api, _, _ = setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{
		rateLimiter: rl,
		configure:   func(c *config.Config) { c.API.RateLimit.RequestsPerSecond = 5 },
	})
	assert.Contains(t, api.Stages(), StageRateLimit)

	api, _, _ = setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{
		configure: func(c *config.Config) { c.API.RateLimit.RequestsPerSecond = 5 },
	})
	assert.NotContains(t, api.Stages(), StageRateLimit, "no limiter, no stage")
}

func TestAPI_StagesReturnsCopy(t *testing.T) {
	api, _, _ := setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{})
	stages := api.Stages()
	stages[0] = "mutated"
	assert.Equal(t, StageRecovery, api.Stages()[0])
}

func TestBuildPipeline_RecoveryWrapsEveryStage(t *testing.T) {
	api, users, _ := setupTestAPI(t, config.EnvironmentDevelopment, testAPIOptions{})
	users.panicOn = "ListUsers"

	rec := serve(api, http.MethodGet, "/users", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestBuildPipeline_UnknownStageIsSkipped(t *testing.T) {
	api, _, _ := setupTestAPI(t, config.EnvironmentProduction, testAPIOptions{})
	handler := api.buildPipeline([]StageName{"bogus", StageRouting, StageFallback})

	rec := httptestServe(handler, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}
