package ai

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adventure_ai_requests_total",
			Help: "Total number of completion requests by model and status.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_request_duration_seconds",
			Help:    "Duration of successful completion requests.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_prompt_tokens",
			Help:    "Prompt token count per completion request.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adventure_ai_completion_tokens",
			Help:    "Completion token count per completion request.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"model"},
	)
)

func observeTokenUsage(model string, usage UsageInfo) {
	if usage.PromptTokens > 0 {
		aiPromptTokens.WithLabelValues(model).Observe(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		aiCompletionTokens.WithLabelValues(model).Observe(float64(usage.CompletionTokens))
	}
}

// estimateTokens counts tokens locally for backends that omit usage data.
// Unknown models fall back to the cl100k_base encoding.
func estimateTokens(model, text string) int {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Msg("Token estimation unavailable")
			return 0
		}
	}
	return len(tke.Encode(text, nil, nil))
}
