// Package stats records per-request inference accounting -- prompt token
// count, time to first token, tokens/sec over the generation phase -- and
// exposes it two ways: as the usage object embedded in HTTP responses, via
// api.Metrics, and as Prometheus collectors for /metrics. Grounded on
// llm/server.go's CompletionResponse{PromptEvalCount, PromptEvalDuration,
// EvalCount, EvalDuration} fields from the teacher project.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fastllm/gateway/api"
)

// Recorder owns a private Prometheus registry so /metrics never picks up
// the default global collectors of whatever process embeds the gateway.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	promptTokens       prometheus.Counter
	completionTokens   prometheus.Counter
	requestsProcessing prometheus.Gauge
	requestsMax        prometheus.Gauge
	queueSize          prometheus.Gauge
	modelLoaded        prometheus.Gauge
	embeddingLoaded    prometheus.Gauge
	timeToFirstToken   prometheus.Histogram
	tokensPerSecond    prometheus.Histogram
}

// New constructs a Recorder with all collectors registered. maxActive is
// published once as fastllm_requests_max, matching the dispatcher's fixed
// admission bound.
func New(maxActive int) *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fastllm_requests_total",
		Help: "Total number of completed requests by endpoint.",
	}, []string{"endpoint"})

	r.promptTokens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fastllm_prompt_tokens_total",
		Help: "Total number of prompt tokens processed.",
	})
	r.completionTokens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fastllm_completion_tokens_total",
		Help: "Total number of completion tokens generated.",
	})
	r.requestsProcessing = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fastllm_requests_processing",
		Help: "Number of requests currently admitted and running.",
	})
	r.requestsMax = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fastllm_requests_max",
		Help: "Maximum number of requests the dispatcher admits concurrently.",
	})
	r.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fastllm_queue_size",
		Help: "Number of requests waiting for an admission slot.",
	})
	r.modelLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fastllm_model_loaded",
		Help: "1 if the completion model is loaded and ready, 0 otherwise.",
	})
	r.embeddingLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fastllm_embedding_model_loaded",
		Help: "1 if a separate embedding model is loaded and ready, 0 otherwise.",
	})
	r.timeToFirstToken = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fastllm_time_to_first_token_seconds",
		Help:    "Wall-clock time from request launch to the first generated token.",
		Buckets: prometheus.DefBuckets,
	})
	r.tokensPerSecond = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fastllm_tokens_per_second",
		Help:    "Completion-phase throughput in tokens per second.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	r.requestsMax.Set(float64(maxActive))
	// Create each endpoint's series at zero so fastllm_requests_total is
	// listed by /metrics before the first request finishes.
	for _, endpoint := range []string{"chat", "completion"} {
		r.requestsTotal.WithLabelValues(endpoint)
	}

	r.registry.MustRegister(
		r.requestsTotal, r.promptTokens, r.completionTokens,
		r.requestsProcessing, r.requestsMax, r.queueSize,
		r.modelLoaded, r.embeddingLoaded,
		r.timeToFirstToken, r.tokensPerSecond,
	)
	return r
}

// Registry exposes the collectors for promhttp.HandlerFor.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// SetOccupancy reports the dispatcher's current active/queued counts. The
// server calls this right before rendering /metrics rather than running a
// background ticker, since the dispatcher already tracks the numbers.
func (r *Recorder) SetOccupancy(active, queued int) {
	r.requestsProcessing.Set(float64(active))
	r.queueSize.Set(float64(queued))
}

// SetModelLoaded reports whether the completion and embedding models are
// ready. The server calls this once at startup; echo-style adapters that
// are always ready report true immediately.
func (r *Recorder) SetModelLoaded(model, embedding bool) {
	r.modelLoaded.Set(boolToFloat(model))
	r.embeddingLoaded.Set(boolToFloat(embedding))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Generation tracks the timing of one in-flight request from admission
// through its last token.
type Generation struct {
	rec          *Recorder
	endpoint     string
	start        time.Time
	firstToken   time.Time
	gotFirst     bool
	promptCount  int
	completionN  int
}

// Begin starts tracking a new request against endpoint (e.g. "chat",
// "completion").
func (r *Recorder) Begin(endpoint string) *Generation {
	return &Generation{rec: r, endpoint: endpoint, start: time.Now()}
}

// PromptTokens records the prompt's token count once it is known, before
// generation starts.
func (g *Generation) PromptTokens(n int) {
	g.promptCount = n
	g.rec.promptTokens.Add(float64(n))
}

// Token records the emission of one generated token, timing the first one
// specially for the time-to-first-token histogram.
func (g *Generation) Token() {
	if !g.gotFirst {
		g.firstToken = time.Now()
		g.gotFirst = true
		g.rec.timeToFirstToken.Observe(g.firstToken.Sub(g.start).Seconds())
	}
	g.completionN++
}

// Finish closes out the generation, recording throughput and returning the
// api.Metrics block the caller embeds in its response's usage object.
func (g *Generation) Finish() api.Metrics {
	g.rec.requestsTotal.WithLabelValues(g.endpoint).Inc()
	g.rec.completionTokens.Add(float64(g.completionN))

	now := time.Now()
	var evalTime time.Duration
	if g.gotFirst {
		evalTime = now.Sub(g.firstToken)
		if evalTime > 0 && g.completionN > 0 {
			g.rec.tokensPerSecond.Observe(float64(g.completionN) / evalTime.Seconds())
		}
	}

	var ttft time.Duration
	if g.gotFirst {
		ttft = g.firstToken.Sub(g.start)
	}

	return api.Metrics{
		PromptEvalCount:  g.promptCount,
		EvalCount:        g.completionN,
		EvalTime:         evalTime,
		TimeToFirstToken: ttft,
	}
}
