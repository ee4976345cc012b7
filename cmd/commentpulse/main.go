// Command commentpulse runs the ingestion and aggregation service: it
// triggers paginated comment ingestion runs, persists the latest result
// per target and serves the derived projections.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/commentpulse/commentpulse/pkg/aggregate"
	"github.com/commentpulse/commentpulse/pkg/classify"
	"github.com/commentpulse/commentpulse/pkg/comments"
	"github.com/commentpulse/commentpulse/pkg/fetcher"
	"github.com/commentpulse/commentpulse/pkg/ingest"
	"github.com/commentpulse/commentpulse/pkg/logging"
	"github.com/commentpulse/commentpulse/pkg/selection"
	"github.com/commentpulse/commentpulse/pkg/store"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SourceURL     string `envconfig:"SOURCE_URL" required:"true"`
	ClassifierURL string `envconfig:"CLASSIFIER_URL"`

	PageSize    int           `envconfig:"PAGE_SIZE" default:"100"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"BASE_DELAY" default:"1s"`
	PageDelay   time.Duration `envconfig:"PAGE_DELAY" default:"250ms"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// RedisAddr returns the host:port address for the Redis client.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		bootLogger := logging.Setup(logging.DefaultConfig())
		bootLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	}).With().Str("component", "main").Logger()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr()).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisAddr()).Msg("Connected to Redis")

	st := store.New(redisClient)

	var classifier ingest.Classifier
	if cfg.ClassifierURL != "" {
		classifier = classify.New(cfg.ClassifierURL)
	} else {
		logger.Warn().Msg("No classifier URL configured, records stay unclassified")
	}

	coordinator, err := ingest.New(ingest.Config{
		SourceURL: cfg.SourceURL,
		PageSize:  cfg.PageSize,
		PageDelay: cfg.PageDelay,
		Fetch: fetcher.Config{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
		},
	}, st, classifier, &logNotifier{logger: logging.NewLogger("notify")})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create coordinator")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.HandleFunc("/ingest", ingestHandler(coordinator))
	mux.HandleFunc("/results", resultsHandler(st))
	mux.HandleFunc("/credential", credentialHandler(st))
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("source", cfg.SourceURL).Msg("Starting commentpulse server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// logNotifier logs progress and completion events. The message transport
// to a UI lives outside this service; the notifier contract is the seam.
type logNotifier struct {
	logger zerolog.Logger
}

func (n *logNotifier) Progress(target string, processed int) {
	n.logger.Info().Str("target", target).Int("processed", processed).Msg("Ingestion progress")
}

func (n *logNotifier) Completed(update ingest.Update) {
	event := n.logger.Info().Str("target", update.Target)
	if update.Error != "" {
		event = n.logger.Warn().Str("target", update.Target).Str("error", update.Error)
	}
	if update.Result != nil {
		event = event.Int("records", update.Result.Processed)
	}
	event.Msg("Ingestion completed")
}

// runner triggers ingestion runs (implemented by ingest.Coordinator).
type runner interface {
	Run(ctx context.Context, hint, contextURL string) (*ingest.RunResult, error)
}

// resultLoader reads persisted run results (implemented by store.Store).
type resultLoader interface {
	GetResult(ctx context.Context, target string, v any) error
}

// credentialWriter stores the source credential (implemented by store.Store).
type credentialWriter interface {
	SetCredential(ctx context.Context, key string) error
}

// ingestRequest is the optional JSON trigger body.
type ingestRequest struct {
	Target     string `json:"target"`
	ContextURL string `json:"contextUrl"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "redis unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// ingestHandler triggers one run. Every trigger gets exactly one response:
// success with the total count, or an error string.
func ingestHandler(runs runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}

		req := ingestRequest{
			Target:     r.URL.Query().Get("target"),
			ContextURL: r.URL.Query().Get("contextUrl"),
		}
		if r.Body != nil {
			// A JSON body complements missing query parameters.
			var body ingestRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				if req.Target == "" {
					req.Target = body.Target
				}
				if req.ContextURL == "" {
					req.ContextURL = body.ContextURL
				}
			}
		}

		result, err := runs.Run(r.Context(), req.Target, req.ContextURL)
		if err != nil {
			writeError(w, ingestStatus(err), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"totalCount": result.Processed,
		})
	}
}

// ingestStatus maps run errors to HTTP status codes.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, ingest.ErrMissingIdentifier), errors.Is(err, ingest.ErrMissingCredential):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrRunInFlight):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// resultsHandler serves the latest persisted run for a target, with the
// projections recomputed on every request. An optional sentiment query
// parameter adds the strength breakdown for that selection.
func resultsHandler(results resultLoader) http.HandlerFunc {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("target")
		if target == "" {
			writeError(w, http.StatusBadRequest, "target parameter required")
			return
		}

		var stored ingest.StoredResult
		if err := results.GetResult(r.Context(), target, &stored); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no result for target "+target)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		projections := aggregate.Compute(stored.Run.Records)
		aggregate.Decorate(projections.Tokens, rng)

		response := map[string]any{
			"run":            stored.Run,
			"classification": stored.Classification,
			"projections":    projections,
		}

		if sentiment := r.URL.Query().Get("sentiment"); sentiment != "" {
			state := selection.NewState(stored.Run.Records)
			response["selection"] = state.Select(comments.Sentiment(sentiment))
		}

		writeJSON(w, http.StatusOK, response)
	}
}

// credentialHandler stores the source access credential.
func credentialHandler(credentials credentialWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "PUT required")
			return
		}

		var body struct {
			Key string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
			writeError(w, http.StatusBadRequest, "key field required")
			return
		}

		if err := credentials.SetCredential(r.Context(), body.Key); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
