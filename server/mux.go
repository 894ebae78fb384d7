package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MuxParams struct {
	Log        logger.Logger
	BaseURL    string
	ICEServers []ICEServer
	Prometheus PrometheusConfig
	// FS is a directory with static files. Nothing is served when empty.
	FS string
	// Relay serves the signaling websocket.
	Relay http.Handler
}

type Mux struct {
	handler *chi.Mux
}

func (mux *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux.handler.ServeHTTP(w, r)
}

func NewMux(params MuxParams) *Mux {
	log := params.Log.WithNamespaceAppended("mux")

	baseURL := strings.TrimSuffix(params.BaseURL, "/")

	root := baseURL
	if root == "" {
		root = "/"
	}

	handler := chi.NewRouter()

	handler.Route(root, func(router chi.Router) {
		router.Get("/probes/liveness", probe)
		router.Get("/probes/health", probe)
		router.Get("/config.json", func(w http.ResponseWriter, r *http.Request) {
			// Credentials of secret auth servers expire so they are derived for
			// every request.
			clientConfig, err := json.Marshal(ClientConfig{
				BaseURL:    baseURL,
				ICEServers: ICEAuthServers(params.ICEServers, time.Now()),
			})
			if err != nil {
				log.Error("Marshal client config", errors.Trace(err), nil)
				w.WriteHeader(http.StatusInternalServerError)

				return
			}

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(clientConfig)
		})
		router.Get("/metrics", metricsHandler(params.Prometheus.AccessToken))
		router.Handle("/ws", params.Relay)

		if params.FS != "" {
			log.Info("Serving static files", logger.Ctx{
				"fs": params.FS,
			})

			router.Handle("/*", http.StripPrefix(baseURL, http.FileServer(http.Dir(params.FS))))
		}
	})

	return &Mux{
		handler: handler,
	}
}

func probe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// metricsHandler requires the access token either as a bearer token or as
// the access_token parameter. Metrics are never served without a token.
func metricsHandler(token string) http.HandlerFunc {
	metrics := promhttp.Handler()

	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get("Authorization")

		if strings.HasPrefix(accessToken, "Bearer ") {
			accessToken = accessToken[len("Bearer "):]
		} else {
			accessToken = r.FormValue("access_token")
		}

		if accessToken == "" || accessToken != token {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		metrics.ServeHTTP(w, r)
	}
}
