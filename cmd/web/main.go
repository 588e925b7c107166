package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"video-cover-maker/internal/config"
	"video-cover-maker/internal/cover"
	"video-cover-maker/internal/httpclient"
	"video-cover-maker/internal/provider"
	"video-cover-maker/internal/provider/gemini"
	"video-cover-maker/internal/provider/taskqueue"
)

type server struct {
	svc            *cover.Service
	creds          *provider.Resolver
	logger         *slog.Logger
	requestTimeout time.Duration
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type coverResponse struct {
	Artifacts []cover.Artifact `json:"artifacts"`
}

type providerState struct {
	Active    string `json:"active"`
	Available bool   `json:"available"`
}

type providerUpdate struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	creds := provider.NewResolver(cfg.ActiveProvider, map[string]string{
		provider.Direct: cfg.GeminiAPIKey,
		provider.Queue:  cfg.QueueAPIKey,
	})

	svc := cover.NewService(cover.Options{
		Generators: map[string]cover.Generator{
			provider.Direct: gemini.New(gemini.Options{
				BaseURL:    cfg.GeminiBaseURL,
				APIVersion: cfg.GeminiAPIVersion,
				Model:      cfg.GeminiModel,
				HTTPClient: httpClient,
				Logger:     logger,
			}),
			provider.Queue: taskqueue.New(taskqueue.Options{
				BaseURL:         cfg.QueueBaseURL,
				Model:           cfg.QueueModel,
				HTTPClient:      httpClient,
				Logger:          logger,
				PollInterval:    cfg.PollInterval,
				MaxPollAttempts: cfg.MaxPollAttempts,
				ImageProxyURL:   cfg.ImageProxyURL,
			}),
		},
		Credentials: creds,
		History:     cover.NewHistory(),
		Logger:      logger,
		Resolution:  cfg.Resolution,
		PaceDelay:   cfg.PaceDelay,
	})

	s := &server{
		svc:            svc,
		creds:          creds,
		logger:         logger,
		requestTimeout: cfg.RequestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/cover", s.handleCover)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/provider", s.handleProvider)

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           withLogging(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web started", "addr", cfg.WebAddr, "provider", creds.Active())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shut down cleanly")
}

func (s *server) handleCover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	const maxUploadBytes = 25 << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing image", Kind: string(cover.KindValidation)})
		return
	}
	defer file.Close()

	imgBytes, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read image"})
		return
	}

	req := cover.Request{
		ImageData:       imgBytes,
		ImageMIME:       sniffMIME(header.Header.Get("Content-Type"), imgBytes),
		Title:           r.FormValue("title"),
		ClothingStyle:   strings.TrimSpace(r.FormValue("clothing_style")),
		BackgroundScene: strings.TrimSpace(r.FormValue("background_scene")),
		Modification:    strings.TrimSpace(r.FormValue("modification")),
		AspectRatio:     strings.TrimSpace(r.FormValue("aspect_ratio")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	// a caller-supplied key pins provider and secret for this request
	// only; the stored selection is untouched
	var artifacts []cover.Artifact
	if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" {
		providerID := strings.TrimSpace(r.Header.Get("X-Provider"))
		if providerID == "" {
			providerID = s.creds.Active()
		}
		artifacts, err = s.svc.GenerateAs(ctx, req, provider.Override{ProviderID: providerID, Key: key}, nil)
	} else {
		artifacts, err = s.svc.Generate(ctx, req, nil)
	}
	if err != nil {
		kind := cover.KindOf(err)
		s.logger.Error("generation failed", "kind", kind, "err", err)
		writeJSON(w, statusForKind(kind), apiError{Error: err.Error(), Kind: string(kind)})
		return
	}

	writeJSON(w, http.StatusOK, coverResponse{Artifacts: artifacts})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.History().Entries())
}

func (s *server) handleProvider(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_, available := s.creds.Secret()
		writeJSON(w, http.StatusOK, providerState{Active: s.creds.Active(), Available: available})

	case http.MethodPost:
		var update providerUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
			return
		}

		if update.Provider != "" && !s.creds.SetActive(update.Provider) {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "unknown provider, use direct or queue"})
			return
		}
		if update.APIKey != "" {
			s.creds.SetUserSecret(s.creds.Active(), update.APIKey)
		}

		_, available := s.creds.Secret()
		writeJSON(w, http.StatusOK, providerState{Active: s.creds.Active(), Available: available})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	}
}

func statusForKind(kind cover.Kind) int {
	switch kind {
	case cover.KindValidation:
		return http.StatusBadRequest
	case cover.KindCredential:
		return http.StatusUnauthorized
	case cover.KindOverloaded:
		return http.StatusTooManyRequests
	case cover.KindTaskTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func sniffMIME(headerValue string, data []byte) string {
	mimeType := strings.TrimSpace(headerValue)
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
