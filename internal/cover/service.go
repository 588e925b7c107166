package cover

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	"video-cover-maker/internal/retry"
)

// Job is the provider-facing unit of work for one aspect ratio.
type Job struct {
	Prompt      string
	ImageBase64 string
	ImageMIME   string
	AspectRatio string
	Resolution  string
	Secret      string
}

// Generator produces one cover image for one aspect ratio and returns a
// self-describing data URI. Queue providers may degrade to a plain URL
// when only a remote reference is available.
type Generator interface {
	Generate(ctx context.Context, job Job) (string, error)
}

// CredentialSource yields the active provider id and its effective
// secret. Secret validity is only ever learned from a failed call.
type CredentialSource interface {
	Active() string
	Secret() (string, bool)
}

// Artifact is one generated cover. Immutable once produced.
type Artifact struct {
	AspectRatio string `json:"aspect_ratio"`
	DataURI     string `json:"data_uri"`
}

// Progress receives human-readable stage text while a generation runs.
type Progress func(text string)

type Options struct {
	// Generators maps provider ids to their adapters.
	Generators  map[string]Generator
	Credentials CredentialSource
	History     *History
	Logger      *slog.Logger

	// Resolution is the provider resolution tier, e.g. "2K".
	Resolution string

	// PaceDelay spaces out consecutive batch calls. Defaults to 1s.
	PaceDelay time.Duration

	Retry retry.Options
}

// Service drives the generation pipeline: validate, build the prompt,
// resolve credentials, call the retry-wrapped adapter per ratio, record
// successes in the history ledger.
type Service struct {
	generators map[string]Generator
	creds      CredentialSource
	history    *History
	logger     *slog.Logger
	resolution string
	paceDelay  time.Duration
	retryOpts  retry.Options
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	history := opts.History
	if history == nil {
		history = NewHistory()
	}

	paceDelay := opts.PaceDelay
	if paceDelay <= 0 {
		paceDelay = time.Second
	}

	retryOpts := opts.Retry
	if retryOpts.Retryable == nil {
		retryOpts.Retryable = IsOverloaded
	}
	if retryOpts.Logger == nil {
		retryOpts.Logger = logger
	}

	return &Service{
		generators: opts.Generators,
		creds:      opts.Credentials,
		history:    history,
		logger:     logger,
		resolution: opts.Resolution,
		paceDelay:  paceDelay,
		retryOpts:  retryOpts,
	}
}

func (s *Service) History() *History {
	return s.history
}

// Generate runs req against the active provider's credentials.
func (s *Service) Generate(ctx context.Context, req Request, progress Progress) ([]Artifact, error) {
	return s.GenerateAs(ctx, req, s.creds, progress)
}

// GenerateAs runs req with an explicit credential source, which lets a
// front-end pin a caller-supplied key for a single request without
// touching the stored selection.
//
// Single-ratio mode returns the adapter's error as-is. Batch mode
// tolerates per-ratio failures and fails only when nothing succeeded.
func (s *Service) GenerateAs(ctx context.Context, req Request, creds CredentialSource, progress Progress) ([]Artifact, error) {
	if progress == nil {
		progress = func(string) {}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	gen, secret, err := s.resolve(creds)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(req.Title, req.ClothingStyle, req.BackgroundScene, req.Modification)

	mimeType := req.ImageMIME
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	imageBase64 := base64.StdEncoding.EncodeToString(req.ImageData)

	ratios := req.Ratios()
	batch := len(ratios) > 1

	var artifacts []Artifact
	var lastErr error

	for i, ratio := range ratios {
		if i > 0 {
			// pacing between calls keeps the provider from throttling
			// the batch
			if err := sleepCtx(ctx, s.paceDelay); err != nil {
				return artifacts, err
			}
		}

		progress(fmt.Sprintf("Generating %s (%d/%d)...", ratio, i+1, len(ratios)))

		job := Job{
			Prompt:      prompt,
			ImageBase64: imageBase64,
			ImageMIME:   mimeType,
			AspectRatio: ratio,
			Resolution:  s.resolution,
			Secret:      secret,
		}

		dataURI, err := retry.Do(ctx, func(ctx context.Context) (string, error) {
			return gen.Generate(ctx, job)
		}, s.retryOpts)
		if err != nil {
			if !batch {
				return nil, err
			}
			lastErr = err
			s.logger.Warn("cover variant failed", "ratio", ratio, "err", err)
			continue
		}

		artifacts = append(artifacts, Artifact{AspectRatio: ratio, DataURI: dataURI})
		s.history.Add(HistoryEntry{
			DataURI:         dataURI,
			Title:           req.Title,
			ClothingStyle:   req.ClothingStyle,
			BackgroundScene: req.BackgroundScene,
		})
	}

	if len(artifacts) == 0 {
		return nil, E(KindAllFailed, "all %d variants failed", len(ratios)).WithCause(lastErr)
	}
	return artifacts, nil
}

func (s *Service) resolve(creds CredentialSource) (Generator, string, error) {
	active := creds.Active()

	gen, ok := s.generators[active]
	if !ok {
		return nil, "", E(KindCredential, "unknown provider %q", active)
	}

	secret, ok := creds.Secret()
	if !ok {
		return nil, "", E(KindCredential, "no API key configured for provider %q", active)
	}

	return gen, secret, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
