package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"ecgprep/internal/converter"
	apperrors "ecgprep/internal/errors"
	"ecgprep/internal/files"
	"ecgprep/internal/middleware"
)

// ConversionRunner runs one batch conversion over a dataset root.
type ConversionRunner interface {
	Run(ctx context.Context, root string) (*converter.Result, error)
}

// RootLocator finds the dataset root when a request does not name one.
type RootLocator func() (string, error)

// ConversionRequest optionally names the dataset root directory. Relative
// roots are taken from the data directory; every root must lie inside it.
type ConversionRequest struct {
	Root string `json:"root,omitempty" validate:"omitempty,min=1"`
}

// ConversionStatus describes the current or last conversion run.
type ConversionStatus struct {
	Running    bool              `json:"running"`
	Root       string            `json:"root,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Result     *converter.Result `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ConversionHandler starts batch conversions in the background, one at a time.
// Progress is published through the runner's observer.
type ConversionHandler struct {
	runner       ConversionRunner
	locate       RootLocator
	dataDir      string
	baseCtx      context.Context
	validator    *middleware.RequestValidator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger

	mu     sync.Mutex
	status ConversionStatus
	seen   bool
	wg     sync.WaitGroup
}

// NewConversionHandler creates a conversion handler. Runs are bound to
// baseCtx, not to the request that started them. Roots are confined to
// dataDir.
func NewConversionHandler(
	baseCtx context.Context,
	runner ConversionRunner,
	locate RootLocator,
	dataDir string,
	validator *middleware.RequestValidator,
	errorHandler *apperrors.ErrorHandler,
	logger *slog.Logger,
) *ConversionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversionHandler{
		runner:       runner,
		locate:       locate,
		dataDir:      dataDir,
		baseCtx:      baseCtx,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "conversions")),
	}
}

// Routes returns the conversion routes
func (h *ConversionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Start)
	r.Get("/latest", h.Latest)
	return r
}

// Start handles POST /api/v1/conversions
func (h *ConversionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ConversionRequest
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if err := h.validator.DecodeAndValidate(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	root := req.Root
	if root == "" {
		var err error
		if root, err = h.locate(); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		// located roots already carry the data dir prefix
		if root, err = filepath.Abs(root); err != nil {
			h.errorHandler.HandleError(w, r, apperrors.NewStorageError("failed to resolve dataset root", err))
			return
		}
	}
	root, err := files.Confine(h.dataDir, root)
	if err != nil {
		h.logger.WarnContext(r.Context(), "conversion root rejected",
			slog.String("root", req.Root),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apperrors.NewValidationProblem(r.URL.Path, []apperrors.FieldError{
			{Field: "root", Message: "root must be inside the data directory"},
		}))
		return
	}

	h.mu.Lock()
	if h.status.Running {
		current := h.status.Root
		h.mu.Unlock()
		h.errorHandler.HandleError(w, r, apperrors.NewProblemDetails(
			http.StatusConflict,
			apperrors.TypeConflict,
			"Conversion In Progress",
			"A conversion is already running",
			r.URL.Path,
		).WithExtension("root", current))
		return
	}
	now := time.Now().UTC()
	h.status = ConversionStatus{Running: true, Root: root, StartedAt: &now}
	h.seen = true
	h.wg.Add(1)
	h.mu.Unlock()

	h.logger.InfoContext(r.Context(), "conversion started", slog.String("root", root))
	go h.run(root)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, h.snapshot())
}

func (h *ConversionHandler) run(root string) {
	defer h.wg.Done()

	result, err := h.runner.Run(h.baseCtx, root)

	finished := time.Now().UTC()
	h.mu.Lock()
	h.status.Running = false
	h.status.FinishedAt = &finished
	h.status.Result = result
	if err != nil {
		h.status.Error = err.Error()
	}
	h.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("conversion failed", slog.String("root", root), slog.String("error", err.Error()))
		return
	}
	h.logger.Info("conversion finished", slog.String("root", root))
}

// Latest handles GET /api/v1/conversions/latest
func (h *ConversionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	seen := h.seen
	h.mu.Unlock()
	if !seen {
		h.errorHandler.HandleError(w, r, apperrors.NewNotFoundError("conversion run"))
		return
	}
	render.JSON(w, r, h.snapshot())
}

func (h *ConversionHandler) snapshot() ConversionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Wait blocks until the running conversion, if any, returns.
func (h *ConversionHandler) Wait() {
	h.wg.Wait()
}
