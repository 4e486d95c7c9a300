package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/conecta2/conecta2/internal/platform/httpx"
	"github.com/conecta2/conecta2/internal/view"
)

// Directory is the presentation boundary of the controller.
type Directory interface {
	CurrentState() State
	LastError() error
	Refresh() <-chan Result
}

// Pinger reports remote reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler projects the directory into the screen and JSON API.
type Handler struct {
	logger    *slog.Logger
	directory Directory
	remote    Pinger
	templates *view.Engine
	printer   *Printer
	adminHash []byte
}

// HandlerConfig groups handler dependencies.
type HandlerConfig struct {
	Logger    *slog.Logger
	Directory Directory
	Remote    Pinger
	Templates *view.Engine
	Printer   *Printer
	// AdminTokenHash is a bcrypt hash; when set, manual refresh requires the
	// matching bearer token.
	AdminTokenHash string
}

// NewHandler builds Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	printer := cfg.Printer
	if printer == nil {
		printer = NewPrinter("")
	}
	h := &Handler{
		logger:    logger,
		directory: cfg.Directory,
		remote:    cfg.Remote,
		templates: cfg.Templates,
		printer:   printer,
	}
	if cfg.AdminTokenHash != "" {
		h.adminHash = []byte(cfg.AdminTokenHash)
	}
	return h
}

// MountRoutes registers the JSON API.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/refresh", h.refresh)
}

// Screen renders the directory page.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	state := h.directory.CurrentState()
	data := map[string]any{
		"HeroAlt": h.printer.HeroAlt(),
		"Lines":   h.printer.Lines(state),
		"Count":   h.printer.UserCount(len(state)),
		"Empty":   h.printer.Empty(),
	}
	if err := h.directory.LastError(); err != nil {
		data["Notice"] = h.printer.Stale()
	}
	viewData := view.TemplateData{
		Lang:        h.printer.Lang(),
		Title:       h.printer.Title(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/users.html", viewData); err != nil {
		h.logger.Error("render users page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// RemoteHealth reports whether the remote directory answers.
func (h *Handler) RemoteHealth(w http.ResponseWriter, r *http.Request) {
	if h.remote == nil {
		httpx.JSON(w, http.StatusOK, map[string]string{"remote": "unknown"})
		return
	}
	if err := h.remote.Ping(r.Context()); err != nil {
		h.logger.Warn("remote users ping", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"remote": "ok"})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.directory.CurrentState())
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httpx.RespondError(w, fmt.Errorf("%w: admin token required", httpx.ErrUnauthorized))
		return
	}
	select {
	case res := <-h.directory.Refresh():
		if res.Err != nil {
			h.respondRefreshError(w, res.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, res.Users)
	case <-r.Context().Done():
		httpx.RespondError(w, fmt.Errorf("%w: refresh still in flight", httpx.ErrTimeout))
	}
}

func (h *Handler) respondRefreshError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClosed):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err))
	case errors.Is(err, ErrTransport), errors.Is(err, ErrDecode):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
	default:
		h.logger.Error("refresh users", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if len(h.adminHash) == 0 {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.adminHash, []byte(token)) == nil
}
