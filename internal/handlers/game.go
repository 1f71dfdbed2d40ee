package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"minesweep/internal/game"
	"minesweep/internal/viewmodel"
	"minesweep/views/components"
	"minesweep/views/pages"
)

const keepAliveEvery = 25 * time.Second

type GameHandler struct {
	store   *game.Store
	log     logrus.FieldLogger
	baseURL string
	limit   func(http.Handler) http.Handler
}

// NewGameHandler serves a session's page, fragments, actions and stream.
// limit wraps the action routes; nil means no limit.
func NewGameHandler(store *game.Store, log logrus.FieldLogger, baseURL string, limit func(http.Handler) http.Handler) *GameHandler {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &GameHandler{
		store:   store,
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
	}
}

// RegisterRoutes registers the request/response routes. The SSE stream lives
// in RegisterStream so it can sit outside any request timeout.
func (h *GameHandler) RegisterRoutes(r chi.Router) {
	r.Get("/game/{id}", h.gamePage)
	r.Get("/game/{id}/board", h.boardFragment)
	r.Get("/game/{id}/status", h.statusFragment)
	r.Group(func(r chi.Router) {
		r.Use(h.limit)
		r.Post("/game/{id}/reveal", h.reveal)
		r.Post("/game/{id}/flag", h.flag)
		r.Post("/game/{id}/restart", h.restart)
	})
}

func (h *GameHandler) RegisterStream(r chi.Router) {
	r.Get("/game/{id}/stream", h.stream)
}

func (h *GameHandler) gamePage(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	sess, ok := h.store.GetSession(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	isOwner := sess.IsOwner(ownerTokenFromCookie(r, gameID))
	snap := sess.Snapshot()
	render(w, r, pages.GamePage(viewmodel.GamePage{
		Title:        appTitle,
		GameID:       gameID,
		ShareURL:     h.buildShareURL(r, gameID),
		IsOwner:      isOwner,
		Difficulties: difficultyOptions(snap.Difficulty),
		Board:        buildBoardFragment(snap, isOwner),
		Status:       buildStatusFragment(snap, isOwner),
	}))
}

func (h *GameHandler) boardFragment(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	sess, ok := h.store.GetSession(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	isOwner := sess.IsOwner(ownerTokenFromCookie(r, gameID))
	render(w, r, components.BoardFragment(buildBoardFragment(sess.Snapshot(), isOwner)))
}

func (h *GameHandler) statusFragment(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	sess, ok := h.store.GetSession(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	isOwner := sess.IsOwner(ownerTokenFromCookie(r, gameID))
	render(w, r, components.StatusFragment(buildStatusFragment(sess.Snapshot(), isOwner)))
}

func (h *GameHandler) reveal(w http.ResponseWriter, r *http.Request) {
	h.cellAction(w, r, "reveal", h.store.Reveal)
}

func (h *GameHandler) flag(w http.ResponseWriter, r *http.Request) {
	h.cellAction(w, r, "flag", h.store.ToggleFlag)
}

type cellActionFunc func(id string, row, col int) (game.Result, error)

func (h *GameHandler) cellAction(w http.ResponseWriter, r *http.Request, name string, act cellActionFunc) {
	gameID := chi.URLParam(r, "id")
	sess, ok := h.owned(w, r, gameID)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	row, col, err := parseCell(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := act(gameID, row, col); err != nil {
		h.actionError(w, r, gameID, name, err)
		return
	}
	if isHTMX(r) {
		render(w, r, components.BoardFragment(buildBoardFragment(sess.Snapshot(), true)))
		return
	}
	http.Redirect(w, r, "/game/"+gameID, http.StatusSeeOther)
}

func (h *GameHandler) restart(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	sess, ok := h.owned(w, r, gameID)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	d := sess.Difficulty()
	if v := strings.TrimSpace(r.FormValue("difficulty")); v != "" {
		parsed, err := game.ParseDifficulty(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d = parsed
	}
	if err := h.store.Restart(gameID, d); err != nil {
		h.actionError(w, r, gameID, "restart", err)
		return
	}
	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/game/"+gameID, http.StatusSeeOther)
}

func (h *GameHandler) stream(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	sess, ok := h.store.GetSession(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	hub, ok := h.store.Broadcaster(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.log.WithError(err).WithField("session", gameID).Debug("stream keeps server write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	isOwner := sess.IsOwner(ownerTokenFromCookie(r, gameID))
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)
	if _, ok := h.store.GetSession(gameID); !ok {
		// removed before we subscribed
		http.NotFound(w, r)
		return
	}

	send := func(board, status bool) {
		snap := sess.Snapshot()
		if board {
			writeSSE(w, "board", renderToString(r, components.BoardFragment(buildBoardFragment(snap, isOwner))))
		}
		if status {
			writeSSE(w, "status", renderToString(r, components.StatusFragment(buildStatusFragment(snap, isOwner))))
		}
		flusher.Flush()
	}

	send(true, true)

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub:
			if !ok {
				// session removed
				return
			}
			switch event {
			case game.EventBoard:
				send(true, false)
			case game.EventStatus, game.EventClock:
				send(false, true)
			}
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

// owned looks the session up and checks the caller holds its owner cookie,
// writing 404 or 403 if not.
func (h *GameHandler) owned(w http.ResponseWriter, r *http.Request, gameID string) (*game.Session, bool) {
	sess, ok := h.store.GetSession(gameID)
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	if !sess.IsOwner(ownerTokenFromCookie(r, gameID)) {
		http.Error(w, "only the player who started this game can play it", http.StatusForbidden)
		return nil, false
	}
	return sess, true
}

func (h *GameHandler) actionError(w http.ResponseWriter, r *http.Request, gameID, action string, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		http.NotFound(w, r)
	case errors.Is(err, game.ErrUnknownDifficulty):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.WithError(err).WithFields(logrus.Fields{"session": gameID, "action": action}).Error("action failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *GameHandler) buildShareURL(r *http.Request, gameID string) string {
	if h.baseURL != "" {
		return h.baseURL + "/game/" + gameID
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/game/" + gameID
}

var errBadCell = errors.New("row and col must be integers")

func parseCell(r *http.Request) (int, int, error) {
	row, err := strconv.Atoi(strings.TrimSpace(r.FormValue("row")))
	if err != nil {
		return 0, 0, errBadCell
	}
	col, err := strconv.Atoi(strings.TrimSpace(r.FormValue("col")))
	if err != nil {
		return 0, 0, errBadCell
	}
	return row, col, nil
}

func ownerTokenFromCookie(r *http.Request, gameID string) string {
	cookie, err := r.Cookie(ownerCookieName(gameID))
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setOwnerCookie(w http.ResponseWriter, gameID string, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     ownerCookieName(gameID),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
}

func ownerCookieName(gameID string) string {
	return "minesweep_owner_" + gameID
}

func buildBoardFragment(snap game.Snapshot, isOwner bool) viewmodel.BoardFragment {
	return viewmodel.BoardFragment{
		GameID:   snap.ID,
		Rows:     snap.Rows,
		Cols:     snap.Cols,
		Playable: isOwner && snap.Status == game.StatusPlaying,
		Cells: lo.Map(snap.Cells, func(row []game.CellView, _ int) []viewmodel.Cell {
			return lo.Map(row, func(c game.CellView, _ int) viewmodel.Cell { return toCell(c) })
		}),
	}
}

func toCell(c game.CellView) viewmodel.Cell {
	out := viewmodel.Cell{Row: c.Row, Col: c.Col}
	switch {
	case c.Flagged:
		out.Class, out.Text, out.Hidden, out.Flagged = "cell flagged", "⚑", true, true
	case !c.Revealed:
		out.Class, out.Hidden = "cell hidden", true
	case c.Mine:
		out.Class, out.Text = "cell open mine", "✹"
	case c.Adjacent > 0:
		n := strconv.Itoa(c.Adjacent)
		out.Class, out.Text = "cell open n"+n, n
	default:
		out.Class = "cell open"
	}
	return out
}

func buildStatusFragment(snap game.Snapshot, isOwner bool) viewmodel.StatusFragment {
	return viewmodel.StatusFragment{
		GameID:         snap.ID,
		Status:         string(snap.Status),
		Difficulty:     snap.Difficulty.Label(),
		ElapsedSeconds: snap.ElapsedSeconds,
		MinesLeft:      snap.MinesLeft,
		Message:        snap.Message,
		IsOwner:        isOwner,
	}
}
