package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"minesweep/internal/game"
	"minesweep/internal/viewmodel"
	"minesweep/views/components"
	"minesweep/views/pages"
)

const appTitle = "Minesweeper"

type HomeHandler struct {
	store      *game.Store
	log        logrus.FieldLogger
	difficulty game.Difficulty
}

// NewHomeHandler serves the landing page. def preselects the difficulty.
func NewHomeHandler(store *game.Store, log logrus.FieldLogger, def game.Difficulty) *HomeHandler {
	if !def.Valid() {
		def = game.Easy
	}
	return &HomeHandler{store: store, log: log, difficulty: def}
}

func (h *HomeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Post("/games", h.createGame)
}

func (h *HomeHandler) home(w http.ResponseWriter, r *http.Request) {
	render(w, r, pages.HomePage(viewmodel.HomePage{
		Title:        appTitle,
		Difficulties: difficultyOptions(h.difficulty),
	}))
}

func (h *HomeHandler) createGame(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	d := h.difficulty
	if v := strings.TrimSpace(r.FormValue("difficulty")); v != "" {
		parsed, err := game.ParseDifficulty(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d = parsed
	}

	sess, err := h.store.CreateSession(d)
	if err != nil {
		h.log.WithError(err).WithField("difficulty", d).Error("create session")
		status := http.StatusInternalServerError
		if errors.Is(err, game.ErrUnknownDifficulty) {
			status = http.StatusBadRequest
		}
		http.Error(w, "could not create game", status)
		return
	}
	token, _ := h.store.OwnerToken(sess.ID)
	setOwnerCookie(w, sess.ID, token)
	http.Redirect(w, r, "/game/"+sess.ID, http.StatusSeeOther)
}

func difficultyOptions(selected game.Difficulty) []viewmodel.DifficultyOption {
	return lo.Map(game.Difficulties(), func(d game.Difficulty, _ int) viewmodel.DifficultyOption {
		return viewmodel.DifficultyOption{
			Value:    string(d),
			Label:    d.Label(),
			Selected: d == selected,
		}
	})
}
