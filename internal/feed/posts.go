package feed

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/middleware"
	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/post"
	"github.com/ghaggin/feed/internal/template"
	"github.com/ghaggin/feed/internal/view"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := h.gate.Session(ctx)

	profile, err := h.backend.GetProfile(ctx, session.Token(), session.UserID)
	if err != nil {
		h.log.Warn("loading profile", zap.String("user", session.UserID), zap.Error(err))
	}

	draft := h.sessions.PopDraft(ctx)
	td := &template.Data{
		PageTitle: "Inicio",
		Header:    view.Header(profile),
		EmptyText: view.EmptyText,
		Draft:     draft,
		Counter:   view.CharacterCounter(draft),
	}

	posts, err := h.posts.List(ctx, session)
	if err != nil {
		h.log.Error("loading posts", zap.Error(err))
		td.Flash = failed(msgLoadFailed)
	} else {
		td.Feed = view.Render(posts, session.UserID, h.clock.Now())
	}

	h.render(w, r, http.StatusOK, "home.html", td)
}

func (h *handlers) createPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := h.gate.Session(ctx)
	raw := r.PostFormValue("content")

	_, err := h.posts.Create(ctx, session, strings.TrimSpace(raw))
	if err != nil {
		h.log.Info("post rejected", zap.String("user", session.UserID), zap.Error(err))
		h.sessions.PutDraft(ctx, raw)

		var msg string
		switch {
		case errors.Is(err, post.ErrEmpty):
			msg = msgEmptyPost
		case errors.Is(err, post.ErrTooLong):
			msg = msgPostTooLong
		default:
			msg = msgPostFailed + backend.Message(err)
		}
		h.redirect(w, r, middleware.HomePath, model.NotificationError, msg)
		return
	}

	h.redirect(w, r, middleware.HomePath, model.NotificationSuccess, msgPosted)
}

func (h *handlers) deletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := h.gate.Session(ctx)
	id := model.ID(chi.URLParam(r, "id"))

	err := h.posts.Delete(ctx, session, id)
	switch {
	case errors.Is(err, post.ErrPermissionDenied):
		h.redirect(w, r, middleware.HomePath, model.NotificationError, msgDeleteFailed+msgNotYourPost)
	case err != nil:
		h.log.Warn("delete failed", zap.Stringer("post", id), zap.Error(err))
		h.redirect(w, r, middleware.HomePath, model.NotificationError, msgDeleteFailed+backend.Message(err))
	default:
		h.redirect(w, r, middleware.HomePath, "", "")
	}
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context()); err != nil {
		h.log.Error("logout failed", zap.Error(err))
		h.redirect(w, r, middleware.HomePath, model.NotificationError, msgLogoutFailed)
		return
	}

	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}
