package feed

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/middleware"
	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/post"
	"github.com/ghaggin/feed/internal/template"
	"github.com/ghaggin/feed/internal/view"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	msgMissingFields   = "Por favor completa todos los campos"
	msgLoginFailed     = "Error en el login: "
	msgRegisterFailed  = "Error en el registro: "
	msgRegistered      = "¡Registro exitoso! Ya puedes iniciar sesión."
	msgLoadFailed      = "Error cargando tweets"
	msgPosted          = "¡Tweet publicado!"
	msgEmptyPost       = "El tweet no puede estar vacío"
	msgPostTooLong     = "El tweet no puede tener más de 280 caracteres"
	msgPostFailed      = "Error al publicar tweet: "
	msgDeleteFailed    = "Error al eliminar tweet: "
	msgNotYourPost     = "No tienes permiso para eliminar este tweet"
	msgLogoutFailed    = "Error al cerrar sesión"
	msgSessionProblem  = "No se pudo guardar la sesión"
	maxCounterBodySize = 64 << 10
)

type handlers struct {
	sessions *middleware.SessionManager
	gate     *middleware.Gate
	backend  backend.Client
	posts    *post.Repository
	clock    clockwork.Clock
	log      *zap.Logger
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, status int, tmpl string, td *template.Data) {
	// a pending flash is consumed even when the page brings its own
	pending := h.sessions.PopFlash(r.Context())
	if td.Flash == nil {
		td.Flash = pending
	}

	if err := template.RenderStatus(w, r, status, tmpl, td); err != nil {
		h.log.Error("render failed", zap.String("template", tmpl), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *handlers) redirect(w http.ResponseWriter, r *http.Request, to string, kind model.NotificationKind, msg string) {
	if msg != "" {
		h.sessions.Flash(r.Context(), kind, msg)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func failed(msg string) *model.Notification {
	return &model.Notification{Kind: model.NotificationError, Message: msg}
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK\n"))
}

type counterRequest struct {
	Text string `json:"text"`
}

func (h *handlers) counter(w http.ResponseWriter, r *http.Request) {
	var req counterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCounterBodySize)).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view.CharacterCounter(req.Text)); err != nil {
		h.log.Warn("writing counter", zap.Error(err))
	}
}

func (h *handlers) loginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", &template.Data{
		PageTitle: "Iniciar sesión",
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	td := &template.Data{
		PageTitle: "Iniciar sesión",
		Email:     email,
	}

	if email == "" || password == "" {
		td.Flash = failed(msgMissingFields)
		h.render(w, r, http.StatusUnprocessableEntity, "login.html", td)
		return
	}

	session, err := h.backend.SignIn(r.Context(), email, password)
	if err != nil {
		h.log.Info("login failed", zap.String("email", email), zap.Error(err))
		td.Flash = failed(msgLoginFailed + backend.Message(err))
		h.render(w, r, http.StatusUnprocessableEntity, "login.html", td)
		return
	}

	if err := h.gate.Login(r.Context(), session); err != nil {
		h.log.Error("storing session", zap.Error(err))
		td.Flash = failed(msgSessionProblem)
		h.render(w, r, http.StatusInternalServerError, "login.html", td)
		return
	}

	h.log.Info("login", zap.String("user", session.UserID))
	http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
}

func (h *handlers) registerPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", &template.Data{
		PageTitle: "Registro",
	})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	username := strings.TrimSpace(r.PostFormValue("username"))
	fullName := strings.TrimSpace(r.PostFormValue("full_name"))

	td := &template.Data{
		PageTitle: "Registro",
		Email:     email,
		Username:  username,
		FullName:  fullName,
	}

	if email == "" || password == "" || username == "" || fullName == "" {
		td.Flash = failed(msgMissingFields)
		h.render(w, r, http.StatusUnprocessableEntity, "register.html", td)
		return
	}

	session, err := h.backend.SignUp(r.Context(), email, password)
	if err != nil {
		h.log.Info("sign up failed", zap.String("email", email), zap.Error(err))
		td.Flash = failed(msgRegisterFailed + backend.Message(err))
		h.render(w, r, http.StatusUnprocessableEntity, "register.html", td)
		return
	}

	err = h.backend.InsertProfile(r.Context(), session.Token(), &model.Profile{
		ID:       session.UserID,
		Username: username,
		FullName: fullName,
	})
	if err != nil {
		h.log.Warn("profile insert failed", zap.String("user", session.UserID), zap.Error(err))
		td.Flash = failed(msgRegisterFailed + backend.Message(err))
		h.render(w, r, http.StatusUnprocessableEntity, "register.html", td)
		return
	}

	h.log.Info("registered", zap.String("user", session.UserID))
	h.redirect(w, r, middleware.LoginPath, model.NotificationSuccess, msgRegistered)
}
