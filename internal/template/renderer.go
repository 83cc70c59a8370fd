package template

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/view"
	"github.com/ghaggin/feed/web"
)

const (
	templateDir string = "tmpl"
)

type Data struct {
	PageTitle string
	Flash     *model.Notification

	// login and register forms, refilled after a failed submit
	Email    string
	Username string
	FullName string

	Header    view.ProfileHeader
	Feed      view.Feed
	EmptyText string
	Draft     string
	Counter   view.Counter
}

func Render(w http.ResponseWriter, r *http.Request, tmpl string, td any) error {
	return RenderStatus(w, r, http.StatusOK, tmpl, td)
}

// RenderStatus writes nothing, not even the status, unless the template
// executes cleanly.
func RenderStatus(w http.ResponseWriter, r *http.Request, status int, tmpl string, td any) error {
	t, err := template.ParseFS(web.FS,
		templateDir+"/"+tmpl,
		templateDir+"/"+"base.html",
	)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}

	err = t.ExecuteTemplate(buf, "base.html", td)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
