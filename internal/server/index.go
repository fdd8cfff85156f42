package server

import (
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Query  string
	Answer string
	Failed bool
	Error  string
}

// IndexHandler serves GET / with a question form, and the answer when ?q= is set.
// The bare form is public; answering a question needs the same token as the JSON routes.
type IndexHandler struct {
	log   *slog.Logger
	asker Asker
	auth  *Auth
}

func (h IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := indexData{Query: strings.TrimSpace(r.URL.Query().Get("q"))}

	if data.Query != "" {
		if h.auth != nil && !h.auth.Authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := h.answer(r, &data); err != nil {
			h.log.Error("failed to answer query", slog.Any("error", err))
			data.Error = "Error generating response: " + err.Error()
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		h.log.Error("failed to render index", slog.Any("error", err))
	}
}

func (h IndexHandler) answer(r *http.Request, data *indexData) error {
	k, err := h.asker.LoadContext(r.Context())
	if err != nil {
		return err
	}
	res, err := h.asker.Ask(r.Context(), k, data.Query, 0)
	if err != nil {
		return err
	}
	if res.Answer != nil {
		data.Answer = res.Answer.Text
		data.Failed = res.Answer.Failed
	}
	return nil
}
