package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxBodyBytes = 1 << 20

// requestParams looks a named value up in the header, body or query of a request, in the order
// the caller asks for.
type requestParams struct {
	header http.Header
	query  url.Values
	body   map[string]string
}

type paramSource func(p *requestParams) string

func fromHeader(name string) paramSource {
	return func(p *requestParams) string {
		return strings.TrimSpace(p.header.Get(name))
	}
}

func fromBody(name string) paramSource {
	return func(p *requestParams) string {
		return strings.TrimSpace(p.body[name])
	}
}

func fromQuery(name string) paramSource {
	return func(p *requestParams) string {
		return strings.TrimSpace(p.query.Get(name))
	}
}

// urlParams covers the header and query only and leaves the body unread.
func urlParams(r *http.Request) *requestParams {
	return &requestParams{
		header: r.Header,
		query:  r.URL.Query(),
		body:   map[string]string{},
	}
}

// readParams also consumes a JSON or form encoded body. Non string JSON values and malformed
// bodies are ignored.
func readParams(r *http.Request) *requestParams {
	p := urlParams(r)
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return p
	}

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var raw map[string]any
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw); err != nil {
			return p
		}
		for name, value := range raw {
			if str, ok := value.(string); ok {
				p.body[name] = str
			}
		}
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		r.Body = io.NopCloser(io.LimitReader(r.Body, maxBodyBytes))
		if err := r.ParseForm(); err != nil {
			return p
		}
		for name := range r.PostForm {
			p.body[name] = r.PostForm.Get(name)
		}
	}
	return p
}

// first returns the first non empty value among sources.
func (p *requestParams) first(sources ...paramSource) string {
	for _, source := range sources {
		if value := source(p); value != "" {
			return value
		}
	}
	return ""
}
