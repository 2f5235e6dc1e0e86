package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/delaneyj/toolbelt"
)

//go:embed templates/*.html
var templateFS embed.FS

var bufferPool = toolbelt.New(func() *bytes.Buffer { return new(bytes.Buffer) })

// Renderer writes the directory page. The page can be produced whole with
// RenderDocument or streamed piece by piece while a load is in progress.
type Renderer struct {
	tmpl  *template.Template
	title string
}

// NewRenderer parses the embedded templates
func NewRenderer(title string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, title: title}, nil
}

// RenderDocument writes the complete page for a view
func (r *Renderer) RenderDocument(w io.Writer, v View) error {
	return r.write(w, func(buf *bytes.Buffer) error {
		if err := r.tmpl.ExecuteTemplate(buf, "head", r.headData()); err != nil {
			return err
		}
		if err := r.body(buf, v); err != nil {
			return err
		}
		return r.tmpl.ExecuteTemplate(buf, "foot", nil)
	})
}

// WriteHead writes the document start up to the page heading
func (r *Renderer) WriteHead(w io.Writer) error {
	return r.execute(w, "head", r.headData())
}

// WriteLoading writes the loading indicator
func (r *Renderer) WriteLoading(w io.Writer) error {
	return r.execute(w, "loading", nil)
}

// WriteResult writes the outcome of a load, hiding an indicator written earlier
func (r *Renderer) WriteResult(w io.Writer, v View) error {
	return r.write(w, func(buf *bytes.Buffer) error {
		if err := r.tmpl.ExecuteTemplate(buf, "loaded", nil); err != nil {
			return err
		}
		return r.body(buf, v)
	})
}

// WriteFoot closes the document
func (r *Renderer) WriteFoot(w io.Writer) error {
	return r.execute(w, "foot", nil)
}

func (r *Renderer) body(buf *bytes.Buffer, v View) error {
	switch v.State {
	case StateLoading, StateIdle:
		return r.tmpl.ExecuteTemplate(buf, "loading", nil)
	case StateFailed:
		return r.tmpl.ExecuteTemplate(buf, "error", v.Error)
	default:
		return r.tmpl.ExecuteTemplate(buf, "cards", NewCards(v.Users))
	}
}

func (r *Renderer) headData() map[string]string {
	return map[string]string{"Title": r.title}
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	return r.write(w, func(buf *bytes.Buffer) error {
		return r.tmpl.ExecuteTemplate(buf, name, data)
	})
}

// write renders into a pooled buffer so a template error never leaves half a fragment on w
func (r *Renderer) write(w io.Writer, fn func(buf *bytes.Buffer) error) error {
	buf := bufferPool.Get()
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	if err := fn(buf); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}
