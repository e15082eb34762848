package api

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/links"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/seal"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
	"github.com/dharsanguruparan/SealDrop/internal/verifypage"
)

const placeholderValue = "—"

var viewTemplate = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html lang="es">
  <head>
    <meta charset="UTF-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Verificación de Documento</title>
    <style>
      body { margin:0; background:#f0f2f5; font-family:'Segoe UI',sans-serif; color:#333; }
      header { background:#fff; padding:15px 20px; display:flex; align-items:center; gap:16px; border-bottom:1px solid #e0e0e0; }
      header img { height:40px; }
      header h2 { margin:0; font-size:1.2rem; letter-spacing:.05em; }
      main { max-width:800px; margin:30px auto; background:#fff; border-radius:8px; box-shadow:0 4px 12px rgba(0,0,0,.1); }
      .content { padding:20px; }
      .status { display:inline-block; padding:10px 15px; border-radius:4px; margin-bottom:20px; font-weight:bold; }
      .valido { background:#d4edda; color:#155724; }
      .invalido { background:#f8d7da; color:#721c24; }
      .metadata p { margin:6px 0; font-size:.95rem; }
      iframe { width:100%; height:500px; border:none; margin:20px 0; }
      .download-btn { text-align:center; margin-bottom:20px; }
      .download-btn a { background:#ff584d; color:#fff; padding:12px 25px; border-radius:4px; text-decoration:none; }
      footer { text-align:center; padding:15px; font-size:.85rem; color:#777; }
    </style>
  </head>
  <body>
    <header>
      {{if .BrandMark}}<img src="/static/brand.png" alt="">{{end}}
      <h2>{{.Title}}</h2>
    </header>
    <main>
      <div class="content">
        <h1>Verificación de Documento</h1>
        {{if .Valid}}<div class="status valido">✅ VÁLIDO</div>{{else}}<div class="status invalido">❌ NO VÁLIDO</div>{{end}}
        <div class="metadata">
          <p><strong>Document ID:</strong> {{.DocumentID}}</p>
          <p><strong>Nombre original:</strong> {{.Original}}</p>
          <p><strong>Subido por:</strong> {{.Uploader}}</p>
          <p><strong>Área:</strong> {{.Area}}</p>
          <p><strong>Fecha:</strong> {{.Date}}</p>
          {{if .ContentBound}}<p><strong>Contenido:</strong> {{if .ContentMatch}}íntegro{{else}}modificado{{end}}</p>{{end}}
          {{if .LedgerStatus}}<p><strong>Auditoría:</strong> {{.LedgerStatus}}</p>{{end}}
        </div>
        <iframe src="{{.FileURL}}"></iframe>
        <div class="download-btn">
          <a href="{{.DownloadURL}}">📥 Descargar "{{.DownloadName}}"</a>
        </div>
      </div>
    </main>
    <footer>&copy; {{.Year}} {{.Title}}</footer>
  </body>
</html>
`))

type viewData struct {
	Title        string
	BrandMark    bool
	Valid        bool
	DocumentID   string
	Original     string
	Uploader     string
	Area         string
	Date         string
	ContentBound bool
	ContentMatch bool
	LedgerStatus string
	FileURL      string
	DownloadURL  string
	DownloadName string
	Year         int
}

// loadDocument fetches a stored sealed document. On failure it writes the
// response and returns false.
func (s *Server) loadDocument(ctx context.Context, w http.ResponseWriter, id string) ([]byte, bool) {
	data, err := s.store.Get(ctx, storage.ObjectKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Documento no encontrado", http.StatusNotFound)
			return nil, false
		}
		s.logger.Error("load sealed document", zap.String("doc_id", id), zap.Error(err))
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return nil, false
	}
	return data, true
}

func fieldOr(rec *record.Record, key, def string) string {
	if v, ok := rec.Get(key); ok && v != "" {
		return v
	}
	return def
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	data, ok := s.loadDocument(ctx, w, id)
	if !ok {
		return
	}
	rep := s.sealer.Inspect(data, s.keys.Public)
	rec := rep.Record
	original := fieldOr(rec, record.KeyOriginalFilename, id)

	title := s.cfg.PageTitle
	if title == "" {
		title = verifypage.DefaultTitle
	}
	view := viewData{
		Title:        title,
		BrandMark:    len(s.brand) > 0,
		Valid:        rep.Valid() && rec.Value(record.KeyID) == id,
		DocumentID:   id,
		Original:     original,
		Uploader:     fieldOr(rec, "uploader", placeholderValue),
		Area:         fieldOr(rec, "area", placeholderValue),
		Date:         verifypage.ParseAndFormat(rec.Value(record.KeyUploaded), record.TimeLayout, verifypage.Monterrey),
		ContentBound: rep.ContentBound,
		ContentMatch: rep.ContentMatch,
		FileURL:      "/file/" + id,
		DownloadURL:  s.links.Path(id, s.cfg.LinkTTL),
		DownloadName: seal.DownloadName(original),
		Year:         time.Now().UTC().Year(),
	}
	if entry, err := s.ledger.Get(ctx, id); err == nil {
		view.LedgerStatus = string(entry.Status)
	}

	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, view); err != nil {
		s.logger.Error("render verification view", zap.String("doc_id", id), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, id string) {
	data, ok := s.loadDocument(r.Context(), w, id)
	if !ok {
		return
	}
	servePDF(w, "inline", storage.ObjectKey(id), data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	q := r.URL.Query()
	if err := s.links.Validate(id, q.Get("expires"), q.Get("signature")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, links.ErrExpired) {
			status = http.StatusGone
		}
		http.Error(w, err.Error(), status)
		return
	}
	name := s.downloadName(ctx, id)
	if p, ok := s.store.(Presigner); ok {
		u, err := p.PresignURL(ctx, storage.ObjectKey(id), name, s.cfg.LinkTTL)
		if err != nil {
			s.logger.Error("presign download", zap.String("doc_id", id), zap.Error(err))
			http.Error(w, "failed to generate url", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	data, ok := s.loadDocument(ctx, w, id)
	if !ok {
		return
	}
	servePDF(w, "attachment", name, data)
}

// downloadName prefers the ledger and falls back to the sealed record.
func (s *Server) downloadName(ctx context.Context, id string) string {
	if entry, err := s.ledger.Get(ctx, id); err == nil && entry.DownloadName != "" {
		return entry.DownloadName
	}
	data, err := s.store.Get(ctx, storage.ObjectKey(id))
	if err != nil {
		return seal.DownloadName(id + ".pdf")
	}
	rep := s.sealer.Inspect(data, s.keys.Public)
	return seal.DownloadName(fieldOr(rep.Record, record.KeyOriginalFilename, id+".pdf"))
}

func servePDF(w http.ResponseWriter, disposition, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
