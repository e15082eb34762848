package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/container"
	"github.com/dharsanguruparan/SealDrop/internal/model"
	"github.com/dharsanguruparan/SealDrop/internal/queue"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/seal"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
)

const maxMetaBytes = 64 << 10

var (
	errFileTooLarge = errors.New("file exceeds size limit")
	errNotPDF       = errors.New("only PDF files supported")
	errEmptyFile    = errors.New("empty file")
)

type signResponse struct {
	DocID        string `json:"doc_id"`
	VerifyURL    string `json:"verify_url"`
	DownloadName string `json:"download_name"`
}

type verifyResponse struct {
	Valid   bool           `json:"valid"`
	Meta    *record.Record `json:"meta"`
	Outcome string         `json:"outcome"`
	// Content is "match" or "mismatch" for content bound records.
	Content string `json:"content,omitempty"`
}

// upload is the parsed multipart body of /sign and /verify.
type upload struct {
	data     []byte
	filename string
	meta     []byte
	hasMeta  bool
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.keys.CanSign() {
		s.respondError(w, http.StatusServiceUnavailable, "Firma no disponible en este servidor")
		return
	}
	ctx := r.Context()
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if up.data == nil || !up.hasMeta {
		s.respondError(w, http.StatusBadRequest, "Falta archivo o metadatos")
		return
	}
	fields, err := record.ParseFields(up.meta)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Metadatos inválidos: "+err.Error())
		return
	}
	original := up.filename
	if original == "" {
		original = seal.DefaultFilename
	}
	fields.Set(record.KeyOriginalFilename, original)

	res, err := s.sealer.Seal(up.data, fields, s.keys.Private, s.baseURL(r))
	if err != nil {
		s.respondSealError(w, err)
		return
	}

	objectKey := storage.ObjectKey(res.DocumentID)
	if err := s.store.Put(ctx, objectKey, res.Document); err != nil {
		s.logger.Error("store sealed document", zap.String("doc_id", res.DocumentID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "No se pudo guardar el documento")
		return
	}
	uploadedAt, _ := time.Parse(record.TimeLayout, res.Record.Value(record.KeyUploaded))
	entry := &model.SealEntry{
		ID:               res.DocumentID,
		OriginalFilename: original,
		DownloadName:     seal.DownloadName(original),
		ObjectKey:        objectKey,
		VerifyURL:        res.VerifyURL,
		UploadedAt:       uploadedAt,
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		// The stored object is immutable and now has no ledger row.
		s.logger.Error("record seal, sealed object orphaned",
			zap.String("doc_id", res.DocumentID),
			zap.String("object_key", objectKey),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, "No se pudo registrar el documento")
		return
	}
	if s.auditor != nil {
		payload := queue.AuditPayload{DocumentID: res.DocumentID, ObjectKey: objectKey}
		if err := s.auditor.Enqueue(ctx, payload); err != nil {
			s.logger.Warn("enqueue audit", zap.String("doc_id", res.DocumentID), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, signResponse{
		DocID:        res.DocumentID,
		VerifyURL:    res.VerifyURL,
		DownloadName: entry.DownloadName,
	})
}

func (s *Server) respondSealError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, container.ErrUnreadable):
		s.respondError(w, http.StatusBadRequest, "El archivo no es un PDF legible")
	case errors.Is(err, record.ErrReservedKey):
		s.respondError(w, http.StatusBadRequest, "Metadatos inválidos: "+err.Error())
	default:
		s.logger.Error("seal document", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "No se pudo sellar el documento")
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	if up.data == nil {
		s.respondError(w, http.StatusBadRequest, "Falta archivo")
		return
	}
	rep := s.sealer.Inspect(up.data, s.keys.Public)
	resp := verifyResponse{
		Valid:   rep.Valid(),
		Meta:    rep.Record,
		Outcome: rep.Outcome.String(),
	}
	if rep.ContentBound {
		resp.Content = "mismatch"
		if rep.ContentMatch {
			resp.Content = "match"
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// readUpload parses the multipart body. On failure it writes the response and
// returns false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+maxMetaBytes+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Se esperaba multipart/form-data")
		return nil, false
	}
	up, err := s.parseParts(mr)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, errFileTooLarge), errors.As(err, &mbe):
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("El archivo excede el límite (%d bytes)", s.cfg.MaxFileSize))
		default:
			s.respondError(w, http.StatusBadRequest, err.Error())
		}
		return nil, false
	}
	return up, true
}

func (s *Server) parseParts(mr *multipart.Reader) (*upload, error) {
	var up upload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return &up, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		switch part.FormName() {
		case "file":
			if up.data != nil {
				break
			}
			data, err := s.readFilePart(part)
			if err != nil {
				part.Close()
				return nil, err
			}
			up.data = data
			up.filename = part.FileName()
		case "meta":
			meta, err := io.ReadAll(io.LimitReader(part, maxMetaBytes+1))
			if err != nil {
				part.Close()
				return nil, fmt.Errorf("read metadata: %w", err)
			}
			if len(meta) > maxMetaBytes {
				part.Close()
				return nil, errors.New("metadata too large")
			}
			up.meta = meta
			up.hasMeta = true
		}
		part.Close()
	}
}

// readFilePart reads one file part into memory, enforcing the size limit and
// sniffing the content type from the first bytes.
func (s *Server) readFilePart(part *multipart.Part) ([]byte, error) {
	var data []byte
	buf := make([]byte, 32*1024)
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			if int64(len(data)+n) > s.cfg.MaxFileSize {
				return nil, errFileTooLarge
			}
			data = append(data, buf[:n]...)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read file: %w", readErr)
		}
	}
	if len(data) == 0 {
		return nil, errEmptyFile
	}
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	if http.DetectContentType(sniff) != "application/pdf" {
		return nil, errNotPDF
	}
	return data, nil
}
