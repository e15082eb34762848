// Package seal assembles sealed documents and verifies them.
//
// Sealing walks a fixed sequence of stages: a record is built with a
// placeholder signature, signed, embedded into the document's metadata slot,
// and finally a verification page is appended and the slot re-asserted. A
// failure at any stage aborts the whole operation; no partial document is
// returned.
package seal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/container"
	pdfutil "github.com/dharsanguruparan/SealDrop/internal/pdf"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/signing"
)

// KeyContentDigest is the caller field added when content binding is on.
const KeyContentDigest = "content_sha256"

// Stage identifies how far a seal operation progressed.
type Stage int

const (
	StageDraft Stage = iota
	StageRecordBuilt
	StageSigned
	StageEmbedded
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StageDraft:
		return "draft"
	case StageRecordBuilt:
		return "record_built"
	case StageSigned:
		return "signed"
	case StageEmbedded:
		return "embedded"
	case StageFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// StageError reports the stage that failed. Stage is the state the operation
// was trying to reach.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("seal %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// PageRenderer renders the verification page appended to sealed documents.
type PageRenderer interface {
	Render(verifyURL, documentID string, issuedAt time.Time) ([]byte, error)
}

// IDSource allocates document identifiers.
type IDSource interface {
	NewID() (string, error)
}

// UUIDSource allocates random (version 4) UUIDs.
type UUIDSource struct{}

// NewID returns a fresh UUID string.
func (UUIDSource) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("allocate document id: %w", err)
	}
	return id.String(), nil
}

// IDFunc adapts a function to IDSource.
type IDFunc func() (string, error)

// NewID calls f.
func (f IDFunc) NewID() (string, error) { return f() }

// VerifyURL is the public lookup URL of a document.
func VerifyURL(baseURL, documentID string) string {
	return baseURL + documentID
}

// Sealer seals and verifies documents. The zero value verifies with SHA-256;
// sealing needs Pages.
type Sealer struct {
	Engine *signing.Engine
	Pages  PageRenderer
	IDs    IDSource
	Now    func() time.Time
	Logger *zap.Logger
	// BindContent adds the digest of the document's text to the record.
	BindContent bool
}

// New returns a Sealer using UUIDs, the wall clock and SHA-256.
func New(pages PageRenderer, logger *zap.Logger) *Sealer {
	return &Sealer{
		Engine: signing.NewEngine(),
		Pages:  pages,
		IDs:    UUIDSource{},
		Now:    time.Now,
		Logger: logger,
	}
}

// Result is the output of a successful Seal.
type Result struct {
	Document   []byte
	DocumentID string
	Record     *record.Record
	VerifyURL  string
}

func (s *Sealer) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Sealer) ids() IDSource {
	if s.IDs == nil {
		return UUIDSource{}
	}
	return s.IDs
}

func (s *Sealer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Seal returns a copy of doc carrying a signed record built from fields and a
// trailing verification page linking to baseURL+id. fields is not modified.
func (s *Sealer) Seal(doc []byte, fields *record.Record, signer signing.Signer, baseURL string) (*Result, error) {
	log := s.log()

	// Draft: validate inputs before anything is allocated.
	if s.Pages == nil {
		return nil, stageErr(StageDraft, errors.New("no page renderer configured"))
	}
	if signer == nil {
		return nil, stageErr(StageDraft, errors.New("no signer configured"))
	}
	pages, err := container.PageCount(doc)
	if err != nil {
		return nil, stageErr(StageDraft, err)
	}
	work := fields.Clone()
	// A record carrying the digest always verifies as content bound.
	if work.Has(KeyContentDigest) {
		return nil, stageErr(StageDraft, fmt.Errorf("caller field %q: %w", KeyContentDigest, record.ErrReservedKey))
	}
	if s.BindContent {
		digest, err := pdfutil.ContentDigest(doc, 0)
		if err != nil {
			return nil, stageErr(StageDraft, fmt.Errorf("content digest: %w", err))
		}
		work.Set(KeyContentDigest, digest)
	}
	id, err := s.ids().NewID()
	if err != nil {
		return nil, stageErr(StageDraft, err)
	}
	verifyURL := VerifyURL(baseURL, id)
	issuedAt := s.now().UTC().Truncate(time.Second)
	log = log.With(zap.String("doc_id", id))

	rec, err := record.Build(work, id, issuedAt, verifyURL)
	if err != nil {
		return nil, stageErr(StageRecordBuilt, err)
	}
	log.Debug("seal stage", zap.Stringer("stage", StageRecordBuilt))

	signed, err := s.Engine.Sign(rec, signer)
	if err != nil {
		return nil, stageErr(StageSigned, err)
	}
	log.Debug("seal stage", zap.Stringer("stage", StageSigned))

	canonical := string(signed.Canonical())
	embedded, err := container.Embed(doc, container.MetadataKey, canonical)
	if err != nil {
		return nil, stageErr(StageEmbedded, err)
	}
	log.Debug("seal stage", zap.Stringer("stage", StageEmbedded))

	final, err := s.finalize(embedded, canonical, verifyURL, id, issuedAt, pages)
	if err != nil {
		return nil, stageErr(StageFinalized, err)
	}
	log.Info("document sealed",
		zap.Int("pages", pages+1),
		zap.Int("bytes", len(final)),
		zap.Bool("content_bound", s.BindContent),
	)

	return &Result{
		Document:   final,
		DocumentID: id,
		Record:     signed,
		VerifyURL:  verifyURL,
	}, nil
}

// finalize appends the verification page and re-asserts the metadata slot,
// since page concatenation is not guaranteed to carry the /Info dictionary.
func (s *Sealer) finalize(embedded []byte, canonical, verifyURL, id string, issuedAt time.Time, pages int) ([]byte, error) {
	page, err := s.Pages.Render(verifyURL, id, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("render verification page: %w", err)
	}
	merged, err := container.Append(embedded, page)
	if err != nil {
		return nil, err
	}
	final, err := container.Embed(merged, container.MetadataKey, canonical)
	if err != nil {
		return nil, err
	}
	got, err := container.Extract(final, container.MetadataKey)
	if err != nil {
		return nil, err
	}
	if got != canonical {
		return nil, errors.New("metadata slot changed after page append")
	}
	n, err := container.PageCount(final)
	if err != nil {
		return nil, err
	}
	if n != pages+1 {
		return nil, fmt.Errorf("sealed document has %d pages, want %d", n, pages+1)
	}
	return final, nil
}

// Seal seals doc with a default Sealer.
func Seal(doc []byte, fields *record.Record, signer signing.Signer, baseURL string, pages PageRenderer) (*Result, error) {
	return New(pages, nil).Seal(doc, fields, signer, baseURL)
}
