package seal

import (
	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/container"
	pdfutil "github.com/dharsanguruparan/SealDrop/internal/pdf"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/signing"
)

// Report explains a verification.
type Report struct {
	Outcome signing.Outcome
	// Record is the extracted record with its real signature. It is empty,
	// never nil, when nothing could be extracted.
	Record *record.Record
	// Pages is the page count of the inspected document, 0 if unknown.
	Pages int
	// ContentBound is set when the record carries a content digest;
	// ContentMatch reports whether the content pages still produce it.
	ContentBound bool
	ContentMatch bool
	// Err holds the reason the document could not be read, if any.
	Err error
}

// Valid reports whether the signature checks out and, for content bound
// records, the content pages are unchanged.
func (r Report) Valid() bool {
	if !r.Outcome.Valid() {
		return false
	}
	return !r.ContentBound || r.ContentMatch
}

// Inspect extracts and checks the record sealed into doc. It never panics.
func (s *Sealer) Inspect(doc []byte, verifier signing.Verifier) Report {
	raw, err := container.Extract(doc, container.MetadataKey)
	if err != nil {
		return Report{Outcome: signing.OutcomeMalformed, Record: record.New(), Err: err}
	}
	rep := Report{Record: record.New()}
	if n, err := container.PageCount(doc); err == nil {
		rep.Pages = n
	}
	if raw == "" {
		rep.Outcome = signing.OutcomeUnsigned
		return rep
	}
	rec, err := record.Parse([]byte(raw))
	if err != nil {
		rep.Outcome = signing.OutcomeMalformed
		rep.Err = err
		return rep
	}
	rep.Record = rec
	rep.Outcome = s.Engine.Check(rec, verifier)

	if want, ok := rec.Get(KeyContentDigest); ok {
		rep.ContentBound = true
		// The verification page is always last; everything before it was
		// sealed content.
		if rep.Pages > 1 {
			got, err := pdfutil.ContentDigest(doc, rep.Pages-1)
			rep.ContentMatch = err == nil && got == want
		}
	}

	s.log().Debug("document inspected",
		zap.String("doc_id", rec.Value(record.KeyID)),
		zap.Stringer("outcome", rep.Outcome),
		zap.Bool("content_bound", rep.ContentBound),
		zap.Bool("content_match", rep.ContentMatch),
	)
	return rep
}

// Verify reports whether doc carries a valid seal, along with the extracted
// record. Malformed input yields false and an empty record.
func (s *Sealer) Verify(doc []byte, verifier signing.Verifier) (bool, *record.Record) {
	rep := s.Inspect(doc, verifier)
	return rep.Valid(), rep.Record
}

// Verify checks doc with a zero Sealer.
func Verify(doc []byte, verifier signing.Verifier) (bool, *record.Record) {
	var s Sealer
	return s.Verify(doc, verifier)
}
