package seal

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dharsanguruparan/SealDrop/internal/container"
	"github.com/dharsanguruparan/SealDrop/internal/keys"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/signing"
	"github.com/dharsanguruparan/SealDrop/internal/testpdf"
	"github.com/dharsanguruparan/SealDrop/internal/verifypage"
)

const baseURL = "https://x/v/"

var sealedAt = time.Date(2025, 5, 30, 23, 50, 7, 0, time.UTC)

type fixture struct {
	sealer *Sealer
	key    *keys.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	k, err := keys.Generate(keys.AlgorithmECDSA)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	s := New(verifypage.NewRenderer(testpdf.BrandMark(t)), zap.NewNop())
	s.Now = func() time.Time { return sealedAt }
	return &fixture{sealer: s, key: k}
}

func aliceFields() *record.Record {
	return record.FromFields(
		record.Field{Key: "uploader", Value: "alice"},
		record.Field{Key: "area", Value: "ops"},
	)
}

func TestSealConcreteScenario(t *testing.T) {
	f := newFixture(t)
	doc := testpdf.Document(t, "contract", "annex")
	res, err := f.sealer.Seal(doc, aliceFields(), f.key, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if res.VerifyURL != baseURL+res.DocumentID {
		t.Fatalf("verify url = %q", res.VerifyURL)
	}
	n, err := container.PageCount(res.Document)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n != 3 {
		t.Fatalf("pages = %d, want 3", n)
	}

	ok, rec := f.sealer.Verify(res.Document, f.key.Public())
	if !ok {
		t.Fatalf("sealed document does not verify")
	}
	want := []string{"uploader", "area", record.KeyID, record.KeyUploaded, record.KeyVerifyURL, record.KeySignature}
	got := rec.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
	if rec.Value("uploader") != "alice" || rec.Value("area") != "ops" {
		t.Fatalf("caller fields lost: %s", rec.Canonical())
	}
	if rec.Value(record.KeyID) != res.DocumentID {
		t.Fatalf("id = %q, want %q", rec.Value(record.KeyID), res.DocumentID)
	}
	if rec.Value(record.KeyUploaded) != "2025-05-30T23:50:07Z" {
		t.Fatalf("uploaded_at = %q", rec.Value(record.KeyUploaded))
	}
	if rec.Value(record.KeyVerifyURL) != baseURL+res.DocumentID {
		t.Fatalf("verify_url = %q", rec.Value(record.KeyVerifyURL))
	}
	if !rec.Signed() || rec.Value(record.KeySignature) != res.Record.Value(record.KeySignature) {
		t.Fatalf("returned record lost the real signature")
	}
}

func TestSealDoesNotMutateInputs(t *testing.T) {
	f := newFixture(t)
	doc := testpdf.Document(t, "contract")
	orig := append([]byte(nil), doc...)
	fields := aliceFields()
	if _, err := f.sealer.Seal(doc, fields, f.key, baseURL); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if string(doc) != string(orig) {
		t.Fatalf("input document mutated")
	}
	if fields.Len() != 2 {
		t.Fatalf("caller fields mutated: %v", fields.Keys())
	}
}

func TestSealRSA(t *testing.T) {
	f := newFixture(t)
	k, err := keys.Generate(keys.AlgorithmRSA)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	res, err := f.sealer.Seal(testpdf.Document(t, "x"), aliceFields(), k, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if ok, _ := f.sealer.Verify(res.Document, k.Public()); !ok {
		t.Fatalf("rsa sealed document does not verify")
	}
	if ok, _ := f.sealer.Verify(res.Document, f.key.Public()); ok {
		t.Fatalf("document verified under a foreign key")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	f := newFixture(t)
	res, err := f.sealer.Seal(testpdf.Document(t, "contract"), aliceFields(), f.key, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	tamper := func(t *testing.T, edit func(*record.Record)) []byte {
		t.Helper()
		rec := res.Record.Clone()
		edit(rec)
		out, err := container.Embed(res.Document, container.MetadataKey, string(rec.Canonical()))
		if err != nil {
			t.Fatalf("embed tampered record: %v", err)
		}
		return out
	}

	cases := map[string]func(*record.Record){
		"value":       func(r *record.Record) { r.Set("area", "finance") },
		"added field": func(r *record.Record) { r.Set("extra", "1") },
		"verify url":  func(r *record.Record) { r.Set(record.KeyVerifyURL, "https://evil/v/1") },
		"placeholder": func(r *record.Record) { r.Set(record.KeySignature, record.Placeholder) },
		"empty":       func(r *record.Record) { r.Set(record.KeySignature, "") },
		"garbage":     func(r *record.Record) { r.Set(record.KeySignature, "%%%") },
	}
	for name, edit := range cases {
		t.Run(name, func(t *testing.T) {
			ok, rec := f.sealer.Verify(tamper(t, edit), f.key.Public())
			if ok {
				t.Fatalf("tampered document verified")
			}
			if rec.Value(record.KeyID) != res.DocumentID {
				t.Fatalf("record not returned for tampered document")
			}
		})
	}
}

func TestVerifyUnsealedAndMalformed(t *testing.T) {
	f := newFixture(t)
	inputs := map[string][]byte{
		"plain pdf": testpdf.Document(t, "nothing here"),
		"garbage":   []byte("this is not a pdf"),
		"empty":     nil,
	}
	for name, doc := range inputs {
		t.Run(name, func(t *testing.T) {
			ok, rec := f.sealer.Verify(doc, f.key.Public())
			if ok {
				t.Fatalf("verified")
			}
			if rec == nil || rec.Len() != 0 {
				t.Fatalf("record = %v, want empty", rec)
			}
		})
	}

	notJSON, err := container.Embed(testpdf.Document(t), container.MetadataKey, "not json")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	rep := f.sealer.Inspect(notJSON, f.key.Public())
	if rep.Valid() || rep.Outcome != signing.OutcomeMalformed || !errors.Is(rep.Err, record.ErrMalformed) {
		t.Fatalf("report = %+v", rep)
	}
}

func TestInspectOutcomes(t *testing.T) {
	f := newFixture(t)
	plain := f.sealer.Inspect(testpdf.Document(t), f.key.Public())
	if plain.Outcome != signing.OutcomeUnsigned || plain.Pages != 1 {
		t.Fatalf("plain report = %+v", plain)
	}
	broken := f.sealer.Inspect([]byte("junk"), f.key.Public())
	if broken.Outcome != signing.OutcomeMalformed || !errors.Is(broken.Err, container.ErrUnreadable) {
		t.Fatalf("broken report = %+v", broken)
	}
	res, err := f.sealer.Seal(testpdf.Document(t, "a"), aliceFields(), f.key, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	good := f.sealer.Inspect(res.Document, f.key.Public())
	if !good.Valid() || good.Outcome != signing.OutcomeValid || good.Pages != 2 || good.ContentBound {
		t.Fatalf("sealed report = %+v", good)
	}
}

func TestSealUniqueIdentifiers(t *testing.T) {
	f := newFixture(t)
	doc := testpdf.Document(t, "same")
	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		res, err := f.sealer.Seal(doc, aliceFields(), f.key, baseURL)
		if err != nil {
			t.Fatalf("seal: %v", err)
		}
		if seen[res.DocumentID] {
			t.Fatalf("identifier %s reused", res.DocumentID)
		}
		seen[res.DocumentID] = true
	}
}

func TestSealStageErrors(t *testing.T) {
	f := newFixture(t)
	doc := testpdf.Document(t, "x")

	var se *StageError
	_, err := f.sealer.Seal([]byte("junk"), aliceFields(), f.key, baseURL)
	if !errors.As(err, &se) || se.Stage != StageDraft || !errors.Is(err, container.ErrUnreadable) {
		t.Fatalf("unreadable input: err = %v", err)
	}

	reserved := aliceFields()
	reserved.Set(record.KeyID, "mine")
	_, err = f.sealer.Seal(doc, reserved, f.key, baseURL)
	if !errors.As(err, &se) || se.Stage != StageRecordBuilt || !errors.Is(err, record.ErrReservedKey) {
		t.Fatalf("reserved key: err = %v", err)
	}

	_, err = f.sealer.Seal(doc, aliceFields(), failingSigner{}, baseURL)
	if !errors.As(err, &se) || se.Stage != StageSigned {
		t.Fatalf("failing signer: err = %v", err)
	}

	broken := *f.sealer
	broken.Pages = &verifypage.Renderer{}
	res, err := broken.Seal(doc, aliceFields(), f.key, baseURL)
	if !errors.As(err, &se) || se.Stage != StageFinalized || !errors.Is(err, verifypage.ErrMissingBrandMark) {
		t.Fatalf("missing brand mark: err = %v", err)
	}
	if res != nil {
		t.Fatalf("partial result returned")
	}

	ids := *f.sealer
	ids.IDs = IDFunc(func() (string, error) { return "", errors.New("entropy exhausted") })
	if _, err := ids.Seal(doc, aliceFields(), f.key, baseURL); !errors.As(err, &se) || se.Stage != StageDraft {
		t.Fatalf("id failure: err = %v", err)
	}
}

func TestSealFixedIdentifier(t *testing.T) {
	f := newFixture(t)
	f.sealer.IDs = IDFunc(func() (string, error) { return "doc-42", nil })
	res, err := f.sealer.Seal(testpdf.Document(t, "x"), aliceFields(), f.key, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if res.DocumentID != "doc-42" || res.VerifyURL != "https://x/v/doc-42" {
		t.Fatalf("result = %s %s", res.DocumentID, res.VerifyURL)
	}
}

func TestContentBinding(t *testing.T) {
	f := newFixture(t)
	f.sealer.BindContent = true
	res, err := f.sealer.Seal(testpdf.Document(t, "pay 100"), aliceFields(), f.key, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !res.Record.Has(KeyContentDigest) {
		t.Fatalf("content digest not recorded")
	}
	rep := f.sealer.Inspect(res.Document, f.key.Public())
	if !rep.Valid() || !rep.ContentBound || !rep.ContentMatch {
		t.Fatalf("report = %+v", rep)
	}

	// Same signed record on different content: the signature still checks
	// out but the content does not.
	forged := testpdf.Document(t, "pay 900", "verification")
	forged, err = container.Embed(forged, container.MetadataKey, string(res.Record.Canonical()))
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	rep = f.sealer.Inspect(forged, f.key.Public())
	if rep.Outcome != signing.OutcomeValid || !rep.ContentBound || rep.ContentMatch || rep.Valid() {
		t.Fatalf("forged report = %+v", rep)
	}

	withDigest := aliceFields()
	withDigest.Set(KeyContentDigest, "abc")
	if _, err := f.sealer.Seal(testpdf.Document(t, "x"), withDigest, f.key, baseURL); !errors.Is(err, record.ErrReservedKey) {
		t.Fatalf("expected ErrReservedKey, got %v", err)
	}

	t.Run("caller digest with binding off", func(t *testing.T) {
		unbound := newFixture(t)
		fields := aliceFields()
		fields.Set(KeyContentDigest, "deadbeef")
		res, err := unbound.sealer.Seal(testpdf.Document(t, "x"), fields, unbound.key, baseURL)
		var se *StageError
		if !errors.Is(err, record.ErrReservedKey) || !errors.As(err, &se) || se.Stage != StageDraft {
			t.Fatalf("expected ErrReservedKey at draft, got %v", err)
		}
		if res != nil {
			t.Fatalf("document sealed with a caller content digest")
		}
		if fields.Value(KeyContentDigest) != "deadbeef" {
			t.Fatalf("caller fields mutated")
		}
	})
}

func TestSealLogsOutcome(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.DebugLevel)
	f.sealer.Logger = zap.New(core)
	res, err := f.sealer.Seal(testpdf.Document(t, "x"), aliceFields(), f.key, baseURL)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	entries := logs.FilterMessage("document sealed").All()
	if len(entries) != 1 {
		t.Fatalf("sealed entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["doc_id"]; got != res.DocumentID {
		t.Fatalf("doc_id = %v, want %s", got, res.DocumentID)
	}
	if logs.FilterMessage("seal stage").Len() != 3 {
		t.Fatalf("stage entries = %d, want 3", logs.FilterMessage("seal stage").Len())
	}
}

func TestPackageLevelHelpers(t *testing.T) {
	k, _ := keys.Generate(keys.AlgorithmECDSA)
	res, err := Seal(testpdf.Document(t, "x"), aliceFields(), k, baseURL, verifypage.NewRenderer(testpdf.BrandMark(t)))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if ok, rec := Verify(res.Document, k.Public()); !ok || rec.Value("uploader") != "alice" {
		t.Fatalf("verify = %v, %s", ok, rec.Canonical())
	}
}

type failingSigner struct{}

func (failingSigner) Sign([]byte) ([]byte, error) { return nil, errors.New("key unavailable") }

func TestDownloadName(t *testing.T) {
	cases := map[string]string{
		"contrato.pdf":     "contrato_sellado.pdf",
		"acta.final.PDF":   "acta.final_sellado.PDF",
		"sin_extension":    "sin_extension_sellado",
		"":                 "documento_sellado",
		"informe año.pdf": "informe año_sellado.pdf",
	}
	for in, want := range cases {
		if got := DownloadName(in); got != want {
			t.Errorf("DownloadName(%q) = %q, want %q", in, got, want)
		}
	}
}
