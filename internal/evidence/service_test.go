package evidence_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/internal/alert"
	"custodia/internal/audit"
	"custodia/internal/blobstore"
	"custodia/internal/casefile"
	"custodia/internal/evidence"
	"custodia/internal/officer"
	dErrors "custodia/pkg/domain-errors"
)

type EvidenceSuite struct {
	suite.Suite

	cases    *casefile.MemoryStore
	store    *evidence.MemoryStore
	blobs    *blobstore.Memory
	audits   *audit.MemoryStore
	svc      *evidence.Service
	actor    officer.Officer
	openCase *casefile.Case
}

func TestEvidenceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceSuite))
}

func (s *EvidenceSuite) SetupTest() {
	s.cases = casefile.NewMemory()
	s.store = evidence.NewMemory()
	s.blobs = blobstore.NewMemory()
	s.audits = audit.NewMemory()
	s.svc = evidence.New(s.store, s.cases, s.blobs, audit.NewRecorder(s.audits))
	s.actor = officer.Officer{ID: 7, FullName: "Dana Reyes", Status: officer.StatusActive}

	caseSvc := casefile.New(s.cases, audit.NewRecorder(audit.NewMemory()), alert.NewDispatcher(alert.NewMemory()))
	created, err := caseSvc.Create(context.Background(), casefile.CreateInput{
		Title: "Warehouse burglary", Type: "burglary",
	}, &s.actor)
	require.NoError(s.T(), err)
	s.openCase = created
}

func dataURI(payload []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)
}

func (s *EvidenceSuite) upload(payload []byte) *evidence.Evidence {
	e, err := s.svc.Upload(context.Background(), evidence.UploadInput{
		CaseID:   s.openCase.ID,
		Type:     "photo",
		FileData: dataURI(payload),
	}, &s.actor)
	require.NoError(s.T(), err)
	return e
}

func (s *EvidenceSuite) TestUpload() {
	s.Run("fingerprints the stored bytes and initializes custody", func() {
		s.SetupTest()
		payload := []byte("crime scene photo")

		e := s.upload(payload)

		sum := sha256.Sum256(payload)
		s.Equal(hex.EncodeToString(sum[:]), e.FileHashSHA256)
		s.Equal("EVD-0001", e.EvidenceNumber)
		s.Equal("image/jpeg", e.MIMEType)
		s.Equal(int64(len(payload)), e.SizeBytes)
		s.False(e.IntegrityVerified)

		require.Len(s.T(), e.ChainOfCustody, 1)
		s.Equal("uploaded", e.ChainOfCustody[0].Action)
		s.Equal(s.actor.ID, e.ChainOfCustody[0].OfficerID)
		s.Equal("Dana Reyes", e.ChainOfCustody[0].Officer)
	})

	s.Run("sequence numbers increase without gaps", func() {
		s.SetupTest()
		for i := 1; i <= 4; i++ {
			e := s.upload([]byte(fmt.Sprintf("payload %d", i)))
			s.Equal(fmt.Sprintf("EVD-%04d", i), e.EvidenceNumber)
		}
	})

	s.Run("unknown case is not_found with zero side effects", func() {
		s.SetupTest()

		_, err := s.svc.Upload(context.Background(), evidence.UploadInput{
			CaseID:   404,
			Type:     "photo",
			FileData: dataURI([]byte("x")),
		}, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal("Case not found", dErrors.MessageOf(err))
		s.Zero(s.audits.Count())

		items, listErr := s.svc.ListByCase(context.Background(), 404)
		require.NoError(s.T(), listErr)
		s.Empty(items)
	})

	s.Run("blob store failure persists nothing", func() {
		s.SetupTest()
		failing := evidence.New(s.store, s.cases, failingBlobs{}, audit.NewRecorder(s.audits))

		_, err := failing.Upload(context.Background(), evidence.UploadInput{
			CaseID:   s.openCase.ID,
			Type:     "photo",
			FileData: dataURI([]byte("x")),
		}, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Zero(s.audits.Count())

		items, listErr := s.svc.ListByCase(context.Background(), s.openCase.ID)
		require.NoError(s.T(), listErr)
		s.Empty(items)
	})

	s.Run("rejects payloads that are neither data URI nor http locator", func() {
		s.SetupTest()

		_, err := s.svc.Upload(context.Background(), evidence.UploadInput{
			CaseID:   s.openCase.ID,
			Type:     "photo",
			FileData: "ftp://evidence.example/file",
		}, &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("audits evidence_uploaded exactly once", func() {
		s.SetupTest()

		e := s.upload([]byte("payload"))

		entries := s.audits.Entries()
		require.Len(s.T(), entries, 1)
		s.Equal(audit.ActionEvidenceUploaded, entries[0].ActionType)
		require.NotNil(s.T(), entries[0].CaseID)
		s.Equal(e.CaseID, *entries[0].CaseID)
		s.Equal(e.FileHashSHA256, entries[0].Detail["file_hash_sha256"])
	})
}

func (s *EvidenceSuite) TestAppendCustody() {
	s.Run("appends a link and audits it", func() {
		s.SetupTest()
		e := s.upload([]byte("payload"))

		updated, err := s.svc.AppendCustody(context.Background(), e.ID, "transferred", "evidence locker B", &s.actor)
		require.NoError(s.T(), err)
		require.Len(s.T(), updated.ChainOfCustody, 2)
		s.Equal("transferred", updated.ChainOfCustody[1].Action)
		s.Equal("evidence locker B", updated.ChainOfCustody[1].Location)

		entries := s.audits.Entries()
		require.Len(s.T(), entries, 2)
		s.Equal(audit.ActionCustodyAppended, entries[1].ActionType)
	})

	s.Run("unknown evidence is not_found", func() {
		s.SetupTest()

		_, err := s.svc.AppendCustody(context.Background(), 404, "transferred", "", &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing action is a validation error", func() {
		s.SetupTest()

		_, err := s.svc.AppendCustody(context.Background(), 1, "  ", "", &s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EvidenceSuite) TestGet() {
	s.SetupTest()

	_, err := s.svc.Get(context.Background(), 404)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	e := s.upload([]byte("payload"))
	got, err := s.svc.Get(context.Background(), e.ID)
	require.NoError(s.T(), err)
	s.Equal(e.FileHashSHA256, got.FileHashSHA256)
}

// failingBlobs simulates an unreachable blob store.
type failingBlobs struct{}

func (failingBlobs) Store(context.Context, []byte, string) (*blobstore.StoredObject, error) {
	return nil, errors.New("blob store unreachable")
}

func (failingBlobs) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("blob store unreachable")
}
