package gatekeeper_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	"custodia/internal/gatekeeper"
	"custodia/internal/officer"
	dErrors "custodia/pkg/domain-errors"
)

type GatekeeperSuite struct {
	suite.Suite

	officers *officer.MemoryStore
	audits   *audit.MemoryStore
	svc      *gatekeeper.Service
}

func TestGatekeeperSuite(t *testing.T) {
	suite.Run(t, new(GatekeeperSuite))
}

func (s *GatekeeperSuite) SetupTest() {
	s.officers = officer.NewMemory()
	s.audits = audit.NewMemory()
	recorder := audit.NewRecorder(s.audits)
	s.svc = gatekeeper.New(s.officers, recorder, "test-signing-key",
		gatekeeper.WithSessionTTL(time.Hour))
}

func fingerprintOf(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

func (s *GatekeeperSuite) provision(badge, credential string, status officer.Status) officer.Officer {
	return s.officers.Provision(officer.Officer{
		BadgeNumber:           badge,
		FullName:              "Dana Reyes",
		RankTitle:             "Detective",
		Department:            "Major Crimes",
		ClearanceLevel:        3,
		CredentialFingerprint: fingerprintOf(credential),
		Status:                status,
	})
}

func (s *GatekeeperSuite) TestAuthenticate() {
	s.Run("valid credentials return a session", func() {
		s.SetupTest()
		prov := s.provision("B-1001", "hunter2", officer.StatusActive)

		sess, err := s.svc.Authenticate(context.Background(), "B-1001", fingerprintOf("hunter2"))
		require.NoError(s.T(), err)
		s.Equal(prov.ID, sess.OfficerID)
		s.Equal("B-1001", sess.BadgeNumber)
		s.Equal("Dana Reyes", sess.FullName)
		s.NotEmpty(sess.SessionToken)

		stored, err := s.officers.FindByID(context.Background(), prov.ID)
		require.NoError(s.T(), err)
		s.NotNil(stored.LastLogin, "last login must be stamped on success")

		entries := s.audits.Entries()
		require.Len(s.T(), entries, 1)
		s.Equal(audit.ActionAuthenticationSuccess, entries[0].ActionType)
		require.NotNil(s.T(), entries[0].OfficerID)
		s.Equal(prov.ID, *entries[0].OfficerID)
	})

	s.Run("unknown badge fails generically", func() {
		s.SetupTest()

		_, err := s.svc.Authenticate(context.Background(), "B-9999", fingerprintOf("hunter2"))
		s.ErrorIs(err, gatekeeper.ErrAuthenticationFailed)
	})

	s.Run("wrong fingerprint fails with the same message as unknown badge", func() {
		s.SetupTest()
		s.provision("B-1001", "hunter2", officer.StatusActive)

		_, wrongErr := s.svc.Authenticate(context.Background(), "B-1001", fingerprintOf("wrong"))
		_, unknownErr := s.svc.Authenticate(context.Background(), "B-9999", fingerprintOf("hunter2"))
		require.Error(s.T(), wrongErr)
		require.Error(s.T(), unknownErr)
		s.Equal(wrongErr.Error(), unknownErr.Error())
	})

	s.Run("suspended officer is rejected even with valid credentials", func() {
		s.SetupTest()
		s.provision("B-1001", "hunter2", officer.StatusSuspended)

		_, err := s.svc.Authenticate(context.Background(), "B-1001", fingerprintOf("hunter2"))
		s.ErrorIs(err, gatekeeper.ErrAuthenticationFailed)
	})

	s.Run("failure is audited with nil officer and attempted badge", func() {
		s.SetupTest()

		_, err := s.svc.Authenticate(context.Background(), "B-9999", fingerprintOf("x"))
		require.Error(s.T(), err)

		entries := s.audits.Entries()
		require.Len(s.T(), entries, 1)
		s.Equal(audit.ActionAuthenticationFailed, entries[0].ActionType)
		s.Nil(entries[0].OfficerID)
		s.Equal("B-9999", entries[0].Detail["badge_number"])
	})

	s.Run("missing inputs are a validation error with no audit entry", func() {
		s.SetupTest()

		_, err := s.svc.Authenticate(context.Background(), "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Zero(s.audits.Count())
	})
}

func (s *GatekeeperSuite) TestValidateSession() {
	s.Run("resolves officer by id", func() {
		s.SetupTest()
		prov := s.provision("B-1001", "hunter2", officer.StatusActive)

		got, err := s.svc.ValidateSession(context.Background(), gatekeeper.Credentials{OfficerID: prov.ID})
		require.NoError(s.T(), err)
		s.Equal(prov.ID, got.ID)
	})

	s.Run("resolves officer from a session token", func() {
		s.SetupTest()
		prov := s.provision("B-1001", "hunter2", officer.StatusActive)
		sess, err := s.svc.Authenticate(context.Background(), "B-1001", fingerprintOf("hunter2"))
		require.NoError(s.T(), err)

		got, err := s.svc.ValidateSession(context.Background(), gatekeeper.Credentials{SessionToken: sess.SessionToken})
		require.NoError(s.T(), err)
		s.Equal(prov.ID, got.ID)
	})

	s.Run("rejects a tampered token", func() {
		s.SetupTest()
		s.provision("B-1001", "hunter2", officer.StatusActive)
		sess, err := s.svc.Authenticate(context.Background(), "B-1001", fingerprintOf("hunter2"))
		require.NoError(s.T(), err)

		_, err = s.svc.ValidateSession(context.Background(), gatekeeper.Credentials{SessionToken: sess.SessionToken + "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects unknown and suspended officers", func() {
		s.SetupTest()
		suspended := s.provision("B-1002", "hunter2", officer.StatusSuspended)

		_, err := s.svc.ValidateSession(context.Background(), gatekeeper.Credentials{OfficerID: 404})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = s.svc.ValidateSession(context.Background(), gatekeeper.Credentials{OfficerID: suspended.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects empty credentials", func() {
		s.SetupTest()

		_, err := s.svc.ValidateSession(context.Background(), gatekeeper.Credentials{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
