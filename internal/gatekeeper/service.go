// Package gatekeeper validates officer credentials and issues session
// identity. Every other command consults it before touching state.
package gatekeeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"custodia/internal/audit"
	"custodia/internal/officer"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
	"custodia/pkg/secrets"
)

// Session carries the authenticated officer identity returned to the caller.
type Session struct {
	OfficerID        int64  `json:"id"`
	BadgeNumber      string `json:"badge_number"`
	FullName         string `json:"full_name"`
	RankTitle        string `json:"rank_title"`
	Department       string `json:"department"`
	ClearanceLevel   int    `json:"clearance_level"`
	PublicKeyRSA     []byte `json:"public_key_rsa,omitempty"`
	PublicKeyEd25519 []byte `json:"public_key_ed25519,omitempty"`
	SessionToken     string `json:"-"`
}

// Credentials identify the acting officer on every command. Either a session
// token from a prior authenticate call or the raw officer id is accepted.
type Credentials struct {
	OfficerID    int64  `json:"officer_id"`
	SessionToken string `json:"session_token,omitempty"`
}

// ErrAuthenticationFailed is the single caller-visible authentication error.
// Wrong badge, wrong fingerprint, and suspended officers are deliberately
// indistinguishable to avoid information leakage.
var ErrAuthenticationFailed = dErrors.New(dErrors.CodeUnauthorized, "Authentication failed")

type sessionClaims struct {
	OfficerID int64 `json:"officer_id"`
	jwt.RegisteredClaims
}

// Service is the authentication gatekeeper.
type Service struct {
	officers   officer.Store
	auditor    *audit.Recorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	signingKey []byte
	sessionTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSessionTTL overrides the session token lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// New constructs the gatekeeper.
func New(officers officer.Store, auditor *audit.Recorder, signingKey string, opts ...Option) *Service {
	s := &Service{
		officers:   officers,
		auditor:    auditor,
		signingKey: []byte(signingKey),
		sessionTTL: 8 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dummyFingerprint keeps the failure path's comparison cost independent of
// whether the badge resolved to a provisioned officer.
const dummyFingerprint = "0000000000000000000000000000000000000000000000000000000000000000"

// Authenticate verifies a badge number and credential fingerprint against
// the provisioned record. Success updates last-login and audits
// authentication_success; failure audits authentication_failed with a nil
// officer reference, since identity is unconfirmed.
func (s *Service) Authenticate(ctx context.Context, badgeNumber, credentialHash string) (*Session, error) {
	if badgeNumber == "" || credentialHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Badge number and credential hash required")
	}

	found, err := s.officers.FindByBadge(ctx, badgeNumber)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "officer lookup failed")
	}

	stored := dummyFingerprint
	if found != nil {
		stored = found.CredentialFingerprint
	}
	matched := secrets.MatchFingerprint(stored, credentialHash)
	if found == nil || !matched || !found.IsActive() {
		if err := s.auditFailure(ctx, badgeNumber); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.AuthFailure.Inc()
		}
		return nil, ErrAuthenticationFailed
	}

	if err := s.officers.TouchLastLogin(ctx, found.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update last login")
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    &found.ID,
		ActionType:   audit.ActionAuthenticationSuccess,
		ResourceType: "officer",
		ResourceID:   fmt.Sprintf("%d", found.ID),
		Detail: map[string]any{
			"badge_number": found.BadgeNumber,
			"client_ip":    requestcontext.ClientIP(ctx),
			"user_agent":   requestcontext.UserAgent(ctx),
		},
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit authentication")
	}

	token, err := s.issueToken(found.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}
	if s.metrics != nil {
		s.metrics.AuthSuccess.Inc()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "officer authenticated",
			"officer_id", found.ID,
			"badge_number", found.BadgeNumber,
		)
	}

	return &Session{
		OfficerID:        found.ID,
		BadgeNumber:      found.BadgeNumber,
		FullName:         found.FullName,
		RankTitle:        found.RankTitle,
		Department:       found.Department,
		ClearanceLevel:   found.ClearanceLevel,
		PublicKeyRSA:     found.PublicKeyRSA,
		PublicKeyEd25519: found.PublicKeyEd25519,
		SessionToken:     token,
	}, nil
}

// ValidateSession re-resolves an officer from caller-supplied credentials,
// requiring active status. A signed session token takes precedence over the
// raw officer id.
func (s *Service) ValidateSession(ctx context.Context, creds Credentials) (*officer.Officer, error) {
	officerID := creds.OfficerID
	if creds.SessionToken != "" {
		id, err := s.parseToken(creds.SessionToken)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid officer credentials")
		}
		officerID = id
	}
	if officerID == 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid officer credentials")
	}

	found, err := s.officers.FindByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid officer credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "officer lookup failed")
	}
	if !found.IsActive() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Invalid officer credentials")
	}
	return found, nil
}

func (s *Service) auditFailure(ctx context.Context, badgeNumber string) error {
	err := s.auditor.Record(ctx, audit.Entry{
		OfficerID:    nil,
		ActionType:   audit.ActionAuthenticationFailed,
		ResourceType: "officer",
		Detail: map[string]any{
			"badge_number": badgeNumber,
			"reason":       "invalid_credentials",
			"client_ip":    requestcontext.ClientIP(ctx),
			"user_agent":   requestcontext.UserAgent(ctx),
		},
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit authentication")
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "authentication failed",
			"badge_number", badgeNumber,
			"client_ip", requestcontext.ClientIP(ctx),
		)
	}
	return nil
}

func (s *Service) issueToken(officerID int64) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		OfficerID: officerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "custodia",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *Service) parseToken(tokenString string) (int64, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.OfficerID == 0 {
		return 0, errors.New("invalid session token")
	}
	return claims.OfficerID, nil
}
