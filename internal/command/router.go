// Package command is the single entry point for the command protocol. It
// dispatches named commands to the domain services and wraps every result,
// error, or panic into a uniform response envelope.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/casefile"
	"custodia/internal/evidence"
	"custodia/internal/gatekeeper"
	"custodia/internal/integrity"
	"custodia/internal/intel"
	"custodia/internal/officer"
	"custodia/internal/platform/metrics"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Request is the inbound command envelope.
type Request struct {
	Command            string                 `json:"command"`
	Data               json.RawMessage        `json:"data"`
	OfficerCredentials gatekeeper.Credentials `json:"officer_credentials"`
}

// Response is the outbound envelope. Every response carries "status" and
// "timestamp"; error responses carry "message".
type Response map[string]any

// handler executes one command for an already-resolved officer. The
// authenticate handler is the exception and receives a nil actor.
type handler func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error)

// Router dispatches command envelopes.
type Router struct {
	gate     *gatekeeper.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	handlers map[string]handler
	commands []string
}

// Option configures a Router.
type Option func(*Router)

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New wires the dispatch table.
func New(gate *gatekeeper.Service, cases *casefile.Service, evidenceSvc *evidence.Service, verifier *integrity.Service, intelligence *intel.Service, auditor *audit.Recorder, opts ...Option) *Router {
	r := &Router{
		gate:   gate,
		tracer: otel.Tracer("custodia/command"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.handlers = map[string]handler{
		"authenticate_officer": func(ctx context.Context, _ *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in struct {
				BadgeNumber    string `json:"badge_number"`
				CredentialHash string `json:"credential_hash"`
			}
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			session, err := gate.Authenticate(ctx, in.BadgeNumber, in.CredentialHash)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"session":       session,
				"session_token": session.SessionToken,
			}, nil
		},
		"create_case": func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in casefile.CreateInput
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			c, err := cases.Create(ctx, in, actor)
			if err != nil {
				return nil, err
			}
			return map[string]any{"case": c}, nil
		},
		"upload_evidence": func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in evidence.UploadInput
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			e, err := evidenceSvc.Upload(ctx, in, actor)
			if err != nil {
				return nil, err
			}
			return map[string]any{"evidence": e}, nil
		},
		"build_timeline": func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in struct {
				CaseID int64 `json:"case_id"`
			}
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			timeline, err := intelligence.BuildTimeline(ctx, in.CaseID, actor)
			if err != nil {
				return nil, err
			}
			return map[string]any{"timeline": timeline}, nil
		},
		"generate_intelligence_brief": func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in struct {
				CaseID          int64 `json:"case_id"`
				IncludeEvidence *bool `json:"include_evidence"`
				IncludeTimeline *bool `json:"include_timeline"`
			}
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			req := intel.BriefRequest{
				CaseID:          in.CaseID,
				IncludeEvidence: in.IncludeEvidence == nil || *in.IncludeEvidence,
				IncludeTimeline: in.IncludeTimeline == nil || *in.IncludeTimeline,
			}
			brief, err := intelligence.GenerateBrief(ctx, req, actor)
			if err != nil {
				return nil, err
			}
			return map[string]any{"brief": brief}, nil
		},
		"verify_integrity": func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in struct {
				EvidenceID int64 `json:"evidence_id"`
			}
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			result, err := verifier.Verify(ctx, in.EvidenceID, actor)
			if err != nil {
				return nil, err
			}
			return map[string]any{"verification": result}, nil
		},
		"audit_trail": func(ctx context.Context, actor *officer.Officer, data json.RawMessage) (map[string]any, error) {
			var in struct {
				CaseID     *int64 `json:"case_id"`
				OfficerID  *int64 `json:"officer_id"`
				ActionType string `json:"action_type"`
				Limit      int    `json:"limit"`
			}
			if err := decode(data, &in); err != nil {
				return nil, err
			}
			entries, err := auditor.Query(ctx, actor.ID, audit.Filter{
				CaseID:     in.CaseID,
				OfficerID:  in.OfficerID,
				ActionType: audit.ActionType(in.ActionType),
				Limit:      in.Limit,
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"entries": entries,
				"count":   len(entries),
			}, nil
		},
	}

	r.commands = make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		r.commands = append(r.commands, name)
	}
	sort.Strings(r.commands)
	return r
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = []byte("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return dErrors.New(dErrors.CodeValidation, "Malformed command data")
	}
	return nil
}

// Dispatch executes one command envelope. It never returns an error: every
// outcome, including a panic in a handler, becomes an error response with a
// generic message. Internal detail is logged, never surfaced.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "command.dispatch",
		trace.WithAttributes(attribute.String("command", req.Command)))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "command handler panicked",
					"command", req.Command,
					"panic", fmt.Sprintf("%v", rec),
				)
			}
			resp = r.errorResponse(ctx, operationFailed(req.Command))
		}
		status, _ := resp["status"].(string)
		r.metrics.ObserveCommand(req.Command, status, time.Since(started).Seconds())
		span.SetAttributes(attribute.String("status", status))
	}()

	h, ok := r.handlers[req.Command]
	if !ok {
		resp = r.errorResponse(ctx, "Unknown command")
		resp["available_commands"] = r.commands
		return resp
	}

	var actor *officer.Officer
	if req.Command != "authenticate_officer" {
		resolved, err := r.gate.ValidateSession(ctx, req.OfficerCredentials)
		if err != nil {
			return r.errorResponse(ctx, "Invalid officer credentials")
		}
		actor = resolved
	}

	payload, err := h(ctx, actor, req.Data)
	if err != nil {
		message := dErrors.MessageOf(err)
		if message == "" {
			message = operationFailed(req.Command)
		}
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "command failed",
				"command", req.Command,
				"error", err,
			)
		}
		return r.errorResponse(ctx, message)
	}

	resp = Response{
		"status":    "success",
		"timestamp": requestcontext.Now(ctx),
	}
	for k, v := range payload {
		resp[k] = v
	}
	return resp
}

func (r *Router) errorResponse(ctx context.Context, message string) Response {
	return Response{
		"status":    "error",
		"message":   message,
		"timestamp": requestcontext.Now(ctx),
	}
}

func operationFailed(command string) string {
	if command == "" {
		return "Command failed"
	}
	return strings.ReplaceAll(command, "_", " ") + " failed"
}
