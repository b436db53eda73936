package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/repo"
	"caseline/internal/workflow"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"no transition from approved to in_design"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"from\":\"approved\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Caseline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Caseline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCases(group, cfg.Engine)
	registerTransitions(group, cfg.Engine)
	registerAudit(group, cfg.Engine)
	registerActors(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerMe(group)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var ite workflow.InvalidTransitionError
	if errors.As(err, &ite) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_transition", err.Error(), map[string]any{
			"from": string(ite.From),
			"to":   string(ite.To),
		})
	}
	var fe workflow.ForbiddenError
	if errors.As(err, &fe) {
		details := map[string]any{"role": string(fe.Role)}
		if fe.From != "" {
			details["from"] = string(fe.From)
			details["to"] = string(fe.To)
		}
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), details)
	}
	var ce repo.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), map[string]any{
			"case_id":         ce.CaseID,
			"expected_status": ce.Expected,
		})
	}
	var ve workflow.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{
			"field": ve.Field,
		})
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_transition"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func requireAdmin(ctx context.Context) (Principal, huma.StatusError) {
	principal, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return Principal{}, authErr
	}
	if principal.Role != workflow.RoleAdmin {
		return Principal{}, newAPIError(http.StatusForbidden, "forbidden", "administrator role required", map[string]any{"role": string(principal.Role)})
	}
	return principal, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	devLoginPath := path.Join(basePath, "auth/dev/login")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	if !strings.HasPrefix(devLoginPath, "/") {
		devLoginPath = "/" + devLoginPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath || route == devLoginPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Caseline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCases(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-case",
		Method:        http.MethodPost,
		Path:          "/cases",
		Summary:       "Create case",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateCaseRequest `json:"body"`
	}) (*struct {
		Body CaseResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ownerID := strings.TrimSpace(input.Body.OwnerID)
		switch principal.Role {
		case workflow.RoleOwner:
			// Owners create their own cases; an explicit owner_id must match.
			if ownerID != "" && ownerID != principal.ActorID {
				return nil, newAPIError(http.StatusForbidden, "forbidden", "owners can only create their own cases", nil)
			}
			ownerID = principal.ActorID
		case workflow.RoleAdmin:
			if ownerID == "" {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "owner_id is required", nil)
			}
		default:
			return nil, newAPIError(http.StatusForbidden, "forbidden", "staff cannot create cases", map[string]any{"role": string(principal.Role)})
		}
		c, err := e.CreateCase(ctx, ownerID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CaseResponse `json:"body"`
		}{Body: caseResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/cases",
		Summary:     "List cases",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status   string `query:"status"`
		OwnerID  string `query:"owner_id"`
		Assignee string `query:"assignee_id"`
		Limit    int    `query:"limit"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body struct {
			Items      []CaseResponse `json:"items"`
			NextCursor string         `json:"next_cursor,omitempty"`
		} `json:"body"`
	}, error) {
		if input.Status != "" {
			if _, err := workflow.ParseStatus(input.Status); err != nil {
				return nil, handleError(err)
			}
		}
		cursorCreatedAt, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", nil)
		}
		limit := normalizeLimit(input.Limit)
		items, err := e.Repo.ListCases(ctx, repo.CaseFilters{
			Status:          input.Status,
			OwnerID:         input.OwnerID,
			AssigneeID:      input.Assignee,
			Limit:           limit,
			CursorCreatedAt: cursorCreatedAt,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := &struct {
			Body struct {
				Items      []CaseResponse `json:"items"`
				NextCursor string         `json:"next_cursor,omitempty"`
			} `json:"body"`
		}{}
		resp.Body.Items = mapCases(items)
		if len(items) == limit && limit > 0 {
			last := items[len(items)-1]
			resp.Body.NextCursor = composeCursor(last.CreatedAt, last.ID)
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}",
		Summary:     "Get case",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CaseID string `path:"case_id"`
	}) (*struct {
		Body CaseResponse `json:"body"`
	}, error) {
		c, err := e.Repo.GetCase(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CaseResponse `json:"body"`
		}{Body: caseResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-case",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/assign",
		Summary:     "Assign designer and reviewer",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		CaseID string            `path:"case_id"`
		Body   AssignCaseRequest `json:"body"`
	}) (*struct {
		Body CaseResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		c, err := e.AssignActors(ctx, engine.AssignRequest{
			CaseID:     input.CaseID,
			DesignerID: strPtrValue(input.Body.DesignerID),
			ReviewerID: strPtrValue(input.Body.ReviewerID),
			AdminID:    principal.ActorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CaseResponse `json:"body"`
		}{Body: caseResponse(c)}, nil
	})
}

func registerTransitions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "transition-case",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/transition",
		Summary:     "Request a status transition",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		CaseID string                `path:"case_id"`
		Body   TransitionCaseRequest `json:"body"`
	}) (*struct {
		Body CaseResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		to, err := workflow.ParseStatus(input.Body.To)
		if err != nil {
			return nil, handleError(err)
		}
		c, err := e.Transition(ctx, engine.TransitionRequest{
			CaseID:  input.CaseID,
			To:      to,
			ActorID: principal.ActorID,
			Role:    principal.Role,
			SubRole: principal.SubRole,
			Note:    strPtrValue(input.Body.Note),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CaseResponse `json:"body"`
		}{Body: caseResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "available-transitions",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/transitions",
		Summary:     "Transitions available to the caller",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CaseID string `path:"case_id"`
	}) (*struct {
		Body AvailableTransitionsResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.Repo.GetCase(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		next, err := e.AvailableTransitions(ctx, input.CaseID, principal.ActorID, principal.Role, principal.SubRole)
		if err != nil {
			return nil, handleError(err)
		}
		names := make([]string, 0, len(next))
		for _, s := range next {
			names = append(names, string(s))
		}
		return &struct {
			Body AvailableTransitionsResponse `json:"body"`
		}{Body: AvailableTransitionsResponse{
			CaseID: c.ID,
			Status: c.Status,
			Next:   names,
		}}, nil
	})
}

func registerAudit(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "case-history",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/history",
		Summary:     "Audit trail for a case",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CaseID string `path:"case_id"`
	}) (*struct {
		Body []AuditEntryResponse `json:"body"`
	}, error) {
		entries, err := e.History(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []AuditEntryResponse `json:"body"`
		}{Body: mapAuditEntries(entries)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-case",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/verify",
		Summary:     "Compare cached case state against the audit trail",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CaseID string `path:"case_id"`
	}) (*struct {
		Body engine.VerifyResult `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		res, err := e.VerifyCase(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.VerifyResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerActors(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-actor",
		Method:        http.MethodPost,
		Path:          "/actors",
		Summary:       "Register or update an actor",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body RegisterActorRequest `json:"body"`
	}) (*struct {
		Body ActorResponse `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.ID) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", nil)
		}
		role, err := workflow.ParseRole(input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		subRole, err := workflow.ParseSubRole(strPtrValue(input.Body.SubRole))
		if err != nil {
			return nil, handleError(err)
		}
		if role == workflow.RoleStaff && subRole == workflow.SubRoleNone {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "staff actors need a sub_role", nil)
		}
		if role != workflow.RoleStaff && subRole != workflow.SubRoleNone {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "sub_role only applies to staff", nil)
		}
		a, err := e.Repo.UpsertActor(ctx, domain.Actor{
			ID:      input.Body.ID,
			Name:    input.Body.Name,
			Role:    string(role),
			SubRole: string(subRole),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActorResponse `json:"body"`
		}{Body: actorResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-actors",
		Method:      http.MethodGet,
		Path:        "/actors",
		Summary:     "List actors",
	}, func(ctx context.Context, input *struct {
		Role string `query:"role"`
	}) (*struct {
		Body []ActorResponse `json:"body"`
	}, error) {
		if input.Role != "" {
			if _, err := workflow.ParseRole(input.Role); err != nil {
				return nil, handleError(err)
			}
		}
		items, err := e.Repo.ListActors(ctx, input.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ActorResponse `json:"body"`
		}{Body: mapActors(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-actor",
		Method:      http.MethodGet,
		Path:        "/actors/{actor_id}",
		Summary:     "Get actor",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `path:"actor_id"`
	}) (*struct {
		Body ActorResponse `json:"body"`
	}, error) {
		a, err := e.Repo.GetActor(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActorResponse `json:"body"`
		}{Body: actorResponse(a)}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status-report",
		Method:      http.MethodGet,
		Path:        "/reports/status",
		Summary:     "Case counts by status and bucket",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.StatusReport `json:"body"`
	}, error) {
		rep, err := e.StatusCounts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.StatusReport `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refinement-report",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/refinements",
		Summary:     "Refinements derived from the audit trail",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CaseID string `path:"case_id"`
		Start  string `query:"start"`
		End    string `query:"end"`
	}) (*struct {
		Body RefinementReportResponse `json:"body"`
	}, error) {
		var start, end time.Time
		var err error
		if input.Start != "" {
			start, err = time.Parse(time.RFC3339, input.Start)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "start must be RFC3339", nil)
			}
		}
		if input.End != "" {
			end, err = time.Parse(time.RFC3339, input.End)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "end must be RFC3339", nil)
			}
		}
		count, err := e.RefinementsInPeriod(ctx, input.CaseID, start, end)
		if err != nil {
			return nil, handleError(err)
		}
		resp := RefinementReportResponse{CaseID: input.CaseID, Count: count}
		if input.Start != "" {
			resp.Start = &input.Start
		}
		if input.End != "" {
			resp.End = &input.End
		}
		return &struct {
			Body RefinementReportResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create an API key for an actor",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.ActorID) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		key, secret, err := e.CreateAPIKey(ctx, input.Body.ActorID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: APIKeyResponse{
			ID:        key.ID,
			ActorID:   key.ActorID,
			Name:      key.Name,
			Key:       secret, // shown once
			CreatedAt: key.CreatedAt,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListAPIKeys(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]APIKeyResponse, 0, len(items))
		for _, k := range items {
			res = append(res, APIKeyResponse{
				ID:        k.ID,
				ActorID:   k.ActorID,
				Name:      k.Name,
				CreatedAt: k.CreatedAt,
			})
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{key_id}",
		Summary:     "Revoke an API key",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if _, authErr := requireAdmin(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "revoked"}}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID: principal.ActorID,
			Role:    string(principal.Role),
			SubRole: string(principal.SubRole),
			Source:  principal.Source,
		}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if !authCfg.DevLogin {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "dev login disabled", nil)
		}
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		role, err := workflow.ParseRole(input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		subRole, err := workflow.ParseSubRole(strPtrValue(input.Body.SubRole))
		if err != nil {
			return nil, handleError(err)
		}
		token, err := signDevToken(authCfg.JWTSecret, actor, role, subRole)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	const defaultLimit = 50
	const maxLimit = 200
	if in <= 0 {
		return defaultLimit
	}
	if in > maxLimit {
		return maxLimit
	}
	return in
}

func parseCompositeCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cursor")
	}
	return parts[0], parts[1], nil
}

func composeCursor(ts, id string) string {
	if ts == "" || id == "" {
		return ""
	}
	return ts + "|" + id
}
