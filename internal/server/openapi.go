package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents /healthz: one entry per dependency.
type HealthResponse map[string]struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Optional   bool   `json:"optional,omitempty"`
}

type sessionPath struct {
	ID string `path:"id" description:"Session ID"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Superteam Ireland Hunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Dublin scavenger hunt. Player routes take the session token as a Bearer token.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	postSession.SetSummary("Start a hunt")
	postSession.SetDescription("Creates a session. The returned token authenticates every player route.")
	postSession.AddReqStructure(StartSessionRequest{})
	postSession.AddRespStructure(StartSessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postSession)

	// GET /api/catalog
	getCatalog, _ := r.NewOperationContext(http.MethodGet, "/api/catalog")
	getCatalog.SetSummary("Hunt route")
	getCatalog.SetDescription("Lists the locations and scoring rules. Puzzles and answers are not included.")
	getCatalog.AddRespStructure(CatalogResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCatalog)

	// GET /api/game/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/game/state")
	getState.SetSummary("Get hunt state")
	getState.SetDescription("Returns the session's stage, location, open puzzle, balance and ledger. Requires Bearer token.")
	getState.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusGone))
	_ = r.AddOperation(getState)

	// POST /api/game/arrive
	postArrive, _ := r.NewOperationContext(http.MethodPost, "/api/game/arrive")
	postArrive.SetSummary("Confirm arrival")
	postArrive.SetDescription("Confirms arrival at the current location, credits the arrival reward and opens its puzzle. Requires Bearer token.")
	postArrive.AddRespStructure(EventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postArrive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postArrive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postArrive)

	// POST /api/game/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/game/answer")
	postAnswer.SetSummary("Submit answer")
	postAnswer.SetDescription("Submits an answer to the open puzzle. Requires Bearer token.")
	postAnswer.AddReqStructure(AnswerRequest{})
	postAnswer.AddRespStructure(EventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/game/hint
	postHint, _ := r.NewOperationContext(http.MethodPost, "/api/game/hint")
	postHint.SetSummary("Request a hint")
	postHint.SetDescription("Reveals the next hint and deducts the hint penalty. Requires Bearer token.")
	postHint.AddRespStructure(EventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postHint)

	// POST /api/game/selfie
	postSelfie, _ := r.NewOperationContext(http.MethodPost, "/api/game/selfie")
	postSelfie.SetSummary("Upload closing selfie")
	postSelfie.SetDescription("Accepts a multipart 'selfie' file or a JSON data URL, finishes the hunt and issues the certificate. Requires Bearer token.")
	postSelfie.AddReqStructure(SelfieRequest{})
	postSelfie.AddRespStructure(EventResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSelfie.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSelfie.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postSelfie)

	// GET /api/game/help
	getHelp, _ := r.NewOperationContext(http.MethodGet, "/api/game/help")
	getHelp.SetSummary("Help")
	getHelp.SetDescription("Returns guidance for the current stage. Requires Bearer token.")
	getHelp.AddRespStructure(HelpResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHelp.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getHelp)

	// GET /api/game/certificate
	getCert, _ := r.NewOperationContext(http.MethodGet, "/api/game/certificate")
	getCert.SetSummary("Download certificate")
	getCert.SetDescription("Returns the completion certificate as a PDF once the hunt is finished. Requires Bearer token.")
	getCert.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/pdf"))
	getCert.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getCert)

	// GET /api/game/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/game/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of state updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/game/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/game/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket carrying the same state updates as the SSE stream. Pass token as query parameter.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// GET /api/certificates/verify
	verifyCert, _ := r.NewOperationContext(http.MethodGet, "/api/certificates/verify")
	verifyCert.SetSummary("Verify certificate")
	verifyCert.SetDescription("Checks a certificate token and returns what it certifies.")
	verifyCert.AddRespStructure(VerifyCertificateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	verifyCert.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(verifyCert)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Revokes the admin session token and clears the admin_session cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/admin/sessions
	listSessions, _ := r.NewOperationContext(http.MethodGet, "/api/admin/sessions")
	listSessions.SetSummary("List sessions")
	listSessions.SetDescription("Returns all sessions, most recently active first. Filter with ?stage=. Requires admin_session cookie.")
	listSessions.AddRespStructure([]AdminSessionSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	listSessions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listSessions)

	// GET /api/admin/sessions/{id}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/admin/sessions/{id}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns a session with its reward ledger. Requires admin_session cookie.")
	getSession.AddReqStructure(sessionPath{})
	getSession.AddRespStructure(AdminSessionDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getSession)

	// POST /api/admin/sessions/{id}/rewards/retry
	retryRewards, _ := r.NewOperationContext(http.MethodPost, "/api/admin/sessions/{id}/rewards/retry")
	retryRewards.SetSummary("Retry rewards")
	retryRewards.SetDescription("Re-sends every pending or failed reward of a session. Rewards already handed to the network are looked up first and only sent again once their transfer can no longer land. Requires admin_session cookie.")
	retryRewards.AddReqStructure(sessionPath{})
	retryRewards.AddRespStructure(AdminSessionDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	retryRewards.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	retryRewards.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(retryRewards)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
