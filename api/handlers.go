/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the vacation accounting engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                   List all users
    POST   /api/users                   Onboard user (seeds first-year balances)
    GET    /api/users/{id}              Get user details
    GET    /api/users/{id}/balances     Balance summary with derived remaining
    POST   /api/users/{id}/balance/adjust  Admin balance correction
    GET    /api/users/{id}/requests     Request history

  Requests:
    POST   /api/requests                Submit time-off request (as actor)
    GET    /api/requests/pending        Pending queue for reviewers
    POST   /api/requests/{id}/approve   Approve (charges ledger)
    POST   /api/requests/{id}/reject    Reject (no ledger effect)
    POST   /api/requests/{id}/cancel    Cancel (releases if approved)

  Leave types:
    GET    /api/leave-types             List leave types
    POST   /api/leave-types             Create or update (admin)

  Holidays:
    GET    /api/holidays                List holidays for a year
    POST   /api/holidays                Add public holiday
    DELETE /api/holidays/{id}           Remove holiday

  Calendar:
    GET    /api/calendar                Approved leave expanded per user-day

AUTHORIZATION:
  The caller identifies via the X-Actor header carrying their user ID.
  The handler resolves the header to pre-computed authorization facts
  (can review, is admin) and hands those to the domain layer. The domain
  never inspects roles itself.

ERROR HANDLING:
  Domain errors map to HTTP status via writeDomainError:
  - 400: Validation errors, invalid transitions, missing balance
  - 403: Actor lacks the required capability
  - 404: Resource not found
  - 409: Duplicate entries, version conflicts
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/lifecycle.go: Request state machine
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tempo/leave-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     engine.TxStore
	Lifecycle *engine.RequestLifecycle
	Ledger    *engine.BalanceLedger
	Accrual   *engine.AccrualPolicy

	// Clock is called for "now"; overridable in tests.
	Clock func() time.Time
}

// NewHandler creates a new handler with the given store.
func NewHandler(store engine.TxStore) *Handler {
	return &Handler{
		Store:     store,
		Lifecycle: engine.NewRequestLifecycle(store),
		Ledger:    engine.NewBalanceLedger(store),
		Accrual:   engine.NewAccrualPolicy(store),
		Clock:     time.Now,
	}
}

// resolveActor turns the X-Actor header into authorization facts.
func (h *Handler) resolveActor(r *http.Request) (engine.Actor, error) {
	id := r.Header.Get("X-Actor")
	if id == "" {
		return engine.Actor{}, errors.New("missing X-Actor header")
	}

	u, err := h.Store.GetUser(r.Context(), engine.UserID(id))
	if err != nil {
		return engine.Actor{}, err
	}
	if u == nil || !u.Active {
		return engine.Actor{}, engine.ErrNotFound
	}

	return engine.Actor{
		ID:        u.ID,
		CanReview: u.Role == engine.RoleManager || u.Role == engine.RoleAdmin,
		IsAdmin:   u.Role == engine.RoleAdmin,
	}, nil
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := engine.UserID(chi.URLParam(r, "id"))

	u, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// CreateUser onboards a new user and seeds their first-year balances
// with prorated entitlements.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email and name are required", nil)
		return
	}

	now := h.Clock()
	u := engine.User{
		ID:        engine.UserID(req.ID),
		Email:     req.Email,
		Name:      req.Name,
		Role:      engine.RoleEmployee,
		Active:    true,
		CreatedAt: now,
	}
	if u.ID == "" {
		u.ID = engine.UserID(uuid.NewString())
	}
	if req.Role != "" {
		u.Role = engine.Role(req.Role)
	}
	if req.ManagerID != nil {
		m := engine.UserID(*req.ManagerID)
		u.ManagerID = &m
	}
	if req.StartDate != nil {
		d, err := engine.ParseDate(*req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return
		}
		u.StartDate = &d
	}
	for _, a := range req.Approvers {
		u.Approvers = append(u.Approvers, engine.UserID(a))
	}

	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	if _, err := h.Accrual.SeedBalances(r.Context(), u, now.Year()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed balances", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns all balance buckets for a user in a year, with
// remaining derived from total minus used.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))
	year := h.Clock().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	ctx := r.Context()
	balances, err := h.Store.ListBalances(ctx, userID, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list balances", err)
		return
	}

	typeNames := make(map[engine.LeaveTypeID]string)
	types, err := h.Store.ListLeaveTypes(ctx, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}
	for _, lt := range types {
		typeNames[lt.ID] = lt.Name
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b, typeNames[b.LeaveTypeID])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AdjustBalance is the admin correction endpoint. Omitted fields stay
// untouched; a missing bucket is created from the leave type default.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}
	if !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "Admin access required", nil)
		return
	}

	userID := engine.UserID(chi.URLParam(r, "id"))

	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.LeaveTypeID == "" {
		writeError(w, http.StatusBadRequest, "leave_type_id is required", nil)
		return
	}
	year := req.Year
	if year == 0 {
		year = h.Clock().Year()
	}

	adj := engine.Adjustment{
		TotalDays: req.TotalDays,
		UsedDays:  req.UsedDays,
		Reason:    req.Reason,
	}
	b, err := h.Ledger.Adjust(r.Context(), userID, engine.LeaveTypeID(req.LeaveTypeID), year, adj)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*b, ""))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a pending time-off request for the actor. The
// chargeable day count is computed and frozen at this moment.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}

	var req SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := engine.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	created, err := h.Lifecycle.Submit(r.Context(), engine.SubmitInput{
		UserID:      actor.ID,
		LeaveTypeID: engine.LeaveTypeID(req.LeaveTypeID),
		StartDate:   start,
		EndDate:     end,
		Comment:     req.Comment,
		Now:         h.Clock(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// ListUserRequests returns a user's request history, newest first.
func (h *Handler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(chi.URLParam(r, "id"))

	requests, err := h.Store.ListRequestsByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPendingRequests returns the reviewer queue, oldest first.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}
	if !actor.CanReview {
		writeError(w, http.StatusForbidden, "Reviewer access required", nil)
		return
	}

	requests, err := h.Store.ListRequestsByStatus(r.Context(), engine.StatusPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a pending request and charges the balance.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Lifecycle.Approve)
}

// RejectRequest rejects a pending request. No ledger effect.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.Lifecycle.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, fn engine.ReviewFunc) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}

	id := engine.RequestID(chi.URLParam(r, "id"))

	var body ReviewRequestDTO
	if r.Body != nil {
		// An empty body is fine; the comment is optional.
		json.NewDecoder(r.Body).Decode(&body)
	}

	updated, err := fn(r.Context(), id, actor, body.Comment, h.Clock())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// CancelRequest cancels the actor's own request. Cancelling an approved
// request releases the frozen day count back to the balance.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}

	id := engine.RequestID(chi.URLParam(r, "id"))

	updated, err := h.Lifecycle.Cancel(r.Context(), id, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(*updated))
}

// =============================================================================
// LEAVE TYPE HANDLERS
// =============================================================================

// ListLeaveTypes returns the leave type catalog. Inactive types are
// included only with ?include_inactive=true.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	types, err := h.Store.ListLeaveTypes(r.Context(), includeInactive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = toLeaveTypeDTO(lt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveLeaveType creates or updates a leave type. Admin only.
func (h *Handler) SaveLeaveType(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}
	if !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "Admin access required", nil)
		return
	}

	var req SaveLeaveTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.DefaultDays < 0 {
		writeError(w, http.StatusBadRequest, "default_days must not be negative", nil)
		return
	}

	lt := engine.LeaveType{
		ID:          engine.LeaveTypeID(req.ID),
		Name:        req.Name,
		Paid:        true,
		DefaultDays: req.DefaultDays,
		Color:       req.Color,
		Active:      true,
	}
	if lt.ID == "" {
		lt.ID = engine.LeaveTypeID(uuid.NewString())
	}
	if req.Paid != nil {
		lt.Paid = *req.Paid
	}
	if req.Active != nil {
		lt.Active = *req.Active
	}
	if lt.Color == "" {
		lt.Color = "#3B82F6"
	}

	if err := h.Store.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save leave type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(lt))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holidays for a year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.Clock().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = parsed
	}

	holidays, err := h.Store.ListHolidays(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = toHolidayDTO(hol)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a public holiday. At most one per calendar date.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}
	if !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "Admin access required", nil)
		return
	}

	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	hol := engine.Holiday{
		ID:   uuid.NewString(),
		Date: date,
		Name: req.Name,
		Year: date.Year(),
	}
	if err := h.Store.SaveHoliday(r.Context(), hol); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(hol))
}

// DeleteHoliday removes a holiday by ID.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveActor(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unknown actor", err)
		return
	}
	if !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "Admin access required", nil)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CALENDAR HANDLER
// =============================================================================

// TeamCalendar expands approved requests overlapping [from, to] into one
// entry per user per day, skipping nothing: weekends and holidays inside
// an approved range still show as leave days.
func (h *Handler) TeamCalendar(w http.ResponseWriter, r *http.Request) {
	from, err := engine.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := engine.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not precede from", nil)
		return
	}

	ctx := r.Context()
	requests, err := h.Store.ListApprovedOverlapping(ctx, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	userNames := make(map[engine.UserID]string)
	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	for _, u := range users {
		userNames[u.ID] = u.Name
	}

	typeColors := make(map[engine.LeaveTypeID]string)
	types, err := h.Store.ListLeaveTypes(ctx, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}
	for _, lt := range types {
		typeColors[lt.ID] = lt.Color
	}

	entries := []CalendarEntryDTO{}
	for _, req := range requests {
		day := req.StartDate
		if day.Before(from) {
			day = from
		}
		last := req.EndDate
		if to.Before(last) {
			last = to
		}
		for !day.After(last) {
			entries = append(entries, CalendarEntryDTO{
				Date:        day.String(),
				UserID:      string(req.UserID),
				UserName:    userNames[req.UserID],
				LeaveTypeID: string(req.LeaveTypeID),
				Color:       typeColors[req.LeaveTypeID],
				RequestID:   string(req.ID),
			})
			day = day.AddDays(1)
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, engine.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, engine.ErrDuplicateLedgerEntry),
		errors.Is(err, engine.ErrDuplicateHoliday),
		errors.Is(err, engine.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Conflict", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
