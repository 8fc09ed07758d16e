/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/tempo/leave-engine/engine"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	ManagerID *string  `json:"manager_id,omitempty"`
	StartDate *string  `json:"start_date,omitempty"`
	Active    bool     `json:"active"`
	Approvers []string `json:"approvers"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to onboard a user.
type CreateUserRequest struct {
	ID        string   `json:"id,omitempty"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Role      string   `json:"role,omitempty"`
	ManagerID *string  `json:"manager_id,omitempty"`
	StartDate *string  `json:"start_date,omitempty"`
	Approvers []string `json:"approvers,omitempty"`
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// LeaveTypeDTO represents a leave type in API responses.
type LeaveTypeDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Paid        bool   `json:"paid"`
	DefaultDays int    `json:"default_days"`
	Color       string `json:"color"`
	Active      bool   `json:"active"`
}

// SaveLeaveTypeRequest is the request to create or update a leave type.
type SaveLeaveTypeRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Paid        *bool  `json:"paid,omitempty"`
	DefaultDays int    `json:"default_days"`
	Color       string `json:"color,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a holiday in API responses.
type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
	Year int    `json:"year"`
}

// CreateHolidayRequest is the request to add a public holiday.
type CreateHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO represents one entitlement bucket. Remaining is always
// derived server-side, never stored or accepted from clients.
type BalanceDTO struct {
	UserID        string `json:"user_id"`
	LeaveTypeID   string `json:"leave_type_id"`
	LeaveTypeName string `json:"leave_type_name,omitempty"`
	Year          int    `json:"year"`
	TotalDays     int    `json:"total_days"`
	UsedDays      int    `json:"used_days"`
	RemainingDays int    `json:"remaining_days"`
}

// AdjustBalanceRequest is the admin request to correct a balance.
// Omitted fields are left untouched.
type AdjustBalanceRequest struct {
	LeaveTypeID string `json:"leave_type_id"`
	Year        int    `json:"year,omitempty"`
	TotalDays   *int   `json:"total_days,omitempty"`
	UsedDays    *int   `json:"used_days,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO represents a time-off request in API responses.
type RequestDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	LeaveTypeID     string  `json:"leave_type_id"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	BusinessDays    int     `json:"business_days"`
	Status          string  `json:"status"`
	Comment         string  `json:"comment,omitempty"`
	ReviewerID      *string `json:"reviewer_id,omitempty"`
	ReviewerComment string  `json:"reviewer_comment,omitempty"`
	ReviewedAt      *string `json:"reviewed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// SubmitRequestDTO is the request body to submit a time-off request.
type SubmitRequestDTO struct {
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Comment     string `json:"comment,omitempty"`
}

// ReviewRequestDTO is the request body for approve/reject.
type ReviewRequestDTO struct {
	Comment string `json:"comment,omitempty"`
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarEntryDTO is one user-day of approved leave in the team calendar.
type CalendarEntryDTO struct {
	Date        string `json:"date"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	LeaveTypeID string `json:"leave_type_id"`
	Color       string `json:"color,omitempty"`
	RequestID   string `json:"request_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toUserDTO(u engine.User) UserDTO {
	dto := UserDTO{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		Active:    u.Active,
		Approvers: make([]string, 0, len(u.Approvers)),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	for _, a := range u.Approvers {
		dto.Approvers = append(dto.Approvers, string(a))
	}
	if u.ManagerID != nil {
		s := string(*u.ManagerID)
		dto.ManagerID = &s
	}
	if u.StartDate != nil {
		s := u.StartDate.String()
		dto.StartDate = &s
	}
	return dto
}

func toLeaveTypeDTO(lt engine.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		ID:          string(lt.ID),
		Name:        lt.Name,
		Paid:        lt.Paid,
		DefaultDays: lt.DefaultDays,
		Color:       lt.Color,
		Active:      lt.Active,
	}
}

func toHolidayDTO(h engine.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:   h.ID,
		Date: h.Date.String(),
		Name: h.Name,
		Year: h.Year,
	}
}

func toBalanceDTO(b engine.Balance, typeName string) BalanceDTO {
	return BalanceDTO{
		UserID:        string(b.UserID),
		LeaveTypeID:   string(b.LeaveTypeID),
		LeaveTypeName: typeName,
		Year:          b.Year,
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.Remaining(),
	}
}

func toRequestDTO(r engine.Request) RequestDTO {
	dto := RequestDTO{
		ID:           string(r.ID),
		UserID:       string(r.UserID),
		LeaveTypeID:  string(r.LeaveTypeID),
		StartDate:    r.StartDate.String(),
		EndDate:      r.EndDate.String(),
		BusinessDays: r.BusinessDays,
		Status:       string(r.Status),
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.ReviewerID != nil {
		s := string(*r.ReviewerID)
		dto.ReviewerID = &s
	}
	dto.ReviewerComment = r.ReviewerComment
	if r.ReviewedAt != nil {
		s := r.ReviewedAt.Format(time.RFC3339)
		dto.ReviewedAt = &s
	}
	return dto
}
