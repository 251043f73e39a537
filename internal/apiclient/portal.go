package apiclient

import (
	"context"
	"fmt"
	"net/url"
)

// Student is one roster entry.
type Student struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Email         string `json:"email"`
	StudentNumber string `json:"studentNumber"`
	CreatedOn     int64  `json:"createdOn"`
}

type StudentPage struct {
	Items   []Student `json:"items"`
	Total   int64     `json:"total"`
	Page    int32     `json:"page"`
	PerPage int32     `json:"perPage"`
}

type NewStudent struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	StudentNumber string `json:"studentNumber"`
}

type StudentPatch struct {
	Email         *string `json:"email,omitempty"`
	Password      *string `json:"password,omitempty"`
	FirstName     *string `json:"firstname,omitempty"`
	LastName      *string `json:"lastname,omitempty"`
	StudentNumber *string `json:"studentNumber,omitempty"`
}

func (c *Client) Students(ctx context.Context, token string, page, perPage int, search string) (StudentPage, error) {
	var result StudentPage
	err := c.do(ctx, "GET", "/students"+pageQuery(page, perPage, search), token, nil, &result)
	return result, err
}

func (c *Client) CreateStudent(ctx context.Context, token string, student NewStudent) (Student, error) {
	var result Student
	err := c.do(ctx, "POST", "/students", token, student, &result)
	return result, err
}

func (c *Client) UpdateStudent(ctx context.Context, token, studentID string, patch StudentPatch) (Student, error) {
	var result Student
	err := c.do(ctx, "PATCH", "/students/"+url.PathEscape(studentID), token, patch, &result)
	return result, err
}

func (c *Client) DeleteStudent(ctx context.Context, token, studentID string) error {
	return c.do(ctx, "DELETE", "/students/"+url.PathEscape(studentID), token, nil, nil)
}

// Slide is one hero carousel entry on the landing page.
type Slide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl"`
	Position int32  `json:"position"`
	Active   bool   `json:"active"`
}

type NewSlide struct {
	Title    string  `json:"title"`
	Subtitle *string `json:"subtitle,omitempty"`
	ImageURL string  `json:"imageUrl"`
	Position int32   `json:"position"`
	Active   *bool   `json:"active,omitempty"`
}

type SlidePatch struct {
	Title    *string `json:"title,omitempty"`
	Subtitle *string `json:"subtitle,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Position *int32  `json:"position,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Slides lists the landing carousel. Without a token only active slides come
// back; an admin token also returns hidden ones.
func (c *Client) Slides(ctx context.Context, token string) ([]Slide, error) {
	var result []Slide
	err := c.do(ctx, "GET", "/slides", token, nil, &result)
	return result, err
}

func (c *Client) CreateSlide(ctx context.Context, token string, slide NewSlide) (Slide, error) {
	var result Slide
	err := c.do(ctx, "POST", "/slides", token, slide, &result)
	return result, err
}

func (c *Client) UpdateSlide(ctx context.Context, token, slideID string, patch SlidePatch) (Slide, error) {
	var result Slide
	err := c.do(ctx, "PATCH", "/slides/"+url.PathEscape(slideID), token, patch, &result)
	return result, err
}

func (c *Client) DeleteSlide(ctx context.Context, token, slideID string) error {
	return c.do(ctx, "DELETE", "/slides/"+url.PathEscape(slideID), token, nil, nil)
}

type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	StartsAt    int64  `json:"startsAt"`
	EndsAt      int64  `json:"endsAt"`
}

type NewEvent struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartsAt    int64   `json:"startsAt"`
	EndsAt      int64   `json:"endsAt"`
}

func (c *Client) Events(ctx context.Context, token string, limit int) ([]Event, error) {
	path := "/events"
	if limit > 0 {
		path = fmt.Sprintf("/events?limit=%d", limit)
	}
	var result []Event
	err := c.do(ctx, "GET", path, token, nil, &result)
	return result, err
}

func (c *Client) CreateEvent(ctx context.Context, token string, event NewEvent) (Event, error) {
	var result Event
	err := c.do(ctx, "POST", "/events", token, event, &result)
	return result, err
}

// QRCode is a short-lived attendance pass issued to the calling student.
type QRCode struct {
	Code     string `json:"code"`
	Validity int64  `json:"validity"`
}

type AttendanceRecord struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Student string `json:"student"`
	TimeIn  int64  `json:"timeIn"`
	TimeOut *int64 `json:"timeOut,omitempty"`
	Method  string `json:"method"`
}

func (c *Client) IssueQRCode(ctx context.Context, token string) (QRCode, error) {
	var result QRCode
	err := c.do(ctx, "POST", "/attendance/qr", token, nil, &result)
	return result, err
}

// RecordAttendanceByCode submits a scanned QR code for an event.
func (c *Client) RecordAttendanceByCode(ctx context.Context, token, eventID, code string) (AttendanceRecord, error) {
	var result AttendanceRecord
	err := c.do(ctx, "POST", "/events/"+url.PathEscape(eventID)+"/attendance", token, map[string]string{
		"code": code,
	}, &result)
	return result, err
}

// RecordAttendanceByNumber submits a student number when the QR flow is not
// available.
func (c *Client) RecordAttendanceByNumber(ctx context.Context, token, eventID, studentNumber string) (AttendanceRecord, error) {
	var result AttendanceRecord
	err := c.do(ctx, "POST", "/events/"+url.PathEscape(eventID)+"/attendance", token, map[string]string{
		"studentNumber": studentNumber,
	}, &result)
	return result, err
}

func (c *Client) EventAttendance(ctx context.Context, token, eventID string) ([]AttendanceRecord, error) {
	var result []AttendanceRecord
	err := c.do(ctx, "GET", "/events/"+url.PathEscape(eventID)+"/attendance", token, nil, &result)
	return result, err
}

// Dashboard carries the per-role counters shown after login. Fields that do
// not apply to the caller's role stay zero.
type Dashboard struct {
	Students        int64 `json:"students,omitempty"`
	Events          int64 `json:"events,omitempty"`
	AttendanceToday int64 `json:"attendanceToday,omitempty"`
	MyAttendance    int64 `json:"myAttendance,omitempty"`
}

func (c *Client) Dashboard(ctx context.Context, token string) (Dashboard, error) {
	var result Dashboard
	err := c.do(ctx, "GET", "/dashboard", token, nil, &result)
	return result, err
}
