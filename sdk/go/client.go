package smartstartsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Smart Start HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Assignment is the planning input for one piece of coursework.
type Assignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	MaxPoints   *float64   `json:"max_points,omitempty"`
	CourseID    string     `json:"course_id,omitempty"`
}

// Recommendation is a computed start plan entry.
type Recommendation struct {
	AssignmentID         string    `json:"assignment_id"`
	RecommendedStartDate time.Time `json:"recommended_start_date"`
	ComplexityScore      int       `json:"complexity_score"`
	EstimatedHours       float64   `json:"estimated_hours"`
	PriorityRank         int       `json:"priority_rank"`
	Reasoning            string    `json:"reasoning"`
	Priority             string    `json:"priority"`
}

// StoredRecommendation is a persisted plan entry joined with its assignment.
type StoredRecommendation struct {
	Recommendation
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	Title       string     `json:"title"`
	CourseName  string     `json:"course_name,omitempty"`
	TeacherName string     `json:"teacher_name,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Course is a course in a sync request.
type Course struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
}

// Submission is a student's state on an assignment.
type Submission struct {
	AssignmentID  string   `json:"assignment_id"`
	State         string   `json:"state"`
	AssignedGrade *float64 `json:"assigned_grade,omitempty"`
}

// SyncRequest uploads one classroom pull for a student.
type SyncRequest struct {
	FullName    string       `json:"full_name,omitempty"`
	Courses     []Course     `json:"courses,omitempty"`
	Assignments []Assignment `json:"assignments"`
	Submissions []Submission `json:"submissions,omitempty"`
}

// SyncResult reports what a sync stored.
type SyncResult struct {
	StudentID       string           `json:"student_id"`
	Courses         int              `json:"courses"`
	Assignments     int              `json:"assignments"`
	Submissions     int              `json:"submissions"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Intervention is an item needing adult attention.
type Intervention struct {
	Type     string   `json:"type"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
}

// Summary is the parent-facing view of one student (partial).
type Summary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WorkloadHealth string `json:"workload_health"`
	HealthReason   string `json:"health_reason"`
	Stats          struct {
		AssignmentsDue int     `json:"assignments_due"`
		OverdueCount   int     `json:"overdue_count"`
		CompletionRate float64 `json:"completion_rate"`
	} `json:"stats"`
	ImprovingSubjects []string       `json:"improving_subjects"`
	DecliningSubjects []string       `json:"declining_subjects"`
	Interventions     []Intervention `json:"interventions"`
}

// Link is a parent/student link.
type Link struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// SmartStart computes a plan without storing anything. Zero avgHoursPerDay uses the server default.
func (c *Client) SmartStart(ctx context.Context, assignments []Assignment, avgHoursPerDay float64) ([]Recommendation, error) {
	body := map[string]any{"assignments": assignments}
	if avgHoursPerDay > 0 {
		body["avg_hours_per_day"] = avgHoursPerDay
	}
	var resp struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	err := c.do(ctx, http.MethodPost, "smart-start", body, &resp)
	return resp.Recommendations, err
}

// Sync stores a classroom pull for a student.
func (c *Client) Sync(ctx context.Context, studentID string, req SyncRequest) (SyncResult, error) {
	var resp SyncResult
	err := c.do(ctx, http.MethodPost, c.studentPath(studentID, "sync"), req, &resp)
	return resp, err
}

// Recommendations returns the stored plan for a student.
func (c *Client) Recommendations(ctx context.Context, studentID string) ([]StoredRecommendation, error) {
	var resp struct {
		Items []StoredRecommendation `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.studentPath(studentID, "recommendations"), nil, &resp)
	return resp.Items, err
}

// Summary returns a student's health summary.
func (c *Client) Summary(ctx context.Context, studentID string) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, c.studentPath(studentID, "summary"), nil, &resp)
	return resp, err
}

// RequestLink asks to link a parent to a student.
func (c *Client) RequestLink(ctx context.Context, parentID, studentID string) (Link, error) {
	var resp Link
	endpoint := fmt.Sprintf("parents/%s/links", url.PathEscape(parentID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"student_id": studentID}, &resp)
	return resp, err
}

// RespondLink accepts or rejects a pending link as the student.
func (c *Client) RespondLink(ctx context.Context, studentID, linkID, status string) (Link, error) {
	var resp Link
	endpoint := c.studentPath(studentID, "links/"+url.PathEscape(linkID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// Children returns summaries for every accepted child of a parent.
func (c *Client) Children(ctx context.Context, parentID string) ([]Summary, error) {
	var resp struct {
		Children []Summary `json:"children"`
	}
	endpoint := fmt.Sprintf("parents/%s/children", url.PathEscape(parentID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Children, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	u := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) studentPath(studentID, p string) string {
	return fmt.Sprintf("students/%s/%s", url.PathEscape(studentID), strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
