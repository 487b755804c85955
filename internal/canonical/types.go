// Package canonical holds the partner-neutral representation of a university
// application and its status. Every partner adapter translates to and from
// these types; nothing outside the adapters speaks a partner's native
// vocabulary.
package canonical

// Status is the closed set of canonical application statuses.
type Status string

const (
	StatusReceived          Status = "received"
	StatusUnderReview       Status = "under_review"
	StatusDocumentsRequired Status = "documents_required"
	StatusAccepted          Status = "accepted"
	StatusRejected          Status = "rejected"
	StatusWaitlisted        Status = "waitlisted"
)

// Valid reports whether s is one of the six canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusUnderReview, StatusDocumentsRequired,
		StatusAccepted, StatusRejected, StatusWaitlisted:
		return true
	}
	return false
}

// IsTerminal reports whether s ends the status lifecycle. Accepted and
// rejected are terminal. Waitlisted is treated as non-terminal: partners may
// still move a waitlisted application to accepted or rejected, and nothing in
// the partner contracts guarantees otherwise.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// PersonalInfo is the applicant identity block.
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	IDNumber    string `json:"idNumber"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Nationality string `json:"nationality"`
}

// Subject is one matric subject result.
type Subject struct {
	Name  string  `json:"name"`
	Level string  `json:"level"`
	Mark  float64 `json:"mark"`
}

// AcademicInfo is the applicant academic-history block.
type AcademicInfo struct {
	MatricYear             string                   `json:"matricYear"`
	SchoolName             string                   `json:"schoolName"`
	Subjects               []Subject                `json:"subjects"`
	PreviousQualifications []map[string]interface{} `json:"previousQualifications,omitempty"`
}

// Document is a reference to an uploaded supporting document.
type Document struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Verified bool   `json:"verified"`
}

// Application is the vendor-neutral application payload.
type Application struct {
	ApplicationID   string                 `json:"applicationId"`
	StudentID       string                 `json:"studentId"`
	CourseCode      string                 `json:"courseCode"`
	PersonalInfo    PersonalInfo           `json:"personalInfo"`
	AcademicInfo    AcademicInfo           `json:"academicInfo"`
	Documents       []Document             `json:"documents"`
	ApplicationData map[string]interface{} `json:"applicationData,omitempty"`
}

// Requirement is one outstanding admission requirement.
type Requirement struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	DueDate     string `json:"dueDate,omitempty"`
}

// StatusReport is the normalized answer to a status query.
type StatusReport struct {
	ApplicationID string        `json:"applicationId"`
	Status        Status        `json:"status"`
	Message       string        `json:"message"`
	LastUpdated   string        `json:"lastUpdated"`
	NextSteps     []string      `json:"nextSteps,omitempty"`
	Requirements  []Requirement `json:"requirements,omitempty"`
}

// Update is a normalized asynchronous status-update event produced by the
// webhook ingress. NeedsReview is set when the partner sent a status value
// outside its known vocabulary; the event is still delivered, but flagged so
// downstream consumers never mistake it for a classified outcome. RawStatus
// carries the partner's native value in that case.
type Update struct {
	ApplicationID string                 `json:"applicationId"`
	PartnerCode   string                 `json:"partnerCode"`
	Status        Status                 `json:"status"`
	Message       string                 `json:"message"`
	Timestamp     string                 `json:"timestamp"`
	NeedsReview   bool                   `json:"needsReview,omitempty"`
	RawStatus     string                 `json:"rawStatus,omitempty"`
	Extra         map[string]interface{} `json:"additionalData,omitempty"`
}

// IntegrationPath records how a submission was actually handled.
type IntegrationPath string

const (
	PathDirect   IntegrationPath = "direct"
	PathFallback IntegrationPath = "fallback"
	PathManual   IntegrationPath = "manual"
)

// SubmissionResult is the uniform outcome of a submission attempt, whichever
// path handled it. Callers must distinguish a confirmed partner submission
// (direct) from a locally handled one (fallback, manual).
type SubmissionResult struct {
	Success           bool            `json:"success"`
	ApplicationNumber string          `json:"applicationNumber,omitempty"`
	Error             string          `json:"error,omitempty"`
	FallbackRequired  bool            `json:"fallbackRequired,omitempty"`
	IntegrationPath   IntegrationPath `json:"integrationPath,omitempty"`
}

// ValidationOutcome is the result of a partner-side validation call.
type ValidationOutcome struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
