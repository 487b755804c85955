package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/httpclient"
	"uniapply/internal/common/logger"
	"uniapply/internal/common/metrics"
)

// witsSessionLifetime is how long a Wits session token is reused. The login
// response carries no expiry, so sessions are refreshed on this interval or
// when the partner rejects one.
const witsSessionLifetime = 25 * time.Minute

// witsClient integrates with the Wits student-services API. Authentication is
// a username/password session login; every call also carries the static API
// key. Document upload is a two-step sequence: upload to the document
// service, then attach to the application. Both steps must succeed.
type witsClient struct {
	cfg        config.PartnerConfig
	httpClient *httpclient.Client
	tokens     *TokenCache
	logger     logger.Logger
}

func newWitsClient(cfg config.PartnerConfig, tokens *TokenCache, log logger.Logger) Client {
	return &witsClient{
		cfg:        cfg,
		httpClient: httpclient.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
		tokens:     tokens,
		logger:     log,
	}
}

// --- wire types ---

type witsPersonalDetails struct {
	FirstName    string `json:"firstName"`
	Surname      string `json:"surname"`
	IDNumber     string `json:"idNumber"`
	EmailAddress string `json:"emailAddress"`
	MobileNumber string `json:"mobileNumber"`
	BirthDate    string `json:"birthDate"`
	Citizenship  string `json:"citizenship"`
}

type witsMatricResult struct {
	Subject    string  `json:"subject"`
	Level      string  `json:"level"`
	Percentage float64 `json:"percentage"`
}

type witsAcademicHistory struct {
	MatriculationYear string             `json:"matriculationYear"`
	HighSchool        string             `json:"highSchool"`
	MatricResults     []witsMatricResult `json:"matricResults"`
}

type witsApplicant struct {
	PersonalDetails witsPersonalDetails `json:"personalDetails"`
	AcademicHistory witsAcademicHistory `json:"academicHistory"`
}

type witsApplicationDetails struct {
	ProgramCode        string `json:"programCode"`
	StudyType          string `json:"studyType"`
	ResidenceRequired  bool   `json:"residenceRequired"`
	BursaryApplication bool   `json:"bursaryApplication"`
	PersonalStatement  string `json:"personalStatement,omitempty"`
}

type witsSupportingDocument struct {
	Category string `json:"category"`
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
	Verified bool   `json:"verified"`
}

type witsApplication struct {
	Applicant           witsApplicant            `json:"applicant"`
	ApplicationDetails  witsApplicationDetails   `json:"applicationDetails"`
	SupportingDocuments []witsSupportingDocument `json:"supportingDocuments"`
}

type witsPendingRequirement struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Satisfied   bool   `json:"satisfied"`
	Deadline    string `json:"deadline,omitempty"`
}

type witsStatusResponse struct {
	ApplicationReference string                   `json:"applicationReference"`
	CurrentStatus        string                   `json:"currentStatus"`
	StatusDescription    string                   `json:"statusDescription"`
	LastStatusUpdate     string                   `json:"lastStatusUpdate"`
	ActionItems          []string                 `json:"actionItems"`
	PendingRequirements  []witsPendingRequirement `json:"pendingRequirements"`
}

// --- vocabulary dictionaries ---

var witsDocumentCategories = map[string]string{
	"id_document":          "IDENTITY_DOCUMENT",
	"matric_certificate":   "MATRIC_CERTIFICATE",
	"academic_transcripts": "ACADEMIC_TRANSCRIPT",
	"motivation_letter":    "PERSONAL_STATEMENT",
	"proof_of_address":     "PROOF_OF_RESIDENCE",
	"medical_certificate":  "MEDICAL_CERTIFICATE",
}

var witsStatuses = map[string]canonical.Status{
	"SUBMITTED":         canonical.StatusReceived,
	"UNDER_REVIEW":      canonical.StatusUnderReview,
	"PENDING_DOCUMENTS": canonical.StatusDocumentsRequired,
	"OFFER_MADE":        canonical.StatusAccepted,
	"DECLINED":          canonical.StatusRejected,
	"WAITING_LIST":      canonical.StatusWaitlisted,
}

// MapWitsStatus translates a native Wits status value. ok is false for values
// outside the known vocabulary.
func MapWitsStatus(native string) (canonical.Status, bool) {
	status, ok := witsStatuses[native]
	return status, ok
}

func mapWitsDocumentCategory(documentType string) string {
	if mapped, ok := witsDocumentCategories[documentType]; ok {
		return mapped
	}
	return strings.ToUpper(documentType)
}

// --- authentication ---

func (c *witsClient) sessionToken(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx, c.cfg.Code, func(ctx context.Context) (string, time.Duration, error) {
		loginBody, err := json.Marshal(map[string]string{
			"username": c.cfg.Credentials.Username,
			"password": c.cfg.Credentials.Password,
		})
		if err != nil {
			return "", 0, fmt.Errorf("failed to marshal login request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/auth/login", bytes.NewBuffer(loginBody))
		if err != nil {
			return "", 0, fmt.Errorf("failed to create login request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.cfg.Credentials.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", 0, errors.NewTransportError(c.cfg.Code, err)
		}
		defer resp.Body.Close()

		var loginResp struct {
			SessionToken string `json:"sessionToken"`
			Message      string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
			return "", 0, fmt.Errorf("failed to decode login response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", 0, errors.NewAuthenticationError(c.cfg.Code,
				fmt.Errorf("session login failed: %s", loginResp.Message))
		}

		return loginResp.SessionToken, witsSessionLifetime, nil
	})
}

func (c *witsClient) doJSON(ctx context.Context, operation, method, path string, body, out interface{}) error {
	timer := time.Now()
	defer func() {
		metrics.AdapterRequestDuration.WithLabelValues(c.cfg.Code, operation).Observe(time.Since(timer).Seconds())
	}()

	token, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.Credentials.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewTransportError(c.cfg.Code, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewTransportError(c.cfg.Code, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.classifyFailure(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *witsClient) classifyFailure(statusCode int, body []byte) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)
	detail := errResp.Error
	if detail == "" {
		detail = errResp.Message
	}
	if detail == "" {
		detail = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		c.tokens.Invalidate(c.cfg.Code)
		return errors.NewAuthenticationError(c.cfg.Code, fmt.Errorf("partner returned %d: %s", statusCode, detail))
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return errors.NewValidationError(detail)
	default:
		return errors.NewPartnerRejectionError(c.cfg.Code, detail)
	}
}

// --- capability set ---

func (c *witsClient) SubmitApplication(ctx context.Context, app *canonical.Application) (string, error) {
	results := make([]witsMatricResult, 0, len(app.AcademicInfo.Subjects))
	for _, subject := range app.AcademicInfo.Subjects {
		results = append(results, witsMatricResult{
			Subject:    subject.Name,
			Level:      subject.Level,
			Percentage: subject.Mark,
		})
	}

	documents := make([]witsSupportingDocument, 0, len(app.Documents))
	for _, doc := range app.Documents {
		documents = append(documents, witsSupportingDocument{
			Category: mapWitsDocumentCategory(doc.Type),
			FileName: doc.Filename,
			FileURL:  doc.URL,
			Verified: doc.Verified,
		})
	}

	payload := witsApplication{
		Applicant: witsApplicant{
			PersonalDetails: witsPersonalDetails{
				FirstName:    app.PersonalInfo.FirstName,
				Surname:      app.PersonalInfo.LastName,
				IDNumber:     app.PersonalInfo.IDNumber,
				EmailAddress: app.PersonalInfo.Email,
				MobileNumber: app.PersonalInfo.Phone,
				BirthDate:    app.PersonalInfo.DateOfBirth,
				Citizenship:  app.PersonalInfo.Nationality,
			},
			AcademicHistory: witsAcademicHistory{
				MatriculationYear: app.AcademicInfo.MatricYear,
				HighSchool:        app.AcademicInfo.SchoolName,
				MatricResults:     results,
			},
		},
		ApplicationDetails: witsApplicationDetails{
			ProgramCode:        app.CourseCode,
			StudyType:          strings.ToUpper(stringField(app.ApplicationData, "studyMode", "FULLTIME")),
			ResidenceRequired:  boolField(app.ApplicationData, "accommodationRequired"),
			BursaryApplication: boolField(app.ApplicationData, "financialAid"),
			PersonalStatement:  stringField(app.ApplicationData, "motivationLetter", ""),
		},
		SupportingDocuments: documents,
	}

	var result struct {
		ApplicationReference string `json:"applicationReference"`
	}
	if err := c.doJSON(ctx, "submit", http.MethodPost, "/admissions/applications", payload, &result); err != nil {
		c.logger.WithError(err).Error("application submission failed", map[string]interface{}{
			"applicationId": app.ApplicationID,
			"errorCode":     string(errors.CodeOf(err)),
		})
		return "", err
	}

	return result.ApplicationReference, nil
}

func (c *witsClient) GetApplicationStatus(ctx context.Context, partnerApplicationID string) (*canonical.StatusReport, error) {
	var result witsStatusResponse
	path := fmt.Sprintf("/admissions/applications/%s", url.PathEscape(partnerApplicationID))
	if err := c.doJSON(ctx, "status", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	status, known := MapWitsStatus(result.CurrentStatus)
	message := result.StatusDescription
	if !known {
		status = canonical.StatusUnderReview
		message = fmt.Sprintf("%s (unrecognized partner status %q, flagged for review)", message, result.CurrentStatus)
		c.logger.Warn("unmapped partner status", map[string]interface{}{
			"applicationId": partnerApplicationID,
			"nativeStatus":  result.CurrentStatus,
		})
	}

	requirements := make([]canonical.Requirement, 0, len(result.PendingRequirements))
	for _, req := range result.PendingRequirements {
		requirements = append(requirements, canonical.Requirement{
			Type:        req.Category,
			Description: req.Description,
			Completed:   req.Satisfied,
			DueDate:     req.Deadline,
		})
	}

	return &canonical.StatusReport{
		ApplicationID: result.ApplicationReference,
		Status:        status,
		Message:       message,
		LastUpdated:   result.LastStatusUpdate,
		NextSteps:     result.ActionItems,
		Requirements:  requirements,
	}, nil
}

// UploadDocument uploads to the Wits document service and then attaches the
// stored document to the application. Failure of either step fails the whole
// operation.
func (c *witsClient) UploadDocument(ctx context.Context, partnerApplicationID string, file []byte, documentType string) (string, error) {
	timer := time.Now()
	defer func() {
		metrics.AdapterRequestDuration.WithLabelValues(c.cfg.Code, "upload").Observe(time.Since(timer).Seconds())
	}()

	token, err := c.sessionToken(ctx)
	if err != nil {
		return "", err
	}

	category := mapWitsDocumentCategory(documentType)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("document", "document")
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	_ = writer.WriteField("category", category)
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/documents/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", c.cfg.Credentials.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewTransportError(c.cfg.Code, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewTransportError(c.cfg.Code, fmt.Errorf("failed to read response body: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", c.classifyFailure(resp.StatusCode, respBody)
	}

	var uploadResult struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal(respBody, &uploadResult); err != nil {
		return "", fmt.Errorf("failed to unmarshal upload response: %w", err)
	}

	attachPath := fmt.Sprintf("/admissions/applications/%s/documents", url.PathEscape(partnerApplicationID))
	attachBody := map[string]string{
		"documentId": uploadResult.DocumentID,
		"category":   category,
	}
	if err := c.doJSON(ctx, "attach", http.MethodPost, attachPath, attachBody, nil); err != nil {
		return "", err
	}

	return uploadResult.DocumentID, nil
}

func (c *witsClient) GetRequirements(ctx context.Context, courseCode string) ([]map[string]interface{}, error) {
	var result struct {
		AdmissionRequirements []map[string]interface{} `json:"admissionRequirements"`
	}
	path := fmt.Sprintf("/academic/programs/%s/admission-requirements", url.PathEscape(courseCode))
	if err := c.doJSON(ctx, "requirements", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.AdmissionRequirements, nil
}

func (c *witsClient) ValidateApplication(ctx context.Context, app *canonical.Application) (*canonical.ValidationOutcome, error) {
	var result struct {
		IsValid          bool     `json:"isValid"`
		ValidationErrors []string `json:"validationErrors"`
	}
	if err := c.doJSON(ctx, "validate", http.MethodPost, "/admissions/applications/validate", app, &result); err != nil {
		return nil, err
	}
	return &canonical.ValidationOutcome{Valid: result.IsValid, Errors: result.ValidationErrors}, nil
}
