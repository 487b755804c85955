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
	"strconv"
	"strings"
	"time"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/httpclient"
	"uniapply/internal/common/logger"
	"uniapply/internal/common/metrics"
)

// uctClient integrates with the UCT admissions API. Authentication is an
// OAuth2 client-credentials exchange; the bearer token is cached until
// expiry.
type uctClient struct {
	cfg        config.PartnerConfig
	httpClient *httpclient.Client
	tokens     *TokenCache
	logger     logger.Logger
}

func newUCTClient(cfg config.PartnerConfig, tokens *TokenCache, log logger.Logger) Client {
	return &uctClient{
		cfg:        cfg,
		httpClient: httpclient.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
		tokens:     tokens,
		logger:     log,
	}
}

// --- wire types ---

type uctTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	ErrorDescription string `json:"error_description"`
}

type uctStudent struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	IDNumber    string `json:"idNumber"`
	Email       string `json:"email"`
	Cellphone   string `json:"cellphone"`
	DateOfBirth string `json:"dateOfBirth"`
	Nationality string `json:"nationality"`
}

type uctSubject struct {
	SubjectCode string  `json:"subjectCode"`
	Level       string  `json:"level"`
	FinalMark   float64 `json:"finalMark"`
}

type uctAcademic struct {
	MatriculationYear int          `json:"matriculationYear"`
	SchoolName        string       `json:"schoolName"`
	Subjects          []uctSubject `json:"subjects"`
}

type uctApplicationDetails struct {
	CourseCode            string `json:"courseCode"`
	StudyMode             string `json:"studyMode"`
	AccommodationRequired bool   `json:"accommodationRequired"`
	FinancialAidRequired  bool   `json:"financialAidRequired"`
	MotivationStatement   string `json:"motivationStatement,omitempty"`
}

type uctDocument struct {
	DocumentType string `json:"documentType"`
	Filename     string `json:"filename"`
	DownloadURL  string `json:"downloadUrl"`
}

type uctApplication struct {
	Student     uctStudent            `json:"student"`
	Academic    uctAcademic           `json:"academic"`
	Application uctApplicationDetails `json:"application"`
	Documents   []uctDocument         `json:"documents"`
}

type uctRequirement struct {
	RequirementType string `json:"requirementType"`
	Description     string `json:"description"`
	Completed       bool   `json:"completed"`
	DueDate         string `json:"dueDate,omitempty"`
}

type uctStatusResponse struct {
	ApplicationNumber       string           `json:"applicationNumber"`
	Status                  string           `json:"status"`
	StatusMessage           string           `json:"statusMessage"`
	LastUpdated             string           `json:"lastUpdated"`
	NextSteps               []string         `json:"nextSteps"`
	OutstandingRequirements []uctRequirement `json:"outstandingRequirements"`
}

// --- vocabulary dictionaries ---

var uctSubjectCodes = map[string]string{
	"Mathematics":                         "MATH",
	"Physical Sciences":                   "PHYS",
	"Life Sciences":                       "LIFE",
	"English Home Language":               "ENGL_HL",
	"English First Additional Language":   "ENGL_FAL",
	"Afrikaans Home Language":             "AFRI_HL",
	"Afrikaans First Additional Language": "AFRI_FAL",
	"Accounting":                          "ACCO",
	"Business Studies":                    "BUSI",
	"Economics":                           "ECON",
	"Geography":                           "GEOG",
	"History":                             "HIST",
	"Information Technology":              "INFO",
	"Computer Applications Technology":    "CAT",
}

var uctDocumentTypes = map[string]string{
	"id_document":          "ID_COPY",
	"matric_certificate":   "MATRIC_CERT",
	"academic_transcripts": "ACADEMIC_RECORD",
	"motivation_letter":    "MOTIVATION_LETTER",
	"proof_of_address":     "PROOF_ADDRESS",
	"medical_certificate":  "MEDICAL_CERT",
}

// uctStatuses maps UCT's native status vocabulary onto the canonical set.
// The mapping is total over UCT's published values; MapUCTStatus reports
// anything outside it.
var uctStatuses = map[string]canonical.Status{
	"RECEIVED":      canonical.StatusReceived,
	"IN_REVIEW":     canonical.StatusUnderReview,
	"DOCS_REQUIRED": canonical.StatusDocumentsRequired,
	"ACCEPTED":      canonical.StatusAccepted,
	"REJECTED":      canonical.StatusRejected,
	"WAITLISTED":    canonical.StatusWaitlisted,
}

// MapUCTStatus translates a native UCT status value. ok is false for values
// outside UCT's known vocabulary; callers must flag those, never guess.
func MapUCTStatus(native string) (canonical.Status, bool) {
	status, ok := uctStatuses[native]
	return status, ok
}

func mapUCTSubjectCode(name string) string {
	if code, ok := uctSubjectCodes[name]; ok {
		return code
	}
	return subjectCodeFallback(name)
}

func mapUCTDocumentType(documentType string) string {
	if mapped, ok := uctDocumentTypes[documentType]; ok {
		return mapped
	}
	return strings.ToUpper(documentType)
}

// --- authentication ---

func (c *uctClient) accessToken(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx, c.cfg.Code, func(ctx context.Context) (string, time.Duration, error) {
		data := url.Values{}
		data.Set("grant_type", "client_credentials")
		data.Set("client_id", c.cfg.Credentials.ClientID)
		data.Set("client_secret", c.cfg.Credentials.ClientSecret)
		data.Set("scope", "admissions:write admissions:read documents:upload")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/auth/token", strings.NewReader(data.Encode()))
		if err != nil {
			return "", 0, fmt.Errorf("failed to create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", 0, errors.NewTransportError(c.cfg.Code, err)
		}
		defer resp.Body.Close()

		var tokenResp uctTokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
			return "", 0, fmt.Errorf("failed to decode token response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", 0, errors.NewAuthenticationError(c.cfg.Code,
				fmt.Errorf("token exchange failed: %s", tokenResp.ErrorDescription))
		}

		return tokenResp.AccessToken, time.Duration(tokenResp.ExpiresIn) * time.Second, nil
	})
}

// doJSON issues an authenticated JSON request and decodes the response into
// out. A 401 invalidates the cached token so the next call re-authenticates.
func (c *uctClient) doJSON(ctx context.Context, operation, method, path string, body, out interface{}) error {
	timer := time.Now()
	defer func() {
		metrics.AdapterRequestDuration.WithLabelValues(c.cfg.Code, operation).Observe(time.Since(timer).Seconds())
	}()

	token, err := c.accessToken(ctx)
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

func (c *uctClient) classifyFailure(statusCode int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &errResp)
	detail := errResp.Message
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

func (c *uctClient) SubmitApplication(ctx context.Context, app *canonical.Application) (string, error) {
	subjects := make([]uctSubject, 0, len(app.AcademicInfo.Subjects))
	for _, subject := range app.AcademicInfo.Subjects {
		subjects = append(subjects, uctSubject{
			SubjectCode: mapUCTSubjectCode(subject.Name),
			Level:       subject.Level,
			FinalMark:   subject.Mark,
		})
	}

	documents := make([]uctDocument, 0, len(app.Documents))
	for _, doc := range app.Documents {
		documents = append(documents, uctDocument{
			DocumentType: mapUCTDocumentType(doc.Type),
			Filename:     doc.Filename,
			DownloadURL:  doc.URL,
		})
	}

	matricYear, _ := strconv.Atoi(app.AcademicInfo.MatricYear)

	payload := uctApplication{
		Student: uctStudent{
			FirstName:   app.PersonalInfo.FirstName,
			LastName:    app.PersonalInfo.LastName,
			IDNumber:    app.PersonalInfo.IDNumber,
			Email:       app.PersonalInfo.Email,
			Cellphone:   app.PersonalInfo.Phone,
			DateOfBirth: app.PersonalInfo.DateOfBirth,
			Nationality: app.PersonalInfo.Nationality,
		},
		Academic: uctAcademic{
			MatriculationYear: matricYear,
			SchoolName:        app.AcademicInfo.SchoolName,
			Subjects:          subjects,
		},
		Application: uctApplicationDetails{
			CourseCode:            app.CourseCode,
			StudyMode:             stringField(app.ApplicationData, "studyMode", "FULL_TIME"),
			AccommodationRequired: boolField(app.ApplicationData, "accommodationRequired"),
			FinancialAidRequired:  boolField(app.ApplicationData, "financialAid"),
			MotivationStatement:   stringField(app.ApplicationData, "motivationLetter", ""),
		},
		Documents: documents,
	}

	var result struct {
		ApplicationNumber string `json:"applicationNumber"`
	}
	if err := c.doJSON(ctx, "submit", http.MethodPost, "/applications", payload, &result); err != nil {
		c.logger.WithError(err).Error("application submission failed", map[string]interface{}{
			"applicationId": app.ApplicationID,
			"errorCode":     string(errors.CodeOf(err)),
		})
		return "", err
	}

	return result.ApplicationNumber, nil
}

func (c *uctClient) GetApplicationStatus(ctx context.Context, partnerApplicationID string) (*canonical.StatusReport, error) {
	var result uctStatusResponse
	path := fmt.Sprintf("/applications/%s/status", url.PathEscape(partnerApplicationID))
	if err := c.doJSON(ctx, "status", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	status, known := MapUCTStatus(result.Status)
	message := result.StatusMessage
	if !known {
		status = canonical.StatusUnderReview
		message = fmt.Sprintf("%s (unrecognized partner status %q, flagged for review)", message, result.Status)
		c.logger.Warn("unmapped partner status", map[string]interface{}{
			"applicationId": partnerApplicationID,
			"nativeStatus":  result.Status,
		})
	}

	requirements := make([]canonical.Requirement, 0, len(result.OutstandingRequirements))
	for _, req := range result.OutstandingRequirements {
		requirements = append(requirements, canonical.Requirement{
			Type:        req.RequirementType,
			Description: req.Description,
			Completed:   req.Completed,
			DueDate:     req.DueDate,
		})
	}

	return &canonical.StatusReport{
		ApplicationID: result.ApplicationNumber,
		Status:        status,
		Message:       message,
		LastUpdated:   result.LastUpdated,
		NextSteps:     result.NextSteps,
		Requirements:  requirements,
	}, nil
}

func (c *uctClient) UploadDocument(ctx context.Context, partnerApplicationID string, file []byte, documentType string) (string, error) {
	timer := time.Now()
	defer func() {
		metrics.AdapterRequestDuration.WithLabelValues(c.cfg.Code, "upload").Observe(time.Since(timer).Seconds())
	}()

	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "document")
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	_ = writer.WriteField("documentType", mapUCTDocumentType(documentType))
	_ = writer.WriteField("applicationId", partnerApplicationID)
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/applications/%s/documents", c.cfg.BaseURL, url.PathEscape(partnerApplicationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &buf)
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

	var result struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.DocumentID, nil
}

func (c *uctClient) GetRequirements(ctx context.Context, courseCode string) ([]map[string]interface{}, error) {
	var result struct {
		Requirements []map[string]interface{} `json:"requirements"`
	}
	path := fmt.Sprintf("/courses/%s/requirements", url.PathEscape(courseCode))
	if err := c.doJSON(ctx, "requirements", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Requirements, nil
}

func (c *uctClient) ValidateApplication(ctx context.Context, app *canonical.Application) (*canonical.ValidationOutcome, error) {
	var result struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	if err := c.doJSON(ctx, "validate", http.MethodPost, "/applications/validate", app, &result); err != nil {
		return nil, err
	}
	return &canonical.ValidationOutcome{Valid: result.Valid, Errors: result.Errors}, nil
}

// --- applicationData accessors ---

func stringField(data map[string]interface{}, key, fallback string) string {
	if data == nil {
		return fallback
	}
	if val, ok := data[key].(string); ok && val != "" {
		return val
	}
	return fallback
}

func boolField(data map[string]interface{}, key string) bool {
	if data == nil {
		return false
	}
	val, _ := data[key].(bool)
	return val
}
