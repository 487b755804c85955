package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
)

func uctPartnerConfig(baseURL string) config.PartnerConfig {
	return config.PartnerConfig{
		Code:    "uct",
		Enabled: true,
		BaseURL: baseURL,
		Credentials: config.Credentials{
			ClientID:     "client",
			ClientSecret: "secret",
			APIKey:       "api-key",
		},
		Timeout: 5000,
	}
}

func sampleApplication() *canonical.Application {
	return &canonical.Application{
		ApplicationID: "app_123",
		StudentID:     "student_1",
		CourseCode:    "BSC-CS",
		PersonalInfo: canonical.PersonalInfo{
			FirstName:   "Thandi",
			LastName:    "Nkosi",
			IDNumber:    "0101015000087",
			Email:       "thandi@example.com",
			Phone:       "+27821234567",
			DateOfBirth: "2001-01-01",
			Nationality: "South African",
		},
		AcademicInfo: canonical.AcademicInfo{
			MatricYear: "2023",
			SchoolName: "Pinelands High",
			Subjects: []canonical.Subject{
				{Name: "Mathematics", Level: "HG", Mark: 82},
				{Name: "Physical Sciences", Level: "HG", Mark: 75},
			},
		},
		Documents: []canonical.Document{
			{Type: "id_document", Filename: "id.pdf", URL: "https://files.example/id.pdf"},
		},
		ApplicationData: map[string]interface{}{
			"studyMode":    "full_time",
			"financialAid": true,
		},
	}
}

func TestUCTSubmitApplicationMapsFieldsAndVocabulary(t *testing.T) {
	var submitted uctApplication
	tokenCalls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			tokenCalls++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
			assert.Equal(t, "admissions:write admissions:read documents:upload", r.FormValue("scope"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "tok-1",
				"expires_in":   3600,
			})
		case "/applications":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "api-key", r.Header.Get("X-API-Key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			json.NewEncoder(w).Encode(map[string]string{"applicationNumber": "UCT2026001234"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newUCTClient(uctPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	number, err := client.SubmitApplication(context.Background(), sampleApplication())
	require.NoError(t, err)
	assert.Equal(t, "UCT2026001234", number)
	assert.Equal(t, 1, tokenCalls)

	assert.Equal(t, "Thandi", submitted.Student.FirstName)
	assert.Equal(t, "Nkosi", submitted.Student.LastName)
	assert.Equal(t, 2023, submitted.Academic.MatriculationYear)
	require.Len(t, submitted.Academic.Subjects, 2)
	assert.Equal(t, "MATH", submitted.Academic.Subjects[0].SubjectCode)
	assert.Equal(t, "PHYS", submitted.Academic.Subjects[1].SubjectCode)
	require.Len(t, submitted.Documents, 1)
	assert.Equal(t, "ID_COPY", submitted.Documents[0].DocumentType)
	// studyMode passes through as supplied; FULL_TIME is only the default
	// when the extras block omits it.
	assert.Equal(t, "full_time", submitted.Application.StudyMode)
	assert.True(t, submitted.Application.FinancialAidRequired)
}

func TestUCTSubmitApplicationDefaultsStudyMode(t *testing.T) {
	var submitted uctApplication

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		case "/applications":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			json.NewEncoder(w).Encode(map[string]string{"applicationNumber": "UCT2026001235"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newUCTClient(uctPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	app := sampleApplication()
	app.ApplicationData = nil

	_, err := client.SubmitApplication(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, "FULL_TIME", submitted.Application.StudyMode)
}

func TestUCTGetApplicationStatusNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		case "/applications/UCT123/status":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"applicationNumber": "UCT123",
				"status":            "DOCS_REQUIRED",
				"statusMessage":     "Outstanding documents",
				"lastUpdated":       "2026-02-01T10:00:00Z",
				"nextSteps":         []string{"Upload matric certificate"},
				"outstandingRequirements": []map[string]interface{}{
					{"requirementType": "MATRIC_CERT", "description": "Certified copy", "completed": false},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newUCTClient(uctPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	report, err := client.GetApplicationStatus(context.Background(), "UCT123")
	require.NoError(t, err)
	assert.Equal(t, canonical.StatusDocumentsRequired, report.Status)
	assert.Equal(t, "Outstanding documents", report.Message)
	require.Len(t, report.Requirements, 1)
	assert.Equal(t, "MATRIC_CERT", report.Requirements[0].Type)
}

func TestUCTGetApplicationStatusFlagsUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"applicationNumber": "UCT123",
				"status":            "ESCALATED",
				"statusMessage":     "Escalated to faculty board",
			})
		}
	}))
	defer server.Close()

	client := newUCTClient(uctPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	report, err := client.GetApplicationStatus(context.Background(), "UCT123")
	require.NoError(t, err)
	assert.Equal(t, canonical.StatusUnderReview, report.Status)
	assert.Contains(t, report.Message, "ESCALATED")
}

func TestUCTUnauthorizedInvalidatesToken(t *testing.T) {
	tokenCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			tokenCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "token revoked"})
		}
	}))
	defer server.Close()

	cache := NewTokenCache()
	client := newUCTClient(uctPartnerConfig(server.URL), cache, logger.NewNoOpLogger())

	_, err := client.GetApplicationStatus(context.Background(), "UCT123")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuthentication))

	// The 401 dropped the cached token, so the next call re-authenticates.
	_, _ = client.GetApplicationStatus(context.Background(), "UCT123")
	assert.Equal(t, 2, tokenCalls)
}

func TestUCTValidationFailureClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"message": "idNumber checksum invalid"})
		}
	}))
	defer server.Close()

	client := newUCTClient(uctPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	_, err := client.SubmitApplication(context.Background(), sampleApplication())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestUCTUploadDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
		case "/applications/UCT123/documents":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "MATRIC_CERT", r.FormValue("documentType"))
			assert.Equal(t, "UCT123", r.FormValue("applicationId"))
			_, _, err := r.FormFile("file")
			require.NoError(t, err)
			json.NewEncoder(w).Encode(map[string]string{"documentId": "doc-77"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newUCTClient(uctPartnerConfig(server.URL), NewTokenCache(), logger.NewNoOpLogger())

	documentID, err := client.UploadDocument(context.Background(), "UCT123", []byte("pdf-bytes"), "matric_certificate")
	require.NoError(t, err)
	assert.Equal(t, "doc-77", documentID)
}

func TestUCTSubjectCodeMappingIsTotal(t *testing.T) {
	known := map[string]string{
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
	for name, want := range known {
		assert.Equal(t, want, mapUCTSubjectCode(name), name)
	}

	// Unknown subjects normalize instead of failing the submission.
	assert.Equal(t, "MARINE_BIOLOGY", mapUCTSubjectCode("Marine Biology"))
}

func TestUCTDocumentTypeFallback(t *testing.T) {
	assert.Equal(t, "MOTIVATION_LETTER", mapUCTDocumentType("motivation_letter"))
	assert.Equal(t, "PORTFOLIO", mapUCTDocumentType("portfolio"))
}
