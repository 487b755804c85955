package fallback

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"uniapply/internal/canonical"
	"uniapply/internal/common/config"
	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
)

// rawEmailSender is the slice of the SES client the email strategy needs.
type rawEmailSender interface {
	SendRawEmail(ctx context.Context, input *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error)
}

// EmailStrategy mails the rendered application document to the partner's
// admissions office. Success means the mail was handed to the dispatcher;
// the partner has confirmed nothing, which is why the result carries a
// TEMP_ tracking number and FallbackRequired.
type EmailStrategy struct {
	sender    rawEmailSender
	fromEmail string
	logger    logger.Logger
}

func NewEmailStrategy(sender rawEmailSender, fromEmail string, log logger.Logger) *EmailStrategy {
	return &EmailStrategy{sender: sender, fromEmail: fromEmail, logger: log}
}

func (s *EmailStrategy) Method() config.FallbackMethod {
	return config.FallbackEmail
}

func (s *EmailStrategy) Submit(ctx context.Context, partner config.PartnerConfig, app *canonical.Application) (*canonical.SubmissionResult, error) {
	if partner.Fallback.AdmissionsEmail == "" {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("partner '%s' uses email fallback but has no admissions email", partner.Code), "")
	}

	rawMessage, err := buildApplicationEmail(s.fromEmail, partner.Fallback.AdmissionsEmail, app)
	if err != nil {
		return nil, errors.NewFallbackDispatchError(string(config.FallbackEmail), err)
	}

	_, err = s.sender.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.fromEmail),
		Destinations: []string{partner.Fallback.AdmissionsEmail},
		RawMessage:   &types.RawMessage{Data: rawMessage},
	})
	if err != nil {
		s.logger.WithError(err).Error("admissions email dispatch failed", map[string]interface{}{
			"partner":       partner.Code,
			"applicationId": app.ApplicationID,
		})
		return nil, errors.NewFallbackDispatchError(string(config.FallbackEmail), err)
	}

	return &canonical.SubmissionResult{
		Success:           true,
		ApplicationNumber: placeholderNumber("TEMP"),
		FallbackRequired:  true,
		IntegrationPath:   canonical.PathFallback,
	}, nil
}

// buildApplicationEmail assembles a multipart MIME message with the rendered
// application document attached as plain text.
func buildApplicationEmail(from, to string, app *canonical.Application) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: New Application Submission - %s %s (%s)\r\n",
		app.PersonalInfo.FirstName, app.PersonalInfo.LastName, app.CourseCode)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", "text/plain; charset=utf-8")
	body, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	fmt.Fprintf(body,
		"Please find attached a new application for %s submitted via the applications platform.\r\n\r\n"+
			"Applicant: %s %s\r\nEmail: %s\r\nReference: %s\r\n",
		app.CourseCode, app.PersonalInfo.FirstName, app.PersonalInfo.LastName,
		app.PersonalInfo.Email, app.ApplicationID)

	attachmentHeader := textproto.MIMEHeader{}
	attachmentHeader.Set("Content-Type", "text/plain; charset=utf-8")
	attachmentHeader.Set("Content-Transfer-Encoding", "base64")
	attachmentHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		fmt.Sprintf("application_%s.txt", app.ApplicationID)))
	attachment, err := writer.CreatePart(attachmentHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment part: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(renderApplicationDocument(app)))
	if _, err := attachment.Write([]byte(encoded)); err != nil {
		return nil, fmt.Errorf("failed to write attachment: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize message: %w", err)
	}
	return buf.Bytes(), nil
}

// renderApplicationDocument flattens the application into a human-readable
// document for the admissions office.
func renderApplicationDocument(app *canonical.Application) string {
	var b strings.Builder

	b.WriteString("UNIVERSITY APPLICATION\r\n")
	b.WriteString("======================\r\n\r\n")
	fmt.Fprintf(&b, "Reference: %s\r\n", app.ApplicationID)
	fmt.Fprintf(&b, "Course: %s\r\n\r\n", app.CourseCode)

	b.WriteString("PERSONAL DETAILS\r\n")
	fmt.Fprintf(&b, "Name: %s %s\r\n", app.PersonalInfo.FirstName, app.PersonalInfo.LastName)
	fmt.Fprintf(&b, "ID Number: %s\r\n", app.PersonalInfo.IDNumber)
	fmt.Fprintf(&b, "Email: %s\r\n", app.PersonalInfo.Email)
	fmt.Fprintf(&b, "Phone: %s\r\n", app.PersonalInfo.Phone)
	fmt.Fprintf(&b, "Date of Birth: %s\r\n", app.PersonalInfo.DateOfBirth)
	fmt.Fprintf(&b, "Nationality: %s\r\n\r\n", app.PersonalInfo.Nationality)

	b.WriteString("ACADEMIC HISTORY\r\n")
	fmt.Fprintf(&b, "Matriculation Year: %s\r\n", app.AcademicInfo.MatricYear)
	fmt.Fprintf(&b, "School: %s\r\n", app.AcademicInfo.SchoolName)
	for _, subject := range app.AcademicInfo.Subjects {
		fmt.Fprintf(&b, "  %s (%s): %.0f%%\r\n", subject.Name, subject.Level, subject.Mark)
	}
	b.WriteString("\r\n")

	if len(app.Documents) > 0 {
		b.WriteString("SUPPORTING DOCUMENTS\r\n")
		for _, doc := range app.Documents {
			fmt.Fprintf(&b, "  %s: %s (%s)\r\n", doc.Type, doc.Filename, doc.URL)
		}
	}

	return b.String()
}
