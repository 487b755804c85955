package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validApp() *Application {
	return &Application{
		ApplicationID: "app_1",
		StudentID:     "student_1",
		CourseCode:    "BSC-CS",
		PersonalInfo: PersonalInfo{
			FirstName: "Thandi",
			LastName:  "Nkosi",
			IDNumber:  "0101015000087",
			Email:     "thandi@example.com",
			Phone:     "+27821234567",
		},
		AcademicInfo: AcademicInfo{
			MatricYear: "2023",
			Subjects:   []Subject{{Name: "Mathematics", Level: "HG", Mark: 82}},
		},
		Documents: []Document{},
	}
}

func TestValidateAcceptsCompleteApplication(t *testing.T) {
	assert.NoError(t, Validate(validApp()))
}

func TestValidateAcceptsApplicationWithoutExtras(t *testing.T) {
	app := validApp()
	require.Nil(t, app.ApplicationData)
	assert.NoError(t, Validate(app))

	app.ApplicationData = map[string]interface{}{"studyMode": "part_time"}
	assert.NoError(t, Validate(app))
}

func TestValidateRejectsBadEmail(t *testing.T) {
	app := validApp()
	app.PersonalInfo.Email = "not-an-email"

	err := Validate(app)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestValidateRejectsMissingCourseCode(t *testing.T) {
	app := validApp()
	app.CourseCode = ""

	assert.Error(t, Validate(app))
}

func TestValidateRejectsMarkOutOfRange(t *testing.T) {
	app := validApp()
	app.AcademicInfo.Subjects[0].Mark = 140

	assert.Error(t, Validate(app))
}

func TestValidateCollectsAllViolations(t *testing.T) {
	app := validApp()
	app.CourseCode = ""
	app.PersonalInfo.Email = "nope"

	err := Validate(app)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "; ")
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusReceived, StatusUnderReview, StatusDocumentsRequired,
		StatusAccepted, StatusRejected, StatusWaitlisted} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("pending").Valid())
}

func TestStatusTerminality(t *testing.T) {
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusWaitlisted.IsTerminal(), "waitlisted applications can still move")
	assert.False(t, StatusUnderReview.IsTerminal())
}
