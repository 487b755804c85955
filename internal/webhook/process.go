package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"uniapply/internal/adapters"
	"uniapply/internal/canonical"
	"uniapply/internal/common/errors"
)

// processor normalizes one partner's native webhook payload into a canonical
// update.
type processor func(body []byte) (*canonical.Update, error)

var processors = map[string]processor{
	"uct":          processUCT,
	"wits":         processWits,
	"stellenbosch": processStellenbosch,
}

// stellenboschStatuses maps the Afrikaans status vocabulary Stellenbosch
// sends onto the canonical set.
var stellenboschStatuses = map[string]canonical.Status{
	"ONTVANG":           canonical.StatusReceived,
	"ONDER_HERSIENING":  canonical.StatusUnderReview,
	"DOKUMENTE_BENODIG": canonical.StatusDocumentsRequired,
	"AANVAAR":           canonical.StatusAccepted,
	"VERWERP":           canonical.StatusRejected,
	"WAGLYS":            canonical.StatusWaitlisted,
}

// Process parses and normalizes a verified webhook body. The identifier and
// status fields are mandatory; a payload missing either has an unrecognized
// shape and is rejected rather than coerced. A status value outside the
// partner's known vocabulary yields an under-review update flagged for human
// review, never a silently guessed status.
func Process(partnerCode string, body []byte) (*canonical.Update, error) {
	process, ok := processors[strings.ToLower(partnerCode)]
	if !ok {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("no webhook processor registered for partner '%s'", partnerCode), "")
	}
	return process(body)
}

func processUCT(body []byte) (*canonical.Update, error) {
	var payload struct {
		ApplicationNumber       string        `json:"applicationNumber"`
		Status                  string        `json:"status"`
		StatusMessage           string        `json:"statusMessage"`
		Timestamp               string        `json:"timestamp"`
		NextSteps               []string      `json:"nextSteps"`
		OutstandingRequirements []interface{} `json:"outstandingRequirements"`
		ReviewerComments        string        `json:"reviewerComments"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewUnknownPayloadError("uct", err.Error())
	}
	if payload.ApplicationNumber == "" || payload.Status == "" {
		return nil, errors.NewUnknownPayloadError("uct", "missing applicationNumber or status")
	}

	update := &canonical.Update{
		ApplicationID: payload.ApplicationNumber,
		PartnerCode:   "uct",
		Message:       payload.StatusMessage,
		Timestamp:     payload.Timestamp,
		Extra: map[string]interface{}{
			"nextSteps":    payload.NextSteps,
			"requirements": payload.OutstandingRequirements,
			"reviewNotes":  payload.ReviewerComments,
		},
	}
	applyStatus(update, payload.Status, adapters.MapUCTStatus)
	return update, nil
}

func processWits(body []byte) (*canonical.Update, error) {
	var payload struct {
		ApplicationReference string        `json:"applicationReference"`
		CurrentStatus        string        `json:"currentStatus"`
		StatusDescription    string        `json:"statusDescription"`
		LastStatusUpdate     string        `json:"lastStatusUpdate"`
		ActionItems          []string      `json:"actionItems"`
		PendingRequirements  []interface{} `json:"pendingRequirements"`
		AssignedOfficer      string        `json:"assignedOfficer"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewUnknownPayloadError("wits", err.Error())
	}
	if payload.ApplicationReference == "" || payload.CurrentStatus == "" {
		return nil, errors.NewUnknownPayloadError("wits", "missing applicationReference or currentStatus")
	}

	update := &canonical.Update{
		ApplicationID: payload.ApplicationReference,
		PartnerCode:   "wits",
		Message:       payload.StatusDescription,
		Timestamp:     payload.LastStatusUpdate,
		Extra: map[string]interface{}{
			"actionItems":         payload.ActionItems,
			"pendingRequirements": payload.PendingRequirements,
			"admissionOfficer":    payload.AssignedOfficer,
		},
	}
	applyStatus(update, payload.CurrentStatus, adapters.MapWitsStatus)
	return update, nil
}

func processStellenbosch(body []byte) (*canonical.Update, error) {
	var payload struct {
		AansoekNommer       string   `json:"aansoekNommer"`
		Status              string   `json:"status"`
		Beskrywing          string   `json:"beskrywing"`
		DatumGewysig        string   `json:"datumGewysig"`
		Fakulteit           string   `json:"fakulteit"`
		KursusKode          string   `json:"kursusKode"`
		UitstaandeVereistes []string `json:"uitstaandeVereistes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewUnknownPayloadError("stellenbosch", err.Error())
	}
	if payload.AansoekNommer == "" || payload.Status == "" {
		return nil, errors.NewUnknownPayloadError("stellenbosch", "missing aansoekNommer or status")
	}

	update := &canonical.Update{
		ApplicationID: payload.AansoekNommer,
		PartnerCode:   "stellenbosch",
		Message:       payload.Beskrywing,
		Timestamp:     payload.DatumGewysig,
		Extra: map[string]interface{}{
			"fakulteit":  payload.Fakulteit,
			"kursusKode": payload.KursusKode,
			"vereistes":  payload.UitstaandeVereistes,
		},
	}
	applyStatus(update, payload.Status, func(native string) (canonical.Status, bool) {
		status, ok := stellenboschStatuses[native]
		return status, ok
	})
	return update, nil
}

func applyStatus(update *canonical.Update, native string, mapStatus func(string) (canonical.Status, bool)) {
	status, ok := mapStatus(native)
	if !ok {
		update.Status = canonical.StatusUnderReview
		update.NeedsReview = true
		update.RawStatus = native
		return
	}
	update.Status = status
}
