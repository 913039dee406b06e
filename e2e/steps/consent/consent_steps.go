package consent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context.
type TestContext interface {
	Do(method, path, body string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetConsentID() string
	SetConsentID(id string)
}

// RegisterSteps registers consent lifecycle step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &consentSteps{tc: tc}

	ctx.Step(`^a consent exists for user "([^"]*)" with permissions "([^"]*)"$`, steps.consentExists)
	ctx.Step(`^I retrieve the consent$`, steps.retrieve)
	ctx.Step(`^I update the consent to status "([^"]*)" with permissions "([^"]*)"$`, steps.update)
	ctx.Step(`^I revoke the consent$`, steps.revoke)
	ctx.Step(`^the response consent id should match$`, steps.consentIDShouldMatch)
}

type consentSteps struct {
	tc TestContext
}

func permissionsJSON(csv string) string {
	parts := strings.Split(csv, ",")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = fmt.Sprintf("%q", strings.TrimSpace(p))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func (s *consentSteps) consentExists(_ context.Context, userID, perms string) error {
	body := fmt.Sprintf(`{"userId":%q,"permissions":%s,"status":"AWAITING_AUTHORISATION"}`, userID, permissionsJSON(perms))
	if err := s.tc.Do("POST", "/consents", body); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("create consent: expected 201 but got %d", status)
	}
	id, err := s.tc.GetResponseField("consentId")
	if err != nil {
		return err
	}
	s.tc.SetConsentID(fmt.Sprint(id))
	return nil
}

func (s *consentSteps) retrieve(context.Context) error {
	return s.tc.Do("GET", "/consents/"+s.tc.GetConsentID(), "")
}

func (s *consentSteps) update(_ context.Context, status, perms string) error {
	body := fmt.Sprintf(`{"permissions":%s,"status":%q}`, permissionsJSON(perms), status)
	return s.tc.Do("PUT", "/consents/"+s.tc.GetConsentID(), body)
}

func (s *consentSteps) revoke(context.Context) error {
	return s.tc.Do("DELETE", "/consents/"+s.tc.GetConsentID(), "")
}

func (s *consentSteps) consentIDShouldMatch(context.Context) error {
	id, err := s.tc.GetResponseField("consentId")
	if err != nil {
		return err
	}
	if fmt.Sprint(id) != s.tc.GetConsentID() {
		return fmt.Errorf("expected consentId %s but got %v", s.tc.GetConsentID(), id)
	}
	return nil
}
