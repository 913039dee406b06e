package common

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context.
type TestContext interface {
	Do(method, path, body string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the consents service is running$`, steps.serviceIsRunning)
	ctx.Step(`^the rate limit window has passed$`, steps.windowHasPassed)
	ctx.Step(`^I send a (GET|POST|PUT|PATCH|DELETE) request to "([^"]*)"$`, steps.sendWithoutBody)
	ctx.Step(`^I send a (POST|PUT) request to "([^"]*)" with body:$`, steps.sendWithBody)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, steps.responseHeaderShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response errors should include "([^"]*)"$`, steps.responseErrorsShouldInclude)
	ctx.Step(`^the response body should be empty$`, steps.responseBodyShouldBeEmpty)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.Do("GET", "/health/live", ""); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

// windowHasPassed waits out the fixed one-second admission window so that
// scenarios do not share request budgets.
func (s *commonSteps) windowHasPassed(context.Context) error {
	time.Sleep(1100 * time.Millisecond)
	return nil
}

func (s *commonSteps) sendWithoutBody(_ context.Context, method, path string) error {
	return s.tc.Do(method, path, "")
}

func (s *commonSteps) sendWithBody(_ context.Context, method, path string, body *godog.DocString) error {
	return s.tc.Do(method, path, body.Content)
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, expected int) error {
	if actual := s.tc.GetLastResponseStatus(); actual != expected {
		return fmt.Errorf("expected status %d but got %d: %s", expected, actual, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) responseHeaderShouldBe(_ context.Context, name, expected string) error {
	if actual := s.tc.GetLastResponseHeader(name); actual != expected {
		return fmt.Errorf("header %s: expected %q but got %q", name, expected, actual)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	actual, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actual) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) responseErrorsShouldInclude(_ context.Context, expected string) error {
	var body struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	for _, e := range body.Errors {
		if e == expected {
			return nil
		}
	}
	return fmt.Errorf("errors %v do not include %q", body.Errors, expected)
}

func (s *commonSteps) responseBodyShouldBeEmpty(context.Context) error {
	if body := s.tc.GetLastResponseBody(); len(body) != 0 {
		return fmt.Errorf("expected empty body, got %s", body)
	}
	return nil
}
