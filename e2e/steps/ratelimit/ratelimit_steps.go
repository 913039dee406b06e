package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

const tooManyRequestsBody = `{"message":"Too many requests"}`

// TestContext interface defines the methods needed from the main test context.
type TestContext interface {
	Do(method, path, body string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
	GetLastResponseBody() []byte
}

// RegisterSteps registers admission control step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &rateLimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) GET requests to "([^"]*)" in quick succession$`, steps.burst)
	ctx.Step(`^at least (\d+) responses? should have been rejected with 429$`, steps.atLeastRejected)
	ctx.Step(`^every rejection should carry the fixed JSON body$`, steps.rejectionsCarryBody)
	ctx.Step(`^no responses should have been rejected$`, steps.noneRejected)
}

type rateLimitSteps struct {
	tc         TestContext
	rejections []rejection
}

type rejection struct {
	contentType string
	body        string
}

func (s *rateLimitSteps) burst(_ context.Context, n int, path string) error {
	s.rejections = s.rejections[:0]
	for range n {
		if err := s.tc.Do("GET", path, ""); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 429 {
			s.rejections = append(s.rejections, rejection{
				contentType: s.tc.GetLastResponseHeader("Content-Type"),
				body:        strings.TrimSpace(string(s.tc.GetLastResponseBody())),
			})
		}
	}
	return nil
}

func (s *rateLimitSteps) atLeastRejected(_ context.Context, n int) error {
	if len(s.rejections) < n {
		return fmt.Errorf("expected at least %d rejections, got %d", n, len(s.rejections))
	}
	return nil
}

func (s *rateLimitSteps) rejectionsCarryBody(context.Context) error {
	for _, r := range s.rejections {
		if r.contentType != "application/json" {
			return fmt.Errorf("rejection content type %q", r.contentType)
		}
		if r.body != tooManyRequestsBody {
			return fmt.Errorf("rejection body %s", r.body)
		}
	}
	return nil
}

func (s *rateLimitSteps) noneRejected(context.Context) error {
	if len(s.rejections) != 0 {
		return fmt.Errorf("expected no rejections, got %d", len(s.rejections))
	}
	return nil
}
