package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/tofu-daddy/longevity-hub/internal/normalize"
)

// fallbackTakeaways is the fixed takeaway list used when no generation
// service is configured.
var fallbackTakeaways = []string{
	"Use this as educational context, not individualized medical advice.",
	"Check source quality and publication type before acting.",
	"Compare claims against multiple high-quality sources.",
}

// Fallback is the offline enricher: everything it produces is a pure
// function of the candidate, so repeated runs emit identical records.
type Fallback struct{}

func (Fallback) Enrich(_ context.Context, title, abstract string) (Result, error) {
	return Result{
		LaymansExplanation: fmt.Sprintf(
			"This piece discusses %s. The key point is to interpret findings carefully, compare with broader evidence, and avoid overgeneralizing from a single source.",
			strings.ToLower(title),
		),
		KeyTakeaways:     append([]string(nil), fallbackTakeaways...),
		TechnicalSummary: normalize.Truncate(abstract, technicalSummaryMax),
	}, nil
}
