// Package sentiment labels attendee comments with a hosted text
// classification model.
package sentiment

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
)

// DefaultComments is the sample feedback served when none is configured.
var DefaultComments = []string{
	"The keynote speaker was absolutely amazing!",
	"Loved the networking opportunities. Met so many great people.",
	"Registration was a nightmare. Waited in line for an hour.",
	"The wifi connection was terrible, couldn't get any work done.",
	"Food was cold and very disappointing.",
	"Great sessions, especially the one on AI.",
	"The venue was easy to find.",
	"Helpful staff, they really knew what they were doing.",
	"I wish the sessions were longer.",
	"The after-party was a lot of fun!",
}

type Config struct {
	Model    string
	Comments []string
}

type Analyzer struct {
	classifier llm.Classifier
	model      string
	comments   []string
}

func New(classifier llm.Classifier, cfg Config) *Analyzer {
	model := cfg.Model
	if model == "" {
		model = config.DefaultSentimentModel
	}
	comments := cfg.Comments
	if len(comments) == 0 {
		comments = DefaultComments
	}
	return &Analyzer{classifier: classifier, model: model, comments: slices.Clone(comments)}
}

// Comments returns a copy of the stored comments.
func (a *Analyzer) Comments() []string {
	return slices.Clone(a.comments)
}

type Result struct {
	Comment  string   `json:"comment"`
	Analysis Analysis `json:"analysis"`
}

// Analysis holds either the labels for one comment or the reason
// classification failed.
type Analysis struct {
	Labels []llm.Label
	Err    string
}

// MarshalJSON writes the label list, or {"error": ...} for a failed comment.
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.Err != "" {
		return json.Marshal(errorAnalysis{Error: a.Err})
	}
	labels := a.Labels
	if labels == nil {
		labels = []llm.Label{}
	}
	return json.Marshal(labels)
}

type errorAnalysis struct {
	Error string `json:"error"`
}

// Analyze classifies comments one by one, in order. A failed comment carries
// its error and does not stop the rest.
func (a *Analyzer) Analyze(ctx context.Context, comments []string) []Result {
	logger := core.LoggerFromContext(ctx)
	results := make([]Result, 0, len(comments))
	for i, comment := range comments {
		labels, err := a.classifier.Classify(ctx, a.model, comment)
		if err != nil {
			logger.Warn("comment classification failed", "index", i, "error", err)
			results = append(results, Result{Comment: comment, Analysis: Analysis{Err: "Hugging Face API Error: " + err.Error()}})
			continue
		}
		results = append(results, Result{Comment: comment, Analysis: Analysis{Labels: labels}})
	}
	return results
}
