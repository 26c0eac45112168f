package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/linkedin-analyzer/internal/domain/ai"
	"github.com/bryanwahyu/linkedin-analyzer/internal/infra/ai/prompt"
)

// Service wraps the analyzer client with prompt composition and the
// user-facing rendering of failures.
type Service struct {
	client ai.Client
	log    *logrus.Entry
}

func NewService(client ai.Client, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{client: client, log: log}
}

// Model reports the model id requests are sent to.
func (s *Service) Model() string { return s.client.Model() }

// Analyze sends resumeText with the fixed instruction prompt and returns the
// model's commentary. Failures are *ai.Error.
func (s *Service) Analyze(ctx context.Context, resumeText string) (string, error) {
	reply, err := s.client.Analyze(ctx, prompt.GetUserPrompt(resumeText))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"kind":      ai.KindOf(err).String(),
			"text_len":  len(resumeText),
			"retryable": retryable(err),
		}).Warn("analysis failed")
		return "", err
	}
	s.log.WithFields(logrus.Fields{
		"text_len":  len(resumeText),
		"reply_len": len(reply),
	}).Debug("analysis done")
	return reply, nil
}

// AnalyzeText never fails: errors are rendered into the returned string.
func (s *Service) AnalyzeText(ctx context.Context, resumeText string) string {
	reply, err := s.Analyze(ctx, resumeText)
	if err != nil {
		return Describe(err)
	}
	return reply
}

// Describe renders an analysis error as the message shown in place of a result.
func Describe(err error) string {
	var aerr *ai.Error
	if !errors.As(err, &aerr) {
		return fmt.Sprintf("Error connecting to Groq API: %v", err)
	}
	switch aerr.Kind {
	case ai.KindConfigMissing:
		return "Error: Missing GROQ API key."
	case ai.KindRemote:
		return fmt.Sprintf("Error: %d - %s", aerr.Status, aerr.Body)
	case ai.KindMalformed:
		return fmt.Sprintf("Error: Malformed response from Groq API: %v", cause(aerr))
	default:
		return fmt.Sprintf("Error connecting to Groq API: %v", cause(aerr))
	}
}

func cause(e *ai.Error) error {
	if e.Err != nil {
		return e.Err
	}
	return e
}

func retryable(err error) bool {
	var aerr *ai.Error
	return errors.As(err, &aerr) && aerr.Retryable()
}
