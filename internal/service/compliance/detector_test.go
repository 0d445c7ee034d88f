package compliance

import (
	"context"
	"errors"
	"testing"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/service/classify"
	"call-compliance-analyzer/internal/service/classify/mock"
)

func utt(speaker, text string) models.Utterance {
	return models.Utterance{Speaker: speaker, Text: text}
}

func TestDetect_VerifiedBeforeDisclosure(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		{Speaker: "agent", Text: "Let me verify your date of birth", Start: 0, End: 5},
		{Speaker: "customer", Text: "It's 04/12/1990", Start: 5, End: 8},
		{Speaker: "agent", Text: "Your balance is $500", Start: 8, End: 12},
	}

	res := d.Detect(tr)

	if res.Violation {
		t.Fatal("expected no violation")
	}
	if !res.VerifiedBeforeSensitive {
		t.Error("expected verified_before_sensitive to be true")
	}
	if res.FirstSensitiveIndex != nil || res.Evidence != nil {
		t.Errorf("expected nil index and evidence, got %v %v", res.FirstSensitiveIndex, res.Evidence)
	}
}

func TestDetect_DisclosureWithoutVerification(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{{Speaker: "agent", Text: "Your account balance is $500", Start: 0, End: 5}}

	res := d.Detect(tr)

	if !res.Violation {
		t.Fatal("expected violation")
	}
	if res.FirstSensitiveIndex == nil || *res.FirstSensitiveIndex != 0 {
		t.Errorf("expected first_sensitive_index 0, got %v", res.FirstSensitiveIndex)
	}
	if res.Evidence == nil || *res.Evidence != "Your account balance is $500" {
		t.Errorf("unexpected evidence: %v", res.Evidence)
	}
	if res.VerifiedBeforeSensitive {
		t.Error("expected verified_before_sensitive to be false")
	}
	if res.MatchedPattern != "balance" {
		t.Errorf("expected matched pattern 'balance', got %q", res.MatchedPattern)
	}
}

func TestDetect_EarlyExitIgnoresLaterUtterances(t *testing.T) {
	d := NewDetector(nil)
	prefix := models.Transcript{
		utt("agent", "Hello, thanks for calling"),
		utt("customer", "Hi, I have a question"),
		utt("agent", "You owe a little this month"),
	}

	tails := []models.Transcript{
		nil,
		{utt("agent", "can you confirm your address"), utt("customer", "12 Oak Road")},
		{utt("agent", "the card number is 4444"), utt("agent", "$900")},
		{utt("customer", "what the hell")},
	}

	for i, tail := range tails {
		tr := append(append(models.Transcript{}, prefix...), tail...)
		res := d.Detect(tr)
		if !res.Violation {
			t.Fatalf("tail %d: expected violation", i)
		}
		if *res.FirstSensitiveIndex != 2 {
			t.Errorf("tail %d: expected index 2, got %d", i, *res.FirstSensitiveIndex)
		}
		if *res.Evidence != "You owe a little this month" {
			t.Errorf("tail %d: unexpected evidence %q", i, *res.Evidence)
		}
	}
}

func TestDetect_ResponseBeforeRequestDoesNotVerify(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		utt("customer", "My SSN is 123-45-6789 and I live at 10 Main Street"),
		utt("agent", "Please confirm your date of birth"),
		utt("agent", "Your balance is 40 dollars"),
	}

	res := d.Detect(tr)

	if !res.Violation {
		t.Fatal("expected violation: response preceded the request")
	}
	if *res.FirstSensitiveIndex != 2 {
		t.Errorf("expected index 2, got %d", *res.FirstSensitiveIndex)
	}
}

func TestDetect_RequestAloneDoesNotVerify(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		utt("agent", "I need to verify your social security number"),
		utt("customer", "Sure, one second"),
		utt("agent", "Your loan number is 5512"),
	}

	res := d.Detect(tr)

	if !res.Violation || *res.FirstSensitiveIndex != 2 {
		t.Fatalf("expected violation at index 2, got %+v", res)
	}
}

func TestDetect_VerificationIsMonotonic(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		utt("agent", "can you confirm your address"),
		utt("borrower", "400 Pine Avenue"),
		utt("customer", "actually never mind"),
		utt("agent", "let me verify your dob again"),
		utt("customer", "no"),
		utt("agent", "your outstanding balance is $1200"),
	}

	p := d.NewPass()
	for i, u := range tr {
		p.Observe(i, u)
		if i >= 1 && p.State() != StateVerified {
			t.Fatalf("after utterance %d expected StateVerified, got %v", i, p.State())
		}
	}

	res := p.Result()
	if res.Violation {
		t.Fatal("expected no violation")
	}
	if !res.VerifiedBeforeSensitive {
		t.Error("expected verified_before_sensitive to be true")
	}
}

func TestDetect_OtherRolesIgnored(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		utt("supervisor", "Your balance is $500"),
		utt("ivr", "please verify your date of birth"),
		utt("customer", "01/01/1980"),
		utt("AGENT ", "thanks"),
	}

	res := d.Detect(tr)

	if res.Violation {
		t.Error("non agent speakers must not trigger a violation")
	}
	if res.VerifiedBeforeSensitive {
		t.Error("a request from a non agent speaker must not open verification")
	}
}

func TestDetect_CaseInsensitive(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		utt("Agent", "PLEASE CONFIRM YOUR ADDRESS"),
		utt("Customer", "12 ELM ST"),
		utt("AGENT", "THE ROUTING NUMBER IS"),
	}

	res := d.Detect(tr)

	if res.Violation {
		t.Fatalf("expected no violation, got %+v", res)
	}
	if !res.VerifiedBeforeSensitive {
		t.Error("expected verified_before_sensitive to be true")
	}
}

func TestDetect_EmptyTranscript(t *testing.T) {
	res := NewDetector(nil).Detect(nil)

	if res.Violation || res.VerifiedBeforeSensitive || res.FirstSensitiveIndex != nil || res.Evidence != nil {
		t.Errorf("expected zero result, got %+v", res)
	}
}

func TestDetect_VerifiedWithoutDisclosure(t *testing.T) {
	d := NewDetector(nil)
	tr := models.Transcript{
		utt("agent", "could you verify your SSN"),
		utt("customer", "123-45-6789"),
		utt("agent", "thank you, how can I help"),
	}

	res := d.Detect(tr)

	if res.Violation {
		t.Fatal("expected no violation")
	}
	if !res.VerifiedBeforeSensitive {
		t.Error("expected the final verified flag to be reported")
	}
}

func TestPass_IgnoresObservationsAfterViolation(t *testing.T) {
	p := NewDetector(nil).NewPass()

	if !p.Observe(0, utt("agent", "$10 is due")) {
		t.Fatal("expected first observation to report a violation")
	}
	if !p.Observe(1, utt("agent", "$20 is due")) {
		t.Error("expected pass to stay done")
	}

	res := p.Result()
	if *res.FirstSensitiveIndex != 0 || *res.Evidence != "$10 is due" {
		t.Errorf("expected first violation to be kept, got %+v", res)
	}
	if !p.Violated() {
		t.Error("expected Violated to be true")
	}
}

func TestDetectWithClassifier(t *testing.T) {
	d := NewDetector(nil)
	c := mock.New(nil)
	tr := models.Transcript{
		utt("agent", "hello"),
		utt("customer", "hi"),
		utt("agent", "your balance is $5"),
		utt("agent", "never reached"),
	}

	res, err := d.DetectWithClassifier(context.Background(), tr, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Violation || *res.FirstSensitiveIndex != 2 {
		t.Fatalf("expected violation at index 2, got %+v", res)
	}
	if res.MatchedPattern != "classifier" {
		t.Errorf("expected matched pattern 'classifier', got %q", res.MatchedPattern)
	}

	calls := c.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 classifier calls (agent utterances up to the violation), got %d", len(calls))
	}
	for _, call := range calls {
		if call.Context.Task != classify.TaskSensitiveDisclosure {
			t.Errorf("unexpected task %v", call.Context.Task)
		}
		if call.Context.Role != models.RoleAgent {
			t.Errorf("unexpected role %v", call.Context.Role)
		}
	}
}

func TestDetectWithClassifier_SkipsVerifiedUtterances(t *testing.T) {
	d := NewDetector(nil)
	c := mock.New(nil)
	tr := models.Transcript{
		utt("agent", "please confirm your date of birth"),
		utt("customer", "3/4/85"),
		utt("agent", "your balance is $5"),
	}

	res, err := d.DetectWithClassifier(context.Background(), tr, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Violation || !res.VerifiedBeforeSensitive {
		t.Errorf("expected verified pass without violation, got %+v", res)
	}
	if len(c.Calls()) != 1 {
		t.Errorf("expected 1 classifier call before verification, got %d", len(c.Calls()))
	}
}

func TestDetectWithClassifier_Error(t *testing.T) {
	d := NewDetector(nil)
	boom := errors.New("model unavailable")
	c := classify.Func(func(ctx context.Context, text string, cc classify.Context) (bool, error) {
		return false, boom
	})

	_, err := d.DetectWithClassifier(context.Background(), models.Transcript{utt("agent", "hi")}, c)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped classifier error, got %v", err)
	}
}

func TestPass_ObserveWithClassifier(t *testing.T) {
	p := NewDetector(nil).NewPass()
	c := mock.New(nil)
	ctx := context.Background()

	steps := []models.Utterance{
		utt("agent", "good afternoon"),
		utt("agent", "the amount due is $80"),
		utt("agent", "after the violation"),
	}
	for i, u := range steps[:2] {
		done, err := p.ObserveWithClassifier(ctx, i, u, c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done != (i == 1) {
			t.Errorf("utterance %d: expected done=%v, got %v", i, i == 1, done)
		}
	}

	done, err := p.ObserveWithClassifier(ctx, 2, steps[2], c)
	if err != nil || !done {
		t.Errorf("expected done after violation, got %v, %v", done, err)
	}
	if len(c.Calls()) != 2 {
		t.Errorf("expected classifier not to be asked after the violation, got %d calls", len(c.Calls()))
	}

	res := p.Result()
	if *res.FirstSensitiveIndex != 1 || res.MatchedPattern != ClassifierPattern {
		t.Errorf("expected classifier violation at index 1, got %+v", res)
	}
}
