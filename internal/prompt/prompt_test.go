package prompt

import (
	"strings"
	"testing"

	"pitchdojo/internal/domain"
)

func TestSystemInstructionIncludesScenario(t *testing.T) {
	t.Parallel()

	instruction := SystemInstruction(domain.SessionOptions{
		Persona:    domain.PersonaBusy,
		Difficulty: domain.DifficultyHard,
		Objections: []domain.ObjectionType{domain.ObjectionTiming, domain.ObjectionBudget},
	})

	for _, want := range []string{
		"Busy Brian",
		"hard call",
		ObjectionDetails[domain.ObjectionTiming],
		ObjectionDetails[domain.ObjectionBudget],
		"Wait for their Hello",
	} {
		if !strings.Contains(instruction, want) {
			t.Fatalf("instruction missing %q", want)
		}
	}
}

func TestSystemInstructionIncludesProductContext(t *testing.T) {
	t.Parallel()

	opts := domain.SessionOptions{
		Persona:        domain.PersonaSkeptical,
		Difficulty:     domain.DifficultyEasy,
		ProductContext: "We sell a procurement analytics dashboard.",
	}
	instruction := SystemInstruction(opts)
	if !strings.Contains(instruction, opts.ProductContext) {
		t.Fatalf("instruction missing product context")
	}

	withoutProduct := SystemInstruction(domain.SessionOptions{
		Persona:    domain.PersonaSkeptical,
		Difficulty: domain.DifficultyEasy,
	})
	if strings.Contains(withoutProduct, "selling the following product") {
		t.Fatalf("product section must be omitted when empty")
	}
}

func TestFeedbackPromptFormatsTranscript(t *testing.T) {
	t.Parallel()

	history := []domain.Utterance{
		{Speaker: domain.SpeakerUser, Text: "Hi, this is Alex from Acme."},
		{Speaker: domain.SpeakerAgent, Text: "I have two minutes."},
	}
	rendered := FeedbackPrompt(history)

	if !strings.Contains(rendered, "Sales Rep: Hi, this is Alex from Acme.") {
		t.Fatalf("user line missing or mislabeled:\n%s", rendered)
	}
	if !strings.Contains(rendered, "Prospect: I have two minutes.") {
		t.Fatalf("agent line missing or mislabeled:\n%s", rendered)
	}
	if !strings.Contains(rendered, "feedback_report") {
		t.Fatalf("output schema missing from prompt")
	}
}

func TestChecklistTemplateIsFreshPerCall(t *testing.T) {
	t.Parallel()

	first := ChecklistTemplate(domain.PersonaEager, domain.StageDiscovery)
	if len(first) == 0 {
		t.Fatalf("expected checklist items for every persona and stage")
	}
	first[0].Completed = true

	second := ChecklistTemplate(domain.PersonaEager, domain.StageDiscovery)
	if second[0].Completed {
		t.Fatalf("template must not share state between calls")
	}
}

func TestChecklistTemplateCoversAllPersonasAndStages(t *testing.T) {
	t.Parallel()

	personas := []domain.Persona{
		domain.PersonaSkeptical,
		domain.PersonaEager,
		domain.PersonaBusy,
		domain.PersonaAnalytical,
	}
	for _, persona := range personas {
		for _, stage := range domain.Stages() {
			items := ChecklistTemplate(persona, stage)
			if len(items) == 0 {
				t.Fatalf("no checklist for %s / %s", persona, stage)
			}
			seen := map[string]bool{}
			for _, item := range items {
				if item.ID == "" || seen[item.ID] {
					t.Fatalf("checklist IDs must be unique and non-empty: %+v", items)
				}
				seen[item.ID] = true
				if item.Completed {
					t.Fatalf("template items must start incomplete")
				}
			}
		}
	}
}

func TestStartingInterestByDifficulty(t *testing.T) {
	t.Parallel()

	cases := map[domain.Difficulty]float64{
		domain.DifficultyEasy:   40,
		domain.DifficultyMedium: 30,
		domain.DifficultyHard:   15,
	}
	for difficulty, want := range cases {
		if got := StartingInterest(difficulty); got != want {
			t.Fatalf("StartingInterest(%s) = %v, want %v", difficulty, got, want)
		}
	}
	if got := StartingInterest("unknown"); got != 40 {
		t.Fatalf("unknown difficulty should fall back to easy, got %v", got)
	}
}

func TestVoiceForEveryPersona(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for persona := range PersonaDetails {
		voice := VoiceFor(persona)
		if voice == "" {
			t.Fatalf("no voice for %s", persona)
		}
		seen[voice] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected distinct voices across personas")
	}
}
