package prompt

import (
	"fmt"

	"pitchdojo/internal/domain"
)

// PersonaDetail is the UI-facing description of one prospect character.
type PersonaDetail struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tip         string `json:"tip"`
}

// PersonaDetails describes every selectable prospect.
var PersonaDetails = map[domain.Persona]PersonaDetail{
	domain.PersonaSkeptical: {
		Name:        "Skeptic Susan",
		Description: "A cautious procurement manager who is resistant to change and needs solid proof (data, case studies) to be convinced.",
		Tip:         "Lead with data and social proof. Address her concerns directly and avoid fluffy marketing language.",
	},
	domain.PersonaEager: {
		Name:        "Eager Eric",
		Description: "An enthusiastic junior employee who loves new tech but has no buying power. He's your internal champion.",
		Tip:         "Win him over, then arm him with the key points and ROI to sell your solution internally to his boss.",
	},
	domain.PersonaBusy: {
		Name:        "Busy Brian",
		Description: "A distracted executive who is always short on time and multitasking. He values brevity and immediate value.",
		Tip:         "Get to the point fast. Open with a powerful hook and focus on the single biggest impact you can make.",
	},
	domain.PersonaAnalytical: {
		Name:        "Analytical Anna",
		Description: "A detail-oriented engineer or CFO who drills down into technical specs and ROI. She is logical and data-driven.",
		Tip:         "Be prepared for specific, technical questions. Have your numbers and specs ready and be precise in your answers.",
	},
}

// PersonaVoices maps each persona onto a prebuilt agent voice.
var PersonaVoices = map[domain.Persona]string{
	domain.PersonaSkeptical:  "Kore",
	domain.PersonaEager:      "Puck",
	domain.PersonaBusy:       "Fenrir",
	domain.PersonaAnalytical: "Zephyr",
}

// ObjectionDetails spells out each objection family for the system prompt.
var ObjectionDetails = map[domain.ObjectionType]string{
	domain.ObjectionTiming:      `Timing objections (e.g., "now isn't a good time", "let's revisit later")`,
	domain.ObjectionBudget:      `Budget objections (e.g., "pricing is unclear", "we don't have budget allocated")`,
	domain.ObjectionSolution:    `Already have a solution objections (e.g., "we already work with someone", "we're locked into a vendor")`,
	domain.ObjectionCredibility: `Credibility / trust objections (e.g., "have you done this before?", "who else uses this?")`,
	domain.ObjectionStall:       `Need more information / stall objections (e.g., "send me something", "let me review internally")`,
}

// PersonaObjections lists the four objections each persona may raise.
var PersonaObjections = map[domain.Persona][]domain.ObjectionType{
	domain.PersonaSkeptical:  {domain.ObjectionCredibility, domain.ObjectionStall, domain.ObjectionBudget, domain.ObjectionSolution},
	domain.PersonaEager:      {domain.ObjectionBudget, domain.ObjectionTiming, domain.ObjectionStall, domain.ObjectionCredibility},
	domain.PersonaBusy:       {domain.ObjectionTiming, domain.ObjectionBudget, domain.ObjectionStall, domain.ObjectionSolution},
	domain.PersonaAnalytical: {domain.ObjectionStall, domain.ObjectionBudget, domain.ObjectionCredibility, domain.ObjectionSolution},
}

// StageGoals is the per-stage battle-card content for one persona.
type StageGoals struct {
	Checklist []string
	Tips      []string
}

// StageMatrix holds the battle-card checklist and tips per persona and stage.
var StageMatrix = map[domain.Persona]map[domain.SalesStage]StageGoals{
	domain.PersonaSkeptical: {
		domain.StageOpening: {
			Checklist: []string{"Introduced yourself clearly", "Stated purpose without fluff", "Acknowledged their time"},
			Tips:      []string{"Skip small talk—she hates it", "Mention you have data ready", "Lead with a credibility statement"},
		},
		domain.StageDiscovery: {
			Checklist: []string{"Asked about current process", "Quantified the problem cost", "Identified decision criteria"},
			Tips:      []string{"Ask for hard numbers", "Avoid vague buzzwords", "Lead with ROI questions"},
		},
		domain.StageSolution: {
			Checklist: []string{"Presented relevant case study", "Addressed ROI concerns", "Handled skeptical pushback"},
			Tips:      []string{"Use specific metrics", "Cite competitor wins", "Offer a pilot program"},
		},
		domain.StageClosing: {
			Checklist: []string{"Proposed next step clearly", "Addressed final concerns", "Got commitment on timing"},
			Tips:      []string{"Focus on risk mitigation", "Summarize ROI one more time", "Be direct—ask for the meeting"},
		},
	},
	domain.PersonaEager: {
		domain.StageOpening: {
			Checklist: []string{"Built enthusiasm together", "Established shared vision", "Identified his influence level"},
			Tips:      []string{"Match his energy", "Ask who else should know", "Plant seeds for internal sale"},
		},
		domain.StageDiscovery: {
			Checklist: []string{"Explored his pain points", "Identified boss priorities", "Found budget holder"},
			Tips:      []string{"Ask about his boss's goals", "Uncover internal politics", "Help him build his pitch"},
		},
		domain.StageSolution: {
			Checklist: []string{"Armed him with talking points", "Addressed implementation ease", "Highlighted quick wins"},
			Tips:      []string{"Give him soundbites to repeat", "Focus on ease of adoption", "Create urgency via FOMO"},
		},
		domain.StageClosing: {
			Checklist: []string{"Planned intro to decision maker", "Set up follow-up call", "Provided shareable materials"},
			Tips:      []string{"Ask to loop in his boss", "Offer a deck he can forward", "Set a concrete next step"},
		},
	},
	domain.PersonaBusy: {
		domain.StageOpening: {
			Checklist: []string{"Hooked in first 10 seconds", "Respected time constraint", "Got permission to continue"},
			Tips:      []string{"Lead with biggest impact", `Ask: "Do you have 90 seconds?"`, "Skip pleasantries"},
		},
		domain.StageDiscovery: {
			Checklist: []string{"Asked one sharp question", "Got a pain point fast", "Kept it under 30 seconds"},
			Tips:      []string{"One question max per turn", "Focus on bottom-line impact", "Don't over-explain"},
		},
		domain.StageSolution: {
			Checklist: []string{"Pitched in one sentence", "Tied to his priority", "Offered proof briefly"},
			Tips:      []string{"Elevator pitch only", "Name-drop if relevant", "Avoid feature lists"},
		},
		domain.StageClosing: {
			Checklist: []string{"Asked for meeting directly", "Handled time objection", "Confirmed next step"},
			Tips:      []string{"Ask for the meeting NOW", "Don't recap features", "Suggest specific dates"},
		},
	},
	domain.PersonaAnalytical: {
		domain.StageOpening: {
			Checklist: []string{"Set logical agenda", "Established credibility", "Asked about evaluation criteria"},
			Tips:      []string{"Be structured and precise", "Avoid superlatives", "Signal you have data coming"},
		},
		domain.StageDiscovery: {
			Checklist: []string{"Drilled into metrics", "Asked about tech stack", "Understood decision process"},
			Tips:      []string{"Ask about their KPIs", "Don't assume—verify", "Take notes visibly"},
		},
		domain.StageSolution: {
			Checklist: []string{"Provided technical detail", "Showed integration path", "Cited benchmarks"},
			Tips:      []string{"Have specs ready", "Mention security/compliance", `Avoid "trust me" language`},
		},
		domain.StageClosing: {
			Checklist: []string{"Proposed POC or trial", "Outlined evaluation timeline", "Got technical buy-in"},
			Tips:      []string{"Offer a technical deep-dive", "Propose a pilot with metrics", "Confirm next technical call"},
		},
	},
}

// ChecklistTemplate builds a fresh, all-incomplete checklist for the
// given persona and stage.
func ChecklistTemplate(persona domain.Persona, stage domain.SalesStage) []domain.ChecklistItem {
	goals, ok := StageMatrix[persona][stage]
	if !ok {
		return nil
	}
	items := make([]domain.ChecklistItem, 0, len(goals.Checklist))
	for idx, label := range goals.Checklist {
		items = append(items, domain.ChecklistItem{
			ID:        fmt.Sprintf("%s-%d", stage, idx),
			Label:     label,
			Completed: false,
		})
	}
	return items
}

// StartingInterest seeds the interest gauge from the difficulty.
func StartingInterest(difficulty domain.Difficulty) float64 {
	switch difficulty {
	case domain.DifficultyHard:
		return 15
	case domain.DifficultyMedium:
		return 30
	default:
		return 40
	}
}

// VoiceFor returns the prebuilt voice for a persona.
func VoiceFor(persona domain.Persona) string {
	if voice, ok := PersonaVoices[persona]; ok {
		return voice
	}
	return "Kore"
}
