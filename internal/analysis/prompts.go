package analysis

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an assistant that helps people keep a food and symptom diary for allergies and intolerances.
Answer ONLY with a single JSON object in the format requested by the user message.
Never present your answer as a medical diagnosis.`

func orNone(s string) string {
	if s == "" {
		return "No data available"
	}
	return s
}

func buildPrompt(req Request, foodLog, symptomLog string) (string, error) {
	var b strings.Builder
	switch req.Kind {
	case TriggerAnalysis:
		fmt.Fprintf(&b, "TASK: Analyze the following data and identify possible food triggers.\n\n")
		fmt.Fprintf(&b, "MEAL LOG:\n%s\n\nSYMPTOM LOG:\n%s\n\n", orNone(foodLog), orNone(symptomLog))
		if req.Context != "" {
			fmt.Fprintf(&b, "ADDITIONAL CONTEXT: %s\n\n", req.Context)
		}
		b.WriteString(`INSTRUCTIONS:
1. Look for temporal correlations between meals and symptoms
2. Consider common allergens (milk, eggs, nuts, gluten, etc.)
3. Look for patterns and repetitions
4. Rate the likelihood of each identified trigger

RESPONSE FORMAT (JSON):
{
  "possibleTriggers": ["trigger1", "trigger2"],
  "explanation": "Detailed explanation of the analysis"
}

IMPORTANT: Always mention that this is AI support and does not replace a medical diagnosis.
`)
	case MealSuggestion:
		fmt.Fprintf(&b, "PREVIOUS MEALS:\n%s\n\nSYMPTOMS:\n%s\n\n", orNone(foodLog), orNone(symptomLog))
		if req.Context != "" {
			fmt.Fprintf(&b, "SPECIAL REQUEST: %s\n\n", req.Context)
		}
		b.WriteString(`TASK: Suggest 3-5 safe, nutritious meals that are unlikely to cause symptoms.

RESPONSE FORMAT (JSON):
{
  "suggestions": ["Meal 1: description and ingredients", "Meal 2: description and ingredients"],
  "explanation": "Reasoning for the selection and nutrition tips"
}
`)
	case SymptomAdvice:
		fmt.Fprintf(&b, "CURRENT SYMPTOMS:\n%s\n\n", orNone(symptomLog))
		if req.Context != "" {
			fmt.Fprintf(&b, "USER QUESTION: %s\n\n", req.Context)
		}
		b.WriteString(`TASK: Give helpful, non-medical advice for coping with the symptoms. Recommend seeing a doctor for serious symptoms.

RESPONSE FORMAT (JSON):
{
  "response": "Empathetic answer with practical tips",
  "suggestions": ["Tip 1", "Tip 2", "Tip 3"]
}
`)
	case GeneralChat:
		if req.Context != "" {
			fmt.Fprintf(&b, "CONTEXT: %s\n\n", req.Context)
		}
		fmt.Fprintf(&b, "USER MESSAGE: %s\n\n", req.Message)
		b.WriteString(`RESPONSE FORMAT (JSON):
{
  "response": "Your helpful answer"
}
`)
	default:
		return "", fmt.Errorf("unknown analysis kind %q", req.Kind)
	}
	return b.String(), nil
}
