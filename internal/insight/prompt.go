package insight

import (
	"fmt"
	"time"
)

const persona = `You are a Spending Insight Agent for a retail bank.
Your job is to analyse spending patterns and provide concise, friendly insights.
Use the available tools when needed.`

// systemInstructions are the operating rules for the guarded insight path.
func systemInstructions(maxWords int) string {
	return persona + fmt.Sprintf(`

Rules:
- get_monthly_total returns only a total. Whenever the request needs categories, spikes, top spending or individual transactions, you must also call get_transactions for that period. Do not stop after get_monthly_total.
- get_transactions accepts at most 90 days per call and returns at most 500 transactions; if truncated is true, say that the listing is incomplete.
- Never invent transactions, amounts, categories or merchants. Use only figures returned by the tools.
- If a tool returns an error or no data, state that explicitly in your answer instead of guessing or estimating.
- Never write the account identifier. Refer to it as "your account".
- Keep the answer under %d words.`, maxWords)
}

// taskPrompt asks for the month's breakdown compared with the month before.
func taskPrompt(accountID string, year, month int) string {
	current := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	previous := current.AddDate(0, -1, 0)

	return fmt.Sprintf(`Analyze spending for account %[1]s for %[2]d-%02[3]d.
Compare with the previous month (%[4]d-%02[5]d).

Provide:
- Category breakdown showing where money was spent
- Top spending categories with amounts
- Any spending spikes (>20%% increase over the previous month)
- Any large single transactions (>40%% of monthly total)

IMPORTANT: Never mention the account ID (%[1]s) in your response.
Refer to it as "your account" instead.

Keep the explanation clear, concise, and friendly.`,
		accountID, year, month, previous.Year(), int(previous.Month()))
}
