// Package prompt holds the fixed text sent to the agent.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kalambet/finplan/internal/completion"
	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/report"
)

const systemTemplate = `You are a friendly financial planning assistant. Build an investment and financial plan for the user by gathering their details one question at a time, never all at once.

Conversation:
- Keep replies short, upbeat and informative. Only the final document should be long and detailed.
- Ask in order about net worth, emergency fund, monthly expenses, assets, liabilities and financial goals.
- Ask whether the user has loans. For each loan type (personal, gold, home, student, car, loan against property) explain the tax deductions available under Indian law.
- Summarise the user's position at key stages and acknowledge their progress.

Plan content:
- Account for taxable and non-taxable income.
- Balance high-risk and low-risk investments and spread money across liquid and illiquid assets.
- Cover living expenses, tax optimisation and ways to cut costs.
- Recommend allocations across government-backed schemes (PPF, EPF, NSC, Sukanya Samriddhi, Sovereign Gold Bonds) and private options (mutual funds, equity, NPS, real estate, insurance-linked products).
- For every fund, stock or commodity you name, give the current price per unit, an expected future value and why it suits the user, citing reliable sources.
- Draw bar and pie charts with text characters (for example '█' bars), list pros and cons of each option and project progress toward each goal.

Delivery:
- When everything is collected, present a draft and ask for approval.
- Then deliver a professional final document with the user's name at the top and a quarter-by-quarter roadmap of investments and expected returns.
- Start and end the final document with this disclaimer: "%s"`

const markerInstruction = `
- End the final document, and only the final document, with the line %s on its own.`

// System returns the system instruction. When marker is true the agent is
// also asked to close the final document with completion.Marker.
func System(marker bool) string {
	s := fmt.Sprintf(systemTemplate, report.Disclaimer)
	if marker {
		s += fmt.Sprintf(markerInstruction, completion.Marker)
	}
	return s
}

const initialTemplate = `Please help me build a complete investment and financial plan, asking me one question at a time.

About me: my name is %s, I am %d years old, gender %s, I live in %s and my annual income is %s lakhs.

Include senior-citizen schemes if they become relevant for my age, and any Indian government schemes aimed at women if they apply to me. Keep me motivated as we go, and finish with the draft, then the final document, as instructed.`

// Initial is the first prompt of a session, built from the collected profile.
func Initial(p profile.Profile) string {
	return fmt.Sprintf(initialTemplate, p.Name, p.Age, p.Gender, p.City, profile.FormatIncome(p.Income))
}

// Attachment wraps extracted file text so the agent knows where it came from.
func Attachment(name, text string, truncated bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is the content of my file %q. Use it for the plan.\n\n", name)
	sb.WriteString(text)
	if truncated {
		sb.WriteString("\n\n[file truncated]")
	}
	return sb.String()
}
