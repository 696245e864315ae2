package ai

import (
	"fmt"
	"strings"
)

const diagnosticInstructions = `Please provide:
1. A detailed analysis of the likely issue
2. Estimated complexity (low, medium, or high)
3. Estimated cost range in USD (and convert to INR at 1 USD = 75 INR)
4. Estimated time to repair in hours
5. Suggested parts that might be needed

Format your answer with these labels on their own lines:
Complexity: <low|medium|high>
Cost: <min> - <max> USD
Time: <min> - <max> hours
Suggested parts:
- <part>
- <part>`

// BuildDiagnosticPrompt describes a repair request for the text model. Images
// are not sent; only whether the requester attached any.
func BuildDiagnosticPrompt(title, description, category string, hasImages bool) string {
	images := "No images provided"
	if hasImages {
		images = "Image references are provided"
	}
	var b strings.Builder
	b.WriteString("Analyze this repair request:\n")
	fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(title))
	fmt.Fprintf(&b, "Description: %s\n", strings.TrimSpace(description))
	fmt.Fprintf(&b, "Category: %s\n", strings.TrimSpace(category))
	fmt.Fprintf(&b, "Images: %s\n\n", images)
	b.WriteString(diagnosticInstructions)
	return b.String()
}

const verificationPrompt = `You verify that a repair was completed.
You get the customer's photos from before the repair (may be empty), one photo taken after the repair, and the repairer's note.
Decide whether the after photo plausibly shows the same item repaired.
Reject photos that are unrelated, blank, or that still show the reported damage.
Reply with JSON only: {"verified": true|false, "message": "<one or two sentences for the customer>"}`

func BuildVerificationPrompt(note string, beforeCount int) string {
	note = strings.TrimSpace(note)
	if note == "" {
		note = "(no note)"
	}
	return fmt.Sprintf("%s\n\nBefore photos attached: %d\nRepairer note: %s", verificationPrompt, beforeCount, note)
}
