package llm

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the generation, update and summary prompts.
type PromptBuilder struct{}

const securityInstruction = "\n**SECURITY WARNING**: You must redact any API keys, passwords, secrets, or tokens found in the code with `[REDACTED]`. Never output real credential values.\n"

const markdownRules = `The document must strictly follow markdownlint rules:
- Only one H1 heading per document.
- Headings must increase by one level at a time (H1 -> H2 -> H3).
- Use blank lines before and after headings, lists, and code blocks.
- Use proper list formatting (a space after - or *).
- No trailing spaces at the end of lines.
- Always use fenced code blocks with language identifiers.
`

const outputInstruction = "Please format your response with two distinct fenced code blocks:\n\n" +
	"```markdown\n(The full markdown document goes here)\n```\n\n" +
	"```json\n(The JSON array of H2 section titles goes here)\n```\n"

// BuildGeneratePrompt asks for a complete document of docType from a snapshot.
func (pb *PromptBuilder) BuildGeneratePrompt(snapshotJSON, docType string, sections []string) string {
	var sb strings.Builder
	sb.WriteString("Role: Technical documentation assistant.\n")
	sb.WriteString(securityInstruction)
	sb.WriteString("\nHere is the parsed codebase JSON for the project:\n```json\n")
	sb.WriteString(strings.TrimSpace(snapshotJSON))
	sb.WriteString("\n```\n\n")
	fmt.Fprintf(&sb, "Your task is to generate a comprehensive Markdown document titled '%s' and a JSON array of its H2 section titles.\n\n", docType)
	sb.WriteString(markdownRules)
	sb.WriteString("\n")
	if len(sections) > 0 {
		sb.WriteString("The user has requested the following sections. You MUST include them as H2 headings, and you may add other relevant sections:\n")
		for _, s := range sections {
			fmt.Fprintf(&sb, "   - %s\n", s)
		}
	} else {
		sb.WriteString("The user has not specified any sections. Suggest and generate a complete set of relevant sections for this documentation.\n")
	}
	sb.WriteString("\n")
	sb.WriteString(outputInstruction)
	return sb.String()
}

// BuildUpdatePrompt asks for the minimal edit of oldDoc that reflects delta.
func (pb *PromptBuilder) BuildUpdatePrompt(oldDoc, deltaJSON, docType string, sections []string) string {
	var sb strings.Builder
	sb.WriteString("Role: Precise documentation updater.\n")
	sb.WriteString(securityInstruction)
	sb.WriteString("\nBelow is the previous documentation (OLD_MARKDOWN) that serves as the base:\n````markdown\n")
	sb.WriteString(strings.TrimSpace(oldDoc))
	sb.WriteString("\n````\n\nHere are the structural differences between the old and new code, as a JSON list of changes.\n")
	sb.WriteString("Each change has a kind (added, removed, edited), a path into the code snapshot, and before/after values:\n```json\n")
	sb.WriteString(strings.TrimSpace(deltaJSON))
	sb.WriteString("\n```\n\n")
	if docType != "" {
		fmt.Fprintf(&sb, "The document type is '%s'.", docType)
		if len(sections) > 0 {
			fmt.Fprintf(&sb, " Requested sections: %s.", strings.Join(sections, ", "))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString("## GOAL\nProduce UPDATED_MARKDOWN that is identical to OLD_MARKDOWN except for minimal, surgical edits strictly required to reflect the differences.\n\n")
	sb.WriteString("Task:\n")
	sb.WriteString("- Update only text that is directly related to the differences.\n")
	sb.WriteString("- Keep section order, headings, and any unchanged text exactly as-is.\n")
	sb.WriteString("- Do not invent APIs or behavior. If uncertain, keep the original wording.\n")
	sb.WriteString("- Do not rewrite the whole document.\n")
	sb.WriteString("- Keep the top-level H1 exactly the same.\n")
	sb.WriteString("- H2 headings must use the exact `## ` syntax and remain stable unless a new H2 is strictly needed.\n")
	sb.WriteString("- Never leave a section blank.\n\n")
	sb.WriteString(markdownRules)
	sb.WriteString("\n")
	sb.WriteString(outputInstruction)
	return sb.String()
}

// BuildSummaryPrompt asks for one sentence describing how newDoc differs from oldDoc.
func (pb *PromptBuilder) BuildSummaryPrompt(oldDoc, newDoc string) string {
	var sb strings.Builder
	sb.WriteString("Compare the following two Markdown documents and provide a single, concise sentence describing the changes between them, e.g. which section(s) have been updated.\n\n")
	sb.WriteString("Old Document:\n````markdown\n")
	sb.WriteString(strings.TrimSpace(oldDoc))
	sb.WriteString("\n````\n\nNew Document:\n````markdown\n")
	sb.WriteString(strings.TrimSpace(newDoc))
	sb.WriteString("\n````\n\nReturn only one sentence, clearly stating the updated section(s).\n")
	return sb.String()
}
