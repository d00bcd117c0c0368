package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"jobradar/internal/usecase/analyze"
)

// maxPromptChars caps posting text fed into a prompt. Keeps prompts well
// under every provider's context window and consistent across providers.
const maxPromptChars = 10000

var scorePattern = regexp.MustCompile(`\d+`)

// buildRelevancePrompt produces the cheap score-only gating prompt.
// It asks for a bare number so the small filter model cannot ramble.
func buildRelevancePrompt(profile Profile, p analyze.Posting) string {
	return fmt.Sprintf(`Rate this job for a %s-level candidate (%s) from 0 to 10.
Keywords: %s
Requirements: %s degree, %s

Title: %s
Description: %s

Check for: %s requirement, visa sponsorship, citizenship restrictions.
Score only (0-10):`,
		profile.RequiredDegree,
		profile.CitizenshipRequirement,
		strings.Join(profile.Keywords, ", "),
		profile.RequiredDegree,
		profile.CitizenshipRequirement,
		p.Title,
		truncateText(p.Description),
		profile.RequiredDegree)
}

// buildAnalysisPrompt produces the structured-extraction prompt. The model
// fills in a fixed markdown skeleton so downstream rendering stays uniform
// regardless of how messy the posting text is.
func buildAnalysisPrompt(profile Profile, p analyze.Posting) string {
	body := p.Content
	if strings.TrimSpace(body) == "" {
		body = p.Description
	}

	published := "Not specified"
	if !p.PublishedAt.IsZero() {
		published = p.PublishedAt.Format("2006-01-02")
	}

	return fmt.Sprintf(`Please analyze the following job posting and extract structured information in markdown format.

Job Title: %s

Job Content:
%s

Keywords to look for: %s

Please provide the analysis in the following markdown format:

## Title
%s

## Company
[Extract company or organization name]

## Source
%s

## Posted Date
%s

## Deadline
[Extract application deadline if available]

## Application Link
%s

## Location
[Extract location if available]

## Salary
[Extract salary range if available]

## Keywords
[List relevant keywords from the provided list that match this job]

## Requirements
[Extract specific requirements such as citizenship status, degree requirements, experience, etc.]

## Summary
[Provide a detailed summary highlighting key requirements, responsibilities, qualifications and other important information. Use bullet points if necessary.]

Instructions:
1. If information is not available, write "Not specified"
2. Only include keywords that are actually relevant to this job posting
3. The content format varies by source; look for key information anywhere in the text
4. Carefully check for phrases like "citizens only", "no visa sponsorship", "permanent residents", "international candidates welcome"`,
		p.Title,
		truncateText(body),
		strings.Join(profile.Keywords, ", "),
		p.Title,
		p.Source,
		published,
		p.URL)
}

// buildQueryExpansionPrompt produces the search-term expansion prompt.
// The response gets embedded as-is, so it asks for one line of plain text.
func buildQueryExpansionPrompt(query string) string {
	return fmt.Sprintf(`Expand this job search query with related job titles, skills, and synonyms.

Query: %s

Respond with a single line of comma-separated terms, starting with the original query. No explanations.`, query)
}

// parseScore extracts a relevance score from a model response and clamps
// it to [0,10]. Small models occasionally wrap the number in words, so the
// first integer in the response wins.
func parseScore(response string) (int, error) {
	match := scorePattern.FindString(strings.TrimSpace(response))
	if match == "" {
		return 0, fmt.Errorf("%w: %q", analyze.ErrInvalidScore, truncateForLog(response))
	}

	score, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", analyze.ErrInvalidScore, truncateForLog(response))
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

// truncateText trims posting text to maxPromptChars.
func truncateText(text string) string {
	if len(text) <= maxPromptChars {
		return text
	}
	return text[:maxPromptChars] + "...\n(content truncated)"
}

// truncateForLog shortens a response for inclusion in an error message.
func truncateForLog(s string) string {
	const max = 80
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
