package digest

import (
	"fmt"
	"strings"
	"time"

	"jobradar/internal/domain/entity"
)

// Score bands for grouping postings in the digest body.
const (
	topBandMin    = 9
	strongBandMin = 7
)

// buildSubject renders the digest subject line.
func buildSubject(jobs []*entity.Job, now time.Time) string {
	noun := "postings"
	if len(jobs) == 1 {
		noun = "posting"
	}
	return fmt.Sprintf("Job digest: %d new %s (%s)", len(jobs), noun, now.Format("2006-01-02"))
}

// buildBody renders the digest as markdown text, grouped by score band
// with the highest scores first. Postings within a band keep the
// repository order (score desc, then posted_at desc).
func buildBody(jobs []*entity.Job, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Job Digest — %s\n\n", now.Format("2006-01-02"))
	noun := "postings"
	if len(jobs) == 1 {
		noun = "posting"
	}
	fmt.Fprintf(&b, "%d new analyzed %s since the last digest.\n", len(jobs), noun)

	bands := []struct {
		title  string
		filter func(score int) bool
	}{
		{"Top matches (9-10)", func(s int) bool { return s >= topBandMin }},
		{"Strong matches (7-8)", func(s int) bool { return s >= strongBandMin && s < topBandMin }},
		{"Worth a look", func(s int) bool { return s < strongBandMin }},
	}

	for _, band := range bands {
		var matched []*entity.Job
		for _, j := range jobs {
			if band.filter(j.Score) {
				matched = append(matched, j)
			}
		}
		if len(matched) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n## %s\n", band.title)
		for _, j := range matched {
			writePosting(&b, j)
		}
	}

	return b.String()
}

func writePosting(b *strings.Builder, j *entity.Job) {
	b.WriteString("\n---\n\n")

	heading := j.Title
	if j.Company != "" {
		heading += " — " + j.Company
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	fmt.Fprintf(b, "Score: %d/10\n", j.Score)
	if j.Location != "" {
		fmt.Fprintf(b, "Location: %s\n", j.Location)
	}
	if !j.PostedAt.IsZero() {
		fmt.Fprintf(b, "Posted: %s\n", j.PostedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(b, "Link: %s\n", j.URL)

	if j.Summary != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(j.Summary))
		b.WriteString("\n")
	}
}
