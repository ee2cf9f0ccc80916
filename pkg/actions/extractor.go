// Package actions extracts structured action items from meeting summaries
// and transcripts.
//
// Extraction is a deterministic pattern match: running it twice over the same
// input yields identical items, including identifiers, even though the
// upstream summary generation is non-deterministic per run. Summary bullets
// are the primary source; the raw transcript is the fallback when the
// summary yields no action-shaped lines.
package actions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/shaurya-ahuja/quicknotes-ai/pkg/note"
)

var (
	reActionKeyword = regexp.MustCompile(`(?i)\b(need(s)?(\s+to)?|should|must|will|have to|has to|follow up|responsible for|assigned to|please|make sure|don'?t forget|remember to)\b`)
	reActionPrefix  = regexp.MustCompile(`(?i)^(action|todo|task):\s*`)

	reAtName       = regexp.MustCompile(`@(\w+)`)
	reAssigneeTag  = regexp.MustCompile(`(?i)\[assignee:\s*(\w+)\]`)
	reAssignedTo   = regexp.MustCompile(`(?i)\bassigned?\s+to\s+(\w+)`)
	reSubjectVerb  = regexp.MustCompile(`(?i)\b(\w+)\s+(?:will|should|must|needs?\s+to)\b`)
	reVocative     = regexp.MustCompile(`,\s+([A-Z][a-zA-Z]+)$`)
	reLeadingName  = regexp.MustCompile(`^(Speaker \d+|[A-Z][a-zA-Z]+):\s+`)
	reLeadFiller   = regexp.MustCompile(`(?i)^(?:(?:we|i|you|they|everyone|someone|the team|team)\s+)?(?:need(?:s)?\s+to|need(?:s)?|should|must|will|have to|has to|please|make sure(?:\s+to)?|don'?t forget(?:\s+to)?|remember to)\s+`)
	reLeadArticle  = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)
	reDueTag       = regexp.MustCompile(`(?i)\[(?:due|deadline):\s*[^\]]+\]`)
	rePriorityWord = regexp.MustCompile(`(?i)\b(urgent(?:ly)?|asap|immediately|critical|high priority|low priority|when you get a chance|no rush|eventually)\b`)
	reSentenceEnd  = regexp.MustCompile(`[.!?]+\s+`)
)

// pronouns and collectives that must never become an assignee.
var nonAssignees = map[string]bool{
	"i": true, "we": true, "you": true, "they": true, "he": true, "she": true,
	"it": true, "someone": true, "everyone": true, "anybody": true,
	"team": true, "this": true, "that": true, "there": true, "speaker": true,
}

// Extractor parses action items out of meeting text.
type Extractor struct{}

// NewExtractor creates an action item extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the meeting's action items in stable order. An empty
// result is valid; it is never an error.
func (e *Extractor) Extract(m *note.Meeting) []note.ActionItem {
	items := e.extractLines(m, m.Summary, nil)
	if len(items) == 0 {
		items = e.extractLines(m, strings.Split(m.Transcript(), "\n"), m.Speakers())
	}
	return items
}

// extractLines walks lines in order. speakers, when non-empty, names the
// leading "Name:" prefixes that are speaker attribution rather than
// assignees (transcript mode).
func (e *Extractor) extractLines(m *note.Meeting, lines []string, speakers []string) []note.ActionItem {
	speakerSet := make(map[string]bool, len(speakers))
	for _, s := range speakers {
		speakerSet[s] = true
	}

	var items []note.ActionItem
	for _, line := range lines {
		line = strings.Trim(line, "•-*· \t")
		if line == "" {
			continue
		}

		assignee := ""
		if lm := reLeadingName.FindStringSubmatch(line); lm != nil {
			if speakerSet[lm[1]] || len(speakers) > 0 {
				// Transcript speaker attribution, not an assignee.
				line = line[len(lm[0]):]
			} else if !nonAssignees[strings.ToLower(lm[1])] {
				assignee = lm[1]
				line = line[len(lm[0]):]
			}
		}

		priority, priorityExpr := detectPriority(line)

		for _, sentence := range splitSentences(line) {
			if !reActionKeyword.MatchString(sentence) && !reActionPrefix.MatchString(sentence) {
				continue
			}
			item := e.parseSentence(m, sentence, assignee, priority, priorityExpr)
			if item != nil {
				item.ID = deterministicID(m.ID, len(items), item.Description, item.Assignee)
				items = append(items, *item)
			}
		}
	}
	return items
}

func (e *Extractor) parseSentence(m *note.Meeting, sentence, assignee string, priority note.Priority, priorityExpr string) *note.ActionItem {
	sentence = strings.TrimRight(strings.TrimSpace(sentence), ".!?")

	due, dueExpr, _ := ResolveDueDate(sentence, m.CreatedAt)

	if assignee == "" {
		assignee = extractAssignee(sentence)
	}

	desc := cleanDescription(sentence, assignee, dueExpr, priorityExpr)
	if len(desc) < 3 {
		return nil
	}
	// A description that is nothing but action keywords carries no task.
	if strings.TrimSpace(reActionKeyword.ReplaceAllString(desc, "")) == "" {
		return nil
	}

	return &note.ActionItem{
		MeetingID:   m.ID,
		Description: desc,
		Assignee:    assignee,
		DueDate:     due,
		Priority:    priority,
	}
}

// extractAssignee tries explicit mention patterns first, then the subject of
// a commitment verb, then a trailing vocative ("..., John").
func extractAssignee(sentence string) string {
	for _, re := range []*regexp.Regexp{reAtName, reAssigneeTag, reAssignedTo, reSubjectVerb} {
		if m := re.FindStringSubmatch(sentence); m != nil {
			name := m[1]
			if !nonAssignees[strings.ToLower(name)] {
				return titleCase(name)
			}
		}
	}
	if m := reVocative.FindStringSubmatch(sentence); m != nil {
		if !nonAssignees[strings.ToLower(m[1])] {
			return m[1]
		}
	}
	return ""
}

// cleanDescription strips metadata from the sentence so only the task text
// remains.
func cleanDescription(sentence, assignee, dueExpr, priorityExpr string) string {
	s := reActionPrefix.ReplaceAllString(sentence, "")
	s = reAssigneeTag.ReplaceAllString(s, "")
	s = reDueTag.ReplaceAllString(s, "")
	s = reAssignedTo.ReplaceAllString(s, "")
	s = reAtName.ReplaceAllString(s, "")
	if dueExpr != "" {
		s = strings.Replace(s, dueExpr, "", 1)
	}
	if priorityExpr != "" {
		s = rePriorityWord.ReplaceAllString(s, "")
	}
	s = reVocative.ReplaceAllString(strings.TrimRight(strings.TrimSpace(s), ",. "), "")
	if assignee != "" {
		reAssigneePrefix := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(assignee) + `\s+(?:will|should|must|needs?\s+to|has to)\s+`)
		s = reAssigneePrefix.ReplaceAllString(strings.TrimSpace(s), "")
	}
	s = reLeadFiller.ReplaceAllString(strings.TrimSpace(s), "")
	s = reLeadArticle.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,.;:")
}

func titleCase(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

func detectPriority(line string) (note.Priority, string) {
	m := rePriorityWord.FindString(line)
	if m == "" {
		return note.PriorityNormal, ""
	}
	switch strings.ToLower(m) {
	case "low priority", "when you get a chance", "no rush", "eventually":
		return note.PriorityLow, m
	default:
		return note.PriorityUrgent, m
	}
}

// splitSentences breaks a line at sentence punctuation, keeping order.
func splitSentences(line string) []string {
	parts := reSentenceEnd.Split(line, -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// deterministicID derives a stable item identifier from the meeting id and
// the item's position and content, so identical input reproduces identical
// items.
func deterministicID(meetingID string, seq int, description, assignee string) string {
	ns, err := uuid.Parse(meetingID)
	if err != nil {
		ns = uuid.NameSpaceOID
	}
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("%d|%s|%s", seq, description, assignee))).String()
}
