package websearch

import (
	"regexp"
	"strings"
)

const maxContacts = 10

const (
	personWord = `[A-Z][a-z]+(?:[-'][A-Z]?[a-z]+|[A-Z][a-z]+)?`
	personName = personWord + `(?:[ \t]+` + personWord + `){1,2}`

	leadershipTitle = `(?:(?:Co-?[Ff]ounder|Founder)(?:\s*(?:&|and)\s*(?:CEO|CTO|COO|President))?` +
		`|CEO|CTO|CFO|COO|CMO|CRO|CPO|CIO` +
		`|Chief\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\s+Officer` +
		`|President` +
		`|Managing\s+Director` +
		`|(?:VP|Vice\s+President)(?:\s+of)?\s+[A-Z][a-z]+` +
		`|Head\s+of\s+[A-Z][a-z]+` +
		`|Director\s+of\s+[A-Z][a-z]+)`
)

var (
	nameThenTitle = regexp.MustCompile(`(` + personName + `)(?:\s*[,(]\s*|\s+[-–—|]\s+|\s+(?:is|as|was)\s+(?:the\s+|our\s+|its\s+)?|\s+)(` + leadershipTitle + `)`)
	titleThenName = regexp.MustCompile(`(` + leadershipTitle + `)(?:\s*[,:]\s*|\s+[-–—|]\s+|\s+)(` + personName + `)`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	localSplit    = regexp.MustCompile(`[._\-+]+`)
)

// Words that disqualify a candidate name because they belong to a company
// or page furniture rather than a person.
var nonPersonWords = map[string]bool{
	"inc": true, "ltd": true, "llc": true, "gmbh": true, "corp": true, "corporation": true,
	"company": true, "group": true, "holdings": true, "technologies": true, "technology": true,
	"solutions": true, "labs": true, "systems": true, "software": true, "capital": true,
	"ventures": true, "partners": true, "global": true, "international": true, "limited": true,
	"team": true, "leadership": true, "board": true, "officer": true, "chief": true,
	"executive": true, "founder": true, "president": true, "director": true, "head": true,
}

// Leading words dropped from a candidate before it is checked.
var leadingFillers = map[string]bool{
	"meet": true, "our": true, "the": true, "with": true, "by": true, "and": true,
	"about": true, "contact": true, "from": true, "says": true, "said": true,
}

// ExtractContacts finds capitalized two to three word names adjacent to a
// leadership title and pairs each with an email whose local part shares a
// token with the name.
func ExtractContacts(text string) []Contact {
	var contacts []Contact
	seen := make(map[string]bool)

	add := func(name, title string) {
		name = cleanPersonName(name)
		if name == "" || seen[strings.ToLower(name)] || len(contacts) >= maxContacts {
			return
		}
		seen[strings.ToLower(name)] = true
		contacts = append(contacts, Contact{Name: name, Title: normalizeTitle(title)})
	}

	// A title followed by a name claims that title, so a capitalized phrase
	// before it is usually the company ("Acme Robotics CEO Jane Doe").
	claimed := make(map[int]bool)
	for _, m := range titleThenName.FindAllStringSubmatchIndex(text, -1) {
		claimed[m[2]] = true
		add(text[m[4]:m[5]], text[m[2]:m[3]])
	}
	for _, m := range nameThenTitle.FindAllStringSubmatchIndex(text, -1) {
		if claimed[m[4]] {
			continue
		}
		add(text[m[2]:m[3]], text[m[4]:m[5]])
	}

	if len(contacts) == 0 {
		return nil
	}
	assignEmails(contacts, emailPattern.FindAllString(text, -1))
	return contacts
}

func cleanPersonName(name string) string {
	words := strings.Fields(name)
	for len(words) > 0 && leadingFillers[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) < 2 || len(words) > 3 {
		return ""
	}
	for _, w := range words {
		if nonPersonWords[strings.ToLower(strings.Trim(w, ".,"))] {
			return ""
		}
	}
	return strings.Join(words, " ")
}

var spaces = regexp.MustCompile(`\s+`)

func normalizeTitle(title string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(title), " ")
}

func assignEmails(contacts []Contact, emails []string) {
	used := make(map[string]bool)
	for i := range contacts {
		nameTokens := make(map[string]bool)
		for _, tok := range strings.Fields(strings.ToLower(contacts[i].Name)) {
			if len(tok) >= 2 {
				nameTokens[tok] = true
			}
		}
		for _, email := range emails {
			key := strings.ToLower(email)
			if used[key] {
				continue
			}
			local := key[:strings.Index(key, "@")]
			if sharesToken(localSplit.Split(local, -1), nameTokens) {
				contacts[i].Email = email
				used[key] = true
				break
			}
		}
	}
}

func sharesToken(tokens []string, set map[string]bool) bool {
	for _, t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}
