package websearch

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Extraction is best-effort text mining over title and body. Each function
// returns the zero value when nothing plausible is found.

var aggregatorDomains = []string{
	"linkedin.com", "facebook.com", "twitter.com", "x.com", "instagram.com", "youtube.com",
	"tiktok.com", "reddit.com", "quora.com", "medium.com", "github.com", "wikipedia.org",
	"crunchbase.com", "pitchbook.com", "cbinsights.com", "tracxn.com", "owler.com",
	"zoominfo.com", "apollo.io", "rocketreach.co", "signalhire.com", "theorg.com", "dnb.com",
	"glassdoor.com", "indeed.com", "builtin.com", "wellfound.com", "angel.co", "f6s.com",
	"ycombinator.com", "clutch.co", "g2.com", "capterra.com", "yelp.com", "bbb.org",
	"bloomberg.com", "forbes.com", "techcrunch.com", "reuters.com", "businessinsider.com",
	"wsj.com", "ft.com", "cnbc.com", "venturebeat.com", "businesswire.com", "prnewswire.com",
	"globenewswire.com", "inc.com", "fastcompany.com", "sifted.eu", "eu-startups.com",
}

// IsAggregatorDomain reports whether host belongs to a social network,
// directory or news site.
func IsAggregatorDomain(host string) bool {
	host = normalizeHost(host)
	for _, d := range aggregatorDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexAny(host, "/?#:"); i >= 0 {
		host = host[:i]
	}
	return strings.TrimRight(host, ".")
}

// DomainOf returns the host of rawURL without scheme or www prefix.
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return normalizeHost(u.Host)
}

const domainPattern = `[a-z0-9][a-z0-9\-]*(?:\.[a-z0-9\-]+)*\.[a-z]{2,}`

var websitePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwebsite\s*[:\-]\s*(?:https?://)?(?:www\.)?(` + domainPattern + `)`),
	regexp.MustCompile(`(?i)\bwww\.(` + domainPattern + `)`),
	regexp.MustCompile(`(?i)\bhttps?://(?:www\.)?(` + domainPattern + `)`),
	regexp.MustCompile(`(?i)\b([a-z0-9][a-z0-9\-]*\.(?:com|io|ai|co|net|org|tech|app|dev|de|uk|fr|nl|se|in|eu))\b`),
}

// ExtractWebsite prefers the result's own domain and falls back to domains
// mentioned in the text. Email domains and aggregators are never returned.
func ExtractWebsite(sourceURL, text string) string {
	if host := DomainOf(sourceURL); host != "" && !IsAggregatorDomain(host) {
		return host
	}

	for _, re := range websitePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if start > 0 && text[start-1] == '@' {
				continue
			}
			if end < len(text) && text[end] == '@' {
				continue
			}
			host := normalizeHost(text[start:end])
			if host == "" || IsAggregatorDomain(host) {
				continue
			}
			return host
		}
	}
	return ""
}

var (
	listTitlePattern  = regexp.MustCompile(`(?i)^\s*(?:the\s+)?(?:top|best|leading|largest|biggest)\s+\d*|\b\d+\s+(?:best|top|leading|largest|biggest)\b|\blist of\b`)
	pluralNounPattern = regexp.MustCompile(`(?i)\b(?:companies|startups|firms|agencies|vendors|providers|businesses|brands)\b`)
	titleSeparator    = regexp.MustCompile(`\s+[|\-–—:·]\s+|\s*\|\s*`)
	namePrefix        = regexp.MustCompile(`(?i)^(?:the\s+)?(?:top\s+\d+\s+|\d+\s+(?:best|top)\s+|best\s+)`)
	legalSuffix       = regexp.MustCompile(`(?i)[,\s]+(?:ltd\.?|limited|inc\.?|incorporated|llc|l\.l\.c\.|gmbh|corp\.?|corporation|plc|co\.|s\.a\.|ag|bv|pty)$`)
	listEntryPattern  = regexp.MustCompile(`(?m)^\s*(?:\d{1,2}[.)]|#\d{1,2}|[•*\-])\s+([A-Z0-9][^\n:–—|(]{1,60})`)
	entryCutPattern   = regexp.MustCompile(`\s+[-–—]\s+|,\s`)
	digitPattern      = regexp.MustCompile(`\d`)
)

// IsListTitle reports whether a page title looks like a directory or ranking.
func IsListTitle(title string) bool {
	return listTitlePattern.MatchString(title) ||
		(pluralNounPattern.MatchString(title) && digitPattern.MatchString(title))
}

// ExtractCompanyName derives a company name from the title, from the first
// item of a list page, or from the website domain as a last resort.
func ExtractCompanyName(title, text, website string) string {
	if IsListTitle(title) {
		if m := listEntryPattern.FindStringSubmatch(text); m != nil {
			entry := entryCutPattern.Split(m[1], 2)[0]
			if name := cleanCompanyName(entry); name != "" {
				return name
			}
		}
	} else {
		for _, segment := range titleSeparator.Split(title, -1) {
			if name := cleanCompanyName(segment); name != "" {
				return name
			}
		}
	}
	return nameFromDomain(website)
}

func cleanCompanyName(s string) string {
	s = strings.TrimSpace(s)
	s = namePrefix.ReplaceAllString(s, "")
	for {
		stripped := legalSuffix.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Trim(s, " .,;:-–—")
	if len(s) < 2 || len(s) > 60 {
		return ""
	}
	switch strings.ToLower(s) {
	case "home", "homepage", "about", "about us", "contact", "contact us", "team", "our team", "leadership":
		return ""
	}
	return s
}

func nameFromDomain(domain string) string {
	host := normalizeHost(domain)
	if host == "" {
		return ""
	}
	label := strings.Split(host, ".")[0]
	words := strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcompany size\s*[:\-]\s*(\d[\d,]*\s*(?:[-–]|to)\s*\d[\d,]*|\d[\d,]*\+?)`),
	regexp.MustCompile(`(?i)\b(\d[\d,]*\s*(?:[-–]|to)\s*\d[\d,]*)\s+(?:employees|staff|people)\b`),
	regexp.MustCompile(`(?i)\b(\d[\d,]*\+?)\s+(?:full[- ]time\s+)?(?:employees|staff members|team members)\b`),
	regexp.MustCompile(`(?i)\b(?:team|workforce|staff) of\s+(?:over\s+|about\s+|around\s+)?(\d[\d,]*\+?)\b`),
	regexp.MustCompile(`(?i)\bemploys\s+(?:over\s+|about\s+|around\s+)?(\d[\d,]*\+?)\b`),
}

var rangeDash = regexp.MustCompile(`\s*(?:[-–]|to)\s*`)

// ExtractSize returns headcount phrasing such as "51-200 employees".
func ExtractSize(text string) string {
	for _, re := range sizePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return rangeDash.ReplaceAllString(strings.TrimSpace(m[1]), "-") + " employees"
		}
	}
	return ""
}

var explicitIndustry = regexp.MustCompile(`(?i)\bindustry\s*[:\-]\s*([A-Za-z&/ ,\-]{3,40}?)(?:[.\n;|]|$)`)

var industryKeywords = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"Artificial Intelligence", regexp.MustCompile(`(?i)\b(?:artificial intelligence|machine learning|generative ai|ai[- ]powered|llms?)\b`)},
	{"Fintech", regexp.MustCompile(`(?i)\b(?:fintech|financial technology|payments?|neobank|banking platform)\b`)},
	{"Cybersecurity", regexp.MustCompile(`(?i)\b(?:cyber ?security|infosec|threat detection)\b`)},
	{"Healthcare", regexp.MustCompile(`(?i)\b(?:healthcare|health ?tech|medtech|biotech|medical|pharma)\b`)},
	{"E-commerce", regexp.MustCompile(`(?i)\b(?:e-?commerce|online retail|marketplace)\b`)},
	{"Logistics", regexp.MustCompile(`(?i)\b(?:logistics|supply chain|freight|shipping)\b`)},
	{"Real Estate", regexp.MustCompile(`(?i)\b(?:real estate|proptech|property management)\b`)},
	{"Education", regexp.MustCompile(`(?i)\b(?:edtech|education|e-?learning)\b`)},
	{"Energy", regexp.MustCompile(`(?i)\b(?:renewable|solar|clean ?energy|cleantech|climate tech)\b`)},
	{"Robotics", regexp.MustCompile(`(?i)\b(?:robotics|robots|automation)\b`)},
	{"Manufacturing", regexp.MustCompile(`(?i)\b(?:manufacturing|industrial)\b`)},
	{"Marketing", regexp.MustCompile(`(?i)\b(?:marketing agency|adtech|digital marketing)\b`)},
	{"Consulting", regexp.MustCompile(`(?i)\b(?:consulting|consultancy|advisory)\b`)},
	{"SaaS", regexp.MustCompile(`(?i)\b(?:saas|software[- ]as[- ]a[- ]service|b2b software)\b`)},
	{"Software", regexp.MustCompile(`(?i)\b(?:software|platform|developer tools)\b`)},
}

// ExtractIndustry returns an explicit "Industry:" value or the first
// matching keyword category.
func ExtractIndustry(text string) string {
	if m := explicitIndustry.FindStringSubmatch(text); m != nil {
		if v := strings.Trim(m[1], " ,-"); v != "" {
			return v
		}
	}
	for _, k := range industryKeywords {
		if k.pattern.MatchString(text) {
			return k.label
		}
	}
	return ""
}

const placeWord = `[A-Z][\p{L}'\-]+`

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:[Bb]ased|[Hh]eadquartered|[Ll]ocated|HQ'd)\s+(?:in|out of)\s+(` + placeWord + `(?:[ \t]+` + placeWord + `){0,2}(?:,\s*` + placeWord + `(?:[ \t]+` + placeWord + `){0,2})?)`),
	regexp.MustCompile(`\b(?:[Hh]eadquarters|HQ|[Ll]ocation)\s*:\s*(` + placeWord + `(?:[ \t]+` + placeWord + `){0,2}(?:,\s*` + placeWord + `(?:[ \t]+` + placeWord + `){0,2})?)`),
}

// ExtractLocation returns the place following "based in", "headquartered
// in" and similar phrasings.
func ExtractLocation(text string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(m[1], ".")
		}
	}
	return ""
}

var foundedPattern = regexp.MustCompile(`(?i)\b(?:founded|established|started|launched|since)\s+(?:in\s+)?((?:18|19|20)\d{2})\b`)

// ExtractFoundedYear returns 0 when no plausible year is found.
func ExtractFoundedYear(text string) int {
	m := foundedPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year > time.Now().Year() {
		return 0
	}
	return year
}

const moneyPattern = `([$€£]\s?\d+(?:[.,]\d+)?\s*(?:[MBK]\b|million\b|billion\b|thousand\b|mn\b|bn\b)?)`

var fundingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:raised|raises|secured|secures|closed|closes)\s+(?:an?\s+)?(?:total\s+of\s+|over\s+|more than\s+)?` + moneyPattern),
	regexp.MustCompile(`(?i)` + moneyPattern + `\s+(?:in\s+)?(?:total\s+)?(?:funding|seed|series [a-f]|investment)`),
	regexp.MustCompile(`(?i)\bfunding\s*[:\-]\s*` + moneyPattern),
}

var revenuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brevenues?\s+(?:of\s+|is\s+|was\s+|:\s*|reached\s+|exceeds?\s+)?(?:about\s+|over\s+|approximately\s+|around\s+)?` + moneyPattern),
	regexp.MustCompile(`(?i)` + moneyPattern + `\s+(?:in\s+)?(?:annual\s+|yearly\s+|recurring\s+)?(?:revenue|arr|sales)\b`),
}

var moneySpace = regexp.MustCompile(`^([$€£])\s+`)

func firstMoney(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return moneySpace.ReplaceAllString(strings.TrimSpace(m[1]), "$1")
		}
	}
	return ""
}

// ExtractFunding returns the amount in phrasings like "raised $12M".
func ExtractFunding(text string) string {
	return firstMoney(fundingPatterns, text)
}

// ExtractRevenue returns the amount in phrasings like "revenue of $5M".
func ExtractRevenue(text string) string {
	return firstMoney(revenuePatterns, text)
}
