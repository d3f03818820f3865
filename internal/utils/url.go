package utils

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	urlRegex       = regexp.MustCompile(`https?://[^\s<>|]+`)
	inviteRegex    = regexp.MustCompile(`(?i)discord(?:(?:(?:app)?\.com|:/(?:/-?)?)/invite|\.gg(?:/invite)?)/([\w-]{2,255})`)
	botInviteRegex = regexp.MustCompile(`(?i)discord(?:app)?\.com/(?:(?:api/)?oauth2/authorize/?\?\S*client_id=(\d{17,20})|application-directory/(\d{17,20}))`)
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// ExtractInviteCodes returns the distinct invite codes in content, in order of
// first appearance.
func ExtractInviteCodes(content string) []string {
	return uniqueGroups(inviteRegex.FindAllStringSubmatch(content, -1))
}

// ExtractBotInvites returns the distinct application IDs of bot authorization
// and app directory links in content.
func ExtractBotInvites(content string) []string {
	return uniqueGroups(botInviteRegex.FindAllStringSubmatch(content, -1))
}

func uniqueGroups(matches [][]string) []string {
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, match := range matches {
		for _, group := range match[1:] {
			if group == "" {
				continue
			}
			if _, ok := seen[group]; ok {
				continue
			}
			seen[group] = struct{}{}
			out = append(out, group)
		}
	}
	return out
}

// HostMatches reports whether host is domain or one of its subdomains.
func HostMatches(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func NormalizeURL(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}

func DomainMatch(domain string, allowlist, blocklist map[string]struct{}) (allowed bool, blocked bool) {
	domain = strings.ToLower(domain)
	if _, ok := allowlist[domain]; ok {
		return true, false
	}
	if _, ok := blocklist[domain]; ok {
		return false, true
	}
	return false, false
}
