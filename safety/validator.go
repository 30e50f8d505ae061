// Package safety gates dynamic agent requests. The recipient address of a
// dynamic agent becomes instruction text fed into prompt synthesis, which
// makes it attacker-controlled; fixed agents have baked-in prompts and do
// not need this check.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Result of a safety check
type Result struct {
	Safe   bool
	Reason string
}

var unsafeAddressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`password`),
	regexp.MustCompile(`hack`),
	regexp.MustCompile(`exploit`),
	regexp.MustCompile(`malware`),
	regexp.MustCompile(`phishing`),
	regexp.MustCompile(`spam`),
	regexp.MustCompile(`illegal`),
	regexp.MustCompile(`weapon`),
	regexp.MustCompile(`drug`),
	regexp.MustCompile(`bomb`),
	regexp.MustCompile(`terror`),
	regexp.MustCompile(`steal`),
	regexp.MustCompile(`fraud`),
	regexp.MustCompile(`scam`),
	regexp.MustCompile(`attack`),
	regexp.MustCompile(`bypass`),
	regexp.MustCompile(`inject`),
	regexp.MustCompile(`ddos`),
	regexp.MustCompile(`ransomware`),
	regexp.MustCompile(`keylog`),
	regexp.MustCompile(`\bchild\b`),
	regexp.MustCompile(`\bporn\b`),
	regexp.MustCompile(`\bnude\b`),
	regexp.MustCompile(`\bsex\b`),
}

var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions?`),
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?prior\s+instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)override\s+system`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)pretend\s+you\s+are`),
	regexp.MustCompile(`(?i)act\s+as\s+if\s+you`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)dan\s+mode`),
	regexp.MustCompile(`(?i)developer\s+mode`),
}

// ValidateAddress checks the local-part of an address against the blocklist.
// First match wins; the reason names the matched term.
func ValidateAddress(address string) Result {
	localPart := strings.ToLower(strings.SplitN(address, "@", 2)[0])

	for _, pattern := range unsafeAddressPatterns {
		if match := pattern.FindString(localPart); match != "" {
			return Result{
				Safe:   false,
				Reason: fmt.Sprintf("Address contains blocked term: %q", match),
			}
		}
	}

	return Result{Safe: true}
}

// ValidateBody checks the message body for prompt injection phrasings
func ValidateBody(body string) Result {
	for _, pattern := range promptInjectionPatterns {
		if pattern.MatchString(body) {
			return Result{
				Safe:   false,
				Reason: "Message contains prompt injection attempt",
			}
		}
	}

	return Result{Safe: true}
}

// ValidateRequest checks address then body; an address failure is reported
// before the body is even checked.
func ValidateRequest(address, body string) Result {
	if result := ValidateAddress(address); !result.Safe {
		return result
	}
	if result := ValidateBody(body); !result.Safe {
		return result
	}
	return Result{Safe: true}
}

// BlockedResponseMessage is the user-facing rejection text for blocked requests
func BlockedResponseMessage(reason string) string {
	return fmt.Sprintf(`I'm sorry, but I cannot process this request.

Your message was blocked by our safety filters: %s

If you believe this is an error, please contact support or try rephrasing your request.

Best regards,
Mail-to-AI Safety System`, reason)
}
