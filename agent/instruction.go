package agent

import (
	"regexp"
	"strings"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	separatorRuns = regexp.MustCompile(`[-_]+`)
)

// ParseInstruction converts an email address's local-part into a
// natural-language task instruction:
//
//	"write-haiku-about-cats" -> "write haiku about cats"
//	"explainLikeImFive"      -> "explain like im five"
//	"WRITE_NOW"              -> "write now"
//
// Inputs with no separators at all ("writehaikuaboutcats") stay a single
// token; that is a documented limitation, not something to fix up.
func ParseInstruction(address string) string {
	localPart := strings.SplitN(address, "@", 2)[0]

	instruction := camelBoundary.ReplaceAllString(localPart, "$1 $2")
	instruction = separatorRuns.ReplaceAllString(instruction, " ")
	instruction = strings.TrimSpace(instruction)

	return strings.ToLower(instruction)
}

// InstructionDisplayName title-cases an instruction into an agent display
// name: "write haiku about cats" -> "Write Haiku About Cats Agent"
func InstructionDisplayName(instruction string) string {
	if instruction == "" {
		return "Meta Agent"
	}

	words := strings.Fields(instruction)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ") + " Agent"
}
