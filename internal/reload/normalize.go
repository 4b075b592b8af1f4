package reload

import "strings"

// Upstream sources still emit a few retired phrasings in the special
// instructions text. They are rewritten to the current wording before the
// record is saved.
var specialInstructionRewrites = []struct {
	old     string
	updated string
}{
	{
		old: "Expanded or Nontraditional hours are available for some services on a routine and " +
			"or requested basis. Please call our main phone number for details.",
		updated: "More hours are available for some services. To learn more, call our main phone number.",
	},
	{
		old: "Vet Center after hours assistance is available by calling 1-877-WAR-VETS " +
			"(1-877-927-8387).",
		updated: "If you need to talk to someone or get advice right away, call the Vet Center " +
			"anytime at 1-877-WAR-VETS (1-877-927-8387).",
	},
	{
		old:     "Administrative hours are Monday-Friday 8:00 a.m. to 4:30 p.m.",
		updated: "Normal business hours are Monday through Friday, 8:00 a.m. to 4:30 p.m.",
	},
}

func normalizeSpecialInstructions(instructions string) string {
	for _, rw := range specialInstructionRewrites {
		instructions = strings.ReplaceAll(instructions, rw.old, rw.updated)
	}
	return instructions
}
