package knowledge

const (
	CoreFileName  = "knowledge_core.md"
	DeltaFileName = "knowledge_delta.md"

	changelogHeading = "## CHANGELOG (APPEND ONLY)"
)

// DefaultCore seeds a missing core tier.
const DefaultCore = "# Knowledge Core\n\n" +
	"## Purpose\n" +
	"- [2026-01-16][RULE][high] Use the catalog as the only source of product facts (SKU/specs/images).\n" +
	"- [2026-01-16][RULE][high] For technical intents, avoid internal handoff phrases unless a contact form is requested.\n\n" +
	"## Synonyms\n" +
	"- [2026-01-16][SYN][medium] \"than giu bec\" => TIP_BODY\n" +
	"- [2026-01-16][SYN][medium] \"cach dien\" => INSULATOR\n" +
	"- [2026-01-16][SYN][medium] \"chup khi\" => NOZZLE\n" +
	"- [2026-01-16][SYN][medium] \"su phan phoi khi\" => ORIFICE\n"

// DefaultDelta seeds a missing delta tier.
const DefaultDelta = "# Knowledge Delta\n\n" + changelogHeading + "\n"
