// Package lore carries the built-in world material used when the
// database has nothing better to offer. The server must stay playable
// even with an empty world_lore table and no archived sessions.
package lore

// DefaultQuest is the quest line a fresh adventure starts with.
const DefaultQuest = "Begin your journey."

// FallbackWorldLore seeds the lore oracle and the narrative prompts
// when no lore document has been loaded into the database.
const FallbackWorldLore = `The world of Aethelgard is a realm of deep forests, forgotten ruins and uneasy magic.

Centuries ago the Sundering shattered the old kingdoms; what remains are scattered holds, wandering orders and roads no longer safe after dark. The Veil between the living world and the Echo, where the dead and the unborn drift, has grown thin. Where it tears, strange creatures slip through and the land itself misremembers its own shape.

Three powers contend over the ruins of the old world. The Emberwatch, a knightly order sworn to mend the Veil, burns what leaks through. The Guild of Quiet Hands trades in relics from before the Sundering and asks no questions. And in the far north, the Pale Court gathers those who believe the Veil should be torn open for good.

Coin is copper and silver; gold is rare enough to start wars. Magic is real but costly, drawn from the Echo at the price of memory. Common folk hang iron charms over their doors and keep their true names for family only.`

// FallbackArchives is shown in place of the archive digest when no
// sessions have been archived yet and the database cannot help.
const FallbackArchives = `No chronicles have been written yet. The shelves of the archive stand empty, waiting for the first adventurer whose story is worth the ink.`
