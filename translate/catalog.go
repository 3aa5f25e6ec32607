package translate

import (
	"golang.org/x/text/language"
)

// catalog holds the translated formats, keyed by their en-US format.
var catalog = map[language.Tag]map[string]string{
	language.German: {
		"instruction address misaligned": "Befehlsadresse nicht ausgerichtet",
		"instruction access fault":       "Zugriffsfehler beim Befehlsabruf",
		"illegal instruction":            "unzulässiger Befehl",
		"breakpoint":                     "Haltepunkt",
		"load address misaligned":        "Ladeadresse nicht ausgerichtet",
		"load access fault":              "Zugriffsfehler beim Laden",
		"store address misaligned":       "Speicheradresse nicht ausgerichtet",
		"store access fault":             "Zugriffsfehler beim Speichern",
		"environment call from U-mode":   "Umgebungsaufruf aus dem U-Modus",
		"environment call from S-mode":   "Umgebungsaufruf aus dem S-Modus",
		"environment call from M-mode":   "Umgebungsaufruf aus dem M-Modus",
		"trap %v, 0x%08x":                "Trap %v, 0x%08x",
		"test failed":                    "Test fehlgeschlagen",
	},
}
