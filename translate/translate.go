// Package translate renders user facing message text in the host locale.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer *message.Printer

// supported locales, most preferred first.
var supported = []language.Tag{language.AmericanEnglish}

func init() {
	for tag, messages := range catalog {
		supported = append(supported, tag)
		for key, msg := range messages {
			err := message.SetString(tag, key, msg)
			if err != nil {
				log.Printf("rvhart: translate: %v: %v", tag, err)
			}
		}
	}

	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("rvhart: locale: %v", err)
	}

	Use(locales...)
}

// Use selects the message printer for the best matching locale.
// An empty list, or no match, selects en-US.
func Use(locales ...string) {
	tag := supported[0]
	if len(locales) != 0 {
		_, index := language.MatchStrings(language.NewMatcher(supported), locales...)
		tag = supported[index]
	}

	printer = message.NewPrinter(tag)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
