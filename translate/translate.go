// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate renders the emulator's diagnostics and fault messages
// through a locale-matched message printer.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Fallback is the locale used when the host locale cannot be determined.
const Fallback = "en-US"

var (
	matched language.Tag
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("rvemu: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{Fallback}
	}

	matched = message.MatchLanguage(locales...)
	printer = message.NewPrinter(matched)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Language returns the language the message printer was matched to.
func Language() language.Tag {
	return matched
}
