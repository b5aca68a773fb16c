// Package i18n holds the user-facing copy shown for session errors and
// section views. Dutch is the primary language; English is the fallback.
package i18n

import (
	"github.com/crm/backend/internal/domain/session"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported languages, preferred first
var Supported = []language.Tag{language.Dutch, language.English}

const (
	keyGenericError   = "error.generic"
	keySectionLoading = "section.loading"
	keySectionError   = "section.error"
)

var errorCopy = map[string][2]string{ // code -> {nl, en}
	session.CodeSessionMissing:    {"U bent niet ingelogd.", "You are not signed in."},
	session.CodeSessionExpired:    {"Uw sessie is verlopen. Log opnieuw in.", "Your session has expired. Please sign in again."},
	session.CodeAuthUnavailable:   {"De inlogdienst is tijdelijk niet bereikbaar.", "The sign-in service is temporarily unavailable."},
	session.CodeProfileNotFound:   {"Uw profiel kon niet worden gevonden.", "Your profile could not be found."},
	session.CodeProfileFailed:     {"Uw profiel kon niet worden geladen.", "Your profile could not be loaded."},
	session.CodeProfileInactive:   {"Uw account is gedeactiveerd.", "Your account has been deactivated."},
	session.CodePermissionsFailed: {"Uw rechten konden niet worden geladen.", "Your permissions could not be loaded."},
	session.CodeSectionFailed:     {"Dit onderdeel kon niet worden geladen.", "This section could not be loaded."},
	session.CodeTimeout:           {"Het laden duurde te lang.", "Loading took too long."},
}

var sectionTitles = map[session.SectionName][2]string{
	session.SectionCustomers:        {"Klanten", "Customers"},
	session.SectionProjects:         {"Projecten", "Projects"},
	session.SectionPlanning:         {"Planning", "Planning"},
	session.SectionTimeRegistration: {"Urenregistratie", "Time registration"},
	session.SectionReceipts:         {"Bonnen", "Receipts"},
	session.SectionQuotes:           {"Offertes", "Quotes"},
	session.SectionPersonnel:        {"Personeel", "Personnel"},
	session.SectionUsers:            {"Gebruikers", "Users"},
	session.SectionSettings:         {"Instellingen", "Settings"},
	session.SectionEmail:            {"E-mail", "Email"},
	session.SectionChat:             {"Chat", "Chat"},
}

// Messages resolves localized copy from a message catalog
type Messages struct {
	catalog *catalog.Builder
	matcher language.Matcher
}

// NewMessages builds the catalog for every supported language
func NewMessages() *Messages {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(key, nl, en string) {
		_ = b.SetString(language.Dutch, key, nl)
		_ = b.SetString(language.English, key, en)
	}

	set(keyGenericError, "Er is iets misgegaan. Probeer het opnieuw.", "Something went wrong. Please try again.")
	set(keySectionLoading, "%s wordt geladen...", "Loading %s...")
	set(keySectionError, "%s kon niet worden geladen.", "%s could not be loaded.")
	for code, text := range errorCopy {
		set(errorKey(code), text[0], text[1])
	}
	for name, titles := range sectionTitles {
		set(sectionKey(name), titles[0], titles[1])
	}

	return &Messages{catalog: b, matcher: language.NewMatcher(Supported)}
}

// Match picks the supported language for an Accept-Language header value.
// An empty or unparsable header selects Dutch.
func (m *Messages) Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return language.Dutch
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return language.Dutch
	}
	_, idx, conf := m.matcher.Match(prefs...)
	if conf == language.No {
		return language.Dutch
	}
	return Supported[idx]
}

func (m *Messages) printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(m.catalog))
}

// ErrorMessage returns the friendly message for an error code. Unknown codes
// get the generic message.
func (m *Messages) ErrorMessage(tag language.Tag, code string) string {
	p := m.printer(tag)
	if _, ok := errorCopy[code]; !ok {
		return p.Sprintf(keyGenericError)
	}
	return p.Sprintf(errorKey(code))
}

// SectionTitle returns the display title of a section
func (m *Messages) SectionTitle(tag language.Tag, name session.SectionName) string {
	if _, ok := sectionTitles[name]; !ok {
		return cases.Title(tag).String(string(name))
	}
	return m.printer(tag).Sprintf(sectionKey(name))
}

// SectionLoading returns the placeholder text shown while a section loads
func (m *Messages) SectionLoading(tag language.Tag, name session.SectionName) string {
	return m.printer(tag).Sprintf(keySectionLoading, m.SectionTitle(tag, name))
}

// SectionError returns the text shown when a section failed to load
func (m *Messages) SectionError(tag language.Tag, name session.SectionName) string {
	return m.printer(tag).Sprintf(keySectionError, m.SectionTitle(tag, name))
}

func errorKey(code string) string { return "error." + code }

func sectionKey(name session.SectionName) string { return "section.title." + string(name) }
