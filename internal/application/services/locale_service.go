package services

import (
	"golang.org/x/text/language"

	"vesteja/internal/domain/valueobjects"
)

var supportedLocales = []valueobjects.Locale{valueobjects.LocalePTBR, valueobjects.LocaleEN}

// LocaleService picks the message locale for a new session from the
// client's Accept-Language header. Brazilian Portuguese wins when nothing
// matches.
type LocaleService struct {
	matcher language.Matcher
}

func NewLocaleService() *LocaleService {
	return &LocaleService{
		matcher: language.NewMatcher([]language.Tag{
			language.BrazilianPortuguese,
			language.English,
		}),
	}
}

func (s *LocaleService) Match(acceptLanguage string) valueobjects.Locale {
	if acceptLanguage == "" {
		return valueobjects.LocalePTBR
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return valueobjects.LocalePTBR
	}
	_, index, confidence := s.matcher.Match(tags...)
	if confidence == language.No {
		return valueobjects.LocalePTBR
	}
	return supportedLocales[index]
}

// Parse accepts an explicit locale such as "en" or "pt-BR" and reports
// whether it is supported.
func (s *LocaleService) Parse(locale string) (valueobjects.Locale, bool) {
	tag, err := language.Parse(locale)
	if err != nil {
		return valueobjects.LocalePTBR, false
	}
	_, index, confidence := s.matcher.Match(tag)
	if confidence == language.No {
		return valueobjects.LocalePTBR, false
	}
	return supportedLocales[index], true
}
