// Package i18n translates the fixed set of client-facing error messages.
//
// English is the default; Spanish is picked when the Accept-Language header
// prefers it.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	NotAuthenticated   = "not authenticated"
	InvalidToken       = "invalid or expired token"
	InvalidCredentials = "invalid credentials"
	EmailTaken         = "email already registered"
	NotFound           = "not found"
	InternalError      = "internal error"
	InvalidData        = "invalid data"
	TooManyRequests    = "too many requests"
	MethodNotAllowed   = "method not allowed"
)

var supported = []language.Tag{language.English, language.Spanish}

var (
	matcher = language.NewMatcher(supported)
	cat     = mustBuildCatalog()
)

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	translations := map[language.Tag]map[string]string{
		language.English: {
			NotAuthenticated:   NotAuthenticated,
			InvalidToken:       InvalidToken,
			InvalidCredentials: InvalidCredentials,
			EmailTaken:         EmailTaken,
			NotFound:           NotFound,
			InternalError:      InternalError,
			InvalidData:        InvalidData,
			TooManyRequests:    TooManyRequests,
			MethodNotAllowed:   MethodNotAllowed,
		},
		language.Spanish: {
			NotAuthenticated:   "No autenticado",
			InvalidToken:       "Token inválido o expirado",
			InvalidCredentials: "Credenciales inválidas",
			EmailTaken:         "Email ya registrado",
			NotFound:           "No encontrado",
			InternalError:      "Error interno",
			InvalidData:        "Datos inválidos",
			TooManyRequests:    "Demasiadas solicitudes",
			MethodNotAllowed:   "Método no permitido",
		},
	}
	for tag, msgs := range translations {
		for key, text := range msgs {
			if err := b.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Match picks the best supported language for an Accept-Language value.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := matcher.Match(tags...)
	return supported[idx]
}

// Translate returns key in the language preferred by acceptLanguage.
func Translate(acceptLanguage, key string) string {
	return message.NewPrinter(Match(acceptLanguage), message.Catalog(cat)).Sprintf(key)
}
