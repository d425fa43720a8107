// Package i18n holds the translated labels served by the API.
// Portuguese is the default language; English is the only other catalog.
package i18n

import (
	"context"

	"golang.org/x/text/language"
)

const (
	LangPT      = "pt"
	LangEN      = "en"
	DefaultLang = LangPT
)

var supported = []language.Tag{
	language.BrazilianPortuguese, // first entry is the matcher fallback
	language.English,
}

var matcher = language.NewMatcher(supported)

var catalog = map[string]map[string]string{
	LangPT: {
		"role.admin":        "Administrador",
		"role.pastor":       "Pastor",
		"role.secretary":    "Secretário(a)",
		"role.treasurer":    "Tesoureiro(a)",
		"role.leader":       "Líder",
		"role.professional": "Profissional",
		"role.member":       "Membro",

		"module.users":         "Usuários",
		"module.members":       "Membros",
		"module.events":        "Eventos",
		"module.forum":         "Fórum",
		"module.donations":     "Doações",
		"module.finance":       "Financeiro",
		"module.home_page":     "Página inicial",
		"module.assistance":    "Assistência",
		"module.notifications": "Notificações",
		"module.settings":      "Configurações",
		"module.permissions":   "Permissões",
		"module.dashboard":     "Painel",
		"module.reports":       "Relatórios",

		"action.view":   "Visualizar",
		"action.create": "Criar",
		"action.update": "Editar",
		"action.manage": "Gerenciar",
		"action.delete": "Excluir",

		"required":       "Obrigatório",
		"invalid_color":  "Cor inválida",
		"invalid_email":  "E-mail inválido",
		"invalid_key":    "Identificador inválido",
		"invalid_choice": "Opção inválida",
		"out_of_range":   "Fora do intervalo",
		"too_long":       "Muito longo",
	},
	LangEN: {
		"role.admin":        "Administrator",
		"role.pastor":       "Pastor",
		"role.secretary":    "Secretary",
		"role.treasurer":    "Treasurer",
		"role.leader":       "Leader",
		"role.professional": "Professional",
		"role.member":       "Member",

		"module.users":         "Users",
		"module.members":       "Members",
		"module.events":        "Events",
		"module.forum":         "Forum",
		"module.donations":     "Donations",
		"module.finance":       "Finance",
		"module.home_page":     "Home page",
		"module.assistance":    "Assistance",
		"module.notifications": "Notifications",
		"module.settings":      "Settings",
		"module.permissions":   "Permissions",
		"module.dashboard":     "Dashboard",
		"module.reports":       "Reports",

		"action.view":   "View",
		"action.create": "Create",
		"action.update": "Edit",
		"action.manage": "Manage",
		"action.delete": "Delete",

		"required":       "Required",
		"invalid_color":  "Invalid color",
		"invalid_email":  "Invalid email",
		"invalid_key":    "Invalid identifier",
		"invalid_choice": "Invalid choice",
		"out_of_range":   "Out of range",
		"too_long":       "Too long",
	},
}

// DetectLanguage returns the best supported language for an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLang
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLang
	}
	if idx == 1 {
		return LangEN
	}
	return LangPT
}

// Lookup returns the translation for code and whether one exists.
// Unknown languages fall back to the default catalog.
func Lookup(lang, code string) (string, bool) {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[code]; ok {
			return s, true
		}
	}
	if s, ok := catalog[DefaultLang][code]; ok {
		return s, true
	}
	return "", false
}

// T translates code, returning code itself when no translation exists.
func T(lang, code string) string {
	if s, ok := Lookup(lang, code); ok {
		return s
	}
	return code
}

type ctxKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFromContext returns the request language, or the default.
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}
