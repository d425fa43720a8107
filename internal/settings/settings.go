// Package settings owns the church-wide settings document.
package settings

import (
	"fmt"

	"github.com/diewo77/go-church/internal/validation"
)

// Collection is the document store collection holding settings.
const Collection = "settings"

type About struct {
	Mission string `json:"mission"`
	Vision  string `json:"vision"`
	History string `json:"history"`
	Values  string `json:"values"`
}

type BankAccount struct {
	Bank    string `json:"bank"`
	Agency  string `json:"agency"`
	Account string `json:"account"`
	Holder  string `json:"holder"`
	PixKey  string `json:"pixKey"`
}

// NotificationToggles switch church-wide notification triggers.
type NotificationToggles struct {
	NewEvents        bool `json:"newEvents"`
	EventReminders   bool `json:"eventReminders"`
	NewForumPosts    bool `json:"newForumPosts"`
	DonationReceipts bool `json:"donationReceipts"`
	Assistance       bool `json:"assistance"`
	Announcements    bool `json:"announcements"`
}

type EventConfirmation struct {
	Required          bool `json:"required"`
	DeadlineHours     int  `json:"deadlineHours"`
	AllowCancellation bool `json:"allowCancellation"`
	MaxCompanions     int  `json:"maxCompanions"`
}

// Settings is the effective settings document. Every field has a default.
type Settings struct {
	ChurchName        string              `json:"churchName"`
	Slogan            string              `json:"slogan"`
	Email             string              `json:"email"`
	Phone             string              `json:"phone"`
	Website           string              `json:"website"`
	Address           string              `json:"address"`
	LogoURL           string              `json:"logoUrl"`
	PrimaryColor      string              `json:"primaryColor"`
	SecondaryColor    string              `json:"secondaryColor"`
	About             About               `json:"about"`
	BankAccount       BankAccount         `json:"bankAccount"`
	Notifications     NotificationToggles `json:"notifications"`
	EventConfirmation EventConfirmation   `json:"eventConfirmation"`
}

// Defaults returns the full default settings.
func Defaults() Settings {
	return Settings{
		ChurchName:     "Minha Igreja",
		Slogan:         "Uma comunidade de fé, esperança e amor",
		PrimaryColor:   "#1E1E1E",
		SecondaryColor: "#C9A227",
		About: About{
			Mission: "Anunciar o evangelho e servir a comunidade.",
			Vision:  "Ser uma igreja acolhedora e presente na cidade.",
			History: "",
			Values:  "Fé, amor, serviço e comunhão.",
		},
		Notifications: NotificationToggles{
			NewEvents:        true,
			EventReminders:   true,
			NewForumPosts:    false,
			DonationReceipts: true,
			Assistance:       true,
			Announcements:    true,
		},
		EventConfirmation: EventConfirmation{
			Required:          false,
			DeadlineHours:     24,
			AllowCancellation: true,
			MaxCompanions:     2,
		},
	}
}

// Validate checks a settings value before it is written.
func Validate(s Settings) error {
	v := validation.Violations{}
	validation.Required("churchName", s.ChurchName, v)
	validation.MaxLen("churchName", s.ChurchName, 120, v)
	validation.MaxLen("slogan", s.Slogan, 255, v)
	validation.Email("email", s.Email, v)
	validation.HexColor("primaryColor", s.PrimaryColor, v)
	validation.HexColor("secondaryColor", s.SecondaryColor, v)
	validation.RangeInt("eventConfirmation.deadlineHours", s.EventConfirmation.DeadlineHours, 0, 24*30, v)
	validation.RangeInt("eventConfirmation.maxCompanions", s.EventConfirmation.MaxCompanions, 0, 20, v)
	if !v.Empty() {
		return fmt.Errorf("%w: %w", ErrInvalid, v)
	}
	return nil
}
