package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Windi-Fikriyansyah/topup_be/internal/models"
)

var (
	phonePattern   = regexp.MustCompile(`^08\d{8,12}$`)
	numericPattern = regexp.MustCompile(`^\d+$`)
)

type idRule struct {
	label    string
	format   models.IDFormat
	min, max int
}

func (r idRule) check(value string) string {
	if value == "" {
		return r.label + " wajib diisi"
	}
	n := utf8.RuneCountInString(value)
	if r.min > 0 && n < r.min {
		return fmt.Sprintf("%s minimal %d karakter", r.label, r.min)
	}
	if r.max > 0 && n > r.max {
		return fmt.Sprintf("%s maksimal %d karakter", r.label, r.max)
	}
	if r.format == models.FormatNumeric && !numericPattern.MatchString(value) {
		return r.label + " hanya boleh berisi angka"
	}
	return ""
}

// checkGameIDs validates game and server ids against the product's
// effective config. A nil config requires nothing.
func checkGameIDs(cfg *models.GameIDConfig, gameID, serverID string, errs FieldErrors) {
	if cfg == nil {
		return
	}
	if cfg.RequiresGameID {
		rule := idRule{label: labelOr(cfg.GameIDLabel, "Game ID"), format: cfg.GameIDFormat, min: cfg.GameIDMinLength, max: cfg.GameIDMaxLength}
		if msg := rule.check(gameID); msg != "" {
			errs.Add("game_id", msg)
		}
	}
	if cfg.RequiresServerID {
		rule := idRule{label: labelOr(cfg.ServerIDLabel, "Server ID"), format: cfg.ServerIDFormat, min: cfg.ServerIDMinLength, max: cfg.ServerIDMaxLength}
		if msg := rule.check(serverID); msg != "" {
			errs.Add("server_id", msg)
		}
	}
}

func checkPhone(phone string, errs FieldErrors) {
	switch {
	case phone == "":
		errs.Add("user_phone", "Nomor HP wajib diisi")
	case !phonePattern.MatchString(phone):
		errs.Add("user_phone", "Format nomor HP tidak valid (contoh: 081234567890)")
	}
}

func labelOr(label, def string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return def
}
