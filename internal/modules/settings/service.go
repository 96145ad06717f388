package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
	"github.com/rs/zerolog"
)

// SettingUpdate is the body of a settings write
type SettingUpdate struct {
	Value interface{} `json:"value"`
}

// Service validates and stores settings and announces changes
type Service struct {
	repo     *Repository
	eventMgr *events.Manager
	log      zerolog.Logger
}

// NewService creates a settings service. eventMgr may be nil.
func NewService(repo *Repository, eventMgr *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventMgr: eventMgr,
		log:      log.With().Str("service", "settings").Logger(),
	}
}

// Repository returns the underlying store
func (s *Service) Repository() *Repository {
	return s.repo
}

// GetAll returns every known setting with defaults filled in and secrets masked
func (s *Service) GetAll() (map[string]interface{}, error) {
	return s.repo.Effective()
}

// Set validates value for key, stores it and emits SETTINGS_CHANGED.
// It returns the normalized stored string.
func (s *Service) Set(key string, value interface{}) (string, error) {
	if !IsKnown(key) {
		return "", domain.NewValidationError(key, "is not a known setting")
	}

	normalized, err := normalize(key, value)
	if err != nil {
		return "", err
	}

	if err := s.repo.Set(key, normalized); err != nil {
		return "", err
	}

	logEvent := s.log.Info().Str("key", key)
	if !IsSecret(key) {
		logEvent = logEvent.Str("value", normalized)
	}
	logEvent.Msg("Setting updated")

	s.eventMgr.EmitTyped("settings", &events.SettingsChangedData{Key: key})
	return normalized, nil
}

// Reset removes a stored value so the default applies again
func (s *Service) Reset(key string) error {
	if !IsKnown(key) {
		return domain.NewValidationError(key, "is not a known setting")
	}
	if err := s.repo.Delete(key); err != nil {
		return err
	}
	s.eventMgr.EmitTyped("settings", &events.SettingsChangedData{Key: key})
	return nil
}

// ReportingCurrency returns the configured reporting currency or fallback
func (s *Service) ReportingCurrency(fallback domain.Currency) domain.Currency {
	value, err := s.repo.GetString(KeyReportingCurrency, string(fallback))
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read reporting currency")
		return fallback
	}
	return domain.ParseCurrency(value)
}

// AccountCurrency returns the currency the cash balance is held in, or fallback
func (s *Service) AccountCurrency(fallback domain.Currency) domain.Currency {
	value, err := s.repo.GetString(KeyAccountCurrency, string(fallback))
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read account currency")
		return fallback
	}
	return domain.ParseCurrency(value)
}

// normalize converts a JSON value to the stored string form and checks it
func normalize(key string, value interface{}) (string, error) {
	var raw string
	switch v := value.(type) {
	case nil:
		return "", domain.NewValidationError(key, "value is required")
	case string:
		raw = strings.TrimSpace(v)
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		raw = strconv.FormatBool(v)
	default:
		raw = strings.TrimSpace(fmt.Sprint(v))
	}

	switch key {
	case KeyInitialCapital:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f <= 0 {
			return "", domain.NewValidationError(key, "must be a positive number")
		}
	case KeyReportingCurrency, KeyAccountCurrency:
		c := domain.ParseCurrency(raw)
		if c != domain.CurrencyCNY && c != domain.CurrencyHKD && c != domain.CurrencyUSD {
			return "", domain.NewValidationError(key, "must be one of CNY, HKD, USD")
		}
		raw = string(c)
	case KeyRiskTopN, KeyBackupRetentionDay:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || n < 1 || n != float64(int(n)) {
			return "", domain.NewValidationError(key, "must be a positive integer")
		}
	case KeyBackupEnabled:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", domain.NewValidationError(key, "must be true or false")
		}
		raw = strconv.FormatBool(b)
	}
	return raw, nil
}
