package settings

import (
	"testing"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_SetValidatesAndEmits(t *testing.T) {
	bus := events.NewBus(16)
	ch, cancel := bus.Subscribe()
	defer cancel()
	svc := NewService(setupRepo(t), events.NewManager(bus, zerolog.Nop()), zerolog.Nop())

	stored, err := svc.Set(KeyInitialCapital, 250000.0)
	require.NoError(t, err)
	assert.Equal(t, "250000", stored)

	event := <-ch
	assert.Equal(t, events.SettingsChanged, event.Type)
	assert.Equal(t, KeyInitialCapital, event.Data["key"])

	capital, err := svc.Repository().InitialCapital()
	require.NoError(t, err)
	assert.Equal(t, 250000.0, capital)

	stored, err = svc.Set(KeyReportingCurrency, " usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", stored)
	assert.Equal(t, domain.CurrencyUSD, svc.ReportingCurrency(domain.CurrencyCNY))

	assert.Equal(t, domain.CurrencyCNY, svc.AccountCurrency(domain.CurrencyCNY))
	stored, err = svc.Set(KeyAccountCurrency, "hkd")
	require.NoError(t, err)
	assert.Equal(t, "HKD", stored)
	assert.Equal(t, domain.CurrencyHKD, svc.AccountCurrency(domain.CurrencyCNY))

	stored, err = svc.Set(KeyBackupEnabled, true)
	require.NoError(t, err)
	assert.Equal(t, "true", stored)
}

func TestService_SetRejects(t *testing.T) {
	svc := NewService(setupRepo(t), nil, zerolog.Nop())

	testCases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"unknown key", "display_mode", "led"},
		{"nil value", KeyInitialCapital, nil},
		{"negative capital", KeyInitialCapital, -5.0},
		{"text capital", KeyInitialCapital, "lots"},
		{"unknown currency", KeyReportingCurrency, "EUR"},
		{"unknown account currency", KeyAccountCurrency, "EUR"},
		{"fractional top n", KeyRiskTopN, 2.5},
		{"zero retention", KeyBackupRetentionDay, 0.0},
		{"bad bool", KeyBackupEnabled, "maybe"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Set(tc.key, tc.value)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}
}

func TestService_Reset(t *testing.T) {
	svc := NewService(setupRepo(t), nil, zerolog.Nop())

	_, err := svc.Set(KeyReportingCurrency, "HKD")
	require.NoError(t, err)
	require.NoError(t, svc.Reset(KeyReportingCurrency))
	assert.Equal(t, domain.CurrencyCNY, svc.ReportingCurrency(domain.CurrencyCNY))

	assert.Error(t, svc.Reset("nope"))
}
