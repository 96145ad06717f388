package settings

// Setting keys
const (
	KeyInitialCapital     = "initial_capital"
	KeyReportingCurrency  = "reporting_currency"
	KeyAccountCurrency    = "account_currency"
	KeyRiskTopN           = "risk_top_n"
	KeyBackupEnabled      = "backup_enabled"
	KeyBackupEndpoint     = "backup_endpoint"
	KeyBackupRegion       = "backup_region"
	KeyBackupBucket       = "backup_bucket"
	KeyBackupAccessKeyID  = "backup_access_key_id"
	KeyBackupSecretKey    = "backup_secret_access_key"
	KeyBackupRetentionDay = "backup_retention_days"
)

// DefaultInitialCapital is the baseline for cumulative return and the
// realized-PnL equity curve when no setting is stored
const DefaultInitialCapital = 100000.0

// SettingDefaults holds the default value of every known setting
var SettingDefaults = map[string]interface{}{
	KeyInitialCapital:     DefaultInitialCapital,
	KeyReportingCurrency:  "CNY",
	KeyAccountCurrency:    "CNY",
	KeyRiskTopN:           10.0,
	KeyBackupEnabled:      false,
	KeyBackupEndpoint:     "",
	KeyBackupRegion:       "auto",
	KeyBackupBucket:       "",
	KeyBackupAccessKeyID:  "",
	KeyBackupSecretKey:    "",
	KeyBackupRetentionDay: 30.0,
}

// secretKeys are masked when settings are listed
var secretKeys = map[string]bool{
	KeyBackupAccessKeyID: true,
	KeyBackupSecretKey:   true,
}

// IsKnown reports whether key has a registered default
func IsKnown(key string) bool {
	_, ok := SettingDefaults[key]
	return ok
}

// IsSecret reports whether key holds a credential
func IsSecret(key string) bool {
	return secretKeys[key]
}
