package config

import (
	"time"

	"github.com/rs/zerolog"
	"github/chapool/yield-vault/internal/util"
	"golang.org/x/text/language"
)

type EchoServer struct {
	Debug                          bool
	ListenAddress                  string
	HideInternalServerErrorDetails bool
	BaseURL                        string
	EnableCORSMiddleware           bool
	EnableLoggerMiddleware         bool
	EnableRecoverMiddleware        bool
	EnableRequestIDMiddleware      bool
	EnableTrailingSlashMiddleware  bool
	EnableSecureMiddleware         bool
	EnablePrometheusMiddleware     bool
	// APISecret guards /api/v1/vault, sent as bearer token or api-key query parameter.
	APISecret string `json:"-"` // sensitive
	// AllowedOrigins for CORS and the websocket stream. If empty, CORS allows any
	// origin and the stream only the same origin.
	AllowedOrigins []string
}

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	LogRequestBody     bool
	LogRequestHeader   bool
	LogRequestQuery    bool
	LogResponseBody    bool
	LogResponseHeader  bool
	LogCaller          bool
	PrettyPrintConsole bool
}

type ManagementServer struct {
	Secret                  string `json:"-"` // sensitive
	ReadinessTimeout        time.Duration
	LivenessTimeout         time.Duration
	ProbeWriteablePathsAbs  []string
	ProbeWriteableTouchfile string
}

// Chain holds the JSON-RPC endpoints. The first URL is primary, the rest are failover.
type Chain struct {
	RPCURLs         []string
	ExpectedChainID int64
	RequestTimeout  time.Duration
}

type Vault struct {
	VaultAddress      string
	UnderlyingAddress string
}

// Wallet selects the signing key. Precedence: PrivateKey, Mnemonic, KeystoreFile.
type Wallet struct {
	PrivateKey       string `json:"-"` // sensitive
	Mnemonic         string `json:"-"` // sensitive
	MnemonicPassword string `json:"-"` // sensitive
	DerivationPath   string
	KeystoreFile     string
	KeystorePassword string `json:"-"` // sensitive
	Account          string
}

type Workflow struct {
	// 0 derives the threshold from the chain id.
	ConfirmationThreshold uint64
	WatchEnabled          bool
	WatchInterval         time.Duration
	ReceiptPollInterval   time.Duration
	GasLimitBufferPercent uint64
}

type Database struct {
	Enabled          bool
	Host             string
	Port             int
	Username         string
	Password         string `json:"-"` // sensitive
	Database         string
	AdditionalParams map[string]string `json:",omitempty"`
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

type NATS struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

type I18n struct {
	DefaultLanguage language.Tag
	BundleDirAbs    string
}

type PrometheusServer struct {
	VaultMetrics bool
}

var logLevels = []string{
	zerolog.TraceLevel.String(),
	zerolog.DebugLevel.String(),
	zerolog.InfoLevel.String(),
	zerolog.WarnLevel.String(),
	zerolog.ErrorLevel.String(),
	zerolog.FatalLevel.String(),
	zerolog.PanicLevel.String(),
	zerolog.Disabled.String(),
}

type Server struct {
	Database   Database
	Echo       EchoServer
	Logger     LoggerServer
	Management ManagementServer
	Chain      Chain
	Vault      Vault
	Wallet     Wallet
	Workflow   Workflow
	NATS       NATS
	I18n       I18n
	Prometheus PrometheusServer
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// We don't expect that ENV_VARs change while we are running our application or our tests
// (and it would be a bad thing to do anyways with parallel testing).
// Do NOT use os.Setenv / os.Unsetenv in tests utilizing DefaultServiceConfigFromEnv()!
func DefaultServiceConfigFromEnv() Server {
	// An `.env.local` file in your project root can override the currently set ENV variables.
	//
	// We never automatically apply `.env.local` when running "go test" as these ENV variables
	// may be sensitive (e.g. secrets to external APIs) and applying them modifies the process
	// global "os.Env" state (it should be applied via t.Setenv instead).
	if !runningInTest() {
		loadDotEnvLocal()
	}

	return Server{
		Database: Database{
			Enabled:  util.GetEnvAsBool("PGENABLED", false),
			Host:     util.GetEnv("PGHOST", "postgres"),
			Port:     util.GetEnvAsInt("PGPORT", 5432),
			Database: util.GetEnv("PGDATABASE", "development"),
			Username: util.GetEnv("PGUSER", "dbuser"),
			Password: util.GetEnv("PGPASSWORD", ""),
			AdditionalParams: map[string]string{
				"sslmode": util.GetEnv("PGSSLMODE", "disable"),
			},
			MaxOpenConns:    util.GetEnvAsInt("DB_MAX_OPEN_CONNS", 8),
			MaxIdleConns:    util.GetEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: time.Second * time.Duration(util.GetEnvAsInt("DB_CONN_MAX_LIFETIME_SEC", 60)),
		},
		Echo: EchoServer{
			Debug:                          util.GetEnvAsBool("SERVER_ECHO_DEBUG", false),
			ListenAddress:                  util.GetEnv("SERVER_ECHO_LISTEN_ADDRESS", ":8080"),
			HideInternalServerErrorDetails: util.GetEnvAsBool("SERVER_ECHO_HIDE_INTERNAL_SERVER_ERROR_DETAILS", true),
			BaseURL:                        util.GetEnv("SERVER_ECHO_BASE_URL", "http://localhost:8080"),
			EnableCORSMiddleware:           util.GetEnvAsBool("SERVER_ECHO_ENABLE_CORS_MIDDLEWARE", true),
			EnableLoggerMiddleware:         util.GetEnvAsBool("SERVER_ECHO_ENABLE_LOGGER_MIDDLEWARE", true),
			EnableRecoverMiddleware:        util.GetEnvAsBool("SERVER_ECHO_ENABLE_RECOVER_MIDDLEWARE", true),
			EnableRequestIDMiddleware:      util.GetEnvAsBool("SERVER_ECHO_ENABLE_REQUEST_ID_MIDDLEWARE", true),
			EnableTrailingSlashMiddleware:  util.GetEnvAsBool("SERVER_ECHO_ENABLE_TRAILING_SLASH_MIDDLEWARE", true),
			EnableSecureMiddleware:         util.GetEnvAsBool("SERVER_ECHO_ENABLE_SECURE_MIDDLEWARE", true),
			EnablePrometheusMiddleware:     util.GetEnvAsBool("SERVER_ECHO_ENABLE_PROMETHEUS_MIDDLEWARE", true),
			APISecret:                      util.GetSecret("SERVER_ECHO_API_SECRET"),
			AllowedOrigins:                 util.GetEnvAsStringArr("SERVER_ECHO_ALLOWED_ORIGINS", []string{}),
		},
		Logger: LoggerServer{
			Level:              util.LogLevelFromString(util.GetEnvEnum("SERVER_LOGGER_LEVEL", zerolog.DebugLevel.String(), logLevels)),
			RequestLevel:       util.LogLevelFromString(util.GetEnvEnum("SERVER_LOGGER_REQUEST_LEVEL", zerolog.DebugLevel.String(), logLevels)),
			LogRequestBody:     util.GetEnvAsBool("SERVER_LOGGER_LOG_REQUEST_BODY", false),
			LogRequestHeader:   util.GetEnvAsBool("SERVER_LOGGER_LOG_REQUEST_HEADER", false),
			LogRequestQuery:    util.GetEnvAsBool("SERVER_LOGGER_LOG_REQUEST_QUERY", false),
			LogResponseBody:    util.GetEnvAsBool("SERVER_LOGGER_LOG_RESPONSE_BODY", false),
			LogResponseHeader:  util.GetEnvAsBool("SERVER_LOGGER_LOG_RESPONSE_HEADER", false),
			LogCaller:          util.GetEnvAsBool("SERVER_LOGGER_LOG_CALLER", false),
			PrettyPrintConsole: util.GetEnvAsBool("SERVER_LOGGER_PRETTY_PRINT_CONSOLE", false),
		},
		Management: ManagementServer{
			Secret:                  util.GetMgmtSecret("SERVER_MANAGEMENT_SECRET"),
			ReadinessTimeout:        time.Second * time.Duration(util.GetEnvAsInt("SERVER_MANAGEMENT_READINESS_TIMEOUT_SEC", 4)),
			LivenessTimeout:         time.Second * time.Duration(util.GetEnvAsInt("SERVER_MANAGEMENT_LIVENESS_TIMEOUT_SEC", 8)),
			ProbeWriteablePathsAbs:  util.GetEnvAsStringArr("SERVER_MANAGEMENT_PROBE_WRITEABLE_PATHS_ABS", []string{}),
			ProbeWriteableTouchfile: util.GetEnv("SERVER_MANAGEMENT_PROBE_WRITEABLE_TOUCHFILE", ".healthy"),
		},
		Chain: Chain{
			RPCURLs:         util.GetEnvAsStringArr("CHAIN_RPC_URLS", []string{"http://127.0.0.1:8545"}),
			ExpectedChainID: util.GetEnvAsInt64("CHAIN_EXPECTED_CHAIN_ID", 0),
			RequestTimeout:  util.GetEnvAsDuration("CHAIN_REQUEST_TIMEOUT", 15*time.Second),
		},
		Vault: Vault{
			VaultAddress:      util.GetEnv("VAULT_ADDRESS", ""),
			UnderlyingAddress: util.GetEnv("VAULT_UNDERLYING_ADDRESS", ""),
		},
		Wallet: Wallet{
			PrivateKey:       util.GetEnv("WALLET_PRIVATE_KEY", ""),
			Mnemonic:         util.GetEnv("WALLET_MNEMONIC", ""),
			MnemonicPassword: util.GetEnv("WALLET_MNEMONIC_PASSWORD", ""),
			DerivationPath:   util.GetEnv("WALLET_DERIVATION_PATH", "m/44'/60'/0'/0/0"),
			KeystoreFile:     util.GetEnv("WALLET_KEYSTORE_FILE", ""),
			KeystorePassword: util.GetEnv("WALLET_KEYSTORE_PASSWORD", ""),
			Account:          util.GetEnv("WALLET_ACCOUNT", ""),
		},
		Workflow: Workflow{
			ConfirmationThreshold: uint64(util.GetEnvAsInt64("WORKFLOW_CONFIRMATION_THRESHOLD", 0)), //nolint:gosec
			WatchEnabled:          util.GetEnvAsBool("WORKFLOW_WATCH_ENABLED", true),
			WatchInterval:         util.GetEnvAsDuration("WORKFLOW_WATCH_INTERVAL", 4*time.Second),
			ReceiptPollInterval:   util.GetEnvAsDuration("WORKFLOW_RECEIPT_POLL_INTERVAL", 2*time.Second),
			GasLimitBufferPercent: uint64(util.GetEnvAsInt64("WORKFLOW_GAS_LIMIT_BUFFER_PERCENT", 20)), //nolint:gosec
		},
		NATS: NATS{
			Enabled:       util.GetEnvAsBool("NATS_ENABLED", false),
			URL:           util.GetEnv("NATS_URL", "nats://127.0.0.1:4222"),
			SubjectPrefix: util.GetEnv("NATS_SUBJECT_PREFIX", "vault.workflow"),
		},
		I18n: I18n{
			DefaultLanguage: util.GetEnvAsLanguageTag("SERVER_I18N_DEFAULT_LANGUAGE", language.English),
			BundleDirAbs:    util.GetEnv("SERVER_I18N_BUNDLE_DIR_ABS", ""),
		},
		Prometheus: PrometheusServer{
			VaultMetrics: util.GetEnvAsBool("SERVER_PROMETHEUS_VAULT_METRICS", true),
		},
	}
}
