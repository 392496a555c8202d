package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "regulus/pkg/platform/strings"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	// OpsToken guards /metrics. Empty leaves it open.
	OpsToken string

	DatabaseURL    string
	DatabaseDriver string

	Redis    RedisConfig
	Kafka    KafkaConfig
	Audit    AuditConfig
	Policy   PolicyConfig
	StepUp   StepUpConfig
	Workflow WorkflowConfig
	Session  SessionConfig

	// SeedPath is a YAML file seeding the simulated registry, inspectors
	// and enrolled second factors.
	SeedPath string

	// EncryptionKeys holds base64 AES-256 keys by version, "v1:base64,v2:base64".
	// The highest version encrypts; every version decrypts.
	EncryptionKeys string
}

// RedisConfig configures the optional Redis backend for DLP counters and
// challenge storage. An empty URL keeps both in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the ledger anchor and notification topics.
// Empty Brokers disables both adapters.
type KafkaConfig struct {
	Brokers           []string
	LedgerTopic       string
	NotificationTopic string
	ClientID          string
	ConsumerGroup     string
}

// AuditConfig tunes the audit batch queue.
type AuditConfig struct {
	FlushInterval time.Duration
	BatchSize     int
}

// PolicyConfig locates the DLP policy file.
type PolicyConfig struct {
	DLPPolicyPath string
	WatchDLP      bool
}

// StepUpConfig configures challenge lifetimes and step-up proofs.
type StepUpConfig struct {
	ChallengeTTL    time.Duration
	MaxAttempts     int
	ProofTTL        time.Duration
	ProofSigningKey string
	SweepInterval   time.Duration
}

// WorkflowConfig bounds workflow step execution and sets step fees.
type WorkflowConfig struct {
	StepTimeout     time.Duration
	OnboardingFee   int64
	RenewalFee      int64
	Currency        string
	MinCPDCredits   int
	BulkConcurrency int
	// RecoverOnStart fails instances left with a pending step by a crash.
	RecoverOnStart bool
}

// SessionConfig verifies the bearer tokens issued by the identity provider
// in front of the engine.
type SessionConfig struct {
	SigningKey string
	Issuer     string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	proofKey := os.Getenv("STEPUP_PROOF_KEY")
	if proofKey == "" {
		// Use a default for development - should be overridden in production
		proofKey = "dev-stepup-key-change-in-production"
	}

	sessionKey := os.Getenv("SESSION_SIGNING_KEY")
	if sessionKey == "" {
		sessionKey = "dev-session-key-change-in-production"
	}

	return Server{
		Addr:           getEnv("REGULUS_ADDR", ":8080"),
		Environment:    getEnv("REGULUS_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		OpsToken:       os.Getenv("OPS_TOKEN"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		EncryptionKeys: os.Getenv("ENCRYPTION_KEYS"),
		SeedPath:       os.Getenv("SIMULATOR_SEED_PATH"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(os.Getenv("KAFKA_BROKERS")),
			LedgerTopic:       getEnv("KAFKA_LEDGER_TOPIC", "regulus.ledger.anchors"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "regulus.notifications"),
			ClientID:          getEnv("KAFKA_CLIENT_ID", "regulus"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "regulus-auditctl"),
		},
		Audit: AuditConfig{
			FlushInterval: getDuration("AUDIT_FLUSH_INTERVAL", 30*time.Second),
			BatchSize:     getInt("AUDIT_BATCH_SIZE", 100),
		},
		Policy: PolicyConfig{
			DLPPolicyPath: os.Getenv("DLP_POLICY_PATH"),
			WatchDLP:      getBool("DLP_POLICY_WATCH", true),
		},
		StepUp: StepUpConfig{
			ChallengeTTL:    getDuration("STEPUP_CHALLENGE_TTL", 5*time.Minute),
			MaxAttempts:     getInt("STEPUP_MAX_ATTEMPTS", 3),
			ProofTTL:        getDuration("STEPUP_PROOF_TTL", 5*time.Minute),
			ProofSigningKey: proofKey,
			SweepInterval:   getDuration("STEPUP_SWEEP_INTERVAL", time.Minute),
		},
		Workflow: WorkflowConfig{
			StepTimeout:     getDuration("WORKFLOW_STEP_TIMEOUT", 30*time.Second),
			OnboardingFee:   getInt64("WORKFLOW_ONBOARDING_FEE", 150_000),
			RenewalFee:      getInt64("WORKFLOW_RENEWAL_FEE", 50_000),
			Currency:        getEnv("WORKFLOW_CURRENCY", "KES"),
			MinCPDCredits:   getInt("WORKFLOW_MIN_CPD_CREDITS", 20),
			BulkConcurrency: getInt("WORKFLOW_BULK_CONCURRENCY", 8),
			RecoverOnStart:  getBool("WORKFLOW_RECOVER_ON_START", true),
		},
		Session: SessionConfig{
			SigningKey: sessionKey,
			Issuer:     getEnv("SESSION_ISSUER", "regulus-idp"),
		},
	}
}

// IsProduction reports whether the process runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
