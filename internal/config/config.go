package config

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Slack      SlackConfig
	Embedding  EmbeddingConfig
	Classifier ClassifierConfig
	Ingest     IngestConfig
	Report     ReportConfig
	Auth       AuthConfig
	Postgres   PostgresConfig
}

type ServerConfig struct {
	Port string
}

type SlackConfig struct {
	BotToken  string
	ChannelID string

	// SigningSecret: Slack 인터랙션 요청 서명 검증용
	SigningSecret string
}

type EmbeddingConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ClassifierConfig - 분류 임계값 설정
//
// 합의/유사도 임계값은 유도 근거가 없는 튜닝 상수이므로 전부 환경변수로 노출.
// 프로세스 전역 싱글턴이 아니라 생성 시점에 주입됨.
type ClassifierConfig struct {
	TopK int

	// ConsensusFraction: 이웃의 이 비율 이상이 같은 라벨이면 합의로 간주
	ConsensusFraction float64

	// HighSimilarity: 합의 분기를 타기 위한 최상위 유사도 하한
	HighSimilarity float64

	// AutoSilenceConfidence: 이 신뢰도 미만이면 자동 silence 대상이 아님
	AutoSilenceConfidence float64

	// ColdStartConfidence: 이력이 없을 때 부여하는 신뢰도
	// 항상 AutoSilenceConfidence보다 낮아야 함
	ColdStartConfidence float64

	// 휴리스틱 가중치 (합이 1이 되도록 정규화됨)
	WeightMonitor   float64
	WeightSeverity  float64
	WeightRecovery  float64
	WeightNeighbors float64

	// StatsWindow: 모니터 noisy rate 집계 기간
	StatsWindow time.Duration
}

type IngestConfig struct {
	// DedupWindow: 같은 (provider, event id)의 재전송을 중복 처리하는 버킷 크기
	DedupWindow time.Duration
}

type ReportConfig struct {
	TopN int
}

// AuthConfig - 대시보드 인증 설정
//
// 계정은 ADMIN_USERNAME/ADMIN_PASSWORD로 부팅 시 프로비저닝한다.
// 공개 가입은 받지 않는다.
type AuthConfig struct {
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
	AdminUsername  string
	AdminPassword  string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port: getenv("PORT", "8080"),
		},
		Slack: SlackConfig{
			BotToken:      os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID:     os.Getenv("SLACK_CHANNEL_ID"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		},
		Embedding: EmbeddingConfig{
			APIKey:  os.Getenv("AI_API_KEY"),
			Model:   getenv("EMBEDDING_MODEL", "text-embedding-004"),
			Timeout: getenvDuration("EMBEDDING_TIMEOUT", 10*time.Second),
		},
		Classifier: ClassifierConfig{
			TopK:                  getenvInt("CLASSIFIER_TOP_K", 5),
			ConsensusFraction:     getenvFloat("CLASSIFIER_CONSENSUS_FRACTION", 0.8),
			HighSimilarity:        getenvFloat("CLASSIFIER_HIGH_SIMILARITY", 0.75),
			AutoSilenceConfidence: getenvFloat("CLASSIFIER_AUTO_SILENCE_CONFIDENCE", 0.7),
			ColdStartConfidence:   getenvFloat("CLASSIFIER_COLD_START_CONFIDENCE", 0.3),
			WeightMonitor:         getenvFloat("CLASSIFIER_WEIGHT_MONITOR", 0.35),
			WeightSeverity:        getenvFloat("CLASSIFIER_WEIGHT_SEVERITY", 0.2),
			WeightRecovery:        getenvFloat("CLASSIFIER_WEIGHT_RECOVERY", 0.15),
			WeightNeighbors:       getenvFloat("CLASSIFIER_WEIGHT_NEIGHBORS", 0.3),
			StatsWindow:           getenvDuration("CLASSIFIER_STATS_WINDOW", 7*24*time.Hour),
		},
		Ingest: IngestConfig{
			DedupWindow: getenvDuration("DEDUP_WINDOW", 5*time.Minute),
		},
		Report: ReportConfig{
			TopN: getenvInt("REPORT_TOP_N", 5),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			AccessTTL:      getenvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:     getenvDuration("JWT_REFRESH_TTL", 720*time.Hour),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:     getenv("AUTH_COOKIE_PATH", "/"),
			CookieSecure:   getenvBool("AUTH_COOKIE_SECURE", true),
			CookieSameSite: getenvSameSite("AUTH_COOKIE_SAMESITE", http.SameSiteLaxMode),
			AdminUsername:  os.Getenv("ADMIN_USERNAME"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvSameSite(key string, fallback http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return fallback
	}
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
