package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Vector     VectorConfig     `yaml:"vector"`
	Analyzers  AnalyzersConfig  `yaml:"analyzers"`
	Moderation ModerationConfig `yaml:"moderation"`
	Webhook    WebhookConfig    `yaml:"webhook"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// VectorConfig 는 Qdrant 벡터 저장소 접속 정보와 컬렉션 구성을 정의한다.
// API 키는 .env 의 QDRANT_API_KEY 로만 주입한다.
type VectorConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	TextCollection  string `yaml:"text_collection"`
	ImageCollection string `yaml:"image_collection"`
	TextDim         int    `yaml:"text_dim"`
	ImageDim        int    `yaml:"image_dim"`
}

// AnalyzersConfig 는 외부 스코어러/임베더 호출에 대한 설정이다.
type AnalyzersConfig struct {
	// EmbeddingModel 은 텍스트 임베딩에 사용할 Gemini 모델 이름이다.
	EmbeddingModel string `yaml:"embedding_model"`

	// InferenceBaseURL 은 NSFW 이미지/비디오 스코어러 서비스의 base URL 이다.
	// 비어 있으면 환경변수 INFERENCE_BASE_URL 을 사용한다.
	InferenceBaseURL string `yaml:"inference_base_url"`

	// TimeoutSeconds 는 스코어러 호출당 타임아웃(초)이다. 0 이하면 10초.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ModerationConfig 는 중복 탐지/RAG 검색 파라미터를 정의한다.
// 값이 0 인 경우 각 컴포넌트의 기본값을 사용한다.
type ModerationConfig struct {
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`
	DuplicateWindowHours int     `yaml:"duplicate_window_hours"`
	RAGLimit             int     `yaml:"rag_limit"`
	RAGThreshold         float64 `yaml:"rag_threshold"`
}

// WebhookConfig 는 결과 통지 웹훅 설정이다.
// 대상 URL 은 .env 의 MAIN_BACKEND_WEBHOOK_URL 로 주입한다.
type WebhookConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	// load configuration file
	data, err := os.ReadFile(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}

	var c AppConfig
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		panic(err)
	}
	config = &c

	InitLogger(c.Logging)
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
