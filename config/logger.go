package config

import (
	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger 는 애플리케이션 전역 로거 인스턴스다.
// InitApp/InitLogger 가 호출되지 않더라도 기본 info 레벨로 동작한다.
var Logger *slog.Logger = newLogger("info")

// InitLogger 는 설정된 레벨로 전역 로거를 교체한다.
func InitLogger(cfg LoggingConfig) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	Logger = newLogger(level)
}

// newLogger 는 주어진 레벨로 gookit/slog 기반 로거를 생성한다.
// 필드를 datetime/level/message 로 제한하여 수집기 친화적인 JSON 을 출력한다.
func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	formatter := slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = "2006-01-02T15:04:05"
	})
	h.SetFormatter(formatter)

	return slog.NewWithHandlers(h)
}
