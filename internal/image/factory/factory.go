package factory

import (
	"fmt"

	"github.com/iWorld-y/weflow/internal/config"
	"github.com/iWorld-y/weflow/internal/image"
	"github.com/iWorld-y/weflow/internal/image/gemini"
	"github.com/iWorld-y/weflow/internal/image/qwen"
)

// NewGenerator 根据配置创建文生图实例
func NewGenerator(cfg config.ImageConfig) (image.Generator, error) {
	switch cfg.Provider {
	case "", config.ImageProviderMock:
		return image.Mock{}, nil

	case config.ImageProviderQwen:
		if cfg.DashScopeKey == "" {
			return nil, config.ErrMissingDashScopeKey
		}
		return qwen.NewClient(cfg.DashScopeKey), nil

	case config.ImageProviderGemini:
		if cfg.GoogleKey == "" {
			return nil, config.ErrMissingGoogleKey
		}
		return gemini.NewClient(cfg.GoogleKey, "tmp"), nil

	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownImageProvider, cfg.Provider)
	}
}
