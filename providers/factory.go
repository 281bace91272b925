// Package providers 汇集各能力提供者的具体实现，并按配置组装成
// 会话可用的提供者集合。
package providers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/config"
	"github.com/BaSui01/voiceloop/providers/denoise"
	"github.com/BaSui01/voiceloop/providers/energy"
	"github.com/BaSui01/voiceloop/providers/httptts"
	"github.com/BaSui01/voiceloop/providers/openai"
	"github.com/BaSui01/voiceloop/providers/wsstt"
	"github.com/BaSui01/voiceloop/session"
	"github.com/BaSui01/voiceloop/speech"
	"github.com/BaSui01/voiceloop/types"
)

// Build 按配置组装完整的提供者集合。未知名称返回配置错误。
func Build(cfg config.ProvidersConfig, logger *zap.Logger) (session.Providers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var p session.Providers

	switch cfg.STT {
	case "ws":
		p.STT = wsstt.New(wsstt.Config{URL: cfg.STTURL}, logger)
	default:
		return session.Providers{}, unknownProvider("stt", cfg.STT)
	}

	switch cfg.LLM {
	case "openai":
		p.LLM = openai.New(openai.Config{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		}, logger)
	default:
		return session.Providers{}, unknownProvider("llm", cfg.LLM)
	}

	switch cfg.TTS {
	case "http":
		p.TTS = httptts.New(httptts.Config{
			URL:   cfg.TTSURL,
			Voice: cfg.TTSVoice,
		}, logger)
	default:
		return session.Providers{}, unknownProvider("tts", cfg.TTS)
	}

	switch cfg.VAD {
	case "energy":
		vadCfg := energy.DefaultConfig()
		if cfg.VADThreshold > 0 {
			vadCfg.Threshold = cfg.VADThreshold
		}
		p.VAD = energy.New(vadCfg, logger)
	default:
		return session.Providers{}, unknownProvider("vad", cfg.VAD)
	}

	if cfg.NoiseCancellation {
		p.NC = denoise.New()
	} else {
		p.NC = speech.PassthroughNC{}
	}

	return p, nil
}

func unknownProvider(kind, name string) *types.Error {
	return types.NewError(types.ErrConfiguration,
		fmt.Sprintf("unknown %s provider %q", kind, name))
}
