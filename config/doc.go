// Copyright (c) VoiceLoop Authors.
// Licensed under the MIT License.

/*
Package config 提供 voiceloop 的统一配置加载。

配置优先级: 默认值 → YAML 文件 → 环境变量（VOICELOOP_ 前缀）。

	cfg, err := config.NewLoader().
	    WithConfigPath("config.yaml").
	    Load()
*/
package config
