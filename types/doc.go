// Copyright (c) VoiceLoop Authors.
// Licensed under the MIT License.

/*
Package types provides the shared types used across the voiceloop orchestrator.

types is the lowest-level public package and depends on no other voiceloop
package, so every other module (session, seedstore, endpoint, api, ...) can
import its contracts without cycles.

# Core types

  - Message / Role       — conversation message (system / user / assistant)
  - Error / ErrorCode    — structured error taxonomy with Retryable flag,
    HTTP status mapping and cause unwrapping
  - MetricsEvent         — per-turn usage/latency event consumed by the
    metrics collector
*/
package types
