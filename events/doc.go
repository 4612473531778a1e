// Package events implements per-run progress event delivery: a bounded,
// single-producer/single-consumer safe Bus with heartbeats and termination
// signaling, a concurrent Registry mapping run ids to active buses, and
// wire encodings (SSE frames, WebSocket messages) for streaming consumers.
package events
