// Package server exposes the read API for stored alerts plus operational
// endpoints: manual ingest and publish triggers, health, and Prometheus
// metrics.
package server
