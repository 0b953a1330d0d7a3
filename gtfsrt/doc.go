// Package gtfsrt fetches and decodes GTFS-Realtime service-alert feeds.
//
// The schema is the compiled GTFS-RT protobuf binding; decoding flattens
// each alert entity to the fields the ingestion pipeline consumes while
// preserving informed-entity order and the absent/empty distinction for
// enum fields.
package gtfsrt
