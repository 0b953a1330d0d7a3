// Package store persists incidents in a relational database through GORM.
// The handle is explicitly constructed and injected; it owns upsert-by-id
// semantics, parent-candidate lookups for the reconciler, read-API listings
// and the publication claim workflow.
package store
