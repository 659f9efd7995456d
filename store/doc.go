// Package store is the optional Postgres sink for emitted feature rows and
// anomaly results. The pipeline runs fully in memory; this sink exists for
// offline analysis and for the operational API's recent-alert queries.
package store
