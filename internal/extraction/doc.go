// Package extraction defines the boundary between the ingestion pipeline and
// the external message classification service.
package extraction
