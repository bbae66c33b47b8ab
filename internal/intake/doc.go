// Package intake defines the clinical intake domain shared by the extraction
// and retrieval pipeline: conversation transcripts, the normalized structured
// record, and the provenance-tagged chunks indexed for retrieval.
package intake
