/*
Package ports defines the driven ports (interfaces) of pipegraph.

These interfaces decouple the graph core from external implementations: where
process declarations come from, where pipeline documents are kept, and how
concurrent editors coordinate.

# Key Interfaces

  - Catalog: resolves module references to process declarations (Loam, Memory).
  - DocumentStore: persists declarative pipeline documents (File, Redis, Memory).
  - DistributedLocker: serializes edits to a pipeline across replicas.
*/
package ports
