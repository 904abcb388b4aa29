/*
Package session keeps named pipelines editable across requests.

A Manager loads pipeline documents from a ports.DocumentStore, hands callers a
live graph under a per-pipeline lock, and writes the document back after an
edit. An optional ports.DistributedLocker serializes edits across replicas.
*/
package session
