// Package codec reads and writes declarative pipeline documents.
//
// A Document is an ordered list of entries (processes, switches, links,
// process selections, nested pipelines, layout). Two encodings are supported,
// both at document version 2.0: the capsul XML dialect and a YAML rendition
// of the same entries. Build turns a Document into a graph through the
// dsl.Builder, and FromGraph walks a graph back into a Document, so that
// decoding an encoded graph reproduces its nodes, links, selection groups
// and exports.
//
// Unknown tags or keys fail the whole decode with an
// UnsupportedDeclarationError; no partial graph is ever returned.
package codec
