// Package spec defines the specification record tracked by May-la Specs and
// the markdown document format specs are authored in.
//
// A spec document is a markdown file with an optional YAML front matter block:
//
//	---
//	id: SPEC-12
//	title: Implement caching layer
//	status: active
//	tags: [storage, depends-on:SPEC-3]
//	relations:
//	  - id: SPEC-9
//	    kind: related-to
//	updated: 2026-03-01T10:00:00Z
//	---
//	# Implement caching layer
//	...
//
// Cross-references are declared either in the relations list or as tags of
// the form <kind>:<spec id> for the kinds listed in RelationKinds.
package spec
