// Package config loads the touchy YAML config file.
//
// A config file is first checked against an embedded CUE schema (closed
// structs, enumerated axes and message types, channel range), then decoded
// strictly with yaml.v3, then checked by Validate for the rules that span
// fields: one enabled note and one enabled velocity rule per channel,
// known controller names, rule fields that fit the row's kind.
//
// A loaded config is applied to a running engine as ordinary events
// (Events, Diff), so config edits go through the same single-writer path
// as edits from any other source.
package config
