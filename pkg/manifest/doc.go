// Package manifest reads wally.toml files into a positioned model.
//
// # Overview
//
// [Parse] runs a small hand-written TOML tokenizer ([Tokenize]) and walks the
// resulting tokens, recording every string assignment in the [package] table
// and in the three dependency tables:
//
//	[package]
//	name = "acme/widget"
//	realm = "shared"
//
//	[dependencies]
//	Promise = "evaera/promise@4.0.0"
//
//	[server-dependencies]
//	DataStore = "acme/datastore@1.2"
//
// Each recorded value keeps the range of the whole assignment and of the
// literal itself, so diagnostics and editor features can point at exactly
// the text the user typed. Unfinished specifiers such as "evaera/pro" are
// kept as-is; [MatchSpecifier] reports which parts are complete.
//
// [Decode] offers the opposite trade-off: a strict full-TOML decode through
// BurntSushi/toml with no position information.
package manifest
