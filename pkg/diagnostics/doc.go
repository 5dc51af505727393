// Package diagnostics turns a parsed manifest into findings.
//
// [Checker] runs one task per [package] field and one per dependency,
// concurrently, and collects what they report. Each dependency is checked in
// a fixed order (author, name, version, realm placement, staleness) and stops
// at the first problem. Registry lookups that cannot be answered end the
// check silently: an unreachable registry never produces a finding.
//
// [Engine] tracks documents by URI, re-checks them on change and publishes
// the results through a [Publisher], discarding results that were overtaken
// by a newer edit, a close, or diagnostics being switched off.
//
// Finding codes and their message templates are listed in codes.go.
package diagnostics
