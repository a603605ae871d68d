// Package storage holds the pgx-backed persistence layer: subjects (users
// with their billing projection), clubs, and matches, plus the embedded
// goose migrations that define the schema.
//
// The stores implement the interfaces declared by the packages that use
// them; nothing here contains business rules. The one piece of behavior
// worth knowing about is SubjectsStore.ConsumeTrialMatch, a conditional
// UPDATE that flips trial_match_used exactly once no matter how many
// requests race for it.
package storage
