// Package email sends the product's transactional emails through a
// provider-agnostic EmailSender interface.
//
// Two implementations are provided: PostmarkClient for production delivery
// with open tracking, and DevSender for local development, which writes each
// email as an HTML and JSON file pair instead of sending it.
//
// On top of the sender sits TrialReminder, the billing notification hook that
// warns a subject a few days before their trial converts to a paid charge.
package email
